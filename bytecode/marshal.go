package bytecode

import (
	"encoding/json"
	"fmt"

	"github.com/candor-lang/candor/op"
)

// Serialized programs are JSON. Instructions flatten to four-element
// arrays [op, a, b, c]; the inline-cache slot is warm-up state and is
// deliberately not persisted, so a loaded program starts cold.

type programState struct {
	Version      int             `json:"version"`
	ID           string          `json:"id,omitempty"`
	Instructions [][4]uint32     `json:"instructions"`
	Constants    []Constant      `json:"constants,omitempty"`
	Names        []string        `json:"names,omitempty"`
	Functions    []Function      `json:"functions,omitempty"`
	Records      []RecordLayout  `json:"records,omitempty"`
	Variants     []VariantLayout `json:"variants,omitempty"`
	JumpTables   []JumpTable     `json:"jump_tables,omitempty"`
	Entry        int             `json:"entry"`
	Registers    int             `json:"registers"`
	Locations    []Location      `json:"locations,omitempty"`
	Filename     string          `json:"filename,omitempty"`
	Source       string          `json:"source,omitempty"`
}

// Marshal serializes the program with the current format version.
func Marshal(p *Program) ([]byte, error) {
	state := programState{
		Version:    FormatVersion,
		ID:         p.ID,
		Constants:  p.Constants,
		Names:      p.Names,
		Functions:  p.Functions,
		Records:    p.Records,
		Variants:   p.Variants,
		JumpTables: p.JumpTables,
		Entry:      p.Entry,
		Registers:  p.Registers,
		Locations:  p.Locations,
		Filename:   p.Filename,
		Source:     p.Source,
	}
	state.Instructions = make([][4]uint32, len(p.Instructions))
	for i, ins := range p.Instructions {
		state.Instructions[i] = [4]uint32{uint32(ins.Op), uint32(ins.A), uint32(ins.B), uint32(ins.C)}
	}
	return json.MarshalIndent(state, "", "  ")
}

// Unmarshal deserializes a program and validates it. Unknown format
// versions are rejected.
func Unmarshal(data []byte) (*Program, error) {
	var state programState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("invalid program data: %w", err)
	}
	if state.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported program format version %d (expected %d)", state.Version, FormatVersion)
	}
	p := &Program{
		ID:         state.ID,
		Constants:  state.Constants,
		Names:      state.Names,
		Functions:  state.Functions,
		Records:    state.Records,
		Variants:   state.Variants,
		JumpTables: state.JumpTables,
		Entry:      state.Entry,
		Registers:  state.Registers,
		Locations:  state.Locations,
		Filename:   state.Filename,
		Source:     state.Source,
	}
	p.Instructions = make([]Instruction, len(state.Instructions))
	for i, raw := range state.Instructions {
		p.Instructions[i] = Instruction{
			Op: op.Code(raw[0]),
			A:  uint16(raw[1]),
			B:  uint16(raw[2]),
			C:  uint16(raw[3]),
		}
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}
	return p, nil
}
