// Package bytecode defines the compiled program representation shared
// by the compiler and the virtual machine, and its serialized form.
package bytecode

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/candor-lang/candor/op"
)

// FormatVersion tags serialized programs. A mismatch on load is an
// error rather than a best-effort read.
const FormatVersion = 1

// MaxRegisters is the per-frame register ceiling. The compiler fails
// any function whose high-water mark exceeds it.
const MaxRegisters = 256

// Function is one entry in the function table. Entry is an absolute
// offset into the program's single instruction stream.
type Function struct {
	Name      string `json:"name"`
	Entry     int    `json:"entry"`
	Params    int    `json:"params"`
	Registers int    `json:"registers"`
}

// RecordLayout describes a declared record type. Defaults holds one
// constant-pool index per field; -1 means the field defaults to
// nothing.
type RecordLayout struct {
	Name     string   `json:"name"`
	Fields   []string `json:"fields"`
	Defaults []int    `json:"defaults"`
}

// VariantLayout describes one constructor of an inductive type.
// Fields is empty for positional constructors.
type VariantLayout struct {
	TypeName string   `json:"type"`
	Ctor     string   `json:"ctor"`
	Arity    int      `json:"arity"`
	Fields   []string `json:"fields,omitempty"`
}

// JumpEntry maps a constructor name to an absolute jump target.
type JumpEntry struct {
	Ctor   string `json:"ctor"`
	Target int    `json:"target"`
}

// JumpTable drives constructor dispatch for inspect statements.
// Default is taken when no entry matches; the compiler always emits a
// valid default target.
type JumpTable struct {
	Entries []JumpEntry `json:"entries"`
	Default int         `json:"default"`
}

// Location is a compact source position for one instruction.
type Location struct {
	Line   int32 `json:"line"`
	Column int32 `json:"column"`
}

// Program is a compiled program: one flat instruction stream plus the
// tables its instructions index into. It is built once by the compiler
// and treated as immutable afterward; a single Program may be executed
// by many machines.
type Program struct {
	ID           string
	Instructions []Instruction
	Constants    []Constant
	Names        []string // interned names: globals, fields, predicates, zones
	Functions    []Function
	Records      []RecordLayout
	Variants     []VariantLayout
	JumpTables   []JumpTable
	Entry        int // offset of the first top-level instruction
	Registers    int // register count for the top-level frame
	Locations    []Location
	Filename     string
	Source       string
}

// NewID returns a fresh program identifier.
func NewID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}

// LocationAt returns the source position recorded for an instruction
// offset, or a zero Location when none was recorded.
func (p *Program) LocationAt(ip int) Location {
	if ip < 0 || ip >= len(p.Locations) {
		return Location{}
	}
	return p.Locations[ip]
}

// FunctionAt returns the function whose body contains the given
// instruction offset, or nil for top-level code. Function bodies
// precede the top-level code in the stream.
func (p *Program) FunctionAt(ip int) *Function {
	if ip >= p.Entry {
		return nil
	}
	var best *Function
	for i := range p.Functions {
		fn := &p.Functions[i]
		if fn.Entry <= ip && (best == nil || fn.Entry > best.Entry) {
			best = fn
		}
	}
	return best
}

// Validate checks internal consistency: table indexes in range, jump
// targets inside the stream, and register counts under the ceiling.
// All problems are reported together.
func (p *Program) Validate() error {
	var result *multierror.Error
	n := len(p.Instructions)

	if p.Entry < 0 || p.Entry >= n {
		result = multierror.Append(result, fmt.Errorf("entry offset %d out of range", p.Entry))
	}
	if p.Registers < 0 || p.Registers > MaxRegisters {
		result = multierror.Append(result, fmt.Errorf("top-level register count %d exceeds limit %d", p.Registers, MaxRegisters))
	}
	if len(p.Locations) != 0 && len(p.Locations) != n {
		result = multierror.Append(result, fmt.Errorf("source map has %d entries for %d instructions", len(p.Locations), n))
	}

	for i, fn := range p.Functions {
		if fn.Entry < 0 || fn.Entry >= n {
			result = multierror.Append(result, fmt.Errorf("function %q (index %d) entry %d out of range", fn.Name, i, fn.Entry))
		}
		if fn.Registers < fn.Params || fn.Registers > MaxRegisters {
			result = multierror.Append(result, fmt.Errorf("function %q register count %d invalid (params %d, limit %d)", fn.Name, fn.Registers, fn.Params, MaxRegisters))
		}
	}

	for i, table := range p.JumpTables {
		if table.Default < 0 || table.Default >= n {
			result = multierror.Append(result, fmt.Errorf("jump table %d default target %d out of range", i, table.Default))
		}
		for _, e := range table.Entries {
			if e.Target < 0 || e.Target >= n {
				result = multierror.Append(result, fmt.Errorf("jump table %d target %d for %q out of range", i, e.Target, e.Ctor))
			}
		}
	}

	for i, layout := range p.Records {
		if len(layout.Defaults) != len(layout.Fields) {
			result = multierror.Append(result, fmt.Errorf("record %q has %d defaults for %d fields", layout.Name, len(layout.Defaults), len(layout.Fields)))
		}
		for _, d := range layout.Defaults {
			if d != -1 && (d < 0 || d >= len(p.Constants)) {
				result = multierror.Append(result, fmt.Errorf("record %q (index %d) default constant %d out of range", layout.Name, i, d))
			}
		}
	}

	for ip, ins := range p.Instructions {
		if err := p.validateInstruction(ip, ins); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func (p *Program) validateInstruction(ip int, ins Instruction) error {
	info := op.GetInfo(ins.Op)
	if info.Name == "" && ins.Op != op.Invalid {
		return fmt.Errorf("offset %d: unknown opcode %d", ip, ins.Op)
	}
	n := len(p.Instructions)
	checkTarget := func(target int) error {
		if target < 0 || target >= n {
			return fmt.Errorf("offset %d: %s target %d out of range", ip, info.Name, target)
		}
		return nil
	}
	switch ins.Op {
	case op.Jump, op.JumpBack:
		return checkTarget(int(ins.A))
	case op.JumpIfFalse, op.JumpIfTrue:
		return checkTarget(int(ins.B))
	case op.IterNext, op.IterNextPair:
		return checkTarget(int(ins.C))
	case op.MatchJump:
		if int(ins.B) >= len(p.JumpTables) {
			return fmt.Errorf("offset %d: jump table %d out of range", ip, ins.B)
		}
	case op.LoadConst:
		if int(ins.B) >= len(p.Constants) {
			return fmt.Errorf("offset %d: constant %d out of range", ip, ins.B)
		}
	case op.LoadGlobal, op.CallNamed, op.CallExternal:
		if int(ins.B) >= len(p.Names) {
			return fmt.Errorf("offset %d: name %d out of range", ip, ins.B)
		}
	case op.StoreGlobal:
		if int(ins.A) >= len(p.Names) {
			return fmt.Errorf("offset %d: name %d out of range", ip, ins.A)
		}
	case op.Call, op.TailCall, op.GiveCall:
		if int(ins.B) >= len(p.Functions) {
			return fmt.Errorf("offset %d: function %d out of range", ip, ins.B)
		}
	case op.MakeRecord, op.MakeDefaults:
		if int(ins.B) >= len(p.Records) {
			return fmt.Errorf("offset %d: record layout %d out of range", ip, ins.B)
		}
	case op.MakeVariant:
		if int(ins.B) >= len(p.Variants) {
			return fmt.Errorf("offset %d: variant layout %d out of range", ip, ins.B)
		}
	}
	return nil
}

// Stats summarizes a program for diagnostics.
type Stats struct {
	InstructionCount int
	ConstantCount    int
	FunctionCount    int
	NameCount        int
}

// Stats returns size statistics for the program.
func (p *Program) Stats() Stats {
	return Stats{
		InstructionCount: len(p.Instructions),
		ConstantCount:    len(p.Constants),
		FunctionCount:    len(p.Functions),
		NameCount:        len(p.Names),
	}
}
