package bytecode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/candor-lang/candor/object"
	"github.com/candor-lang/candor/op"
)

func sampleProgram() *Program {
	return &Program{
		ID: NewID(),
		Instructions: []Instruction{
			New(op.LoadConst, 0, 0),
			New(op.ShowValue, 0),
			New(op.Halt),
		},
		Constants: []Constant{IntConst(5)},
		Names:     []string{"x"},
		Entry:     0,
		Registers: 1,
		Locations: []Location{{Line: 1, Column: 1}, {Line: 1, Column: 1}, {Line: 1, Column: 1}},
	}
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, sampleProgram().Validate())
}

func TestValidateReportsAllProblems(t *testing.T) {
	p := sampleProgram()
	p.Instructions = append(p.Instructions,
		New(op.Jump, 99),
		New(op.LoadConst, 0, 7),
	)
	p.Locations = nil
	err := p.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "target 99 out of range")
	require.Contains(t, err.Error(), "constant 7 out of range")
}

func TestValidateRegisterCeiling(t *testing.T) {
	p := sampleProgram()
	p.Locations = nil
	p.Functions = []Function{{Name: "big", Entry: 0, Params: 1, Registers: 300}}
	p.Entry = 2
	err := p.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "register count 300")
}

func TestMarshalRoundTrip(t *testing.T) {
	p := sampleProgram()
	p.Functions = []Function{{Name: "noop", Entry: 2, Params: 0, Registers: 0}}
	p.JumpTables = []JumpTable{{Entries: []JumpEntry{{Ctor: "Some", Target: 1}}, Default: 2}}
	p.Variants = []VariantLayout{{TypeName: "Option", Ctor: "Some", Arity: 1}}
	p.Records = []RecordLayout{{Name: "Point", Fields: []string{"x"}, Defaults: []int{0}}}

	data, err := Marshal(p)
	require.NoError(t, err)

	loaded, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, p.ID, loaded.ID)
	require.Equal(t, p.Instructions, loaded.Instructions)
	require.Equal(t, p.Constants, loaded.Constants)
	require.Equal(t, p.Functions, loaded.Functions)
	require.Equal(t, p.JumpTables, loaded.JumpTables)
	require.Equal(t, p.Entry, loaded.Entry)
	require.Equal(t, p.Registers, loaded.Registers)
}

func TestUnmarshalRejectsWrongVersion(t *testing.T) {
	data := []byte(`{"version": 99, "instructions": [], "entry": 0}`)
	_, err := Unmarshal(data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "format version")
}

func TestConstantConversion(t *testing.T) {
	tests := []struct {
		constant Constant
		want     object.Value
	}{
		{IntConst(42), object.Int(42)},
		{FloatConst(2.5), object.Float(2.5)},
		{TextConst("hi"), object.Text("hi")},
		{BoolConst(true), object.Bool(true)},
		{NothingConst(), object.Nothing()},
		{DurationConst(3 * time.Second), object.Duration(3 * time.Second)},
		{DateConst(2024, time.June, 1), object.Date(2024, time.June, 1)},
		{SpanConst(2, 3), object.Span(2, 3)},
	}
	for _, tt := range tests {
		v, err := tt.constant.Value()
		require.NoError(t, err)
		require.True(t, object.Equals(tt.want, v), "constant %v", tt.constant)
	}
}

func TestInstructionString(t *testing.T) {
	require.Equal(t, "HALT", New(op.Halt).String())
	require.Contains(t, New(op.Call, 1, 2, 3).String(), "CALL")
	require.Contains(t, New(op.Jump, 7).String(), "7")
}
