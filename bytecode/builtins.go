package bytecode

// Builtin indexes are part of the program format: CallBuiltin operands
// refer to this table by position, so the order here is frozen.
const (
	BuiltinShow = iota
	BuiltinPrint
	BuiltinLength
	BuiltinFormat
	BuiltinParseInt
	BuiltinParseFloat
	BuiltinAbs
	BuiltinMin
	BuiltinMax
	BuiltinCopy
)

// BuiltinInfo describes one builtin's calling convention.
type BuiltinInfo struct {
	Name  string
	Arity int
}

// Builtins lists the builtin table in index order.
var Builtins = []BuiltinInfo{
	{Name: "show", Arity: 1},
	{Name: "print", Arity: 1},
	{Name: "length", Arity: 1},
	{Name: "format", Arity: 1},
	{Name: "parse_int", Arity: 1},
	{Name: "parse_float", Arity: 1},
	{Name: "abs", Arity: 1},
	{Name: "min", Arity: 2},
	{Name: "max", Arity: 2},
	{Name: "copy", Arity: 1},
}

// LookupBuiltin resolves a builtin by name.
func LookupBuiltin(name string) (int, BuiltinInfo, bool) {
	for i, b := range Builtins {
		if b.Name == name {
			return i, b, true
		}
	}
	return 0, BuiltinInfo{}, false
}
