package vm

import (
	"strconv"
	"strings"
	"time"

	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/errz"
	"github.com/candor-lang/candor/object"
)

// callBuiltin dispatches a builtin by table index. Arity was checked at
// compile time, so args has exactly the declared length.
func (m *Machine) callBuiltin(idx int, args []object.Value) (object.Value, error) {
	switch idx {
	case bytecode.BuiltinShow, bytecode.BuiltinPrint:
		m.emitOutput(args[0].Display())
		return object.Nothing(), nil
	case bytecode.BuiltinLength:
		return object.Length(args[0])
	case bytecode.BuiltinFormat:
		return object.Text(args[0].Display()), nil
	case bytecode.BuiltinParseInt:
		text, ok := args[0].AsText()
		if !ok {
			return object.Value{}, errz.Newf(errz.ErrType, "parse_int needs text, got %s", args[0].Kind())
		}
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return object.Value{}, errz.Newf(errz.ErrValue, "cannot parse %q as an integer", text)
		}
		return object.Int(n), nil
	case bytecode.BuiltinParseFloat:
		text, ok := args[0].AsText()
		if !ok {
			return object.Value{}, errz.Newf(errz.ErrType, "parse_float needs text, got %s", args[0].Kind())
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return object.Value{}, errz.Newf(errz.ErrValue, "cannot parse %q as a float", text)
		}
		return object.Float(f), nil
	case bytecode.BuiltinAbs:
		return builtinAbs(args[0])
	case bytecode.BuiltinMin:
		return builtinMinMax(args[0], args[1], true)
	case bytecode.BuiltinMax:
		return builtinMinMax(args[0], args[1], false)
	case bytecode.BuiltinCopy:
		return object.Clone(args[0]), nil
	}
	return object.Value{}, errz.Newf(errz.ErrRuntime, "unknown builtin %d", idx)
}

func builtinAbs(v object.Value) (object.Value, error) {
	if n, ok := v.AsInt(); ok {
		if n < 0 {
			n = -n
		}
		return object.Int(n), nil
	}
	if f, ok := v.AsFloat(); ok {
		if f < 0 {
			f = -f
		}
		return object.Float(f), nil
	}
	if d, ok := v.AsDuration(); ok {
		if d < 0 {
			d = -d
		}
		return object.Duration(time.Duration(d)), nil
	}
	return object.Value{}, errz.Newf(errz.ErrType, "abs needs a number, got %s", v.Kind())
}

func builtinMinMax(a, b object.Value, min bool) (object.Value, error) {
	// Mixed int/float pairs promote, matching arithmetic.
	if a.IsNumeric() && b.IsNumeric() && (a.Kind() != b.Kind()) {
		af, bf := numericAsFloat(a), numericAsFloat(b)
		if (af < bf) == min {
			return a, nil
		}
		return b, nil
	}
	cmp, ok := object.Compare(a, b)
	if !ok {
		if a.IsNumeric() && b.IsNumeric() {
			af, bf := numericAsFloat(a), numericAsFloat(b)
			if (af < bf) == min {
				return a, nil
			}
			return b, nil
		}
		return object.Value{}, errz.Newf(errz.ErrType, "cannot order %s and %s", a.Kind(), b.Kind())
	}
	if (cmp < 0) == min {
		return a, nil
	}
	return b, nil
}

func numericAsFloat(v object.Value) float64 {
	if n, ok := v.AsInt(); ok {
		return float64(n)
	}
	f, _ := v.AsFloat()
	return f
}
