package compiler

import (
	"github.com/candor-lang/candor/ast"
	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/errz"
	"github.com/candor-lang/candor/object"
	"github.com/candor-lang/candor/op"
)

// compileExpr emits code leaving the expression's value in dst. Any
// temporaries claimed while compiling are released before returning,
// so the register file is unchanged apart from the high-water mark.
func (c *Compiler) compileExpr(e ast.Expr, dst uint16) error {
	c.pos = e.Pos()
	switch expr := e.(type) {
	case *ast.Ident:
		return c.compileIdent(expr, dst)
	case *ast.IntLit:
		c.emit(op.LoadConst, dst, c.constant(bytecode.IntConst(expr.Value)))
		c.setRegKind(dst, object.IntKind)
		return nil
	case *ast.FloatLit:
		c.emit(op.LoadConst, dst, c.constant(bytecode.FloatConst(expr.Value)))
		c.setRegKind(dst, object.FloatKind)
		return nil
	case *ast.BoolLit:
		if expr.Value {
			c.emit(op.LoadTrue, dst)
		} else {
			c.emit(op.LoadFalse, dst)
		}
		c.setRegKind(dst, object.BoolKind)
		return nil
	case *ast.TextLit:
		c.emit(op.LoadConst, dst, c.constant(bytecode.TextConst(expr.Value)))
		c.setRegKind(dst, object.TextKind)
		return nil
	case *ast.NothingLit:
		c.emit(op.LoadNone, dst)
		c.setRegKind(dst, object.NothingKind)
		return nil
	case *ast.DurationLit:
		c.emit(op.LoadConst, dst, c.constant(bytecode.DurationConst(expr.Value)))
		c.setRegKind(dst, object.DurationKind)
		return nil
	case *ast.DateLit:
		c.emit(op.LoadConst, dst, c.constant(bytecode.DateConst(expr.Year, expr.Month, expr.Day)))
		c.setRegKind(dst, object.DateKind)
		return nil
	case *ast.TimeLit:
		c.emit(op.LoadConst, dst, c.constant(bytecode.TimeConst(expr.Nanos)))
		c.setRegKind(dst, object.TimeOfDayKind)
		return nil
	case *ast.SpanLit:
		c.emit(op.LoadConst, dst, c.constant(bytecode.SpanConst(expr.Months, expr.Days)))
		c.setRegKind(dst, object.SpanKind)
		return nil
	case *ast.CounterLit:
		c.emit(op.MakeCounter, dst)
		c.setRegKind(dst, object.CounterKind)
		return nil
	case *ast.ListLit:
		return c.compileSequence(expr.Items, dst, op.MakeList, object.ListKind)
	case *ast.TupleLit:
		return c.compileSequence(expr.Items, dst, op.MakeTuple, object.TupleKind)
	case *ast.SetLit:
		return c.compileSequence(expr.Items, dst, op.MakeSet, object.SetKind)
	case *ast.MapLit:
		return c.compileMapLit(expr, dst)
	case *ast.RangeLit:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			low, err := c.compileTemp(expr.Low, claim)
			if err != nil {
				return err
			}
			high, err := c.compileTemp(expr.High, claim)
			if err != nil {
				return err
			}
			c.emit(op.MakeRange, dst, low, high)
			c.setRegKind(dst, object.RangeKind)
			return nil
		})
	case *ast.Infix:
		return c.compileInfix(expr, dst)
	case *ast.Prefix:
		return c.compilePrefix(expr, dst)
	case *ast.Call:
		return c.compileCall(expr, dst)
	case *ast.Index:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			target, err := c.compileTemp(expr.Target, claim)
			if err != nil {
				return err
			}
			index, err := c.compileTemp(expr.Index, claim)
			if err != nil {
				return err
			}
			c.emit(op.IndexGet, dst, target, index)
			c.setRegKind(dst, kindUnknown)
			return nil
		})
	case *ast.SliceOf:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			target, err := c.compileTemp(expr.Target, claim)
			if err != nil {
				return err
			}
			low, err := c.compileTemp(expr.Low, claim)
			if err != nil {
				return err
			}
			high, err := c.compileTemp(expr.High, claim)
			if err != nil {
				return err
			}
			if high != low+1 {
				return c.errorf(errz.ErrCompile, "internal: slice bound registers not adjacent")
			}
			c.emit(op.SliceGet, dst, target, low)
			c.setRegKind(dst, kindUnknown)
			return nil
		})
	case *ast.FieldAccess:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			target, err := c.compileTemp(expr.Target, claim)
			if err != nil {
				return err
			}
			c.emit(op.GetField, dst, target, c.name(expr.Field))
			c.setRegKind(dst, kindUnknown)
			return nil
		})
	case *ast.NewRecord:
		return c.compileNewRecord(expr, dst)
	case *ast.NewVariant:
		return c.compileNewVariant(expr, dst)
	case *ast.AsyncExpr:
		return c.errorf(errz.ErrCompile, "%q requires the asynchronous evaluator", expr.Form)
	default:
		return c.errorf(errz.ErrCompile, "cannot compile expression %T", e)
	}
}

func (c *Compiler) compileIdent(e *ast.Ident, dst uint16) error {
	res, found := c.table.Resolve(e.Name)
	if !found {
		// A bare constructor name is a nullary variant construction.
		if idx, isCtor := c.variants[e.Name]; isCtor {
			if c.prog.Variants[idx].Arity != 0 {
				return c.errorf(errz.ErrCompile, "constructor %q needs %d values", e.Name, c.prog.Variants[idx].Arity)
			}
			c.emit(op.MakeVariant, dst, uint16(idx), 0)
			c.setRegKind(dst, object.VariantKind)
			return nil
		}
		return c.undefinedError(e.Name)
	}
	if res.Symbol.Moved {
		return c.errorf(errz.ErrCompile, "%q is no longer usable: it was given away", e.Name)
	}
	switch res.Scope {
	case ScopeGlobal:
		c.emit(op.LoadGlobal, dst, c.name(e.Name))
		if kind, ok := c.globalKinds[e.Name]; ok {
			c.setRegKind(dst, kind)
		} else {
			c.setRegKind(dst, kindUnknown)
		}
	case ScopeLocal:
		c.emit(op.Move, dst, uint16(res.Symbol.Register))
		c.setRegKind(dst, c.kindOf(uint16(res.Symbol.Register)))
	default:
		// Captures compile to the reserved upvalue opcodes, which fail
		// at run time until closures land.
		c.emit(op.LoadUpvalue, dst, uint16(res.Symbol.Register))
		c.setRegKind(dst, kindUnknown)
	}
	return nil
}

func (c *Compiler) compileSequence(items []ast.Expr, dst uint16, build op.Code, kind object.Kind) error {
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		var base uint16
		for i, item := range items {
			reg, err := c.compileTemp(item, claim)
			if err != nil {
				return err
			}
			if i == 0 {
				base = reg
			}
		}
		c.emit(build, dst, base, uint16(len(items)))
		c.setRegKind(dst, kind)
		return nil
	})
}

func (c *Compiler) compileMapLit(e *ast.MapLit, dst uint16) error {
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		var base uint16
		for i, key := range e.Keys {
			keyReg, err := claim()
			if err != nil {
				return err
			}
			if i == 0 {
				base = keyReg
			}
			c.emit(op.LoadConst, keyReg, c.constant(bytecode.TextConst(key)))
			if _, err := c.compileTemp(e.Values[i], claim); err != nil {
				return err
			}
		}
		c.emit(op.MakeMap, dst, base, uint16(len(e.Keys)))
		c.setRegKind(dst, object.MapKind)
		return nil
	})
}

func (c *Compiler) compileInfix(e *ast.Infix, dst uint16) error {
	switch e.Op {
	case ast.OpAnd:
		return c.compileAnd(e, dst)
	case ast.OpOr:
		return c.compileOr(e, dst)
	}
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		left, err := c.compileTemp(e.Left, claim)
		if err != nil {
			return err
		}
		right, err := c.compileTemp(e.Right, claim)
		if err != nil {
			return err
		}
		lk, rk := c.kindOf(left), c.kindOf(right)
		bothInt := lk == object.IntKind && rk == object.IntKind

		pick := func(generic, specialized op.Code) op.Code {
			if bothInt {
				return specialized
			}
			return generic
		}

		switch e.Op {
		case ast.OpAdd:
			c.emit(pick(op.Add, op.AddInt), dst, left, right)
			c.setRegKind(dst, arithKind(e.Op, lk, rk))
		case ast.OpSub:
			c.emit(pick(op.Sub, op.SubInt), dst, left, right)
			c.setRegKind(dst, arithKind(e.Op, lk, rk))
		case ast.OpMul:
			c.emit(pick(op.Mul, op.MulInt), dst, left, right)
			c.setRegKind(dst, arithKind(e.Op, lk, rk))
		case ast.OpDiv:
			c.emit(op.Div, dst, left, right)
			c.setRegKind(dst, arithKind(e.Op, lk, rk))
		case ast.OpMod:
			c.emit(op.Mod, dst, left, right)
			c.setRegKind(dst, object.IntKind)
		case ast.OpEq:
			c.emit(pick(op.Equal, op.EqualInt), dst, left, right)
			c.setRegKind(dst, object.BoolKind)
		case ast.OpNotEq:
			c.emit(pick(op.NotEqual, op.NotEqualInt), dst, left, right)
			c.setRegKind(dst, object.BoolKind)
		case ast.OpLess:
			c.emit(pick(op.Less, op.LessInt), dst, left, right)
			c.setRegKind(dst, object.BoolKind)
		case ast.OpLessEq:
			c.emit(pick(op.LessEq, op.LessEqInt), dst, left, right)
			c.setRegKind(dst, object.BoolKind)
		case ast.OpGreater:
			c.emit(pick(op.Greater, op.GreaterInt), dst, left, right)
			c.setRegKind(dst, object.BoolKind)
		case ast.OpGreaterEq:
			c.emit(pick(op.GreaterEq, op.GreaterEqInt), dst, left, right)
			c.setRegKind(dst, object.BoolKind)
		case ast.OpContains:
			c.emit(op.Contains, dst, left, right)
			c.setRegKind(dst, object.BoolKind)
		case ast.OpUnion:
			c.emit(op.Union, dst, left, right)
			c.setRegKind(dst, object.SetKind)
		case ast.OpIntersect:
			c.emit(op.Intersect, dst, left, right)
			c.setRegKind(dst, object.SetKind)
		default:
			return c.errorf(errz.ErrCompile, "unknown operator %q", e.Op)
		}
		return nil
	})
}

// arithKind predicts the result kind of an arithmetic operation for
// specialization downstream.
func arithKind(operator string, lk, rk object.Kind) object.Kind {
	if operator == ast.OpAdd && (lk == object.TextKind || rk == object.TextKind) {
		return object.TextKind
	}
	switch {
	case lk == object.IntKind && rk == object.IntKind:
		return object.IntKind
	case (lk == object.IntKind || lk == object.FloatKind) &&
		(rk == object.IntKind || rk == object.FloatKind):
		return object.FloatKind
	default:
		return kindUnknown
	}
}

// compileAnd short-circuits: the right operand is not evaluated when
// the left is falsy. The result is always a boolean.
func (c *Compiler) compileAnd(e *ast.Infix, dst uint16) error {
	if err := c.compileExpr(e.Left, dst); err != nil {
		return err
	}
	false1 := c.emit(op.JumpIfFalse, dst, placeholder)
	if err := c.compileExpr(e.Right, dst); err != nil {
		return err
	}
	false2 := c.emit(op.JumpIfFalse, dst, placeholder)
	c.emit(op.LoadTrue, dst)
	end := c.emit(op.Jump, placeholder)
	if err := c.patchTarget(false1); err != nil {
		return err
	}
	if err := c.patchTarget(false2); err != nil {
		return err
	}
	c.emit(op.LoadFalse, dst)
	if err := c.patchTarget(end); err != nil {
		return err
	}
	c.setRegKind(dst, object.BoolKind)
	return nil
}

func (c *Compiler) compileOr(e *ast.Infix, dst uint16) error {
	if err := c.compileExpr(e.Left, dst); err != nil {
		return err
	}
	true1 := c.emit(op.JumpIfTrue, dst, placeholder)
	if err := c.compileExpr(e.Right, dst); err != nil {
		return err
	}
	true2 := c.emit(op.JumpIfTrue, dst, placeholder)
	c.emit(op.LoadFalse, dst)
	end := c.emit(op.Jump, placeholder)
	if err := c.patchTarget(true1); err != nil {
		return err
	}
	if err := c.patchTarget(true2); err != nil {
		return err
	}
	c.emit(op.LoadTrue, dst)
	if err := c.patchTarget(end); err != nil {
		return err
	}
	c.setRegKind(dst, object.BoolKind)
	return nil
}

func (c *Compiler) compilePrefix(e *ast.Prefix, dst uint16) error {
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		src, err := c.compileTemp(e.Right, claim)
		if err != nil {
			return err
		}
		switch e.Op {
		case "-":
			c.emit(op.Negate, dst, src)
			c.setRegKind(dst, c.kindOf(src))
		case "not":
			c.emit(op.Not, dst, src)
			c.setRegKind(dst, object.BoolKind)
		default:
			return c.errorf(errz.ErrCompile, "unknown operator %q", e.Op)
		}
		return nil
	})
}

func (c *Compiler) compileCall(e *ast.Call, dst uint16) error {
	if idx, info, isBuiltin := bytecode.LookupBuiltin(e.Name); isBuiltin {
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			base, err := c.compileArgs(e, info.Arity, claim)
			if err != nil {
				return err
			}
			c.emit(op.CallBuiltin, dst, uint16(idx), base)
			c.setRegKind(dst, builtinResultKind(idx))
			return nil
		})
	}
	if idx, isUser := c.functions[e.Name]; isUser {
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			base, err := c.compileArgs(e, c.prog.Functions[idx].Params, claim)
			if err != nil {
				return err
			}
			c.emit(op.Call, dst, uint16(idx), base)
			c.setRegKind(dst, kindUnknown)
			c.clearGlobalKinds()
			return nil
		})
	}
	if idx, isCtor := c.variants[e.Name]; isCtor {
		layout := c.prog.Variants[idx]
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			base, err := c.compileArgs(e, layout.Arity, claim)
			if err != nil {
				return err
			}
			c.emit(op.MakeVariant, dst, uint16(idx), base)
			c.setRegKind(dst, object.VariantKind)
			return nil
		})
	}
	// Unknown names dispatch to host-registered externals at run time.
	// Externals are variadic, so arguments travel as a list.
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		var base uint16
		for i, arg := range e.Args {
			reg, err := c.compileTemp(arg, claim)
			if err != nil {
				return err
			}
			if i == 0 {
				base = reg
			}
		}
		listReg, err := claim()
		if err != nil {
			return err
		}
		c.emit(op.MakeList, listReg, base, uint16(len(e.Args)))
		c.emit(op.CallExternal, dst, c.name(e.Name), listReg)
		c.setRegKind(dst, kindUnknown)
		c.clearGlobalKinds()
		return nil
	})
}

func builtinResultKind(idx int) object.Kind {
	switch idx {
	case bytecode.BuiltinShow, bytecode.BuiltinPrint:
		return object.NothingKind
	case bytecode.BuiltinLength, bytecode.BuiltinParseInt:
		return object.IntKind
	case bytecode.BuiltinParseFloat:
		return object.FloatKind
	case bytecode.BuiltinFormat:
		return object.TextKind
	default:
		return kindUnknown
	}
}

// compileArgs compiles call arguments into consecutive registers and
// returns the first register. Arity is checked against the callee.
func (c *Compiler) compileArgs(call *ast.Call, want int, claim func() (uint16, error)) (uint16, error) {
	if len(call.Args) != want {
		return 0, c.errorf(errz.ErrCompile, "%q takes %d values, not %d", call.Name, want, len(call.Args))
	}
	var base uint16
	for i, arg := range call.Args {
		reg, err := c.compileTemp(arg, claim)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			base = reg
		}
	}
	return base, nil
}

func (c *Compiler) compileNewRecord(e *ast.NewRecord, dst uint16) error {
	layoutIdx, known := c.records[e.TypeName]
	if !known {
		return c.errorf(errz.ErrCompile, "unknown record type %q", e.TypeName)
	}
	layout := c.prog.Records[layoutIdx]
	if len(e.Fields) == 0 {
		c.emit(op.MakeDefaults, dst, uint16(layoutIdx))
		c.setRegKind(dst, object.RecordKind)
		return nil
	}
	inits := map[string]ast.Expr{}
	for _, init := range e.Fields {
		if !containsString(layout.Fields, init.Name) {
			return c.errorf(errz.ErrCompile, "record %q has no field %q", e.TypeName, init.Name)
		}
		inits[init.Name] = init.Value
	}
	// Field values are assembled in declaration order; omitted fields
	// take their declared defaults.
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		var base uint16
		for i, field := range layout.Fields {
			reg, err := claim()
			if err != nil {
				return err
			}
			if i == 0 {
				base = reg
			}
			if value, given := inits[field]; given {
				if err := c.compileExpr(value, reg); err != nil {
					return err
				}
			} else if layout.Defaults[i] >= 0 {
				c.emit(op.LoadConst, reg, uint16(layout.Defaults[i]))
			} else {
				c.emit(op.LoadNone, reg)
			}
		}
		c.emit(op.MakeRecord, dst, uint16(layoutIdx), base)
		c.setRegKind(dst, object.RecordKind)
		return nil
	})
}

func (c *Compiler) compileNewVariant(e *ast.NewVariant, dst uint16) error {
	layoutIdx, known := c.variants[e.Ctor]
	if !known {
		return c.errorf(errz.ErrCompile, "unknown constructor %q", e.Ctor)
	}
	layout := c.prog.Variants[layoutIdx]
	if len(e.Args) != layout.Arity {
		return c.errorf(errz.ErrCompile, "constructor %q takes %d values, not %d", e.Ctor, layout.Arity, len(e.Args))
	}
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		var base uint16
		for i, arg := range e.Args {
			reg, err := c.compileTemp(arg, claim)
			if err != nil {
				return err
			}
			if i == 0 {
				base = reg
			}
		}
		c.emit(op.MakeVariant, dst, uint16(layoutIdx), base)
		c.setRegKind(dst, object.VariantKind)
		return nil
	})
}
