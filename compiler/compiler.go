// Package compiler translates syntax trees into register bytecode.
//
// Compilation is a single pass over the statements, preceded by a
// collection pass that registers every top-level function, record, and
// variant declaration so later code can reference earlier names and
// vice versa. Function bodies are emitted first into the flat
// instruction stream; top-level code follows, and the program's entry
// offset points at it.
package compiler

import (
	"math"
	"strconv"
	"strings"

	"github.com/candor-lang/candor/ast"
	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/errz"
	"github.com/candor-lang/candor/object"
	"github.com/candor-lang/candor/op"
	"github.com/candor-lang/candor/token"
)

// placeholder marks jump operands that are patched once the target
// offset is known.
const placeholder = math.MaxUint16

// maxIterSlots is the machine's iterator slot count, which bounds
// loop nesting depth.
const maxIterSlots = 8

// kindUnknown marks registers whose value kind is not statically
// known. It is outside the object.Kind range.
const kindUnknown = object.Kind(0xFF)

// Config holds compiler settings.
type Config struct {
	Filename string
	Source   string
}

// Compile translates a program. The returned bytecode is validated
// before being handed back.
func Compile(program *ast.Program, cfg Config) (*bytecode.Program, error) {
	c := &Compiler{
		cfg: cfg,
		prog: &bytecode.Program{
			ID:       bytecode.NewID(),
			Filename: cfg.Filename,
			Source:   cfg.Source,
		},
		table:       NewGlobalTable(),
		globalKinds: map[string]object.Kind{},
		regKinds:    map[int]object.Kind{},
		functions:   map[string]int{},
		records:     map[string]int{},
		variants:    map[string]int{},
		names:       map[string]int{},
	}
	if err := c.collectDeclarations(program.Statements); err != nil {
		return nil, err
	}
	for _, stmt := range program.Statements {
		if fn, ok := stmt.(*ast.FuncDecl); ok {
			if err := c.compileFunction(fn); err != nil {
				return nil, err
			}
		}
	}
	c.prog.Entry = len(c.prog.Instructions)
	for _, stmt := range program.Statements {
		switch stmt.(type) {
		case *ast.FuncDecl, *ast.RecordDecl, *ast.VariantDecl:
			continue
		}
		if err := c.compileStmt(stmt); err != nil {
			return nil, err
		}
	}
	c.emit(op.Halt)
	c.prog.Registers = c.table.HighWater()
	if err := c.prog.Validate(); err != nil {
		return nil, errz.Newf(errz.ErrCompile, "internal: generated invalid program: %s", err)
	}
	return c.prog, nil
}

// Compiler holds state for a single compilation.
type Compiler struct {
	cfg  Config
	prog *bytecode.Program

	table       *SymbolTable
	globalKinds map[string]object.Kind
	regKinds    map[int]object.Kind

	functions map[string]int // function name -> function table index
	records   map[string]int // record type name -> layout index
	variants  map[string]int // constructor name -> variant layout index
	names     map[string]int // interned name -> index

	iterDepth  int
	inFunction bool
	pos        token.Position
}

// ---------------------------------------------------------------------
// Declaration collection

func (c *Compiler) collectDeclarations(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.FuncDecl:
			c.pos = s.Pos()
			if _, exists := c.functions[s.Name]; exists {
				return c.errorf(errz.ErrCompile, "function %q is already defined", s.Name)
			}
			c.functions[s.Name] = len(c.prog.Functions)
			c.prog.Functions = append(c.prog.Functions, bytecode.Function{
				Name:   s.Name,
				Params: len(s.Params),
			})
		case *ast.RecordDecl:
			c.pos = s.Pos()
			if _, exists := c.records[s.Name]; exists {
				return c.errorf(errz.ErrCompile, "record type %q is already defined", s.Name)
			}
			layout := bytecode.RecordLayout{Name: s.Name}
			for _, field := range s.Fields {
				layout.Fields = append(layout.Fields, field.Name)
				if field.Default == nil {
					layout.Defaults = append(layout.Defaults, -1)
					continue
				}
				constant, ok := literalConstant(field.Default)
				if !ok {
					return c.errorf(errz.ErrCompile, "default for field %q of %s must be a literal", field.Name, s.Name)
				}
				layout.Defaults = append(layout.Defaults, int(c.constant(constant)))
			}
			c.records[s.Name] = len(c.prog.Records)
			c.prog.Records = append(c.prog.Records, layout)
		case *ast.VariantDecl:
			c.pos = s.Pos()
			for _, ctor := range s.Ctors {
				if _, exists := c.variants[ctor.Name]; exists {
					return c.errorf(errz.ErrCompile, "constructor %q is already defined", ctor.Name)
				}
				arity := ctor.Arity
				if len(ctor.Fields) > 0 {
					arity = len(ctor.Fields)
				}
				c.variants[ctor.Name] = len(c.prog.Variants)
				c.prog.Variants = append(c.prog.Variants, bytecode.VariantLayout{
					TypeName: s.Name,
					Ctor:     ctor.Name,
					Arity:    arity,
					Fields:   ctor.Fields,
				})
			}
		}
	}
	return nil
}

// literalConstant converts a literal expression to a pooled constant.
func literalConstant(e ast.Expr) (bytecode.Constant, bool) {
	switch lit := e.(type) {
	case *ast.IntLit:
		return bytecode.IntConst(lit.Value), true
	case *ast.FloatLit:
		return bytecode.FloatConst(lit.Value), true
	case *ast.BoolLit:
		return bytecode.BoolConst(lit.Value), true
	case *ast.TextLit:
		return bytecode.TextConst(lit.Value), true
	case *ast.NothingLit:
		return bytecode.NothingConst(), true
	case *ast.DurationLit:
		return bytecode.DurationConst(lit.Value), true
	case *ast.DateLit:
		return bytecode.DateConst(lit.Year, lit.Month, lit.Day), true
	case *ast.TimeLit:
		return bytecode.TimeConst(lit.Nanos), true
	case *ast.SpanLit:
		return bytecode.SpanConst(lit.Months, lit.Days), true
	}
	return bytecode.Constant{}, false
}

// ---------------------------------------------------------------------
// Functions

func (c *Compiler) compileFunction(decl *ast.FuncDecl) error {
	c.pos = decl.Pos()
	idx := c.functions[decl.Name]
	c.prog.Functions[idx].Entry = len(c.prog.Instructions)

	outer := c.table
	c.table = outer.NewFunctionChild()
	savedKinds := c.regKinds
	c.regKinds = map[int]object.Kind{}
	c.inFunction = true

	// Parameters occupy the first registers of the window, which is
	// how the caller's argument block becomes the callee's locals.
	for _, param := range decl.Params {
		c.table.Declare(param)
	}

	if err := c.compileBlock(decl.Body); err != nil {
		return err
	}
	// A conditional return can jump past the last emitted instruction,
	// so the fallthrough return is elided only when the body's final
	// statement is itself a return.
	if !blockEndsWithReturn(decl.Body) {
		c.emit(op.ReturnNone)
	}

	c.prog.Functions[idx].Registers = c.table.HighWater()
	if c.table.HighWater() > bytecode.MaxRegisters {
		return c.errorf(errz.ErrCompile, "function %q needs %d registers (limit %d)", decl.Name, c.table.HighWater(), bytecode.MaxRegisters)
	}

	c.table = outer
	c.regKinds = savedKinds
	c.inFunction = false
	return nil
}

func blockEndsWithReturn(stmts []ast.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	_, ok := stmts[len(stmts)-1].(*ast.Return)
	return ok
}

// ---------------------------------------------------------------------
// Statements

func (c *Compiler) compileBlock(stmts []ast.Stmt) error {
	c.table = c.table.NewBlockChild()
	mark := c.regs().mark()
	for _, stmt := range stmts {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	c.regs().release(mark)
	c.table = c.table.Parent()
	return nil
}

func (c *Compiler) compileStmt(stmt ast.Stmt) error {
	c.pos = stmt.Pos()
	switch s := stmt.(type) {
	case *ast.Let:
		return c.compileLet(s)
	case *ast.Assign:
		return c.compileAssign(s)
	case *ast.IndexAssign:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			target, err := c.compileTemp(s.Target, claim)
			if err != nil {
				return err
			}
			index, err := c.compileTemp(s.Index, claim)
			if err != nil {
				return err
			}
			value, err := c.compileTemp(s.Value, claim)
			if err != nil {
				return err
			}
			c.emit(op.IndexSet, target, index, value)
			return nil
		})
	case *ast.FieldAssign:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			target, err := c.compileTemp(s.Target, claim)
			if err != nil {
				return err
			}
			value, err := c.compileTemp(s.Value, claim)
			if err != nil {
				return err
			}
			c.emit(op.SetField, target, c.name(s.Field), value)
			return nil
		})
	case *ast.Show:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			value, err := c.compileTemp(s.Value, claim)
			if err != nil {
				return err
			}
			c.emit(op.ShowValue, value)
			return nil
		})
	case *ast.If:
		return c.compileIf(s)
	case *ast.While:
		return c.compileWhile(s)
	case *ast.ForEach:
		return c.compileForEach(s)
	case *ast.Return:
		return c.compileReturn(s)
	case *ast.Push:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			target, err := c.compileTemp(s.Target, claim)
			if err != nil {
				return err
			}
			value, err := c.compileTemp(s.Value, claim)
			if err != nil {
				return err
			}
			c.emit(op.ListPush, target, value)
			return nil
		})
	case *ast.Pop:
		return c.compilePop(s)
	case *ast.AddTo:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			target, err := c.compileTemp(s.Target, claim)
			if err != nil {
				return err
			}
			value, err := c.compileTemp(s.Value, claim)
			if err != nil {
				return err
			}
			c.emit(op.SetAdd, target, value)
			return nil
		})
	case *ast.RemoveFrom:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			target, err := c.compileTemp(s.Target, claim)
			if err != nil {
				return err
			}
			value, err := c.compileTemp(s.Value, claim)
			if err != nil {
				return err
			}
			c.emit(op.SetRemove, target, value)
			return nil
		})
	case *ast.Match:
		return c.compileMatch(s)
	case *ast.Zone:
		c.emit(op.ZoneEnter, c.name(s.Name))
		if err := c.compileBlock(s.Body); err != nil {
			return err
		}
		c.emit(op.ZoneExit)
		return nil
	case *ast.Assert:
		if s.Static {
			return nil
		}
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			cond, err := c.compileTemp(s.Cond, claim)
			if err != nil {
				return err
			}
			c.emit(op.Assert, cond)
			return nil
		})
	case *ast.Check:
		return c.compileCheck(s)
	case *ast.Increase:
		return c.compileCounterAdjust(s.Target, s.Field, s.Amount, op.CounterInc)
	case *ast.Decrease:
		return c.compileCounterAdjust(s.Target, s.Field, s.Amount, op.CounterDec)
	case *ast.Merge:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			target, err := c.compileTemp(s.Target, claim)
			if err != nil {
				return err
			}
			source, err := c.compileTemp(s.Source, claim)
			if err != nil {
				return err
			}
			c.emit(op.CounterMerge, target, source)
			return nil
		})
	case *ast.Give:
		return c.compileGive(s)
	case *ast.ExprStmt:
		err := c.compileWithTemps(func(claim func() (uint16, error)) error {
			_, err := c.compileTemp(s.Value, claim)
			return err
		})
		return err
	case *ast.Concurrent:
		// The synchronous machine runs declared-concurrent blocks in
		// order; their combined effects are the same as sequential
		// execution because there is no preemption between statements.
		for _, block := range s.Blocks {
			if err := c.compileBlock(block); err != nil {
				return err
			}
		}
		return nil
	case *ast.FuncDecl:
		return c.errorf(errz.ErrCompile, "functions can only be declared at the top level")
	case *ast.RecordDecl, *ast.VariantDecl:
		return c.errorf(errz.ErrCompile, "types can only be declared at the top level")
	case *ast.AsyncStmt:
		return c.errorf(errz.ErrCompile, "%q requires the asynchronous evaluator", s.Form)
	default:
		return c.errorf(errz.ErrCompile, "cannot compile statement %T", stmt)
	}
}

func (c *Compiler) compileLet(s *ast.Let) error {
	if c.table.IsGlobal() {
		err := c.compileWithTemps(func(claim func() (uint16, error)) error {
			value, err := c.compileTemp(s.Value, claim)
			if err != nil {
				return err
			}
			c.emit(op.StoreGlobal, c.name(s.Name), value)
			c.setGlobalKind(s.Name, c.kindOf(value))
			return nil
		})
		if err != nil {
			return err
		}
		c.table.Declare(s.Name)
		return nil
	}
	sym := c.table.Declare(s.Name)
	if sym.Register >= bytecode.MaxRegisters {
		return c.errorf(errz.ErrCompile, "too many variables (limit %d registers)", bytecode.MaxRegisters)
	}
	if err := c.compileExpr(s.Value, uint16(sym.Register)); err != nil {
		return err
	}
	return nil
}

func (c *Compiler) compileAssign(s *ast.Assign) error {
	res, found := c.table.Resolve(s.Name)
	if !found {
		return c.undefinedError(s.Name)
	}
	if res.Symbol.Moved {
		return c.errorf(errz.ErrCompile, "%q is no longer usable: it was given away", s.Name)
	}
	switch res.Scope {
	case ScopeGlobal:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			value, err := c.compileTemp(s.Value, claim)
			if err != nil {
				return err
			}
			c.emit(op.StoreGlobal, c.name(s.Name), value)
			c.setGlobalKind(s.Name, c.kindOf(value))
			return nil
		})
	case ScopeLocal:
		return c.compileExpr(s.Value, uint16(res.Symbol.Register))
	default:
		return c.compileWithTemps(func(claim func() (uint16, error)) error {
			value, err := c.compileTemp(s.Value, claim)
			if err != nil {
				return err
			}
			c.emit(op.StoreUpvalue, uint16(res.Symbol.Register), value)
			return nil
		})
	}
}

func (c *Compiler) compileIf(s *ast.If) error {
	var condReg uint16
	err := c.compileWithTemps(func(claim func() (uint16, error)) error {
		reg, err := c.compileTemp(s.Cond, claim)
		condReg = reg
		return err
	})
	if err != nil {
		return err
	}
	jumpFalse := c.emit(op.JumpIfFalse, condReg, placeholder)
	// The else branch must not see kinds proven only along the then
	// branch, or it would get specialized opcodes for values it never
	// holds.
	savedRegs, savedGlobals := c.snapshotKinds()
	if err := c.compileBlock(s.Then); err != nil {
		return err
	}
	if len(s.Else) > 0 {
		jumpEnd := c.emit(op.Jump, placeholder)
		if err := c.patchTarget(jumpFalse); err != nil {
			return err
		}
		c.restoreKinds(savedRegs, savedGlobals)
		if err := c.compileBlock(s.Else); err != nil {
			return err
		}
		if err := c.patchTarget(jumpEnd); err != nil {
			return err
		}
	} else {
		if err := c.patchTarget(jumpFalse); err != nil {
			return err
		}
	}
	c.invalidateKinds()
	return nil
}

func (c *Compiler) compileWhile(s *ast.While) error {
	c.invalidateKinds()
	loopStart := len(c.prog.Instructions)
	var condReg uint16
	err := c.compileWithTemps(func(claim func() (uint16, error)) error {
		reg, err := c.compileTemp(s.Cond, claim)
		condReg = reg
		return err
	})
	if err != nil {
		return err
	}
	exit := c.emit(op.JumpIfFalse, condReg, placeholder)
	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	if err := c.emitJumpBack(loopStart); err != nil {
		return err
	}
	if err := c.patchTarget(exit); err != nil {
		return err
	}
	c.invalidateKinds()
	return nil
}

func (c *Compiler) compileForEach(s *ast.ForEach) error {
	if c.iterDepth >= maxIterSlots {
		return c.errorf(errz.ErrCompile, "loops nested deeper than %d levels", maxIterSlots)
	}
	slot := uint16(c.iterDepth)
	c.iterDepth++
	defer func() { c.iterDepth-- }()

	c.invalidateKinds()
	mark := c.regs().mark()
	src, err := c.claim()
	if err != nil {
		return err
	}
	if err := c.compileExpr(s.Iterable, src); err != nil {
		return err
	}
	c.emit(op.IterStart, slot, src)
	c.regs().release(mark)

	c.table = c.table.NewBlockChild()
	blockMark := c.regs().mark()

	pairwise := s.KeyName != ""
	var keyReg, valReg uint16
	isGlobal := c.table.IsGlobal()
	if isGlobal {
		if pairwise {
			c.table.Declare(s.KeyName)
		}
		c.table.Declare(s.Name)
		keyReg, err = c.claim()
		if err != nil {
			return err
		}
		valReg, err = c.claim()
		if err != nil {
			return err
		}
	} else {
		if pairwise {
			key := c.table.Declare(s.KeyName)
			val := c.table.Declare(s.Name)
			keyReg, valReg = uint16(key.Register), uint16(val.Register)
		} else {
			val := c.table.Declare(s.Name)
			valReg = uint16(val.Register)
		}
	}

	loopStart := len(c.prog.Instructions)
	var next int
	if pairwise {
		next = c.emit(op.IterNextPair, keyReg, slot, placeholder)
	} else {
		next = c.emit(op.IterNext, valReg, slot, placeholder)
	}
	if isGlobal {
		if pairwise {
			c.emit(op.StoreGlobal, c.name(s.KeyName), keyReg)
			c.emit(op.StoreGlobal, c.name(s.Name), valReg)
		} else {
			c.emit(op.StoreGlobal, c.name(s.Name), valReg)
		}
	}

	for _, stmt := range s.Body {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	if err := c.emitJumpBack(loopStart); err != nil {
		return err
	}
	if err := c.patchTarget(next); err != nil {
		return err
	}
	c.emit(op.IterEnd, slot)

	c.regs().release(blockMark)
	c.table = c.table.Parent()
	c.invalidateKinds()
	return nil
}

func (c *Compiler) compileReturn(s *ast.Return) error {
	if !c.inFunction {
		return c.errorf(errz.ErrCompile, "return outside of a function")
	}
	if s.Value == nil {
		c.emit(op.ReturnNone)
		return nil
	}
	// A call in tail position reuses the current frame, which keeps
	// self-recursive functions at constant stack depth.
	if call, ok := s.Value.(*ast.Call); ok {
		if idx, isUser := c.functions[call.Name]; isUser {
			return c.compileWithTemps(func(claim func() (uint16, error)) error {
				base, err := c.compileArgs(call, c.prog.Functions[idx].Params, claim)
				if err != nil {
					return err
				}
				c.emit(op.TailCall, 0, uint16(idx), base)
				return nil
			})
		}
	}
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		value, err := c.compileTemp(s.Value, claim)
		if err != nil {
			return err
		}
		c.emit(op.Return, value)
		return nil
	})
}

func (c *Compiler) compilePop(s *ast.Pop) error {
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		src, err := c.compileTemp(s.Source, claim)
		if err != nil {
			return err
		}
		dst, err := claim()
		if err != nil {
			return err
		}
		c.emit(op.ListPop, dst, src)
		if s.Name == "" {
			return nil
		}
		return c.storeName(s.Name, dst)
	})
}

// storeName assigns a register value to a possibly new binding.
func (c *Compiler) storeName(name string, src uint16) error {
	if res, found := c.table.Resolve(name); found {
		switch res.Scope {
		case ScopeGlobal:
			c.emit(op.StoreGlobal, c.name(name), src)
			c.setGlobalKind(name, kindUnknown)
		case ScopeLocal:
			c.emit(op.Move, uint16(res.Symbol.Register), src)
			c.setRegKind(uint16(res.Symbol.Register), kindUnknown)
		default:
			c.emit(op.StoreUpvalue, uint16(res.Symbol.Register), src)
		}
		return nil
	}
	if c.table.IsGlobal() {
		c.table.Declare(name)
		c.emit(op.StoreGlobal, c.name(name), src)
		return nil
	}
	sym := c.table.Declare(name)
	c.emit(op.Move, uint16(sym.Register), src)
	return nil
}

func (c *Compiler) compileMatch(s *ast.Match) error {
	mark := c.regs().mark()
	subj, err := c.claim()
	if err != nil {
		return err
	}
	if err := c.compileExpr(s.Subject, subj); err != nil {
		return err
	}

	tableIdx := len(c.prog.JumpTables)
	c.prog.JumpTables = append(c.prog.JumpTables, bytecode.JumpTable{})
	c.emit(op.MatchJump, subj, uint16(tableIdx))

	var endJumps []int
	entries := make([]bytecode.JumpEntry, 0, len(s.Arms))

	for _, arm := range s.Arms {
		layoutIdx, known := c.variants[arm.Ctor]
		if !known {
			return c.errorf(errz.ErrCompile, "unknown constructor %q", arm.Ctor)
		}
		layout := c.prog.Variants[layoutIdx]
		entries = append(entries, bytecode.JumpEntry{Ctor: arm.Ctor, Target: len(c.prog.Instructions)})

		c.table = c.table.NewBlockChild()
		armMark := c.regs().mark()

		if len(arm.Bindings) > 0 {
			if len(arm.Bindings) != layout.Arity {
				return c.errorf(errz.ErrCompile, "constructor %q takes %d values, not %d", arm.Ctor, layout.Arity, len(arm.Bindings))
			}
			for i, binding := range arm.Bindings {
				if err := c.bindExtract(binding, op.VariantArg, subj, uint16(i)); err != nil {
					return err
				}
			}
		}
		for _, field := range arm.FieldBindings {
			if !containsString(layout.Fields, field) {
				return c.errorf(errz.ErrCompile, "constructor %q has no field %q", arm.Ctor, field)
			}
			if err := c.bindExtract(field, op.VariantField, subj, c.name(field)); err != nil {
				return err
			}
		}

		for _, stmt := range arm.Body {
			if err := c.compileStmt(stmt); err != nil {
				return err
			}
		}
		endJumps = append(endJumps, c.emit(op.Jump, placeholder))

		c.regs().release(armMark)
		c.table = c.table.Parent()
	}

	defaultTarget := len(c.prog.Instructions)
	if len(s.Otherwise) > 0 {
		if err := c.compileBlock(s.Otherwise); err != nil {
			return err
		}
	}
	for _, offset := range endJumps {
		if err := c.patchTarget(offset); err != nil {
			return err
		}
	}
	c.prog.JumpTables[tableIdx] = bytecode.JumpTable{Entries: entries, Default: defaultTarget}

	c.regs().release(mark)
	c.invalidateKinds()
	return nil
}

// bindExtract extracts a variant component into a fresh binding.
func (c *Compiler) bindExtract(name string, extract op.Code, subj, operand uint16) error {
	if c.table.IsGlobal() {
		tmp, err := c.claim()
		if err != nil {
			return err
		}
		c.table.Declare(name)
		c.emit(extract, tmp, subj, operand)
		c.emit(op.StoreGlobal, c.name(name), tmp)
		return nil
	}
	sym := c.table.Declare(name)
	c.emit(extract, uint16(sym.Register), subj, operand)
	return nil
}

func (c *Compiler) compileCheck(s *ast.Check) error {
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		subj, err := claim()
		if err != nil {
			return err
		}
		if err := c.compileExpr(s.Subject, subj); err != nil {
			return err
		}
		if s.Predicate != "" {
			c.emit(op.CheckPredicate, subj, c.name(s.Predicate), c.name(s.SourceText))
			return nil
		}
		// Capability checks pass the object in the register after the
		// subject.
		obj, err := claim()
		if err != nil {
			return err
		}
		if obj != subj+1 {
			return c.errorf(errz.ErrCompile, "internal: capability object register not adjacent")
		}
		if s.Object != nil {
			if err := c.compileExpr(s.Object, obj); err != nil {
				return err
			}
		} else {
			c.emit(op.LoadNone, obj)
		}
		c.emit(op.CheckCapability, subj, c.name(s.Capability), c.name(s.SourceText))
		return nil
	})
}

func (c *Compiler) compileCounterAdjust(target ast.Expr, field string, amount ast.Expr, code op.Code) error {
	return c.compileWithTemps(func(claim func() (uint16, error)) error {
		targetReg, err := c.compileTemp(target, claim)
		if err != nil {
			return err
		}
		amountReg, err := c.compileTemp(amount, claim)
		if err != nil {
			return err
		}
		c.emit(code, targetReg, c.name(field), amountReg)
		return nil
	})
}

func (c *Compiler) compileGive(s *ast.Give) error {
	res, found := c.table.Resolve(s.Name)
	if !found {
		return c.undefinedError(s.Name)
	}
	if res.Symbol.Moved {
		return c.errorf(errz.ErrCompile, "%q is no longer usable: it was given away", s.Name)
	}
	idx, isUser := c.functions[s.Recipient]
	if !isUser {
		return c.errorf(errz.ErrCompile, "unknown function %q", s.Recipient)
	}
	if c.prog.Functions[idx].Params != 1 {
		return c.errorf(errz.ErrCompile, "function %q takes %d values, not 1", s.Recipient, c.prog.Functions[idx].Params)
	}
	err := c.compileWithTemps(func(claim func() (uint16, error)) error {
		base, err := c.compileTemp(&ast.Ident{Position: s.Position, Name: s.Name}, claim)
		if err != nil {
			return err
		}
		dst, err := claim()
		if err != nil {
			return err
		}
		c.emit(op.GiveCall, dst, uint16(idx), base)
		return nil
	})
	if err != nil {
		return err
	}
	res.Symbol.Moved = true
	c.clearGlobalKinds()
	return nil
}

// ---------------------------------------------------------------------
// Emit helpers

func (c *Compiler) regs() *registerFile { return c.table.Registers() }

func (c *Compiler) claim() (uint16, error) {
	reg := c.regs().claim()
	if reg >= bytecode.MaxRegisters {
		return 0, c.errorf(errz.ErrCompile, "expression too complex: needs more than %d registers", bytecode.MaxRegisters)
	}
	return uint16(reg), nil
}

// compileWithTemps runs fn with a claim function whose registers are
// all released afterward.
func (c *Compiler) compileWithTemps(fn func(claim func() (uint16, error)) error) error {
	mark := c.regs().mark()
	err := fn(c.claim)
	c.regs().release(mark)
	return err
}

// compileTemp claims a register and compiles the expression into it.
func (c *Compiler) compileTemp(e ast.Expr, claim func() (uint16, error)) (uint16, error) {
	reg, err := claim()
	if err != nil {
		return 0, err
	}
	if err := c.compileExpr(e, reg); err != nil {
		return 0, err
	}
	return reg, nil
}

func (c *Compiler) emit(code op.Code, operands ...uint16) int {
	c.prog.Instructions = append(c.prog.Instructions, bytecode.New(code, operands...))
	c.prog.Locations = append(c.prog.Locations, bytecode.Location{
		Line:   int32(c.pos.LineNumber()),
		Column: int32(c.pos.ColumnNumber()),
	})
	return len(c.prog.Instructions) - 1
}

// patchTarget points a placeholder jump at the current offset.
func (c *Compiler) patchTarget(offset int) error {
	target := len(c.prog.Instructions)
	if target > math.MaxUint16 {
		return c.errorf(errz.ErrCompile, "program too large: jump target %d exceeds %d", target, math.MaxUint16)
	}
	ins := &c.prog.Instructions[offset]
	switch ins.Op {
	case op.Jump:
		ins.A = uint16(target)
	case op.JumpIfFalse, op.JumpIfTrue:
		ins.B = uint16(target)
	case op.IterNext, op.IterNextPair:
		ins.C = uint16(target)
	default:
		return c.errorf(errz.ErrCompile, "internal: cannot patch %s", op.GetInfo(ins.Op).Name)
	}
	return nil
}

func (c *Compiler) emitJumpBack(target int) error {
	if target > math.MaxUint16 {
		return c.errorf(errz.ErrCompile, "program too large: jump target %d exceeds %d", target, math.MaxUint16)
	}
	c.emit(op.JumpBack, uint16(target))
	return nil
}

// name interns a string in the program's name table.
func (c *Compiler) name(s string) uint16 {
	if idx, ok := c.names[s]; ok {
		return uint16(idx)
	}
	idx := len(c.prog.Names)
	c.names[s] = idx
	c.prog.Names = append(c.prog.Names, s)
	return uint16(idx)
}

// constant interns a constant in the pool.
func (c *Compiler) constant(constant bytecode.Constant) uint16 {
	for i, existing := range c.prog.Constants {
		if existing.Equal(constant) {
			return uint16(i)
		}
	}
	c.prog.Constants = append(c.prog.Constants, constant)
	return uint16(len(c.prog.Constants) - 1)
}

// ---------------------------------------------------------------------
// Type tracking

func (c *Compiler) setRegKind(reg uint16, kind object.Kind) {
	if kind == kindUnknown {
		delete(c.regKinds, int(reg))
		return
	}
	c.regKinds[int(reg)] = kind
}

func (c *Compiler) kindOf(reg uint16) object.Kind {
	if kind, ok := c.regKinds[int(reg)]; ok {
		return kind
	}
	return kindUnknown
}

func (c *Compiler) setGlobalKind(name string, kind object.Kind) {
	if kind == kindUnknown {
		delete(c.globalKinds, name)
		return
	}
	c.globalKinds[name] = kind
}

// invalidateKinds forgets everything at control-flow merge points.
func (c *Compiler) invalidateKinds() {
	c.regKinds = map[int]object.Kind{}
	c.globalKinds = map[string]object.Kind{}
}

// snapshotKinds copies the current kind maps so a branch can be
// compiled without its facts leaking into a sibling branch.
func (c *Compiler) snapshotKinds() (map[int]object.Kind, map[string]object.Kind) {
	regs := make(map[int]object.Kind, len(c.regKinds))
	for reg, kind := range c.regKinds {
		regs[reg] = kind
	}
	globals := make(map[string]object.Kind, len(c.globalKinds))
	for name, kind := range c.globalKinds {
		globals[name] = kind
	}
	return regs, globals
}

func (c *Compiler) restoreKinds(regs map[int]object.Kind, globals map[string]object.Kind) {
	c.regKinds = regs
	c.globalKinds = globals
}

// clearGlobalKinds forgets global types across calls, which may store
// any global.
func (c *Compiler) clearGlobalKinds() {
	c.globalKinds = map[string]object.Kind{}
}

// ---------------------------------------------------------------------
// Errors

func (c *Compiler) errorf(kind errz.ErrorKind, format string, args ...any) error {
	e := errz.Newf(kind, format, args...)
	e.Location = errz.SourceLocation{
		Filename: c.cfg.Filename,
		Line:     c.pos.LineNumber(),
		Column:   c.pos.ColumnNumber(),
		Source:   c.sourceLine(c.pos.LineNumber()),
	}
	return e
}

func (c *Compiler) undefinedError(name string) error {
	candidates := c.table.VisibleNames()
	for fn := range c.functions {
		candidates = append(candidates, fn)
	}
	msg := "undefined variable " + strconv.Quote(name)
	if hint := errz.FormatSuggestions(errz.SuggestSimilar(name, candidates)); hint != "" {
		msg += ". " + hint
	}
	return c.errorf(errz.ErrName, "%s", msg)
}

func (c *Compiler) sourceLine(lineNum int) string {
	if c.cfg.Source == "" || lineNum < 1 {
		return ""
	}
	lines := strings.Split(c.cfg.Source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

func containsString(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
