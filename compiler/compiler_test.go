package compiler

import (
	"fmt"
	"testing"

	"github.com/candor-lang/candor/ast"
	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/op"
	"github.com/stretchr/testify/require"
)

func intLit(v int64) *ast.IntLit   { return &ast.IntLit{Value: v} }
func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func compileStmts(t *testing.T, stmts ...ast.Stmt) *bytecode.Program {
	t.Helper()
	prog, err := Compile(&ast.Program{Statements: stmts}, Config{})
	require.NoError(t, err)
	return prog
}

func opcodes(prog *bytecode.Program) []op.Code {
	codes := make([]op.Code, len(prog.Instructions))
	for i, ins := range prog.Instructions {
		codes[i] = ins.Op
	}
	return codes
}

func countOp(prog *bytecode.Program, code op.Code) int {
	n := 0
	for _, ins := range prog.Instructions {
		if ins.Op == code {
			n++
		}
	}
	return n
}

func TestCompileShowLiteral(t *testing.T) {
	prog := compileStmts(t, &ast.Show{Value: intLit(5)})
	require.Equal(t, []op.Code{op.LoadConst, op.ShowValue, op.Halt}, opcodes(prog))
	require.Equal(t, 0, prog.Entry)
}

func TestCompileLetAndShow(t *testing.T) {
	prog := compileStmts(t,
		&ast.Let{Name: "x", Value: intLit(5)},
		&ast.Show{Value: ident("x")},
	)
	require.Equal(t, []op.Code{
		op.LoadConst, op.StoreGlobal, op.LoadGlobal, op.ShowValue, op.Halt,
	}, opcodes(prog))
}

func TestIntSpecialization(t *testing.T) {
	prog := compileStmts(t,
		&ast.Let{Name: "a", Value: intLit(1)},
		&ast.Let{Name: "b", Value: intLit(2)},
		&ast.Let{Name: "c", Value: &ast.Infix{Op: ast.OpAdd, Left: ident("a"), Right: ident("b")}},
	)
	require.Equal(t, 1, countOp(prog, op.AddInt))
	require.Equal(t, 0, countOp(prog, op.Add))
}

func TestSpecializationLostAfterBranch(t *testing.T) {
	// The branch may rebind a, so the add after the merge point must
	// fall back to the generic opcode.
	prog := compileStmts(t,
		&ast.Let{Name: "a", Value: intLit(1)},
		&ast.If{
			Cond: &ast.BoolLit{Value: true},
			Then: []ast.Stmt{&ast.Assign{Name: "a", Value: &ast.FloatLit{Value: 1.5}}},
		},
		&ast.Let{Name: "b", Value: &ast.Infix{Op: ast.OpAdd, Left: ident("a"), Right: intLit(1)}},
	)
	require.Equal(t, 1, countOp(prog, op.Add))
	require.Equal(t, 0, countOp(prog, op.AddInt))
}

func TestElseBranchDropsThenBranchKinds(t *testing.T) {
	// The then branch proves a is an integer only along its own path;
	// the else branch still sees the float and must use the generic add.
	prog := compileStmts(t,
		&ast.Let{Name: "a", Value: &ast.FloatLit{Value: 2.5}},
		&ast.If{
			Cond: &ast.BoolLit{Value: false},
			Then: []ast.Stmt{&ast.Assign{Name: "a", Value: intLit(1)}},
			Else: []ast.Stmt{&ast.Let{Name: "b", Value: &ast.Infix{
				Op: ast.OpAdd, Left: ident("a"), Right: intLit(1),
			}}},
		},
	)
	require.Equal(t, 0, countOp(prog, op.AddInt))
	require.Equal(t, 1, countOp(prog, op.Add))
}

func TestLoopEntryInvalidatesKinds(t *testing.T) {
	// Inside a loop a rebinding on a later iteration could change a
	// value's kind, so the compare falls back to the generic opcode.
	prog := compileStmts(t,
		&ast.Let{Name: "i", Value: intLit(0)},
		&ast.While{
			Cond: &ast.Infix{Op: ast.OpLess, Left: ident("i"), Right: intLit(10)},
			Body: []ast.Stmt{
				&ast.Assign{Name: "i", Value: &ast.Infix{Op: ast.OpAdd, Left: ident("i"), Right: intLit(1)}},
			},
		},
	)
	require.Equal(t, 1, countOp(prog, op.JumpBack))
	require.Equal(t, 1, countOp(prog, op.Less))
	require.Equal(t, 0, countOp(prog, op.LessInt))
}

func TestTailCallEmitted(t *testing.T) {
	// To countdown n: If n == 0: Return 0. Return countdown(n - 1).
	prog := compileStmts(t,
		&ast.FuncDecl{
			Name:   "countdown",
			Params: []string{"n"},
			Body: []ast.Stmt{
				&ast.If{
					Cond: &ast.Infix{Op: ast.OpEq, Left: ident("n"), Right: intLit(0)},
					Then: []ast.Stmt{&ast.Return{Value: intLit(0)}},
				},
				&ast.Return{Value: &ast.Call{Name: "countdown", Args: []ast.Expr{
					&ast.Infix{Op: ast.OpSub, Left: ident("n"), Right: intLit(1)},
				}}},
			},
		},
		&ast.Let{Name: "r", Value: &ast.Call{Name: "countdown", Args: []ast.Expr{intLit(10)}}},
	)
	require.Equal(t, 1, countOp(prog, op.TailCall), "self call in tail position")
	require.Equal(t, 1, countOp(prog, op.Call), "top-level call is not in tail position")
}

func TestFunctionBodiesPrecedeEntry(t *testing.T) {
	prog := compileStmts(t,
		&ast.FuncDecl{Name: "noop", Params: nil, Body: nil},
		&ast.Show{Value: intLit(1)},
	)
	require.Len(t, prog.Functions, 1)
	require.Equal(t, 0, prog.Functions[0].Entry)
	require.Greater(t, prog.Entry, 0)
}

func TestBranchRegisterReuse(t *testing.T) {
	// Sibling branches release their locals, so both arms use the same
	// register and the frame stays at two.
	prog := compileStmts(t,
		&ast.FuncDecl{
			Name:   "pick",
			Params: []string{"flag"},
			Body: []ast.Stmt{
				&ast.If{
					Cond: ident("flag"),
					Then: []ast.Stmt{&ast.Let{Name: "a", Value: intLit(1)}},
					Else: []ast.Stmt{&ast.Let{Name: "b", Value: intLit(2)}},
				},
			},
		},
	)
	require.Equal(t, 2, prog.Functions[0].Registers)
}

func TestBuiltinCall(t *testing.T) {
	prog := compileStmts(t,
		&ast.Let{Name: "n", Value: &ast.Call{Name: "length", Args: []ast.Expr{
			&ast.TextLit{Value: "hello"},
		}}},
	)
	require.Equal(t, 1, countOp(prog, op.CallBuiltin))
	for _, ins := range prog.Instructions {
		if ins.Op == op.CallBuiltin {
			require.Equal(t, uint16(bytecode.BuiltinLength), ins.B)
		}
	}
}

func TestBuiltinArityChecked(t *testing.T) {
	_, err := Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.ExprStmt{Value: &ast.Call{Name: "min", Args: []ast.Expr{intLit(1)}}},
	}}, Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "takes 2 values, not 1")
}

func TestUnknownCallCompilesToExternal(t *testing.T) {
	prog := compileStmts(t,
		&ast.Let{Name: "r", Value: &ast.Call{Name: "fetch_rate", Args: []ast.Expr{intLit(1), intLit(2)}}},
	)
	require.Equal(t, 1, countOp(prog, op.MakeList), "external args travel as a list")
	require.Equal(t, 1, countOp(prog, op.CallExternal))
}

func TestUndefinedVariableSuggestion(t *testing.T) {
	_, err := Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.Let{Name: "total", Value: intLit(1)},
		&ast.Show{Value: ident("totl")},
	}}, Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined variable")
	require.Contains(t, err.Error(), "Did you mean 'total'?")
}

func TestMatchBuildsJumpTable(t *testing.T) {
	prog := compileStmts(t,
		&ast.VariantDecl{Name: "Shape", Ctors: []ast.CtorDef{
			{Name: "Circle", Arity: 1},
			{Name: "Square", Arity: 1},
		}},
		&ast.Let{Name: "s", Value: &ast.NewVariant{Ctor: "Circle", Args: []ast.Expr{intLit(3)}}},
		&ast.Match{
			Subject: ident("s"),
			Arms: []ast.MatchArm{
				{Ctor: "Circle", Bindings: []string{"r"}, Body: []ast.Stmt{&ast.Show{Value: ident("r")}}},
				{Ctor: "Square", Bindings: []string{"w"}, Body: []ast.Stmt{&ast.Show{Value: ident("w")}}},
			},
		},
	)
	require.Len(t, prog.JumpTables, 1)
	table := prog.JumpTables[0]
	require.Len(t, table.Entries, 2)
	require.Equal(t, "Circle", table.Entries[0].Ctor)
	require.Equal(t, "Square", table.Entries[1].Ctor)
	require.Equal(t, 1, countOp(prog, op.MatchJump))
}

func TestMatchArmArityChecked(t *testing.T) {
	_, err := Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.VariantDecl{Name: "Shape", Ctors: []ast.CtorDef{{Name: "Circle", Arity: 1}}},
		&ast.Let{Name: "s", Value: &ast.NewVariant{Ctor: "Circle", Args: []ast.Expr{intLit(3)}}},
		&ast.Match{Subject: ident("s"), Arms: []ast.MatchArm{
			{Ctor: "Circle", Bindings: []string{"a", "b"}},
		}},
	}}, Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "takes 1 values, not 2")
}

func TestNullaryConstructorAsIdent(t *testing.T) {
	prog := compileStmts(t,
		&ast.VariantDecl{Name: "Signal", Ctors: []ast.CtorDef{{Name: "Go", Arity: 0}}},
		&ast.Let{Name: "s", Value: ident("Go")},
	)
	require.Equal(t, 1, countOp(prog, op.MakeVariant))
}

func TestRecordDefaultsAndExplicitFields(t *testing.T) {
	prog := compileStmts(t,
		&ast.RecordDecl{Name: "Point", Fields: []ast.FieldDef{
			{Name: "x", Default: intLit(0)},
			{Name: "y", Default: intLit(0)},
		}},
		&ast.Let{Name: "origin", Value: &ast.NewRecord{TypeName: "Point"}},
		&ast.Let{Name: "p", Value: &ast.NewRecord{TypeName: "Point", Fields: []ast.FieldInit{
			{Name: "x", Value: intLit(3)},
		}}},
	)
	require.Equal(t, 1, countOp(prog, op.MakeDefaults))
	require.Equal(t, 1, countOp(prog, op.MakeRecord))
	require.Len(t, prog.Records, 1)
	require.Equal(t, []string{"x", "y"}, prog.Records[0].Fields)
}

func TestShortCircuitAnd(t *testing.T) {
	prog := compileStmts(t,
		&ast.Let{Name: "ok", Value: &ast.Infix{
			Op:    ast.OpAnd,
			Left:  &ast.BoolLit{Value: true},
			Right: &ast.BoolLit{Value: false},
		}},
	)
	// Two exits for falsy operands plus the literal operands themselves.
	require.Equal(t, 2, countOp(prog, op.JumpIfFalse))
	require.Equal(t, 2, countOp(prog, op.LoadTrue))
	require.Equal(t, 2, countOp(prog, op.LoadFalse))
}

func TestLoopNestingLimit(t *testing.T) {
	body := []ast.Stmt{&ast.Show{Value: intLit(1)}}
	for i := 0; i < 9; i++ {
		body = []ast.Stmt{&ast.ForEach{
			Name:     fmt.Sprintf("x%d", i),
			Iterable: &ast.ListLit{Items: []ast.Expr{intLit(1)}},
			Body:     body,
		}}
	}
	_, err := Compile(&ast.Program{Statements: body}, Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nested deeper than 8")
}

func TestForEachEmitsIteratorOps(t *testing.T) {
	prog := compileStmts(t,
		&ast.ForEach{
			Name:     "x",
			Iterable: &ast.RangeLit{Low: intLit(1), High: intLit(3)},
			Body:     []ast.Stmt{&ast.Show{Value: ident("x")}},
		},
	)
	require.Equal(t, 1, countOp(prog, op.IterStart))
	require.Equal(t, 1, countOp(prog, op.IterNext))
	require.Equal(t, 1, countOp(prog, op.IterEnd))
	require.Equal(t, 1, countOp(prog, op.JumpBack))
}

func TestRegisterCeiling(t *testing.T) {
	body := make([]ast.Stmt, 0, bytecode.MaxRegisters+1)
	for i := 0; i <= bytecode.MaxRegisters; i++ {
		body = append(body, &ast.Let{Name: fmt.Sprintf("v%d", i), Value: intLit(int64(i))})
	}
	_, err := Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.FuncDecl{Name: "big", Body: body},
	}}, Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "too many variables")
}

func TestGiveMarksBindingMoved(t *testing.T) {
	_, err := Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.FuncDecl{Name: "sink", Params: []string{"v"}, Body: nil},
		&ast.Let{Name: "data", Value: &ast.ListLit{Items: []ast.Expr{intLit(1)}}},
		&ast.Give{Name: "data", Recipient: "sink"},
		&ast.Show{Value: ident("data")},
	}}, Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "given away")
}

func TestGiveEmitsGiveCall(t *testing.T) {
	prog := compileStmts(t,
		&ast.FuncDecl{Name: "sink", Params: []string{"v"}, Body: nil},
		&ast.Let{Name: "data", Value: intLit(1)},
		&ast.Give{Name: "data", Recipient: "sink"},
	)
	require.Equal(t, 1, countOp(prog, op.GiveCall))
}

func TestStaticAssertCompilesToNothing(t *testing.T) {
	prog := compileStmts(t,
		&ast.Assert{Cond: &ast.BoolLit{Value: true}, Static: true},
	)
	require.Equal(t, []op.Code{op.Halt}, opcodes(prog))
}

func TestCheckCapabilityAdjacentRegisters(t *testing.T) {
	prog := compileStmts(t,
		&ast.Let{Name: "user", Value: &ast.TextLit{Value: "amy"}},
		&ast.Check{
			Subject:    ident("user"),
			Capability: "read",
			Object:     &ast.TextLit{Value: "ledger"},
			SourceText: "user can read ledger",
		},
	)
	require.Equal(t, 1, countOp(prog, op.CheckCapability))
}

func TestAsyncFormsRejected(t *testing.T) {
	_, err := Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.AsyncStmt{Form: "read file", Args: []ast.Expr{&ast.TextLit{Value: "a.txt"}}},
	}}, Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "asynchronous evaluator")
}

func TestRequiresAsync(t *testing.T) {
	sync := &ast.Program{Statements: []ast.Stmt{
		&ast.Let{Name: "x", Value: intLit(1)},
	}}
	require.False(t, RequiresAsync(sync))

	nested := &ast.Program{Statements: []ast.Stmt{
		&ast.FuncDecl{Name: "f", Body: []ast.Stmt{
			&ast.If{Cond: &ast.BoolLit{Value: true}, Then: []ast.Stmt{
				&ast.AsyncStmt{Form: "sleep"},
			}},
		}},
	}}
	require.True(t, RequiresAsync(nested))

	inExpr := &ast.Program{Statements: []ast.Stmt{
		&ast.Let{Name: "x", Value: &ast.Infix{
			Op:    ast.OpAdd,
			Left:  intLit(1),
			Right: &ast.AsyncExpr{Form: "receive message"},
		}},
	}}
	require.True(t, RequiresAsync(inExpr))
}

func TestDuplicateFunctionRejected(t *testing.T) {
	_, err := Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.FuncDecl{Name: "f", Body: nil},
		&ast.FuncDecl{Name: "f", Body: nil},
	}}, Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already defined")
}

func TestCompiledProgramValidates(t *testing.T) {
	prog := compileStmts(t,
		&ast.FuncDecl{Name: "double", Params: []string{"n"}, Body: []ast.Stmt{
			&ast.Return{Value: &ast.Infix{Op: ast.OpMul, Left: ident("n"), Right: intLit(2)}},
		}},
		&ast.Let{Name: "xs", Value: &ast.ListLit{Items: []ast.Expr{intLit(1), intLit(2), intLit(3)}}},
		&ast.ForEach{Name: "x", Iterable: ident("xs"), Body: []ast.Stmt{
			&ast.Show{Value: &ast.Call{Name: "double", Args: []ast.Expr{ident("x")}}},
		}},
	)
	require.NoError(t, prog.Validate())
	require.Len(t, prog.Locations, len(prog.Instructions))
}
