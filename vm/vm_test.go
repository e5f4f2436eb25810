package vm

import (
	"context"
	"testing"

	"github.com/candor-lang/candor/ast"
	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/compiler"
	"github.com/candor-lang/candor/errz"
	"github.com/candor-lang/candor/object"
	"github.com/candor-lang/candor/token"
	"github.com/stretchr/testify/require"
)

func intLit(v int64) *ast.IntLit   { return &ast.IntLit{Value: v} }
func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func compile(t *testing.T, stmts ...ast.Stmt) *bytecode.Program {
	t.Helper()
	prog, err := compiler.Compile(&ast.Program{Statements: stmts}, compiler.Config{})
	require.NoError(t, err)
	return prog
}

func run(t *testing.T, stmts []ast.Stmt, opts ...Option) (*Machine, error) {
	t.Helper()
	m, err := New(compile(t, stmts...), opts...)
	require.NoError(t, err)
	return m, m.Run(context.Background())
}

func mustRun(t *testing.T, stmts []ast.Stmt, opts ...Option) *Machine {
	t.Helper()
	m, err := run(t, stmts, opts...)
	require.NoError(t, err)
	return m
}

func TestShowVariable(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.Let{Name: "x", Value: intLit(5)},
		&ast.Show{Value: ident("x")},
	})
	require.Equal(t, []string{"5"}, m.Output())
}

func TestSpecializedAdd(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.Let{Name: "x", Value: intLit(5)},
		&ast.Let{Name: "y", Value: &ast.Infix{Op: ast.OpAdd, Left: ident("x"), Right: intLit(3)}},
		&ast.Show{Value: ident("y")},
	})
	require.Equal(t, []string{"8"}, m.Output())
}

func TestArithmeticPromotionAndErrors(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.Show{Value: &ast.Infix{Op: ast.OpAdd, Left: intLit(1), Right: &ast.FloatLit{Value: 0.5}}},
		&ast.Show{Value: &ast.Infix{Op: ast.OpAdd, Left: &ast.TextLit{Value: "n="}, Right: intLit(7)}},
	})
	require.Equal(t, []string{"1.5", "n=7"}, m.Output())

	_, err := run(t, []ast.Stmt{
		&ast.Show{Value: &ast.Infix{Op: ast.OpDiv, Left: intLit(1), Right: intLit(0)}},
	})
	require.Error(t, err)
	require.True(t, errz.IsKind(err, errz.ErrValue))
	require.Contains(t, err.Error(), "division by zero")
}

// depthObserver records the maximum call stack depth seen.
type depthObserver struct {
	NoOpObserver
	maxDepth int
}

func (d *depthObserver) OnCall(event CallEvent) bool {
	if event.FrameDepth > d.maxDepth {
		d.maxDepth = event.FrameDepth
	}
	return true
}

func factorialDecl() *ast.FuncDecl {
	// To fact n acc: If n <= 1: Return acc. Return fact(n - 1, acc * n).
	return &ast.FuncDecl{
		Name:   "fact",
		Params: []string{"n", "acc"},
		Body: []ast.Stmt{
			&ast.If{
				Cond: &ast.Infix{Op: ast.OpLessEq, Left: ident("n"), Right: intLit(1)},
				Then: []ast.Stmt{&ast.Return{Value: ident("acc")}},
			},
			&ast.Return{Value: &ast.Call{Name: "fact", Args: []ast.Expr{
				&ast.Infix{Op: ast.OpSub, Left: ident("n"), Right: intLit(1)},
				&ast.Infix{Op: ast.OpMul, Left: ident("acc"), Right: ident("n")},
			}}},
		},
	}
}

func TestTailRecursiveFactorial(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		factorialDecl(),
		&ast.Show{Value: &ast.Call{Name: "fact", Args: []ast.Expr{intLit(5), intLit(1)}}},
		// Specialized straight-line arithmetic agrees with the generic
		// path taken inside the function body.
		&ast.Let{Name: "product", Value: &ast.Infix{
			Op:   ast.OpMul,
			Left: &ast.Infix{Op: ast.OpMul, Left: &ast.Infix{Op: ast.OpMul, Left: &ast.Infix{Op: ast.OpMul, Left: intLit(5), Right: intLit(4)}, Right: intLit(3)}, Right: intLit(2)},
			Right: intLit(1),
		}},
		&ast.Show{Value: ident("product")},
	})
	require.Equal(t, []string{"120", "120"}, m.Output())
}

func TestTailCallsKeepFramesBounded(t *testing.T) {
	observer := &depthObserver{}
	m := mustRun(t, []ast.Stmt{
		factorialDecl(),
		&ast.Let{Name: "r", Value: &ast.Call{Name: "fact", Args: []ast.Expr{intLit(200000), intLit(1)}}},
		&ast.Show{Value: &ast.Infix{Op: ast.OpGreaterEq, Left: ident("r"), Right: intLit(0)}},
	}, WithObserver(observer))
	require.Len(t, m.Output(), 1)
	require.Equal(t, 2, observer.maxDepth, "tail calls reuse the frame")
}

func TestReturnShrinksRegisterBuffer(t *testing.T) {
	prog := compile(t,
		&ast.FuncDecl{Name: "wide", Params: []string{"n"}, Body: []ast.Stmt{
			&ast.Let{Name: "a", Value: &ast.Infix{Op: ast.OpAdd, Left: ident("n"), Right: intLit(1)}},
			&ast.Let{Name: "b", Value: &ast.Infix{Op: ast.OpAdd, Left: ident("a"), Right: intLit(1)}},
			&ast.Return{Value: ident("b")},
		}},
		&ast.Show{Value: &ast.Call{Name: "wide", Args: []ast.Expr{intLit(1)}}},
	)
	m, err := New(prog)
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background()))
	require.Equal(t, []string{"3"}, m.Output())
	require.Len(t, m.regs, prog.Registers, "callee window released after return")
}

func TestFuelExhaustion(t *testing.T) {
	loop := []ast.Stmt{
		&ast.While{Cond: &ast.BoolLit{Value: true}, Body: []ast.Stmt{
			&ast.Show{Value: intLit(1)},
		}},
	}
	first, err := run(t, loop, WithFuel(10))
	require.Error(t, err)
	require.True(t, errz.IsKind(err, errz.ErrFuel))
	require.Contains(t, err.Error(), "fuel exhausted")

	second, err := run(t, loop, WithFuel(10))
	require.Error(t, err)
	require.Equal(t, first.Output(), second.Output(), "fuel accounting is deterministic")

	// Without fuel a bounded loop terminates normally.
	m := mustRun(t, []ast.Stmt{
		&ast.Let{Name: "i", Value: intLit(0)},
		&ast.While{
			Cond: &ast.Infix{Op: ast.OpLess, Left: ident("i"), Right: intLit(3)},
			Body: []ast.Stmt{
				&ast.Show{Value: ident("i")},
				&ast.Assign{Name: "i", Value: &ast.Infix{Op: ast.OpAdd, Left: ident("i"), Right: intLit(1)}},
			},
		},
	})
	require.Equal(t, []string{"0", "1", "2"}, m.Output())
}

func TestAggregateArgumentsAlias(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.FuncDecl{Name: "grow", Params: []string{"xs"}, Body: []ast.Stmt{
			&ast.Push{Value: intLit(99), Target: ident("xs")},
		}},
		&ast.Let{Name: "data", Value: &ast.ListLit{Items: []ast.Expr{intLit(1)}}},
		&ast.ExprStmt{Value: &ast.Call{Name: "grow", Args: []ast.Expr{ident("data")}}},
		&ast.Show{Value: &ast.Call{Name: "length", Args: []ast.Expr{ident("data")}}},
	})
	require.Equal(t, []string{"2"}, m.Output())
}

func TestScalarArgumentsDoNotAlias(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.FuncDecl{Name: "bump", Params: []string{"n"}, Body: []ast.Stmt{
			&ast.Assign{Name: "n", Value: &ast.Infix{Op: ast.OpAdd, Left: ident("n"), Right: intLit(1)}},
		}},
		&ast.Let{Name: "x", Value: intLit(5)},
		&ast.ExprStmt{Value: &ast.Call{Name: "bump", Args: []ast.Expr{ident("x")}}},
		&ast.Show{Value: ident("x")},
	})
	require.Equal(t, []string{"5"}, m.Output())
}

func TestIteratorSnapshotIsolation(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.Let{Name: "xs", Value: &ast.ListLit{Items: []ast.Expr{intLit(1), intLit(2), intLit(3)}}},
		&ast.ForEach{Name: "x", Iterable: ident("xs"), Body: []ast.Stmt{
			&ast.Push{Value: ident("x"), Target: ident("xs")},
			&ast.Show{Value: ident("x")},
		}},
		&ast.Show{Value: &ast.Call{Name: "length", Args: []ast.Expr{ident("xs")}}},
	})
	require.Equal(t, []string{"1", "2", "3", "6"}, m.Output())
}

func TestLoopingFunctionCalledInsideLoop(t *testing.T) {
	// Both loops sit at static depth zero in their own functions. The
	// inner function's iterator must not disturb the caller's, which is
	// still live across the call.
	m := mustRun(t, []ast.Stmt{
		&ast.FuncDecl{Name: "inner", Body: []ast.Stmt{
			&ast.ForEach{Name: "y", Iterable: &ast.ListLit{Items: []ast.Expr{intLit(7), intLit(8)}}, Body: []ast.Stmt{
				&ast.Show{Value: ident("y")},
			}},
		}},
		&ast.ForEach{Name: "x", Iterable: &ast.ListLit{Items: []ast.Expr{intLit(1), intLit(2), intLit(3)}}, Body: []ast.Stmt{
			&ast.ExprStmt{Value: &ast.Call{Name: "inner"}},
			&ast.Show{Value: ident("x")},
		}},
	})
	require.Equal(t, []string{"7", "8", "1", "7", "8", "2", "7", "8", "3"}, m.Output())
}

func TestRangeIteration(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.Let{Name: "total", Value: intLit(0)},
		&ast.ForEach{Name: "i", Iterable: &ast.RangeLit{Low: intLit(1), High: intLit(4)}, Body: []ast.Stmt{
			&ast.Assign{Name: "total", Value: &ast.Infix{Op: ast.OpAdd, Left: ident("total"), Right: ident("i")}},
		}},
		&ast.Show{Value: ident("total")},
	})
	require.Equal(t, []string{"10"}, m.Output())
}

func TestMapIterationPairs(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.Let{Name: "ages", Value: &ast.MapLit{
			Keys:   []string{"amy", "bo"},
			Values: []ast.Expr{intLit(30), intLit(40)},
		}},
		&ast.ForEach{KeyName: "name", Name: "age", Iterable: ident("ages"), Body: []ast.Stmt{
			&ast.Show{Value: &ast.Infix{Op: ast.OpAdd, Left: ident("name"), Right: ident("age")}},
		}},
	})
	require.Equal(t, []string{"amy30", "bo40"}, m.Output())
}

func TestMatchDispatch(t *testing.T) {
	shape := &ast.VariantDecl{Name: "Shape", Ctors: []ast.CtorDef{
		{Name: "Circle", Arity: 1},
		{Name: "Square", Arity: 1},
		{Name: "Dot", Arity: 0},
	}}
	inspect := func(subject ast.Expr) ast.Stmt {
		return &ast.Match{
			Subject: subject,
			Arms: []ast.MatchArm{
				{Ctor: "Circle", Bindings: []string{"r"}, Body: []ast.Stmt{
					&ast.Show{Value: &ast.Infix{Op: ast.OpAdd, Left: &ast.TextLit{Value: "circle "}, Right: ident("r")}},
				}},
				{Ctor: "Square", Bindings: []string{"w"}, Body: []ast.Stmt{
					&ast.Show{Value: &ast.Infix{Op: ast.OpAdd, Left: &ast.TextLit{Value: "square "}, Right: ident("w")}},
				}},
			},
			Otherwise: []ast.Stmt{&ast.Show{Value: &ast.TextLit{Value: "other"}}},
		}
	}
	m := mustRun(t, []ast.Stmt{
		shape,
		inspect(&ast.NewVariant{Ctor: "Circle", Args: []ast.Expr{intLit(3)}}),
		inspect(&ast.NewVariant{Ctor: "Square", Args: []ast.Expr{intLit(4)}}),
		inspect(ident("Dot")),
	})
	require.Equal(t, []string{"circle 3", "square 4", "other"}, m.Output())
}

func TestRecordFieldsAndDefaults(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.RecordDecl{Name: "Point", Fields: []ast.FieldDef{
			{Name: "x", Default: intLit(0)},
			{Name: "y", Default: intLit(0)},
		}},
		&ast.Let{Name: "p", Value: &ast.NewRecord{TypeName: "Point", Fields: []ast.FieldInit{
			{Name: "x", Value: intLit(3)},
		}}},
		&ast.Show{Value: &ast.FieldAccess{Target: ident("p"), Field: "x"}},
		&ast.Show{Value: &ast.FieldAccess{Target: ident("p"), Field: "y"}},
		&ast.FieldAssign{Target: ident("p"), Field: "y", Value: intLit(7)},
		&ast.Show{Value: &ast.FieldAccess{Target: ident("p"), Field: "y"}},
	})
	require.Equal(t, []string{"3", "0", "7"}, m.Output())
}

func TestCounters(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.RecordDecl{Name: "Page", Fields: []ast.FieldDef{{Name: "hits"}}},
		&ast.Let{Name: "local", Value: &ast.NewRecord{TypeName: "Page", Fields: []ast.FieldInit{
			{Name: "hits", Value: &ast.CounterLit{}},
		}}},
		&ast.Let{Name: "remote", Value: &ast.NewRecord{TypeName: "Page", Fields: []ast.FieldInit{
			{Name: "hits", Value: &ast.CounterLit{}},
		}}},
		&ast.Increase{Target: ident("local"), Field: "hits", Amount: intLit(3)},
		&ast.Increase{Target: ident("remote"), Field: "hits", Amount: intLit(4)},
		&ast.Decrease{Target: ident("remote"), Field: "hits", Amount: intLit(1)},
		&ast.Merge{Target: ident("local"), Source: ident("remote")},
		&ast.Show{Value: &ast.FieldAccess{Target: ident("local"), Field: "hits"}},
	})
	require.Equal(t, []string{"6"}, m.Output())
}

func TestAssertFailure(t *testing.T) {
	_, err := run(t, []ast.Stmt{
		&ast.Assert{Cond: &ast.Infix{Op: ast.OpEq, Left: intLit(1), Right: intLit(2)}},
	})
	require.Error(t, err)
	require.True(t, errz.IsKind(err, errz.ErrAssert))
	require.Contains(t, err.Error(), "Assertion failed")
}

type allowPolicy struct{}

func (allowPolicy) CheckPredicate(object.Value, string) (bool, error) { return true, nil }
func (allowPolicy) CheckCapability(object.Value, string, object.Value) (bool, error) {
	return true, nil
}

func TestSecurityChecks(t *testing.T) {
	check := []ast.Stmt{
		&ast.Let{Name: "user", Value: &ast.TextLit{Value: "amy"}},
		&ast.Check{
			Subject:    ident("user"),
			Capability: "read",
			Object:     &ast.TextLit{Value: "ledger"},
			SourceText: "user can read ledger",
		},
		&ast.Show{Value: &ast.TextLit{Value: "granted"}},
	}

	// No policy means every check fails.
	_, err := run(t, check)
	require.Error(t, err)
	require.True(t, errz.IsKind(err, errz.ErrSecurity))
	require.Contains(t, err.Error(), "Security Check Failed: user can read ledger")

	m := mustRun(t, check, WithPolicy(allowPolicy{}))
	require.Equal(t, []string{"granted"}, m.Output())
}

func TestExternalCalls(t *testing.T) {
	double := func(_ context.Context, args []object.Value) (object.Value, error) {
		n, _ := args[0].AsInt()
		return object.Int(n * 2), nil
	}
	m := mustRun(t, []ast.Stmt{
		&ast.Show{Value: &ast.Call{Name: "double_it", Args: []ast.Expr{intLit(21)}}},
	}, WithExternal("double_it", double))
	require.Equal(t, []string{"42"}, m.Output())

	_, err := run(t, []ast.Stmt{
		&ast.Show{Value: &ast.Call{Name: "missing_fn", Args: nil}},
	})
	require.Error(t, err)
	require.True(t, errz.IsKind(err, errz.ErrName))
}

func TestSeededGlobals(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.Show{Value: ident("limit")},
	}, WithGlobals(map[string]object.Value{"limit": object.Int(7)}))
	require.Equal(t, []string{"7"}, m.Output())
}

func TestGlobalReadableAfterRun(t *testing.T) {
	m := mustRun(t, []ast.Stmt{
		&ast.Let{Name: "answer", Value: intLit(42)},
	})
	v, ok := m.Global("answer")
	require.True(t, ok)
	n, _ := v.AsInt()
	require.Equal(t, int64(42), n)
}

func TestReservedOpcodesError(t *testing.T) {
	prog := compile(t, &ast.Show{Value: intLit(1)})
	prog.Instructions[0] = bytecode.New(240, 0, 0, 0) // closure group
	m, err := New(prog, WithContextCheckInterval(0))
	require.NoError(t, err)
	err = m.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "closures are not supported")
}

func TestContextCancellation(t *testing.T) {
	prog := compile(t,
		&ast.While{Cond: &ast.BoolLit{Value: true}, Body: []ast.Stmt{
			&ast.Let{Name: "x", Value: intLit(1)},
		}},
	)
	m, err := New(prog, WithContextCheckInterval(1))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.Run(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cancelled")
}

func TestRuntimeErrorCarriesLocation(t *testing.T) {
	prog, err := compiler.Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.Show{Value: &ast.Infix{
			Position: token.Position{Line: 2, Column: 4},
			Op:       ast.OpDiv, Left: intLit(1), Right: intLit(0),
		}},
	}}, compiler.Config{Filename: "main.cdr"})
	require.NoError(t, err)
	m, err := New(prog)
	require.NoError(t, err)
	err = m.Run(context.Background())
	require.Error(t, err)
	structured, ok := err.(*errz.StructuredError)
	require.True(t, ok)
	require.Equal(t, "main.cdr", structured.Location.Filename)
	require.Equal(t, 3, structured.Location.Line, "positions are zero-based in the tree, one-based in errors")
}
