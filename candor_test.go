package candor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/candor-lang/candor/ast"
	"github.com/candor-lang/candor/errz"
	"github.com/candor-lang/candor/object"
)

func TestExec(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.Let{Name: "x", Value: &ast.IntLit{Value: 5}},
		&ast.Show{Value: &ast.Infix{Op: ast.OpAdd, Left: &ast.Ident{Name: "x"}, Right: &ast.IntLit{Value: 3}}},
	}}
	out, err := Exec(context.Background(), program)
	require.NoError(t, err)
	require.Equal(t, []string{"8"}, out)
}

func TestCompileOnceRunTwice(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.Let{Name: "total", Value: &ast.Infix{Op: ast.OpAdd, Left: &ast.Ident{Name: "seed"}, Right: &ast.IntLit{Value: 1}}},
		&ast.Show{Value: &ast.Ident{Name: "total"}},
	}}
	prog, err := Compile(program)
	require.NoError(t, err)

	ctx := context.Background()
	out1, err := Run(ctx, prog, WithGlobals(map[string]object.Value{"seed": object.Int(1)}))
	require.NoError(t, err)
	out2, err := Run(ctx, prog, WithGlobals(map[string]object.Value{"seed": object.Int(9)}))
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, out1)
	require.Equal(t, []string{"10"}, out2)
}

func TestExternalFunction(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.Show{Value: &ast.Call{Name: "greet", Args: []ast.Expr{&ast.TextLit{Value: "amy"}}}},
	}}
	greet := func(ctx context.Context, args []object.Value) (object.Value, error) {
		return object.Text("hello " + args[0].Display()), nil
	}
	out, err := Exec(context.Background(), program, WithExternal("greet", greet))
	require.NoError(t, err)
	require.Equal(t, []string{"hello amy"}, out)
}

func TestOutputCallback(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.Show{Value: &ast.IntLit{Value: 1}},
		&ast.Show{Value: &ast.IntLit{Value: 2}},
	}}
	var lines []string
	_, err := Exec(context.Background(), program, WithOutput(func(line string) {
		lines = append(lines, line)
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, lines)
}

func TestFuelLimit(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.While{
			Cond: &ast.BoolLit{Value: true},
			Body: []ast.Stmt{&ast.Show{Value: &ast.IntLit{Value: 1}}},
		},
	}}
	_, err := Exec(context.Background(), program, WithFuel(5))
	require.Error(t, err)
	require.True(t, errz.IsKind(err, errz.ErrFuel))
}

type recordingEvaluator struct {
	called bool
}

func (r *recordingEvaluator) Eval(ctx context.Context, program *ast.Program) ([]string, error) {
	r.called = true
	return []string{"deferred"}, nil
}

func TestAsyncDelegation(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.AsyncStmt{Form: "sleep", Args: []ast.Expr{&ast.IntLit{Value: 1}}},
	}}

	_, err := Exec(context.Background(), program)
	require.Error(t, err)
	require.True(t, errz.IsKind(err, errz.ErrCompile))

	eval := &recordingEvaluator{}
	out, err := Exec(context.Background(), program, WithAsyncEvaluator(eval))
	require.NoError(t, err)
	require.True(t, eval.called)
	require.Equal(t, []string{"deferred"}, out)
}

func TestFilenameInErrors(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.Show{Value: &ast.Ident{Name: "missing"}},
	}}
	_, err := Exec(context.Background(), program, WithFilename("main.cdr"))
	require.Error(t, err)
	var structured *errz.StructuredError
	require.ErrorAs(t, err, &structured)
	require.Equal(t, "main.cdr", structured.Location.Filename)
}
