package dis

import (
	"bytes"
	"testing"

	"github.com/candor-lang/candor/ast"
	"github.com/candor-lang/candor/compiler"
	"github.com/candor-lang/candor/op"
	"github.com/stretchr/testify/require"
)

func TestDisassemble(t *testing.T) {
	prog, err := compiler.Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.Let{Name: "x", Value: &ast.IntLit{Value: 5}},
		&ast.Show{Value: &ast.Ident{Name: "x"}},
	}}, compiler.Config{})
	require.NoError(t, err)

	instructions, err := Disassemble(prog)
	require.NoError(t, err)
	require.Len(t, instructions, len(prog.Instructions))

	require.Equal(t, op.LoadConst, instructions[0].Opcode)
	require.Equal(t, "5", instructions[0].Annotation)
	require.Equal(t, op.StoreGlobal, instructions[1].Opcode)
	require.Equal(t, "x", instructions[1].Annotation)
	require.Equal(t, op.Halt, instructions[len(instructions)-1].Opcode)
}

func TestDisassembleAnnotatesCalls(t *testing.T) {
	prog, err := compiler.Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.FuncDecl{Name: "double", Params: []string{"n"}, Body: []ast.Stmt{
			&ast.Return{Value: &ast.Infix{Op: ast.OpMul, Left: &ast.Ident{Name: "n"}, Right: &ast.IntLit{Value: 2}}},
		}},
		&ast.Show{Value: &ast.Call{Name: "double", Args: []ast.Expr{&ast.IntLit{Value: 21}}}},
	}}, compiler.Config{})
	require.NoError(t, err)

	instructions, err := Disassemble(prog)
	require.NoError(t, err)

	var callAnnotation string
	for _, ins := range instructions {
		if ins.Opcode == op.Call {
			callAnnotation = ins.Annotation
		}
	}
	require.Equal(t, "func:double", callAnnotation)
}

func TestPrint(t *testing.T) {
	prog, err := compiler.Compile(&ast.Program{Statements: []ast.Stmt{
		&ast.FuncDecl{Name: "noop", Body: nil},
		&ast.Show{Value: &ast.TextLit{Value: "hi"}},
	}}, compiler.Config{})
	require.NoError(t, err)

	instructions, err := Disassemble(prog)
	require.NoError(t, err)

	var buf bytes.Buffer
	Print(prog, instructions, &buf)
	out := buf.String()
	require.Contains(t, out, "noop:")
	require.Contains(t, out, "entry:")
	require.Contains(t, out, "LOAD_CONST")
	require.Contains(t, out, `"hi"`)
}
