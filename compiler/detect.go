package compiler

import "github.com/candor-lang/candor/ast"

// RequiresAsync reports whether the program uses a form that only the
// asynchronous evaluator supports. The entry point calls this before
// compiling so such programs can be routed to the external evaluator
// instead of failing mid-compile.
func RequiresAsync(program *ast.Program) bool {
	for _, stmt := range program.Statements {
		if stmtRequiresAsync(stmt) {
			return true
		}
	}
	return false
}

func stmtsRequireAsync(stmts []ast.Stmt) bool {
	for _, stmt := range stmts {
		if stmtRequiresAsync(stmt) {
			return true
		}
	}
	return false
}

func stmtRequiresAsync(stmt ast.Stmt) bool {
	switch s := stmt.(type) {
	case *ast.AsyncStmt:
		return true
	case *ast.Let:
		return exprRequiresAsync(s.Value)
	case *ast.Assign:
		return exprRequiresAsync(s.Value)
	case *ast.IndexAssign:
		return exprRequiresAsync(s.Target) || exprRequiresAsync(s.Index) || exprRequiresAsync(s.Value)
	case *ast.FieldAssign:
		return exprRequiresAsync(s.Target) || exprRequiresAsync(s.Value)
	case *ast.Show:
		return exprRequiresAsync(s.Value)
	case *ast.If:
		return exprRequiresAsync(s.Cond) || stmtsRequireAsync(s.Then) || stmtsRequireAsync(s.Else)
	case *ast.While:
		return exprRequiresAsync(s.Cond) || stmtsRequireAsync(s.Body)
	case *ast.ForEach:
		return exprRequiresAsync(s.Iterable) || stmtsRequireAsync(s.Body)
	case *ast.Return:
		return s.Value != nil && exprRequiresAsync(s.Value)
	case *ast.FuncDecl:
		return stmtsRequireAsync(s.Body)
	case *ast.Push:
		return exprRequiresAsync(s.Value) || exprRequiresAsync(s.Target)
	case *ast.Pop:
		return exprRequiresAsync(s.Source)
	case *ast.AddTo:
		return exprRequiresAsync(s.Value) || exprRequiresAsync(s.Target)
	case *ast.RemoveFrom:
		return exprRequiresAsync(s.Value) || exprRequiresAsync(s.Target)
	case *ast.Match:
		if exprRequiresAsync(s.Subject) || stmtsRequireAsync(s.Otherwise) {
			return true
		}
		for _, arm := range s.Arms {
			if stmtsRequireAsync(arm.Body) {
				return true
			}
		}
		return false
	case *ast.Zone:
		return stmtsRequireAsync(s.Body)
	case *ast.Assert:
		return exprRequiresAsync(s.Cond)
	case *ast.Check:
		return exprRequiresAsync(s.Subject) || (s.Object != nil && exprRequiresAsync(s.Object))
	case *ast.Increase:
		return exprRequiresAsync(s.Target) || exprRequiresAsync(s.Amount)
	case *ast.Decrease:
		return exprRequiresAsync(s.Target) || exprRequiresAsync(s.Amount)
	case *ast.Merge:
		return exprRequiresAsync(s.Target) || exprRequiresAsync(s.Source)
	case *ast.ExprStmt:
		return exprRequiresAsync(s.Value)
	case *ast.Concurrent:
		for _, block := range s.Blocks {
			if stmtsRequireAsync(block) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func exprRequiresAsync(e ast.Expr) bool {
	switch expr := e.(type) {
	case *ast.AsyncExpr:
		return true
	case *ast.ListLit:
		return exprsRequireAsync(expr.Items)
	case *ast.TupleLit:
		return exprsRequireAsync(expr.Items)
	case *ast.SetLit:
		return exprsRequireAsync(expr.Items)
	case *ast.MapLit:
		return exprsRequireAsync(expr.Values)
	case *ast.RangeLit:
		return exprRequiresAsync(expr.Low) || exprRequiresAsync(expr.High)
	case *ast.Infix:
		return exprRequiresAsync(expr.Left) || exprRequiresAsync(expr.Right)
	case *ast.Prefix:
		return exprRequiresAsync(expr.Right)
	case *ast.Call:
		return exprsRequireAsync(expr.Args)
	case *ast.Index:
		return exprRequiresAsync(expr.Target) || exprRequiresAsync(expr.Index)
	case *ast.SliceOf:
		return exprRequiresAsync(expr.Target) || exprRequiresAsync(expr.Low) || exprRequiresAsync(expr.High)
	case *ast.FieldAccess:
		return exprRequiresAsync(expr.Target)
	case *ast.NewRecord:
		for _, init := range expr.Fields {
			if exprRequiresAsync(init.Value) {
				return true
			}
		}
		return false
	case *ast.NewVariant:
		return exprsRequireAsync(expr.Args)
	default:
		return false
	}
}

func exprsRequireAsync(exprs []ast.Expr) bool {
	for _, e := range exprs {
		if exprRequiresAsync(e) {
			return true
		}
	}
	return false
}
