package translate

import (
	"github.com/erai271/cc/asmgen"
	"github.com/erai271/cc/ast"
	"github.com/erai271/cc/diag"
	"github.com/erai271/cc/types"
)

// compileStmt is the statement translator (spec.md §4.5). top and out
// are the innermost enclosing loop's labels, nil outside any loop;
// break/continue bind to whichever pair is currently in scope.
func (tr *Translator) compileStmt(funcName string, n *ast.Node, top, out *asmgen.Label) error {
	if n == nil {
		return nil
	}

	switch n.Kind {
	case ast.CONDLIST:
		return tr.compileCondList(funcName, n, top, out)

	case ast.STMTLIST:
		for cur := n; cur != nil; cur = cur.B {
			if err := tr.compileStmt(funcName, cur.A, top, out); err != nil {
				return err
			}
		}
		return nil

	case ast.LOOP:
		loopTop := tr.as.NewLabel()
		loopOut := tr.as.NewLabel()
		tr.as.FixupLabel(loopTop)
		if err := tr.compileStmt(funcName, n.A, loopTop, loopOut); err != nil {
			return err
		}
		tr.as.EmitJmp(loopTop)
		tr.as.FixupLabel(loopOut)
		return nil

	case ast.BREAK:
		if out == nil {
			return diag.At(n.File, n.Line, 0, "break outside loop")
		}
		tr.as.EmitJmp(out)
		return nil

	case ast.CONTINUE:
		if top == nil {
			return diag.At(n.File, n.Line, 0, "continue outside loop")
		}
		tr.as.EmitJmp(top)
		return nil

	case ast.RETURN:
		return tr.compileReturn(funcName, n)

	case ast.LABEL:
		v := tr.decls.Find(funcName, n.S, false)
		if v == nil || v.Goto == nil {
			return diag.At(n.File, n.Line, 0, "internal: label not hoisted")
		}
		tr.as.FixupLabel(v.Goto.Label)
		return nil

	case ast.GOTO:
		v := tr.decls.Find(funcName, n.S, false)
		if v == nil || v.Goto == nil || !v.Goto.Defined {
			return diag.At(n.File, n.Line, 0, "label not defined")
		}
		tr.as.EmitJmp(v.Goto.Label)
		return nil

	case ast.VARDECL:
		// Hoisting already assigned this variable's frame slot; nothing
		// to emit at the point of declaration.
		return nil

	default:
		if err := tr.compileExpr(funcName, n, true); err != nil {
			return err
		}
		tr.as.EmitPop(1)
		return nil
	}
}

// compileCondList compiles an if/else-if/else chain. Each CONDLIST
// node is a CLAUSE cons cell: A is the clause (A=condition or nil for
// a trailing else, B=body), B continues to the next clause.
func (tr *Translator) compileCondList(funcName string, n *ast.Node, top, out *asmgen.Label) error {
	chainEnd := tr.as.NewLabel()
	var next *asmgen.Label

	for cur := n; cur != nil; cur = cur.B {
		if next != nil {
			tr.as.FixupLabel(next)
		}
		next = tr.as.NewLabel()

		clause := cur.A
		if clause.A != nil {
			if err := tr.compileExpr(funcName, clause.A, true); err != nil {
				return err
			}
			tr.as.EmitJz(next)
		}

		if err := tr.compileStmt(funcName, clause.B, top, out); err != nil {
			return err
		}
		tr.as.EmitJmp(chainEnd)
	}
	if next != nil {
		tr.as.FixupLabel(next)
	}
	tr.as.FixupLabel(chainEnd)
	return nil
}

func (tr *Translator) compileReturn(funcName string, n *ast.Node) error {
	fn := tr.decls.Find(funcName, "", false)
	if fn == nil || fn.Function == nil || fn.Function.Type == nil {
		return diag.At(n.File, n.Line, 0, "internal: return outside a function")
	}
	retType := fn.Function.Type.Ret
	if retType == nil {
		retType = types.Void()
	}

	if n.A != nil {
		if retType.Kind == types.VOID {
			return diag.At(n.File, n.Line, 0, "returning a value in a void function")
		}
		if err := tr.compileExpr(funcName, n.A, true); err != nil {
			return err
		}
		if err := tr.unify(n, n.A.T, retType); err != nil {
			return err
		}
	} else {
		if retType.Kind != types.VOID {
			return diag.At(n.File, n.Line, 0, "returning void in a non void function")
		}
		tr.as.EmitNum(0)
	}
	tr.as.EmitRet()
	return nil
}
