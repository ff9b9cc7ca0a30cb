// Package hoist implements the local hoister (spec.md §4.4): the
// pre-pass over a function body, run before any code is emitted, that
// assigns frame offsets to local variables and registers goto labels.
package hoist

import (
	"github.com/erai271/cc/ast"
	"github.com/erai271/cc/decl"
	"github.com/erai271/cc/diag"
	"github.com/erai271/cc/proto"
	"github.com/erai271/cc/types"
)

// Hoister walks a function body once before translation.
type Hoister struct {
	decls *decl.Table
	proto *proto.Resolver
}

// New returns a hoister backed by decls and a prototype resolver built
// on the same table.
func New(decls *decl.Table, resolver *proto.Resolver) *Hoister {
	return &Hoister{decls: decls, proto: resolver}
}

// Run hoists funcName's body, starting the running frame offset at 0,
// and returns the total local frame size (always >= 0).
//
// Conditional arms are each hoisted starting from the same incoming
// offset and do not feed their resulting offset back to the caller —
// sibling if/else-if bodies alias the same frame region rather than
// stacking their locals (cc1.c's hoist_locals does this deliberately;
// spec.md §9 resolves it as a language rule, not a bug).
func (h *Hoister) Run(funcName string, body *ast.Node) (int, error) {
	offset, err := h.walk(funcName, body, 0)
	if err != nil {
		return 0, err
	}
	return offset, nil
}

func (h *Hoister) walk(funcName string, n *ast.Node, offset int) (int, error) {
	if n == nil {
		return offset, nil
	}

	switch n.Kind {
	case ast.CONDLIST:
		for cur := n; cur != nil; cur = cur.B {
			if _, err := h.walk(funcName, cur.A.B, offset); err != nil {
				return 0, err
			}
		}
		return offset, nil

	case ast.STMTLIST:
		for cur := n; cur != nil; cur = cur.B {
			var err error
			offset, err = h.walk(funcName, cur.A, offset)
			if err != nil {
				return 0, err
			}
		}
		return offset, nil

	case ast.LOOP:
		return h.walk(funcName, n.A, offset)

	case ast.LABEL:
		v := h.decls.Find(funcName, n.S, true)
		if v.Goto.Defined {
			return 0, diag.At(n.File, n.Line, n.Col, "duplicate goto")
		}
		v.Goto.Defined = true
		return offset, nil

	case ast.VARDECL:
		return h.hoistVar(funcName, n, offset)

	default:
		return offset, nil
	}
}

func (h *Hoister) hoistVar(funcName string, n *ast.Node, offset int) (int, error) {
	name := n.A.S
	t, err := h.proto.Resolve(n.B)
	if err != nil {
		return 0, err
	}

	v := h.decls.Find(funcName, name, true)
	if v.Variable != nil {
		return 0, diag.At(n.File, n.Line, n.Col, "duplicate variable")
	}

	size, err := types.Sizeof(t, h.decls)
	if err != nil {
		return 0, diag.At(n.File, n.Line, n.Col, "%v", err)
	}

	offset += size
	v.Variable = &decl.VariableRole{Type: t, Offset: -offset, Def: n}
	return offset, nil
}
