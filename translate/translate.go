// Package translate implements the translator (spec.md §4.5): the
// recursive expression and statement walkers that are the compiler's
// core. Every expression leaves exactly one value on the operand
// stack the asmgen back end realizes on the real machine stack; every
// statement is compiled for its side effects and leaves nothing.
package translate

import (
	"go.uber.org/zap"

	"github.com/erai271/cc/asmgen"
	"github.com/erai271/cc/ast"
	"github.com/erai271/cc/decl"
	"github.com/erai271/cc/diag"
	"github.com/erai271/cc/hoist"
	"github.com/erai271/cc/proto"
	"github.com/erai271/cc/types"
)

// Translator owns the declaration table, prototype resolver, hoister
// and back end a whole-program compile shares. One Translator compiles
// one program (spec.md §5: the translator is never reentered from the
// back end, and nothing here is safe to share across programs).
type Translator struct {
	decls   *decl.Table
	proto   *proto.Resolver
	hoister *hoist.Hoister
	as      *asmgen.Assembler
	log     *zap.Logger

	entry *asmgen.Label
}

// New returns a translator backed by decls and as. log may be nil (a
// no-op logger is substituted, per diag.NewLogger's contract).
func New(decls *decl.Table, as *asmgen.Assembler, log *zap.Logger) *Translator {
	if log == nil {
		log = zap.NewNop()
	}
	p := proto.New(decls)
	return &Translator{
		decls:   decls,
		proto:   p,
		hoister: hoist.New(decls, p),
		as:      as,
		log:     log,
	}
}

// sizeof is a small wrapper that turns types.Sizeof's bare error into
// a located diag.Error, since types carries no source position.
func (tr *Translator) sizeof(n *ast.Node, t *types.Type) (int, error) {
	size, err := types.Sizeof(t, tr.decls)
	if err != nil {
		return 0, diag.At(n.File, n.Line, 0, "%v", err)
	}
	return size, nil
}

func (tr *Translator) unify(n *ast.Node, a, b *types.Type) error {
	if err := types.Unify(a, b); err != nil {
		return diag.At(n.File, n.Line, 0, "%v", err)
	}
	return nil
}

// countExprList counts the actual-argument nodes in an EXPRLIST chain,
// nil counting as zero. It drives EmitCall/EmitLcall's cleanup count
// directly off what was pushed, rather than off the callee's formal
// argument-chain type (spec.md §4.5's count_args uses the latter; both
// agree once Unify has validated the call, and counting the actual
// list sidesteps needing a resolved callee type before the count is
// known).
func countExprList(n *ast.Node) int {
	count := 0
	for cur := n; cur != nil; cur = cur.B {
		count++
	}
	return count
}

// compileExpr is the expression translator (spec.md §4.5). rhs=true
// is value context (rexpr); rhs=false is address context (lexpr). The
// synthesized type is written into n.T. funcName scopes local/argument
// lookups against the declaration table.
func (tr *Translator) compileExpr(funcName string, n *ast.Node, rhs bool) error {
	switch n.Kind {
	case ast.STR:
		if !rhs {
			return diag.At(n.File, n.Line, 0, "str is not an lexpr")
		}
		tr.as.InternString(n.S)
		n.T = types.Ptr(types.Byte())
		return nil

	case ast.NUM, ast.CHAR:
		if !rhs {
			return diag.At(n.File, n.Line, 0, "num is not an lexpr")
		}
		tr.as.EmitNum(n.N)
		n.T = types.Int()
		return nil

	case ast.EXPRLIST:
		if !rhs {
			return diag.At(n.File, n.Line, 0, "arg list is not an lexpr")
		}
		var next *types.Type
		if n.B != nil {
			if err := tr.compileExpr(funcName, n.B, true); err != nil {
				return err
			}
			next = n.B.T
		}
		if err := tr.compileExpr(funcName, n.A, true); err != nil {
			return err
		}
		n.T = types.Arg(n.A.T, next)
		return nil

	case ast.CALL:
		return tr.compileCall(funcName, n)

	case ast.DOT:
		return tr.compileDot(funcName, n, rhs)

	case ast.IDENT:
		return tr.compileIdent(funcName, n, rhs)

	case ast.ASSIGN:
		if !rhs {
			return diag.At(n.File, n.Line, 0, "assign is not an lexpr")
		}
		if err := tr.compileExpr(funcName, n.B, true); err != nil {
			return err
		}
		if err := tr.compileExpr(funcName, n.A, false); err != nil {
			return err
		}
		if err := tr.unify(n, n.A.T, n.B.T); err != nil {
			return err
		}
		n.T = n.A.T
		size, err := tr.sizeof(n, n.T)
		if err != nil {
			return err
		}
		tr.as.EmitStore(size)
		return nil

	case ast.SIZEOF:
		if !rhs {
			return diag.At(n.File, n.Line, 0, "sizeof is not an lexpr")
		}
		out := tr.as.NewLabel()
		tr.as.EmitJmp(out)
		// The operand is compiled as rhs so sizeof works on arbitrary
		// expressions, not just addressable ones; the jump over this
		// code means it never executes regardless (spec.md §8 property
		// 8: sizeof emits no side effect of its operand).
		if err := tr.compileExpr(funcName, n.A, true); err != nil {
			return err
		}
		tr.as.FixupLabel(out)
		size, err := tr.sizeof(n, n.A.T)
		if err != nil {
			return err
		}
		tr.as.EmitNum(int64(size))
		n.T = types.Int()
		return nil

	case ast.REF:
		if !rhs {
			return diag.At(n.File, n.Line, 0, "ref is not an lexpr")
		}
		if err := tr.compileExpr(funcName, n.A, false); err != nil {
			return err
		}
		n.T = types.Ptr(n.A.T)
		return nil

	case ast.DEREF:
		if err := tr.compileExpr(funcName, n.A, true); err != nil {
			return err
		}
		if n.A.T == nil || n.A.T.Kind != types.PTR {
			return diag.At(n.File, n.Line, 0, "deref not a pointer")
		}
		n.T = n.A.T.Elem
		if rhs {
			size, err := tr.sizeof(n, n.T)
			if err != nil {
				return err
			}
			tr.as.EmitLoad(size)
		}
		return nil

	case ast.INDEX:
		if err := tr.compileExpr(funcName, n.A, true); err != nil {
			return err
		}
		if err := tr.compileExpr(funcName, n.B, true); err != nil {
			return err
		}
		if n.A.T == nil || n.A.T.Kind != types.PTR {
			return diag.At(n.File, n.Line, 0, "not a pointer")
		}
		if !types.IsInt(n.B.T) {
			return diag.At(n.File, n.Line, 0, "index: not an int")
		}
		n.T = n.A.T.Elem
		elemSize, err := tr.sizeof(n, n.T)
		if err != nil {
			return err
		}
		tr.as.EmitNum(int64(elemSize))
		tr.as.EmitMul()
		tr.as.EmitAdd()
		if rhs {
			tr.as.EmitLoad(elemSize)
		}
		return nil

	case ast.CAST:
		if !rhs {
			return diag.At(n.File, n.Line, 0, "cast is not an lexpr")
		}
		if err := tr.compileExpr(funcName, n.A, true); err != nil {
			return err
		}
		if !types.IsPrim(n.A.T) {
			return diag.At(n.File, n.Line, 0, "cast: not a primitive")
		}
		t, err := tr.proto.Resolve(n.B)
		if err != nil {
			return err
		}
		n.T = t
		return nil

	case ast.POS:
		return tr.compileUnary(funcName, n, rhs, "pos: not an int", types.IsInt, func() {}, false)
	case ast.NEG:
		return tr.compileUnary(funcName, n, rhs, "neg: not an int", types.IsInt, tr.as.EmitNeg, false)
	case ast.NOT:
		// Bitwise complement: preserves the operand's type.
		return tr.compileUnary(funcName, n, rhs, "not: not an int", types.IsInt, tr.as.EmitBnot, false)
	case ast.BNOT:
		// Logical not: always yields an int 0/1, requires a primitive.
		return tr.compileUnary(funcName, n, rhs, "bnot: not a primitive", types.IsPrim, tr.as.EmitNot, true)

	case ast.BAND:
		return tr.compileShortCircuitAnd(funcName, n, rhs)
	case ast.BOR:
		return tr.compileShortCircuitOr(funcName, n, rhs)

	case ast.ADD:
		return tr.compileBinary(funcName, n, rhs, "add: not an int", types.IsInt, tr.as.EmitAdd, false)
	case ast.SUB:
		return tr.compileBinary(funcName, n, rhs, "sub: not an int", types.IsInt, tr.as.EmitSub, false)
	case ast.MUL:
		return tr.compileBinary(funcName, n, rhs, "mul: not an int", types.IsInt, tr.as.EmitMul, false)
	case ast.DIV:
		return tr.compileBinary(funcName, n, rhs, "div: not an int", types.IsInt, tr.as.EmitDiv, false)
	case ast.MOD:
		return tr.compileBinary(funcName, n, rhs, "mod: not an int", types.IsInt, tr.as.EmitMod, false)
	case ast.LSH:
		return tr.compileBinary(funcName, n, rhs, "lsh: not an int", types.IsInt, tr.as.EmitLsh, false)
	case ast.RSH:
		return tr.compileBinary(funcName, n, rhs, "rsh: not an int", types.IsInt, tr.as.EmitRsh, false)
	case ast.AND:
		return tr.compileBinary(funcName, n, rhs, "and: not an int", types.IsInt, tr.as.EmitAnd, false)
	case ast.OR:
		return tr.compileBinary(funcName, n, rhs, "or: not an int", types.IsInt, tr.as.EmitOr, false)
	case ast.XOR:
		return tr.compileBinary(funcName, n, rhs, "xor: not an int", types.IsInt, tr.as.EmitXor, false)

	case ast.LT:
		return tr.compileBinary(funcName, n, rhs, "lt: not a primitive", types.IsPrim, tr.as.EmitLt, false)
	case ast.GT:
		return tr.compileBinary(funcName, n, rhs, "gt: not a primitive", types.IsPrim, tr.as.EmitGt, false)
	case ast.LE:
		return tr.compileBinary(funcName, n, rhs, "le: not a primitive", types.IsPrim, tr.as.EmitLe, false)
	case ast.GE:
		return tr.compileBinary(funcName, n, rhs, "ge: not a primitive", types.IsPrim, tr.as.EmitGe, false)
	case ast.EQ:
		return tr.compileBinary(funcName, n, rhs, "eq: not a primitive", types.IsPrim, tr.as.EmitEq, false)
	case ast.NE:
		return tr.compileBinary(funcName, n, rhs, "ne: not a primitive", types.IsPrim, tr.as.EmitNe, false)

	default:
		return diag.At(n.File, n.Line, 0, "not an expression")
	}
}

// compileUnary compiles n.A, optionally emits op, checks the operand's
// type with accept, and sets n.T to either the operand's own type or
// (forceInt) a fresh int — the NOT/BNOT asymmetry spec.md §4.5 calls
// out explicitly.
func (tr *Translator) compileUnary(funcName string, n *ast.Node, rhs bool, msg string, accept func(*types.Type) bool, op func(), forceInt bool) error {
	if !rhs {
		return diag.At(n.File, n.Line, 0, "not an lexpr")
	}
	if err := tr.compileExpr(funcName, n.A, true); err != nil {
		return err
	}
	if !accept(n.A.T) {
		return diag.At(n.File, n.Line, 0, msg)
	}
	if op != nil {
		op()
	}
	if forceInt {
		n.T = types.Int()
	} else {
		n.T = n.A.T
	}
	return nil
}

// compileBinary implements every arithmetic, bitwise and comparison
// operator's shared shape: right operand first, then left (spec.md
// §4.5's evaluation order), emit op, unify, check accept.
func (tr *Translator) compileBinary(funcName string, n *ast.Node, rhs bool, msg string, accept func(*types.Type) bool, op func(), forceInt bool) error {
	if !rhs {
		return diag.At(n.File, n.Line, 0, "not an lexpr")
	}
	if err := tr.compileExpr(funcName, n.B, true); err != nil {
		return err
	}
	if err := tr.compileExpr(funcName, n.A, true); err != nil {
		return err
	}
	op()
	if err := tr.unify(n, n.A.T, n.B.T); err != nil {
		return err
	}
	if !accept(n.A.T) {
		return diag.At(n.File, n.Line, 0, msg)
	}
	if forceInt {
		n.T = types.Int()
	} else {
		n.T = n.A.T
	}
	return nil
}

func (tr *Translator) compileShortCircuitAnd(funcName string, n *ast.Node, rhs bool) error {
	if !rhs {
		return diag.At(n.File, n.Line, 0, "not an lexpr")
	}
	no := tr.as.NewLabel()
	out := tr.as.NewLabel()

	if err := tr.compileExpr(funcName, n.A, true); err != nil {
		return err
	}
	tr.as.EmitJz(no)
	if err := tr.compileExpr(funcName, n.B, true); err != nil {
		return err
	}
	tr.as.EmitJz(no)
	tr.as.EmitNum(1)
	tr.as.EmitJmp(out)
	tr.as.FixupLabel(no)
	tr.as.EmitNum(0)
	tr.as.FixupLabel(out)

	if !types.IsPrim(n.A.T) || !types.IsPrim(n.B.T) {
		return diag.At(n.File, n.Line, 0, "not a primitive")
	}
	n.T = types.Int()
	return nil
}

func (tr *Translator) compileShortCircuitOr(funcName string, n *ast.Node, rhs bool) error {
	if !rhs {
		return diag.At(n.File, n.Line, 0, "not an lexpr")
	}
	out := tr.as.NewLabel()

	if err := tr.compileExpr(funcName, n.A, true); err != nil {
		return err
	}
	no1 := tr.as.NewLabel()
	tr.as.EmitJz(no1)
	tr.as.EmitNum(1)
	tr.as.EmitJmp(out)
	tr.as.FixupLabel(no1)

	if err := tr.compileExpr(funcName, n.B, true); err != nil {
		return err
	}
	no2 := tr.as.NewLabel()
	tr.as.EmitJz(no2)
	tr.as.EmitNum(1)
	tr.as.EmitJmp(out)
	tr.as.FixupLabel(no2)
	tr.as.EmitNum(0)

	tr.as.FixupLabel(out)

	if !types.IsPrim(n.A.T) || !types.IsPrim(n.B.T) {
		return diag.At(n.File, n.Line, 0, "not a primitive")
	}
	n.T = types.Int()
	return nil
}

func (tr *Translator) compileIdent(funcName string, n *ast.Node, rhs bool) error {
	if ev := tr.decls.Find(n.S, "", false); ev != nil && ev.Enum != nil {
		tr.as.EmitNum(ev.Enum.Value)
		n.T = types.Int()
		return nil
	}

	if v := tr.decls.Find(funcName, n.S, false); v != nil && v.Variable != nil {
		tr.as.EmitFrameAddr(v.Variable.Offset)
		n.T = v.Variable.Type
		if rhs {
			size, err := tr.sizeof(n, n.T)
			if err != nil {
				return err
			}
			tr.as.EmitLoad(size)
		}
		return nil
	}

	if fv := tr.decls.Find(n.S, "", false); fv != nil && fv.Function != nil && fv.Function.Type != nil {
		tr.as.EmitLabelAddr(fv.Function.Label)
		n.T = fv.Function.Type
		return nil
	}

	return diag.At(n.File, n.Line, 0, "no such variable")
}

func (tr *Translator) compileDot(funcName string, n *ast.Node, rhs bool) error {
	if err := tr.compileExpr(funcName, n.A, false); err != nil {
		return err
	}

	var structName string
	switch {
	case n.A.T != nil && n.A.T.Kind == types.PTR:
		if n.A.T.Elem == nil || n.A.T.Elem.Kind != types.STRUCT {
			return diag.At(n.File, n.Line, 0, "dot not a struct")
		}
		structName = n.A.T.Elem.StructName
		size, err := tr.sizeof(n, n.A.T)
		if err != nil {
			return err
		}
		tr.as.EmitLoad(size)
	case n.A.T != nil && n.A.T.Kind == types.STRUCT:
		structName = n.A.T.StructName
	default:
		return diag.At(n.File, n.Line, 0, "dot not a struct")
	}

	m := tr.decls.Find(structName, n.B.S, false)
	if m == nil || m.Member == nil {
		return diag.At(n.File, n.Line, 0, "no such member")
	}

	tr.as.EmitNum(int64(m.Member.Offset))
	tr.as.EmitAdd()
	n.T = m.Member.Type

	if rhs {
		size, err := tr.sizeof(n, n.T)
		if err != nil {
			return err
		}
		tr.as.EmitLoad(size)
	}
	return nil
}

func (tr *Translator) compileCall(funcName string, n *ast.Node) error {
	if n.B != nil {
		if err := tr.compileExpr(funcName, n.B, true); err != nil {
			return err
		}
	}
	argc := countExprList(n.B)

	direct := false
	if n.A.Kind == ast.IDENT {
		name := n.A.S
		if ev := tr.decls.Find(name, "", false); ev != nil && ev.Enum != nil {
			return diag.At(n.A.File, n.A.Line, 0, "type error")
		}
		switch v := tr.decls.Find(funcName, name, false); {
		case v != nil && v.Variable != nil:
			size, err := tr.sizeof(n.A, v.Variable.Type)
			if err != nil {
				return err
			}
			tr.as.EmitFrameAddr(v.Variable.Offset)
			tr.as.EmitLoad(size)
			n.A.T = v.Variable.Type
		default:
			fv := tr.decls.Find(name, "", false)
			if fv == nil || fv.Function == nil || fv.Function.Type == nil {
				return diag.At(n.A.File, n.A.Line, 0, "no such function")
			}
			n.A.T = fv.Function.Type
			tr.as.EmitLcall(fv.Function.Label, argc)
			direct = true
		}
	} else {
		if err := tr.compileExpr(funcName, n.A, true); err != nil {
			return err
		}
	}

	if n.A.T == nil || n.A.T.Kind != types.FUNC {
		return diag.At(n.File, n.Line, 0, "calling not a function")
	}
	if !direct {
		tr.as.EmitCall(argc)
	}

	var actual *types.Type
	if n.B != nil {
		actual = n.B.T
	}
	if err := tr.unify(n, n.A.T.Args, actual); err != nil {
		return err
	}
	n.T = n.A.T.Ret
	return nil
}
