package proto

import (
	"testing"

	"github.com/erai271/cc/asmgen"
	"github.com/erai271/cc/ast"
	"github.com/erai271/cc/decl"
	"github.com/erai271/cc/types"
)

func ident(s string) *ast.Node {
	n := ast.New(ast.TYPEIDENT, "t.cc", 1, 1)
	n.S = s
	return n
}

func ptrTo(n *ast.Node) *ast.Node {
	p := ast.New(ast.TYPEPTR, "t.cc", 1, 1)
	p.A = n
	return p
}

func TestResolveBuiltins(t *testing.T) {
	r := New(decl.New(asmgen.New(), nil))

	got, err := r.Resolve(ident("int"))
	if err != nil || !types.Equal(got, types.Int()) {
		t.Fatalf("int: got %v, err %v", got, err)
	}

	got, err = r.Resolve(ident("byte"))
	if err != nil || !types.Equal(got, types.Byte()) {
		t.Fatalf("byte: got %v, err %v", got, err)
	}
}

func TestResolveFuncAsBareIdentIsReserved(t *testing.T) {
	r := New(decl.New(asmgen.New(), nil))
	if _, err := r.Resolve(ident("func")); err == nil {
		t.Fatalf("expected an error resolving bare 'func' as a type name")
	}
}

func TestResolveStruct(t *testing.T) {
	table := decl.New(asmgen.New(), nil)
	e := table.Find("point", "", true)
	e.Struct = &decl.StructRole{}
	r := New(table)

	got, err := r.Resolve(ident("point"))
	if err != nil {
		t.Fatalf("resolve point: %v", err)
	}
	if !types.Equal(got, types.Struct("point")) {
		t.Fatalf("got %v, want struct point", got)
	}
}

func TestResolveUndefinedStructIsFatal(t *testing.T) {
	r := New(decl.New(asmgen.New(), nil))
	if _, err := r.Resolve(ident("nope")); err == nil {
		t.Fatalf("expected an error resolving an undeclared struct name")
	}
}

func TestResolvePointer(t *testing.T) {
	r := New(decl.New(asmgen.New(), nil))
	got, err := r.Resolve(ptrTo(ident("byte")))
	if err != nil {
		t.Fatalf("resolve *byte: %v", err)
	}
	if !types.Equal(got, types.Ptr(types.Byte())) {
		t.Fatalf("got %v, want *byte", got)
	}
}

func TestResolveFuncSignature(t *testing.T) {
	table := decl.New(asmgen.New(), nil)
	r := New(table)

	params := ast.New(ast.PARAMLIST, "t.cc", 1, 1)
	p1 := ast.New(ast.PARAM, "t.cc", 1, 1)
	p1.A = ident("a")
	p1.B = ident("int")
	params.A = p1

	fn := ast.New(ast.TYPEFUNC, "t.cc", 1, 1)
	fn.A = params
	fn.B = ident("int")

	got, err := r.Resolve(fn)
	if err != nil {
		t.Fatalf("resolve func(int):int : %v", err)
	}
	want := types.Func(types.Int(), types.Arg(types.Int(), nil))
	if !types.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResolveZeroArgFunc(t *testing.T) {
	r := New(decl.New(asmgen.New(), nil))
	fn := ast.New(ast.TYPEFUNC, "t.cc", 1, 1)
	fn.B = ident("int")

	got, err := r.Resolve(fn)
	if err != nil {
		t.Fatalf("resolve func():int : %v", err)
	}
	want := types.Func(types.Int(), nil)
	if !types.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestResolveVoidFuncHasNoRetClause covers `main(){}`/`_start(){...}`
// style declarations: the grammar has no reserved `void` type keyword,
// so a function with no `: ret` clause at all leaves B nil, and that
// must resolve to void rather than dereferencing a nil type-expr.
func TestResolveVoidFuncHasNoRetClause(t *testing.T) {
	r := New(decl.New(asmgen.New(), nil))
	fn := ast.New(ast.TYPEFUNC, "t.cc", 1, 1)

	got, err := r.Resolve(fn)
	if err != nil {
		t.Fatalf("resolve func() with no ret clause: %v", err)
	}
	want := types.Func(types.Void(), nil)
	if !types.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
