// Package types implements the compiler's type system: construction,
// structural equality (unification), sizeof, and the primitive/integer
// classification rules the translator enforces at every operator.
package types

import "fmt"

// Kind discriminates the seven shapes a Type can take.
type Kind int

const (
	VOID Kind = iota
	BYTE
	INT
	PTR
	STRUCT
	FUNC
	ARG
)

func (k Kind) String() string {
	switch k {
	case VOID:
		return "void"
	case BYTE:
		return "byte"
	case INT:
		return "int"
	case PTR:
		return "ptr"
	case STRUCT:
		return "struct"
	case FUNC:
		return "func"
	case ARG:
		return "arg"
	default:
		return "invalid"
	}
}

// Type is a small tagged value. Equality is always structural: there is
// no interning, so two independently constructed Types describing the
// same shape compare equal under Equal/Unify.
type Type struct {
	Kind Kind

	// PTR: the pointee.
	Elem *Type

	// STRUCT: the struct name, resolved against the declaration table
	// by the caller (the Type itself does not carry a struct's layout).
	StructName string

	// FUNC: return type and argument-chain type (an ARG cons cell, or
	// nil for a zero-argument function).
	Ret  *Type
	Args *Type

	// ARG: right-leaning cons cell. Head is this argument's type, Next
	// continues the chain (nil terminates it).
	Head *Type
	Next *Type
}

// Void, Int and Byte are the three built-in scalar types. They are
// plain values, not singletons — construct fresh ones freely.
func Void() *Type { return &Type{Kind: VOID} }
func Int() *Type  { return &Type{Kind: INT} }
func Byte() *Type { return &Type{Kind: BYTE} }

// Ptr constructs a pointer-to-elem type.
func Ptr(elem *Type) *Type {
	return &Type{Kind: PTR, Elem: elem}
}

// Struct constructs a struct type pinned to name; the caller resolves
// name against the declaration table to find layout and members.
func Struct(name string) *Type {
	return &Type{Kind: STRUCT, StructName: name}
}

// Func constructs a function type from a return type and an argument
// chain (possibly nil for zero arguments).
func Func(ret, args *Type) *Type {
	return &Type{Kind: FUNC, Ret: ret, Args: args}
}

// Arg conses head onto an existing argument chain (next may be nil).
func Arg(head, next *Type) *Type {
	return &Type{Kind: ARG, Head: head, Next: next}
}

// StructSizer is satisfied by the declaration table: sizeof a STRUCT
// type must consult struct layout, which types itself does not own.
type StructSizer interface {
	// StructSize returns the laid-out size of name and whether layout
	// has completed. types.Sizeof calls this only for STRUCT kinds.
	StructSize(name string) (size int, laidOut bool)
}

// Sizeof returns the size in bytes of t. BYTE is 1; INT, PTR and FUNC
// are all 8 (a flat stack-machine word). STRUCT requires the struct to
// already be laid out — sizeof is a fatal query otherwise, signaled by
// a non-nil error so the translator can render it with file:line
// context (types itself carries no source location).
func Sizeof(t *Type, structs StructSizer) (int, error) {
	switch t.Kind {
	case BYTE:
		return 1, nil
	case INT, PTR, FUNC:
		return 8, nil
	case STRUCT:
		size, done := structs.StructSize(t.StructName)
		if !done {
			return 0, fmt.Errorf("sizeof: struct %s not laid out", t.StructName)
		}
		return size, nil
	default:
		return 0, fmt.Errorf("sizeof: not a value type: %s", t.Kind)
	}
}

// IsPrim is true for the two types comparisons and casts accept: BYTE
// and INT.
func IsPrim(t *Type) bool {
	return t.Kind == BYTE || t.Kind == INT
}

// IsInt is true for the three kinds that participate in integer
// arithmetic: BYTE, INT, and PTR (pointer arithmetic rides the same
// opcodes as integer arithmetic).
func IsInt(t *Type) bool {
	return t.Kind == BYTE || t.Kind == INT || t.Kind == PTR
}

// Equal reports whether a and b describe the same type. nil compares
// equal only to nil (used for empty argument chains).
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case VOID, BYTE, INT:
		return true
	case PTR:
		return Equal(a.Elem, b.Elem)
	case STRUCT:
		return a.StructName == b.StructName
	case FUNC:
		return Equal(a.Ret, b.Ret) && Equal(a.Args, b.Args)
	case ARG:
		return Equal(a.Head, b.Head) && Equal(a.Next, b.Next)
	default:
		return false
	}
}

// Unify asserts structural equality between a and b, the rule every
// assignment, return, and call-argument check goes through. A nil
// argument chain on either side matches only an empty chain on the
// other (spec.md §9 open question 3) — Equal already implements that
// via its nil/nil short-circuit, so Unify is Equal plus a descriptive
// error for the caller to render with cdie-style context.
func Unify(a, b *Type) error {
	if Equal(a, b) {
		return nil
	}
	return fmt.Errorf("type mismatch: %s vs %s", describe(a), describe(b))
}

func describe(t *Type) string {
	if t == nil {
		return "<none>"
	}
	switch t.Kind {
	case PTR:
		return "*" + describe(t.Elem)
	case STRUCT:
		return t.StructName
	case FUNC:
		return fmt.Sprintf("func(...)%s", describe(t.Ret))
	default:
		return t.Kind.String()
	}
}
