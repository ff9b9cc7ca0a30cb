// Package decl implements the declaration table: a binary search tree
// keyed by (owner name, member name) that is the compiler's single
// source of truth for name resolution. It stores every named entity —
// functions, structs, struct members, enum constants, local variables,
// and goto labels — as one BST node carrying up to six independent
// role slots, one per entity kind (spec.md §3, §4.1).
package decl

import (
	"go.uber.org/zap"

	"github.com/erai271/cc/asmgen"
	"github.com/erai271/cc/ast"
	"github.com/erai271/cc/types"
)

// LayoutState tracks struct layout progress with the standard
// white/grey/black DFS coloring (spec.md §9 "cycle detection").
type LayoutState int

const (
	Unstarted LayoutState = iota
	InProgress
	Done
)

// FunctionRole is created by EnsureFunction the first time a name's
// function label is needed; Type is nil until the name has been
// declared or defined as a function (spec.md §3 table).
type FunctionRole struct {
	Type   *types.Type
	Label  *asmgen.Label
	Params *ast.Node // PARAMLIST chain from the declaration, nil for zero args
	Body   *ast.Node // STMTLIST, nil if only declared (a prototype)
}

// StructRole is present once a name has been declared as a struct.
type StructRole struct {
	Size   int
	Layout LayoutState
	Def    *ast.Node
}

// MemberRole is present on a member-keyed entry (struct-name,
// field-name).
type MemberRole struct {
	Type   *types.Type
	Offset int
	Def    *ast.Node
}

// EnumRole is present once a name has been declared as an enum
// constant.
type EnumRole struct {
	Value int64
	Def   *ast.Node
}

// VariableRole is present for a function parameter or local variable.
// Offset is negative for a local, and >= 16 for an argument (caller's
// saved base pointer and return address convention, spec.md §3(d)).
type VariableRole struct {
	Type   *types.Type
	Offset int
	Def    *ast.Node
}

// GotoRole is present for a goto label target within a function.
type GotoRole struct {
	Label   *asmgen.Label
	Defined bool
}

// Entry is one BST node. For the Struct, Member, Enum and Variable
// roles a nil role pointer *is* the "not defined" flag (spec.md §9's
// "Declaration polymorphism" redesign note); Goto is allocated on every
// entry at insertion and carries its own Defined flag, and a non-nil
// Function is declared only once its Type is set. The representation still permits a single name to occupy more
// than one role independently, e.g. a top-level function `f` and a
// struct field `s.f` are two distinct entries (different keys), while
// a name that is simultaneously an enum constant and, under a
// different owner, a struct member occupies two roles on two entries
// with different keys — spec.md's "independent occupation" invariant
// refers to one entry being eligible to carry several role pointers at
// once, which this representation preserves structurally.
type Entry struct {
	Name       string
	MemberName string // "" for a non-member-keyed entry

	parent, left, right *Entry

	Function *FunctionRole
	Struct   *StructRole
	Member   *MemberRole
	Enum     *EnumRole
	Variable *VariableRole
	Goto     *GotoRole
}

// Table is the BST root plus the assembler used to pre-allocate labels
// for freshly inserted entries.
type Table struct {
	root *Entry
	as   *asmgen.Assembler
	log  *zap.Logger
}

// New creates an empty declaration table. as supplies mklabel for
// every freshly inserted entry's goto label, and for an entry's
// function label the first time EnsureFunction is called on it.
func New(as *asmgen.Assembler, log *zap.Logger) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	return &Table{as: as, log: log}
}

// compareKey orders two (name, member) pairs the way cc1.c's find
// does: strcmp(name) first, then entries with no member-name sort
// strictly before any entry that has one, otherwise
// strcmp(member_name).
func compareKey(name, member string, e *Entry) int {
	if c := compareStrings(name, e.Name); c != 0 {
		return c
	}
	switch {
	case member == "" && e.MemberName == "":
		return 0
	case member == "":
		return -1
	case e.MemberName == "":
		return 1
	default:
		return compareStrings(member, e.MemberName)
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Find returns the unique entry for (name, member), inserting it in
// BST position if make is true and it's absent. A miss with make=false
// returns nil — callers decide whether that's an error (spec.md §4.1).
func (t *Table) Find(name, member string, make_ bool) *Entry {
	var parent *Entry
	link := &t.root
	for *link != nil {
		cur := *link
		switch c := compareKey(name, member, cur); {
		case c < 0:
			parent = cur
			link = &cur.left
		case c > 0:
			parent = cur
			link = &cur.right
		default:
			return cur
		}
	}

	if !make_ {
		return nil
	}

	e := &Entry{
		Name:       name,
		MemberName: member,
		parent:     parent,
		Goto:       &GotoRole{Label: t.as.NewLabel()},
	}
	*link = e
	t.log.Debug("decl: inserted", zap.String("name", name), zap.String("member", member))
	return e
}

// EnsureFunction lazily allocates and caches a function entry's code
// label the first time it's needed, mirroring cc1.c pre-allocating
// func_label at insertion — here it is allocated on first reference to
// FunctionRole instead, since an Entry may never become a function.
func (e *Entry) EnsureFunction(as *asmgen.Assembler) *FunctionRole {
	if e.Function == nil {
		e.Function = &FunctionRole{Label: as.NewLabel()}
	}
	return e.Function
}

// First returns the left-most entry (the BST minimum), or nil for an
// empty table.
func (t *Table) First() *Entry {
	d := t.root
	if d == nil {
		return nil
	}
	for d.left != nil {
		d = d.left
	}
	return d
}

// Next returns the in-order successor of d, or nil after the last
// entry. Because every Entry carries a parent pointer, iteration never
// allocates or needs an explicit stack (spec.md §4.1 rationale).
func (t *Table) Next(d *Entry) *Entry {
	if d == nil {
		return nil
	}
	if d.right != nil {
		d = d.right
		for d.left != nil {
			d = d.left
		}
		return d
	}
	for d.parent != nil {
		if d.parent.left == d {
			return d.parent
		}
		d = d.parent
	}
	return nil
}

// StructSize implements types.StructSizer by looking up a struct's
// laid-out size without requiring the struct role to be exported to
// the types package.
func (t *Table) StructSize(name string) (size int, laidOut bool) {
	e := t.Find(name, "", false)
	if e == nil || e.Struct == nil || e.Struct.Layout != Done {
		return 0, false
	}
	return e.Struct.Size, true
}
