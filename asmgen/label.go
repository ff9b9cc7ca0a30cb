package asmgen

// Label is a forward-referenceable jump/call target. Its address is
// unknown until FixupLabel is called; before that, any reference to it is
// recorded as a pending fixup and patched once the final code layout
// is known (spec.md §6: mklabel/fixup_label/label.fixed).
type Label struct {
	offset int // byte offset from the start of the code segment
	fixed  bool
}

// Fixed reports whether the label has been bound to a position yet.
func (l *Label) Fixed() bool { return l.fixed }

// NewLabel allocates a fresh, unfixed label.
func (a *Assembler) NewLabel() *Label {
	return &Label{}
}

// FixupLabel binds label to the current emit position. It is an error
// to fix the same label twice — callers (the declaration table, the
// translator) are expected to enforce the "fixed once" invariant
// themselves via their own duplicate-definition checks, so Assembler
// does not re-check here.
func (a *Assembler) FixupLabel(l *Label) {
	l.offset = len(a.code)
	l.fixed = true
}
