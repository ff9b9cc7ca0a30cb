package ast

import "testing"

func TestNewSetsLocationAndZeroesPayload(t *testing.T) {
	n := New(ADD, "t.cc", 3, 7)
	if n.Kind != ADD || n.File != "t.cc" || n.Line != 3 || n.Col != 7 {
		t.Fatalf("got %+v", n)
	}
	if n.A != nil || n.B != nil || n.T != nil || n.S != "" || n.N != 0 {
		t.Fatalf("expected a bare node, got %+v", n)
	}
}

func TestKindValuesAreDistinct(t *testing.T) {
	seen := map[Kind]bool{}
	for k := TOPLIST; k <= BOR; k++ {
		if seen[k] {
			t.Fatalf("duplicate Kind value %d", k)
		}
		seen[k] = true
	}
}
