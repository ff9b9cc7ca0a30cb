package types

import "testing"

func TestEqualScalarsAndNil(t *testing.T) {
	cases := []struct {
		name string
		a, b *Type
		want bool
	}{
		{"int==int", Int(), Int(), true},
		{"int!=byte", Int(), Byte(), false},
		{"nil==nil", nil, nil, true},
		{"nil!=int", nil, Int(), false},
		{"int!=nil", Int(), nil, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Equal(c.a, c.b); got != c.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestEqualPointersAreStructural(t *testing.T) {
	a := Ptr(Ptr(Int()))
	b := Ptr(Ptr(Int()))
	if !Equal(a, b) {
		t.Fatalf("expected independently built **int types to compare equal")
	}
	if Equal(a, Ptr(Byte())) {
		t.Fatalf("*int should not equal *byte")
	}
}

func TestEqualStructsByName(t *testing.T) {
	if !Equal(Struct("point"), Struct("point")) {
		t.Fatalf("expected same-named structs to compare equal")
	}
	if Equal(Struct("point"), Struct("line")) {
		t.Fatalf("differently named structs should not compare equal")
	}
}

func TestEqualFuncAndArgChains(t *testing.T) {
	f1 := Func(Int(), Arg(Int(), Arg(Byte(), nil)))
	f2 := Func(Int(), Arg(Int(), Arg(Byte(), nil)))
	if !Equal(f1, f2) {
		t.Fatalf("expected identical func signatures to compare equal")
	}
	f3 := Func(Int(), Arg(Byte(), Arg(Int(), nil)))
	if Equal(f1, f3) {
		t.Fatalf("argument order should matter")
	}
	f4 := Func(Int(), nil)
	if Equal(f1, f4) {
		t.Fatalf("a nil arg chain should not match a non-nil one")
	}
}

func TestSizeofScalars(t *testing.T) {
	cases := []struct {
		t    *Type
		want int
	}{
		{Byte(), 1},
		{Int(), 8},
		{Ptr(Int()), 8},
		{Func(Int(), nil), 8},
	}
	for _, c := range cases {
		got, err := Sizeof(c.t, fakeSizer{})
		if err != nil {
			t.Fatalf("Sizeof(%v): %v", c.t, err)
		}
		if got != c.want {
			t.Errorf("Sizeof(%v) = %d, want %d", c.t, got, c.want)
		}
	}
}

type fakeSizer struct{}

func (fakeSizer) StructSize(name string) (int, bool) {
	if name == "point" {
		return 16, true
	}
	return 0, false
}

func TestSizeofStructLaidOut(t *testing.T) {
	got, err := Sizeof(Struct("point"), fakeSizer{})
	if err != nil || got != 16 {
		t.Fatalf("Sizeof(point) = %d, %v, want 16, nil", got, err)
	}
}

func TestSizeofStructNotLaidOutIsFatal(t *testing.T) {
	if _, err := Sizeof(Struct("nope"), fakeSizer{}); err == nil {
		t.Fatalf("expected an error for a struct with no completed layout")
	}
}

func TestSizeofVoidIsFatal(t *testing.T) {
	if _, err := Sizeof(Void(), fakeSizer{}); err == nil {
		t.Fatalf("expected an error computing sizeof(void)")
	}
}

func TestIsPrimAndIsInt(t *testing.T) {
	if !IsPrim(Int()) || !IsPrim(Byte()) {
		t.Fatalf("int and byte should be primitive")
	}
	if IsPrim(Ptr(Int())) {
		t.Fatalf("pointers are not primitive")
	}
	if !IsInt(Ptr(Int())) {
		t.Fatalf("pointers participate in integer arithmetic")
	}
	if IsInt(Struct("point")) {
		t.Fatalf("structs do not participate in integer arithmetic")
	}
}

func TestUnifyErrorMessageNamesBothSides(t *testing.T) {
	err := Unify(Int(), Ptr(Byte()))
	if err == nil {
		t.Fatalf("expected a type mismatch error")
	}
	if want := "type mismatch: int vs *byte"; err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}
