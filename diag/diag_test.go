package diag

import "testing"

func TestErrorFormat(t *testing.T) {
	err := At("foo.cc", 3, 7, "duplicate %s", "variable")
	want := "on foo.cc:3:7\ncdie: duplicate variable\n"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestNewLoggerQuietIsNop(t *testing.T) {
	l := NewLogger(false)
	if l == nil {
		t.Fatal("expected a non-nil no-op logger")
	}
	// A Nop logger must not panic on any level, since decl and
	// translate call it unconditionally.
	l.Debug("unreachable in tests but must not panic")
}

func TestNewLoggerVerbose(t *testing.T) {
	l := NewLogger(true)
	if l == nil {
		t.Fatal("expected a non-nil development logger")
	}
}
