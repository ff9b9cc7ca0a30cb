package asmgen

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestLabelFixupRel32(t *testing.T) {
	a := New()
	target := a.NewLabel()
	a.EmitJmp(target)
	if target.Fixed() {
		t.Fatalf("label fixed before FixupLabel was called")
	}
	a.EmitNum(1)
	a.FixupLabel(target)
	if !target.Fixed() {
		t.Fatalf("FixupLabel did not mark the label fixed")
	}
}

func TestEmitCallAcceptsMoreThanSixArgs(t *testing.T) {
	// Arguments always live on the stack at +16, +24, ... off the
	// callee's rbp; there is no register-file width to cap argc at
	// (spec.md §6's emit_call takes a plain count), so a call with more
	// arguments than the System-V register ABI allows must still emit
	// cleanly, e.g. a 7-argument syscall wrapper.
	a := New()
	a.EmitCall(7)
	if len(a.code) == 0 {
		t.Fatalf("EmitCall(7) emitted no code")
	}
}

func TestEmitSyscallRejectsBadArity(t *testing.T) {
	a := New()
	if err := a.EmitSyscall(nil); err == nil {
		t.Fatalf("expected an error for zero frame offsets")
	}
	if err := a.EmitSyscall([]int{16, 24, 32, 40, 48, 56, 64, 72}); err == nil {
		t.Fatalf("expected an error for more than 7 frame offsets")
	}
	if err := a.EmitSyscall([]int{16}); err != nil {
		t.Fatalf("one frame offset (bare syscall number) should be valid: %v", err)
	}
}

func TestWriteoutProducesRunnableELF(t *testing.T) {
	a := New()
	start := a.NewLabel()
	a.FixupLabel(start)
	a.EmitPreamble(0, true)
	// The body only pushes and discards a literal; this checks the
	// header lays out correctly, not full process behavior.
	a.EmitNum(42)
	a.EmitPop(1)
	a.EmitRet()

	dir := t.TempDir()
	path := filepath.Join(dir, "out")
	if err := a.Writeout(path, start); err != nil {
		t.Fatalf("Writeout: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(b) < ehdrSize+phdrSize {
		t.Fatalf("output too short for an ELF header: %d bytes", len(b))
	}
	if string(b[0:4]) != "\x7FELF" {
		t.Fatalf("missing ELF magic, got %q", b[0:4])
	}
	if b[4] != 2 {
		t.Fatalf("expected ELFCLASS64, got %d", b[4])
	}
	gotEntry := binary.LittleEndian.Uint64(b[24:32])
	wantEntry := uint64(loadAddr + ehdrSize + phdrSize)
	if gotEntry != wantEntry {
		t.Fatalf("entry point = %x, want %x", gotEntry, wantEntry)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Mode()&0o111 == 0 {
		t.Fatalf("output file is not executable: mode %v", info.Mode())
	}
}

func TestWriteoutRejectsUnfixedEntry(t *testing.T) {
	a := New()
	entry := a.NewLabel()
	if err := a.Writeout(filepath.Join(t.TempDir(), "out"), entry); err == nil {
		t.Fatalf("expected an error writing out with an unfixed entry label")
	}
}

func TestInternStringDeduplicatesNothingButResolves(t *testing.T) {
	a := New()
	start := a.NewLabel()
	a.FixupLabel(start)
	a.EmitPreamble(0, false)
	a.InternString("hello")
	a.InternString("world")
	a.EmitPop(2)
	a.EmitNum(0)
	a.EmitRet()

	path := filepath.Join(t.TempDir(), "out")
	if err := a.Writeout(path, start); err != nil {
		t.Fatalf("Writeout: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	tail := string(b[len(b)-12:])
	if tail != "hello\x00world\x00" {
		t.Fatalf("expected interned strings appended after code, got %q", tail)
	}
}
