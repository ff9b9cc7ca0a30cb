package translate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erai271/cc/asmgen"
	"github.com/erai271/cc/decl"
	"github.com/erai271/cc/parser"
)

// compileSource drives the whole pipeline a SOURCE... argument on the
// command line would: parse, translate, write out.
func compileSource(t *testing.T, src string) string {
	t.Helper()
	p, err := parser.New("t.cc", []byte(src))
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}

	as := asmgen.New()
	tr := New(decl.New(as, nil), as, nil)
	if err := tr.Compile(prog); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out")
	if err := tr.Writeout(path); err != nil {
		t.Fatalf("Writeout: %v", err)
	}
	return path
}

func TestCompileStartReturningIntWritesExecutable(t *testing.T) {
	path := compileSource(t, `
_start(): int {
	return 42;
}
`)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(b[0:4]) != "\x7FELF" {
		t.Fatalf("missing ELF magic")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode()&0o111 == 0 {
		t.Fatalf("output is not executable")
	}
}

func TestCompileVoidFunctionWithNoRetClause(t *testing.T) {
	path := compileSource(t, `
greet(n: int) {
	return;
}

_start() {
	greet(1);
}
`)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(b[0:4]) != "\x7FELF" {
		t.Fatalf("missing ELF magic")
	}
}

func TestCompileFactorial(t *testing.T) {
	compileSource(t, `
fact(n: int): int {
	if (n <= 1) {
		return 1;
	}
	return n * fact(n - 1);
}

_start(): int {
	return fact(5);
}
`)
}

func TestCompileStructFieldAccess(t *testing.T) {
	compileSource(t, `
struct point {
	x: int;
	y: int;
}

_start(): int {
	var p: point;
	p.x = 1;
	p.y = 2;
	return p.x + p.y;
}
`)
}

func TestCompileStringIndexing(t *testing.T) {
	compileSource(t, `
_start(): int {
	var s: *byte;
	s = "hello";
	return s[0]: int;
}
`)
}

func TestCompileLoopSummation(t *testing.T) {
	compileSource(t, `
_start(): int {
	var i: int;
	var sum: int;
	i = 0;
	sum = 0;
	loop {
		if (i == 10) {
			break;
		}
		sum = sum + i;
		i = i + 1;
	}
	return sum;
}
`)
}

func TestCompileMissingStartIsFatal(t *testing.T) {
	p, err := parser.New("t.cc", []byte(`foo(): int { return 0; }`))
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	as := asmgen.New()
	tr := New(decl.New(as, nil), as, nil)
	if err := tr.Compile(prog); err == nil {
		t.Fatalf("expected an error for a program with no _start")
	}
}

func TestCompileDuplicateStructIsFatal(t *testing.T) {
	p, err := parser.New("t.cc", []byte(`
struct s { x: int; }
struct s { y: int; }
_start(): int { return 0; }
`))
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	as := asmgen.New()
	tr := New(decl.New(as, nil), as, nil)
	if err := tr.Compile(prog); err == nil {
		t.Fatalf("expected an error for a duplicate struct definition")
	}
}

func TestCompileCircularStructIsFatal(t *testing.T) {
	p, err := parser.New("t.cc", []byte(`
struct a { b: b; }
struct b { a: a; }
_start(): int { return 0; }
`))
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	as := asmgen.New()
	tr := New(decl.New(as, nil), as, nil)
	if err := tr.Compile(prog); err == nil {
		t.Fatalf("expected an error for a circular struct definition")
	}
}
