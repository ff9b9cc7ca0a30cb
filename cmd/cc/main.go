// Command cc is the compiler driver: `cc [-o OUT] [-C CFILE] SOURCE...`
// (spec.md §6). It parses every source argument, concatenates their
// top-level declarations into one program, runs the translator, and
// writes the resulting ELF executable to -o.
package main

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/erai271/cc/asmgen"
	"github.com/erai271/cc/ast"
	"github.com/erai271/cc/decl"
	"github.com/erai271/cc/diag"
	"github.com/erai271/cc/parser"
	"github.com/erai271/cc/translate"
)

func main() {
	out := pflag.StringP("output", "o", "", "output executable path")
	_ = pflag.StringP("config", "C", "", "reserved, ignored")
	verbose := pflag.BoolP("verbose", "v", false, "trace compiler stages")
	pflag.Parse()

	if *out == "" {
		diag.Die(errString("missing -o"))
	}
	sources := pflag.Args()
	if len(sources) == 0 {
		diag.Die(errString("no source files"))
	}

	prog, err := parseAll(sources)
	if err != nil {
		diag.Die(err)
	}

	log := diag.NewLogger(*verbose)
	as := asmgen.New()
	tr := translate.New(decl.New(as, log), as, log)

	if err := tr.Compile(prog); err != nil {
		diag.Die(err)
	}
	if err := tr.Writeout(*out); err != nil {
		diag.Die(err)
	}
}

// parseAll parses every source file and concatenates their top-level
// declarations into a single TOPLIST chain, in argument order.
func parseAll(sources []string) (*ast.Node, error) {
	var all []*ast.Node
	for _, path := range sources {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		p, err := parser.New(path, src)
		if err != nil {
			return nil, err
		}
		prog, err := p.ParseProgram()
		if err != nil {
			return nil, err
		}
		for n := prog; n != nil; n = n.B {
			all = append(all, n.A)
		}
	}
	var tail *ast.Node
	for i := len(all) - 1; i >= 0; i-- {
		n := ast.New(ast.TOPLIST, all[i].File, all[i].Line, all[i].Col)
		n.A = all[i]
		n.B = tail
		tail = n
	}
	return tail, nil
}

type errString string

func (e errString) Error() string { return string(e) }
