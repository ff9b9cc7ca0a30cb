package translate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/erai271/cc/ast"
	"github.com/erai271/cc/decl"
	"github.com/erai271/cc/diag"
	"github.com/erai271/cc/types"
)

var reservedTypeNames = map[string]bool{"int": true, "byte": true, "func": true}

// Compile runs the whole-program driver (spec.md §2): register every
// struct and enum, then every function prototype/definition; lay out
// every struct; compile every function with a body; synthesize the
// `syscall` thunk if it was declared but never defined (whether or not
// any function calls it); and require `_start` to exist. prog is the TOPLIST chain the parser produced.
func (tr *Translator) Compile(prog *ast.Node) error {
	for n := prog; n != nil; n = n.B {
		d := n.A
		switch d.Kind {
		case ast.STRUCT:
			if err := tr.defStruct(d); err != nil {
				return err
			}
		case ast.ENUM:
			if err := tr.defEnum(d); err != nil {
				return err
			}
		case ast.FUNC, ast.FUNCDECL:
			// Handled in the second pass below.
		default:
			return diag.At(d.File, d.Line, 0, "invalid decl")
		}
	}

	for n := prog; n != nil; n = n.B {
		d := n.A
		switch d.Kind {
		case ast.FUNCDECL:
			if _, err := tr.defExtern(d); err != nil {
				return err
			}
		case ast.FUNC:
			if err := tr.defFunc(d); err != nil {
				return err
			}
		}
	}

	for e := tr.decls.First(); e != nil; e = tr.decls.Next(e) {
		if e.Struct != nil {
			if err := tr.layoutStruct(e); err != nil {
				return err
			}
		}
	}

	for e := tr.decls.First(); e != nil; e = tr.decls.Next(e) {
		if e.Function != nil && e.Function.Body != nil {
			if err := tr.compileFunction(e); err != nil {
				return err
			}
		}
	}

	if err := tr.synthesizeSyscall(); err != nil {
		return err
	}

	entry := tr.decls.Find("_start", "", false)
	if entry == nil || entry.Function == nil || entry.Function.Type == nil {
		// No location: cc1.c's die() (as opposed to cdie()) reports
		// program-level conditions with no source position at all.
		return fmt.Errorf("no _start")
	}
	tr.entry = entry.Function.Label
	return nil
}

// Writeout hands the compiled program's entry label to the back end
// and writes the final ELF executable to path. Compile must have
// already run successfully.
func (tr *Translator) Writeout(path string) error {
	if tr.entry == nil {
		return fmt.Errorf("internal: Writeout called before a successful Compile")
	}
	return tr.as.Writeout(path, tr.entry)
}

func (tr *Translator) defStruct(n *ast.Node) error {
	name := n.A.S
	if reservedTypeNames[name] {
		return diag.At(n.File, n.Line, 0, "reserved word")
	}
	e := tr.decls.Find(name, "", true)
	if e.Struct != nil {
		return diag.At(n.File, n.Line, 0, "duplicate struct")
	}
	e.Struct = &decl.StructRole{Def: n}
	return nil
}

// defEnum registers every constant in an enum block. n.B is the
// ENUMLIST chain; each ENUMCONST's value, when given, must be a plain
// integer literal (matching cc1.c's defenum, which reads n.a.b.n
// directly rather than evaluating a general expression).
func (tr *Translator) defEnum(n *ast.Node) error {
	value := int64(0)
	for cur := n.B; cur != nil; cur = cur.B {
		econst := cur.A
		name := econst.A.S
		e := tr.decls.Find(name, "", true)
		if e.Enum != nil {
			return diag.At(econst.File, econst.Line, 0, "duplicate enum")
		}
		if econst.B != nil {
			value = econst.B.N
		}
		e.Enum = &decl.EnumRole{Value: value, Def: econst}
		value++
	}
	return nil
}

// defExtern registers a function's prototype without a body. n is a
// FUNCDECL node (A=name ident, B=type-expr). It returns the entry so
// defFunc can attach a body to the same role.
func (tr *Translator) defExtern(n *ast.Node) (*decl.Entry, error) {
	name := n.A.S
	t, err := tr.proto.Resolve(n.B)
	if err != nil {
		return nil, err
	}
	e := tr.decls.Find(name, "", true)
	fn := e.EnsureFunction(tr.as)
	if fn.Type != nil {
		return nil, diag.At(n.File, n.Line, 0, "duplicate function")
	}
	fn.Type = t
	return e, nil
}

// defFunc registers a function definition: n is a FUNC node (A is a
// FUNCDECL-shaped node, B is the STMTLIST body).
func (tr *Translator) defFunc(n *ast.Node) error {
	e, err := tr.defExtern(n.A)
	if err != nil {
		return err
	}
	e.Function.Params = n.A.B.A // TYPEFUNC.A = PARAMLIST
	e.Function.Body = n.B
	return nil
}

// layoutStruct computes member offsets and the aggregate size for one
// struct, recursing into any member whose type is itself a struct so
// that types.Sizeof always sees an already-laid-out dependency. The
// tri-state Layout field (spec.md §9 "cycle detection via tri-state
// flag") is what turns that recursion into a cycle check: entering an
// InProgress struct again means the recursion looped back on itself.
func (tr *Translator) layoutStruct(e *decl.Entry) error {
	s := e.Struct
	switch s.Layout {
	case decl.Done:
		return nil
	case decl.InProgress:
		return diag.At(s.Def.File, s.Def.Line, 0, "circular struct definition")
	}
	s.Layout = decl.InProgress

	offset := 0
	for m := s.Def.B; m != nil; m = m.B {
		field := m.A // FIELD node: A=name ident, B=type-expr
		name := field.A.S
		t, err := tr.proto.Resolve(field.B)
		if err != nil {
			return err
		}
		if t.Kind == types.STRUCT {
			if other := tr.decls.Find(t.StructName, "", false); other != nil && other.Struct != nil {
				if err := tr.layoutStruct(other); err != nil {
					return err
				}
			}
		}

		md := tr.decls.Find(e.Name, name, true)
		if md.Member != nil {
			return diag.At(field.File, field.Line, 0, "duplicate member")
		}

		size, err := tr.sizeof(field, t)
		if err != nil {
			return err
		}
		md.Member = &decl.MemberRole{Type: t, Offset: offset, Def: m}
		offset += size
	}

	s.Size = offset
	s.Layout = decl.Done
	return nil
}

// compileFunction compiles one function with a body: registers its
// parameters as positive-offset variables, hoists its locals, emits
// the preamble, translates the body, then a default `push 0; ret`
// epilogue (spec.md §4.5 "Compilation of a function").
func (tr *Translator) compileFunction(e *decl.Entry) error {
	fn := e.Function
	tr.log.Debug("translate: compiling function", zap.String("name", e.Name))

	offset := 16
	for p := fn.Params; p != nil; p = p.B {
		param := p.A // PARAM node: A=name ident, B=type-expr
		name := param.A.S
		t, err := tr.proto.Resolve(param.B)
		if err != nil {
			return err
		}
		v := tr.decls.Find(e.Name, name, true)
		if v.Variable != nil {
			return diag.At(param.File, param.Line, 0, "duplicate argument")
		}
		v.Variable = &decl.VariableRole{Type: t, Offset: offset, Def: param}
		offset += 8
	}

	frameSize, err := tr.hoister.Run(e.Name, fn.Body)
	if err != nil {
		return err
	}

	tr.as.FixupLabel(fn.Label)
	tr.as.EmitPreamble(frameSize, e.Name == "_start")
	if err := tr.compileStmt(e.Name, fn.Body, nil, nil); err != nil {
		return err
	}
	tr.as.EmitNum(0)
	tr.as.EmitRet()
	return nil
}

// synthesizeSyscall emits the single-instruction `syscall` thunk if
// the program declared it (a prototype, to call it) but never supplied
// a body — the runtime library (testdata/runtime/syscall.cc) relies on
// this rather than defining `syscall` itself.
func (tr *Translator) synthesizeSyscall() error {
	e := tr.decls.Find("syscall", "", true)
	fn := e.EnsureFunction(tr.as)
	if fn.Type == nil || fn.Label.Fixed() {
		return nil
	}

	argc := 0
	for a := fn.Type.Args; a != nil; a = a.Next {
		argc++
	}
	offsets := make([]int, argc)
	for i := range offsets {
		offsets[i] = 16 + 8*i
	}
	tr.log.Debug("translate: synthesizing syscall thunk", zap.Int("argc", argc))

	tr.as.FixupLabel(fn.Label)
	tr.as.EmitPreamble(0, false)
	if err := tr.as.EmitSyscall(offsets); err != nil {
		return err
	}
	tr.as.EmitRet()
	return nil
}
