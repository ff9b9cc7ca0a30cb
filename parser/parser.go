// Package parser is the recursive-descent parser spec.md §1 puts out
// of scope for the compiler core: it turns a token stream from lexer
// into the ast.Node tree translate walks. Kept minimal — enough
// grammar to drive the translator, not a production-quality recovery
// parser (one error is fatal, matching the rest of the pipeline).
package parser

import (
	"github.com/erai271/cc/ast"
	"github.com/erai271/cc/diag"
	"github.com/erai271/cc/lexer"
)

// Parser consumes tokens from a single lexer with one token of
// lookahead, plus an extra peeked token for the label-vs-expression
// disambiguation at statement position.
type Parser struct {
	file   string
	lex    *lexer.Lexer
	tok    lexer.Token
	peeked *lexer.Token
}

// New returns a parser over src, attributing nodes to file.
func New(file string, src []byte) (*Parser, error) {
	p := &Parser{file: file, lex: lexer.New(file, src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
		return nil
	}
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

// peekSecond returns the token after the current one without consuming
// it, caching it so the following advance() is free.
func (p *Parser) peekSecond() (lexer.Token, error) {
	if p.peeked == nil {
		t, err := p.lex.Next()
		if err != nil {
			return lexer.Token{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return diag.At(p.file, p.tok.Line, p.tok.Col, format, args...)
}

func (p *Parser) node(kind ast.Kind) *ast.Node {
	return ast.New(kind, p.file, p.tok.Line, p.tok.Col)
}

func (p *Parser) isPunct(s string) bool {
	return p.tok.Kind == lexer.PUNCT && p.tok.Text == s
}

func (p *Parser) isKeyword(s string) bool {
	return p.tok.Kind == lexer.KEYWORD && p.tok.Text == s
}

func (p *Parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errorf("expected %q", s)
	}
	return p.advance()
}

func (p *Parser) expectKeyword(s string) error {
	if !p.isKeyword(s) {
		return p.errorf("expected %q", s)
	}
	return p.advance()
}

func (p *Parser) expectIdent() (ast.Node, error) {
	if p.tok.Kind != lexer.IDENT {
		return ast.Node{}, p.errorf("expected identifier")
	}
	n := ast.New(ast.IDENT, p.file, p.tok.Line, p.tok.Col)
	n.S = p.tok.Text
	if err := p.advance(); err != nil {
		return ast.Node{}, err
	}
	return *n, nil
}

// chain builds a right-leaning cons list (A=element, B=next) from
// items in source order, nil-terminated — the shape every *LIST kind
// in ast.go uses.
func chain(kind ast.Kind, items []*ast.Node) *ast.Node {
	var tail *ast.Node
	for i := len(items) - 1; i >= 0; i-- {
		n := ast.New(kind, items[i].File, items[i].Line, items[i].Col)
		n.A = items[i]
		n.B = tail
		tail = n
	}
	return tail
}

// ParseProgram parses one source file into a TOPLIST chain.
func (p *Parser) ParseProgram() (*ast.Node, error) {
	var decls []*ast.Node
	for p.tok.Kind != lexer.EOF {
		d, err := p.parseTopDecl()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return chain(ast.TOPLIST, decls), nil
}

func (p *Parser) parseTopDecl() (*ast.Node, error) {
	switch {
	case p.isKeyword("struct"):
		return p.parseStruct()
	case p.isKeyword("enum"):
		return p.parseEnum()
	default:
		return p.parseFuncDeclOrDef()
	}
}

func (p *Parser) parseStruct() (*ast.Node, error) {
	n := p.node(ast.STRUCT)
	if err := p.expectKeyword("struct"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	n.A = &name
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var fields []*ast.Node
	for !p.isPunct("}") {
		f := p.node(ast.FIELD)
		fname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		f.A = &fname
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		f.B = t
		if err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if err := p.advance(); err != nil { // consume '}'
		return nil, err
	}
	n.B = chain(ast.MEMBERLIST, fields)
	return n, nil
}

func (p *Parser) parseEnum() (*ast.Node, error) {
	n := p.node(ast.ENUM)
	if err := p.expectKeyword("enum"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var consts []*ast.Node
	for !p.isPunct("}") {
		c := p.node(ast.ENUMCONST)
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		c.A = &name
		if p.isPunct("=") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			val := p.node(ast.NUM)
			if p.tok.Kind != lexer.NUM {
				return nil, p.errorf("expected integer literal")
			}
			val.N = p.tok.Num
			if err := p.advance(); err != nil {
				return nil, err
			}
			c.B = val
		}
		consts = append(consts, c)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	n.B = chain(ast.ENUMLIST, consts)
	return n, nil
}

func (p *Parser) parseParamList() (*ast.Node, error) {
	var params []*ast.Node
	for !p.isPunct(")") {
		prm := p.node(ast.PARAM)
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		prm.A = &name
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		prm.B = t
		params = append(params, prm)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	return chain(ast.PARAMLIST, params), nil
}

// parseFuncDeclOrDef parses `name(params): ret;` or `name(params): ret { ... }`.
// The `: ret` clause itself is optional (spec.md §6's own end-to-end
// scenarios write `main(){}` and `_start(){ exit(42); }` with no return
// type at all); when absent, ret is left nil and the prototype resolver
// treats that as `void` without needing a reserved `void` type keyword.
func (p *Parser) parseFuncDeclOrDef() (*ast.Node, error) {
	declNode := p.node(ast.FUNCDECL)
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	declNode.A = &name
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	var ret *ast.Node
	if p.isPunct(":") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		ret, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	ft := ast.New(ast.TYPEFUNC, declNode.File, declNode.Line, declNode.Col)
	ft.A = params
	ft.B = ret
	declNode.B = ft

	if p.isPunct(";") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return declNode, nil
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	def := ast.New(ast.FUNC, declNode.File, declNode.Line, declNode.Col)
	def.A = declNode
	def.B = body
	return def, nil
}

// parseType parses a type-expression: a bare identifier, *T, or
// func(params): ret.
func (p *Parser) parseType() (*ast.Node, error) {
	if p.isPunct("*") {
		n := p.node(ast.TYPEPTR)
		if err := p.advance(); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		n.A = elem
		return n, nil
	}
	if p.isKeyword("func") {
		n := p.node(ast.TYPEFUNC)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		params, err := p.parseParamList()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		n.A = params
		n.B = ret
		return n, nil
	}
	if p.tok.Kind == lexer.IDENT || p.isKeyword("int") || p.isKeyword("byte") {
		n := p.node(ast.TYPEIDENT)
		n.S = p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, p.errorf("expected a type")
}

func (p *Parser) parseBlock() (*ast.Node, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var stmts []*ast.Node
	for !p.isPunct("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if err := p.advance(); err != nil { // consume '}'
		return nil, err
	}
	return chain(ast.STMTLIST, stmts), nil
}

// parseStmt parses one statement. A bare `name:` at statement position
// is a label; everything else that starts with an identifier falls
// through to an expression statement.
func (p *Parser) parseStmt() (*ast.Node, error) {
	switch {
	case p.isPunct("{"):
		return p.parseBlock()

	case p.isKeyword("var"):
		n := p.node(ast.VARDECL)
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		n.A = &name
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		n.B = t
		return n, p.expectPunct(";")

	case p.isKeyword("if"):
		return p.parseIf()

	case p.isKeyword("loop"):
		n := p.node(ast.LOOP)
		if err := p.advance(); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.A = body
		return n, nil

	case p.isKeyword("break"):
		n := p.node(ast.BREAK)
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, p.expectPunct(";")

	case p.isKeyword("continue"):
		n := p.node(ast.CONTINUE)
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, p.expectPunct(";")

	case p.isKeyword("return"):
		n := p.node(ast.RETURN)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.isPunct(";") {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			n.A = e
		}
		return n, p.expectPunct(";")

	case p.isKeyword("goto"):
		n := p.node(ast.GOTO)
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		n.S = name.S
		return n, p.expectPunct(";")

	case p.tok.Kind == lexer.IDENT:
		// Disambiguate `name:` (a label) from the start of an
		// expression statement; both begin with an identifier. A
		// single token of extra lookahead settles it without
		// needing to rewind the lexer.
		second, err := p.peekSecond()
		if err != nil {
			return nil, err
		}
		if second.Kind == lexer.PUNCT && second.Text == ":" {
			name := p.tok
			if err := p.advance(); err != nil { // consume ident
				return nil, err
			}
			if err := p.advance(); err != nil { // consume ':'
				return nil, err
			}
			n := ast.New(ast.LABEL, name.File, name.Line, name.Col)
			n.S = name.Text
			return n, nil
		}
		return p.parseExprStmt()

	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseExprStmt() (*ast.Node, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return e, p.expectPunct(";")
}

// parseIf parses `if (cond) block (else if (cond) block)* (else block)?`
// into a single CONDLIST chain of CLAUSE nodes.
func (p *Parser) parseIf() (*ast.Node, error) {
	var clauses []*ast.Node
	for {
		clause := p.node(ast.CLAUSE)
		if err := p.expectKeyword("if"); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		clause.A = cond
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		clause.B = body
		clauses = append(clauses, clause)

		if p.isKeyword("else") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.isKeyword("if") {
				continue
			}
			els := ast.New(ast.CLAUSE, p.tok.File, p.tok.Line, p.tok.Col)
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			els.B = body
			clauses = append(clauses, els)
		}
		break
	}
	return chain(ast.CONDLIST, clauses), nil
}

// --- Expressions, lowest to highest precedence -----------------------
//
//   assign -> bor -> band -> or -> xor -> and -> eq -> rel -> shift ->
//   add -> mul -> unary -> postfix -> primary
//
// `&` and `*` are ambiguous between the infix bitwise/mul operators and
// the prefix ref/deref operators; the ambiguity resolves itself since
// the infix forms are only ever tried after a complete left operand.

func (p *Parser) parseExpr() (*ast.Node, error) {
	return p.parseAssign()
}

func (p *Parser) parseAssign() (*ast.Node, error) {
	lhs, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.isPunct("=") {
		n := p.node(ast.ASSIGN)
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		n.A, n.B = lhs, rhs
		return n, nil
	}
	return lhs, nil
}

func (p *Parser) binaryLevel(next func() (*ast.Node, error), ops map[string]ast.Kind) (*ast.Node, error) {
	lhs, err := next()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.PUNCT {
		kind, ok := ops[p.tok.Text]
		if !ok {
			break
		}
		n := p.node(kind)
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		n.A, n.B = lhs, rhs
		lhs = n
	}
	return lhs, nil
}

func (p *Parser) parseLogicalOr() (*ast.Node, error) {
	return p.binaryLevel(p.parseLogicalAnd, map[string]ast.Kind{"||": ast.BOR})
}

func (p *Parser) parseLogicalAnd() (*ast.Node, error) {
	return p.binaryLevel(p.parseBitOr, map[string]ast.Kind{"&&": ast.BAND})
}

func (p *Parser) parseBitOr() (*ast.Node, error) {
	return p.binaryLevel(p.parseBitXor, map[string]ast.Kind{"|": ast.OR})
}

func (p *Parser) parseBitXor() (*ast.Node, error) {
	return p.binaryLevel(p.parseBitAnd, map[string]ast.Kind{"^": ast.XOR})
}

func (p *Parser) parseBitAnd() (*ast.Node, error) {
	return p.binaryLevel(p.parseEquality, map[string]ast.Kind{"&": ast.AND})
}

func (p *Parser) parseEquality() (*ast.Node, error) {
	return p.binaryLevel(p.parseRelational, map[string]ast.Kind{"==": ast.EQ, "!=": ast.NE})
}

func (p *Parser) parseRelational() (*ast.Node, error) {
	return p.binaryLevel(p.parseShift, map[string]ast.Kind{"<": ast.LT, ">": ast.GT, "<=": ast.LE, ">=": ast.GE})
}

func (p *Parser) parseShift() (*ast.Node, error) {
	return p.binaryLevel(p.parseAdd, map[string]ast.Kind{"<<": ast.LSH, ">>": ast.RSH})
}

func (p *Parser) parseAdd() (*ast.Node, error) {
	return p.binaryLevel(p.parseMul, map[string]ast.Kind{"+": ast.ADD, "-": ast.SUB})
}

func (p *Parser) parseMul() (*ast.Node, error) {
	return p.binaryLevel(p.parseUnary, map[string]ast.Kind{"*": ast.MUL, "/": ast.DIV, "%": ast.MOD})
}

// unaryOps maps a prefix punctuator to its node kind. "~" is the
// bitwise complement (ast.NOT); "!" is logical not (ast.BNOT); "&" is
// address-of (ast.REF); "*" is dereference (ast.DEREF).
var unaryOps = map[string]ast.Kind{
	"+": ast.POS, "-": ast.NEG, "~": ast.NOT, "!": ast.BNOT,
	"&": ast.REF, "*": ast.DEREF,
}

func (p *Parser) parseUnary() (*ast.Node, error) {
	if p.tok.Kind == lexer.PUNCT {
		if kind, ok := unaryOps[p.tok.Text]; ok {
			n := p.node(kind)
			if err := p.advance(); err != nil {
				return nil, err
			}
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			n.A = operand
			return n, nil
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (*ast.Node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isPunct("."):
			dot := p.node(ast.DOT)
			if err := p.advance(); err != nil {
				return nil, err
			}
			field, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			dot.A = n
			dot.B = &field
			n = dot
		case p.isPunct("["):
			idx := p.node(ast.INDEX)
			if err := p.advance(); err != nil {
				return nil, err
			}
			sub, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			idx.A = n
			idx.B = sub
			n = idx
		case p.isPunct("("):
			call := p.node(ast.CALL)
			if err := p.advance(); err != nil {
				return nil, err
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			call.A = n
			call.B = args
			n = call
		case p.isPunct(":"):
			cast := p.node(ast.CAST)
			if err := p.advance(); err != nil {
				return nil, err
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			cast.A = n
			cast.B = t
			n = cast
		default:
			return n, nil
		}
	}
}

func (p *Parser) parseArgs() (*ast.Node, error) {
	if p.isPunct(")") {
		return nil, nil
	}
	var args []*ast.Node
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return chain(ast.EXPRLIST, args), nil
}

func (p *Parser) parsePrimary() (*ast.Node, error) {
	switch {
	case p.tok.Kind == lexer.NUM:
		n := p.node(ast.NUM)
		n.N = p.tok.Num
		return n, p.advance()

	case p.tok.Kind == lexer.CHAR:
		n := p.node(ast.CHAR)
		n.N = p.tok.Num
		return n, p.advance()

	case p.tok.Kind == lexer.STR:
		n := p.node(ast.STR)
		n.S = p.tok.Text
		return n, p.advance()

	case p.tok.Kind == lexer.IDENT:
		n := p.node(ast.IDENT)
		n.S = p.tok.Text
		return n, p.advance()

	case p.isKeyword("sizeof"):
		n := p.node(ast.SIZEOF)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		n.A = e
		return n, nil

	case p.isPunct("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil

	default:
		return nil, p.errorf("expected an expression")
	}
}
