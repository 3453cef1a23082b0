// Package printer regenerates JavaScript source from an ast.Tree.
//
// Structural nodes are printed in a fixed style with parentheses inserted
// wherever operator precedence requires them. Raw nodes reproduce their
// original text around their (possibly rewritten) children.
package printer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/jsnext/internal/ast"
)

// ErrInvalidTree is returned when a required child is missing or a node
// appears where it can never be printed.
var ErrInvalidTree = errors.New("invalid tree")

// Options configures output formatting.
type Options struct {
	// Indent is the text for one indentation level. Defaults to two spaces.
	Indent string
}

// Print renders the tree rooted at t.Root.
func Print(t *ast.Tree, opts Options) (string, error) {
	return PrintNode(t, t.Root, opts)
}

// PrintNode renders the subtree at id. Statements and the Program are
// printed as statements, everything else as an expression.
func PrintNode(t *ast.Tree, id ast.NodeID, opts Options) (string, error) {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	p := &printer{t: t, indent: opts.Indent}
	switch {
	case t.Is(id, ast.KindProgram):
		p.program(id)
	case isStatement(t.Kind(id)):
		p.statement(id)
	default:
		p.expr(id, precLowest)
	}
	if p.err != nil {
		return "", p.err
	}
	return p.b.String(), nil
}

type printer struct {
	t      *ast.Tree
	b      strings.Builder
	indent string
	depth  int
	err    error
}

func (p *printer) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("printer: "+format+": %w", append(args, ErrInvalidTree)...)
	}
}

func (p *printer) write(s string) { p.b.WriteString(s) }

func (p *printer) newline() {
	p.b.WriteByte('\n')
	for i := 0; i < p.depth; i++ {
		p.b.WriteString(p.indent)
	}
}

// rawExpression reports whether an opaque grammar type is an expression,
// which needs a semicolon when it stands alone as a statement.
func rawExpression(typ string) bool {
	if strings.HasSuffix(typ, "_expression") {
		return true
	}
	switch typ {
	case "object", "array", "class", "this", "super", "template_string":
		return true
	}
	return false
}

func isStatement(k ast.Kind) bool {
	switch k {
	case ast.KindExpressionStmt, ast.KindReturn, ast.KindIf, ast.KindBlock,
		ast.KindVarDecl, ast.KindFunctionDecl, ast.KindImport:
		return true
	}
	return false
}

func (p *printer) program(id ast.NodeID) {
	body := p.t.Children(id, "body")
	p.statements(body)
	if len(body) > 0 {
		p.write("\n")
	}
}

// statements prints a statement list, one per line at the current depth.
// A blank line in the input between two statements is kept.
func (p *printer) statements(body []ast.NodeID) {
	for i, s := range body {
		if i > 0 {
			prev, cur := p.t.Node(body[i-1]).Loc, p.t.Node(s).Loc
			if !prev.IsZero() && !cur.IsZero() && cur.StartLine > prev.EndLine+1 {
				p.write("\n")
			}
			p.newline()
		}
		p.statement(s)
	}
}

func (p *printer) block(id ast.NodeID) {
	body := p.t.Children(id, "body")
	if len(body) == 0 {
		p.write("{}")
		return
	}
	p.write("{")
	p.depth++
	p.newline()
	p.statements(body)
	p.depth--
	p.newline()
	p.write("}")
}

func (p *printer) statement(id ast.NodeID) {
	if !p.t.Valid(id) {
		p.fail("missing statement")
		return
	}
	n := p.t.Node(id)
	switch n.Kind {
	case ast.KindExpressionStmt:
		expr := p.t.Child(id, "expression")
		if p.ambiguousStart(expr, true) {
			p.write("(")
			p.expr(expr, precLowest)
			p.write(")")
		} else {
			p.expr(expr, precLowest)
		}
		p.write(";")
	case ast.KindReturn:
		p.write("return")
		if arg := p.t.Child(id, "argument"); arg != ast.Nil {
			p.write(" ")
			p.expr(arg, precLowest)
		}
		p.write(";")
	case ast.KindIf:
		p.ifStatement(id)
	case ast.KindBlock:
		p.block(id)
	case ast.KindVarDecl:
		p.varDecl(id)
		p.write(";")
	case ast.KindFunctionDecl:
		p.function(id)
	case ast.KindImport:
		p.importDecl(id)
	case ast.KindProgram:
		p.program(id)
	case ast.KindRaw:
		if !rawExpression(n.Name) {
			p.raw(id)
			return
		}
		fallthrough
	default:
		// An expression spliced straight into a statement list.
		if p.ambiguousStart(id, true) {
			p.write("(")
			p.expr(id, precLowest)
			p.write(")")
		} else {
			p.expr(id, precLowest)
		}
		p.write(";")
	}
}

func (p *printer) ifStatement(id ast.NodeID) {
	test := p.t.Child(id, "test")
	cons := p.t.Child(id, "consequent")
	alt := p.t.Child(id, "alternate")

	p.write("if (")
	p.expr(test, precLowest)
	p.write(") ")
	// An else-less inner if would capture our else.
	if alt != ast.Nil && p.t.Is(cons, ast.KindIf) && p.t.Child(cons, "alternate") == ast.Nil {
		p.write("{")
		p.depth++
		p.newline()
		p.statement(cons)
		p.depth--
		p.newline()
		p.write("}")
	} else {
		p.statement(cons)
	}
	if alt != ast.Nil {
		p.write(" else ")
		p.statement(alt)
	}
}

func (p *printer) varDecl(id ast.NodeID) {
	p.write(p.t.Node(id).Op)
	p.write(" ")
	for i, d := range p.t.Children(id, "declarations") {
		if i > 0 {
			p.write(", ")
		}
		p.expr(p.t.Child(d, "id"), precAssign)
		if init := p.t.Child(d, "init"); init != ast.Nil {
			p.write(" = ")
			p.expr(init, precAssign)
		}
	}
}

func (p *printer) importDecl(id ast.NodeID) {
	specs := p.t.Children(id, "specifiers")
	p.write("import ")
	var named []ast.NodeID
	wrote := false
	for _, s := range specs {
		n := p.t.Node(s)
		local := p.t.Child(s, "local")
		switch n.Imported {
		case "default":
			if wrote {
				p.write(", ")
			}
			p.expr(local, precPrimary)
			wrote = true
		case "*":
			if wrote {
				p.write(", ")
			}
			p.write("* as ")
			p.expr(local, precPrimary)
			wrote = true
		default:
			named = append(named, s)
		}
	}
	if len(named) > 0 {
		if wrote {
			p.write(", ")
		}
		p.write("{")
		for i, s := range named {
			if i > 0 {
				p.write(", ")
			}
			imported := p.t.Node(s).Imported
			local := p.t.Child(s, "local")
			if p.t.IsIdentifierNamed(local, imported) {
				p.write(imported)
				continue
			}
			if isIdentifierName(imported) {
				p.write(imported)
			} else {
				p.write(strconv.Quote(imported))
			}
			p.write(" as ")
			p.expr(local, precPrimary)
		}
		p.write("}")
		wrote = true
	}
	if wrote {
		p.write(" from ")
	}
	p.expr(p.t.Child(id, "source"), precPrimary)
	p.write(";")
}

func isIdentifierName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 0x7f:
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// function prints function declarations and non-arrow function expressions.
func (p *printer) function(id ast.NodeID) {
	n := p.t.Node(id)
	if n.Async {
		p.write("async ")
	}
	p.write("function")
	if n.Generator {
		p.write("*")
	}
	if name := p.t.Child(id, "id"); name != ast.Nil {
		p.write(" ")
		p.expr(name, precPrimary)
	}
	p.params(id)
	p.write(" ")
	p.functionBody(p.t.Child(id, "body"))
}

func (p *printer) params(id ast.NodeID) {
	p.write("(")
	for i, param := range p.t.Children(id, "params") {
		if i > 0 {
			p.write(", ")
		}
		p.expr(param, precAssign)
	}
	p.write(")")
}

func (p *printer) functionBody(body ast.NodeID) {
	if p.t.Is(body, ast.KindBlock) {
		p.block(body)
		return
	}
	// Non-arrow bodies must be blocks. Wrap whatever we were given.
	p.write("{")
	p.depth++
	p.newline()
	p.statement(body)
	p.depth--
	p.newline()
	p.write("}")
}

func (p *printer) arrow(id ast.NodeID) {
	n := p.t.Node(id)
	if n.Async {
		p.write("async ")
	}
	p.params(id)
	p.write(" => ")
	body := p.t.Child(id, "body")
	switch {
	case p.t.Is(body, ast.KindBlock):
		p.block(body)
	case isStatement(p.t.Kind(body)):
		p.functionBody(body)
	case p.ambiguousStart(body, false):
		p.write("(")
		p.expr(body, precLowest)
		p.write(")")
	default:
		p.expr(body, precAssign)
	}
}

func (p *printer) expr(id ast.NodeID, min int) {
	if !p.t.Valid(id) {
		p.fail("missing expression")
		return
	}
	n := p.t.Node(id)
	if isStatement(n.Kind) || n.Kind == ast.KindProgram {
		p.statement(id)
		return
	}
	prec := p.precedence(id)
	if prec < min {
		p.write("(")
		defer p.write(")")
	}

	switch n.Kind {
	case ast.KindIdentifier:
		p.write(n.Name)
	case ast.KindLiteral:
		if n.Raw != "" {
			p.write(n.Raw)
		} else {
			p.write(strconv.Quote(n.Value))
		}
	case ast.KindArray:
		p.write("[")
		for i, e := range p.t.Children(id, "elements") {
			if i > 0 {
				p.write(", ")
			}
			p.expr(e, precAssign)
		}
		p.write("]")
	case ast.KindMember:
		obj := p.t.Child(id, "object")
		if isBareNumber(p.t, obj) && !n.Computed {
			p.write("(")
			p.expr(obj, precLowest)
			p.write(")")
		} else {
			p.expr(obj, precCall)
		}
		prop := p.t.Child(id, "property")
		if n.Computed {
			p.write("[")
			p.expr(prop, precLowest)
			p.write("]")
		} else {
			p.write(".")
			p.expr(prop, precPrimary)
		}
	case ast.KindCall:
		p.expr(p.t.Child(id, "callee"), precCall)
		p.write("(")
		for i, a := range p.t.Children(id, "arguments") {
			if i > 0 {
				p.write(", ")
			}
			p.expr(a, precAssign)
		}
		p.write(")")
	case ast.KindFunction:
		if n.Arrow {
			p.arrow(id)
		} else {
			p.function(id)
		}
	case ast.KindUnary:
		p.write(n.Op)
		arg := p.t.Child(id, "argument")
		if needsUnarySpace(p.t, n.Op, arg) {
			p.write(" ")
		}
		p.expr(arg, precUnary)
	case ast.KindUpdate:
		arg := p.t.Child(id, "argument")
		if n.Prefix {
			p.write(n.Op)
			p.expr(arg, precUnary)
		} else {
			p.expr(arg, precUpdate)
			p.write(n.Op)
		}
	case ast.KindBinary:
		p.binary(id)
	case ast.KindRaw:
		p.raw(id)
	case ast.KindImportSpecifier:
		p.expr(p.t.Child(id, "local"), precPrimary)
	case ast.KindVarDeclarator:
		p.expr(p.t.Child(id, "id"), precAssign)
		if init := p.t.Child(id, "init"); init != ast.Nil {
			p.write(" = ")
			p.expr(init, precAssign)
		}
	default:
		p.fail("cannot print %s as an expression", n.Kind)
	}
}

func (p *printer) binary(id ast.NodeID) {
	n := p.t.Node(id)
	prec := binaryPrec(n.Op)
	left, right := p.t.Child(id, "left"), p.t.Child(id, "right")
	if n.Op == "**" {
		// Right-associative, and a unary operand on the left is a syntax error.
		p.operand(n.Op, left, precUpdate)
		p.write(" ** ")
		p.operand(n.Op, right, prec)
		return
	}
	p.operand(n.Op, left, prec)
	p.write(" ")
	p.write(n.Op)
	p.write(" ")
	p.operand(n.Op, right, prec+1)
}

func (p *printer) operand(parentOp string, id ast.NodeID, min int) {
	if mixesNullish(p.t, parentOp, id) {
		min = precPrimary
	}
	p.expr(id, min)
}

// mixesNullish reports whether id is a || or && operand of ?? (or the
// reverse), which JavaScript rejects without parentheses.
func mixesNullish(t *ast.Tree, parentOp string, id ast.NodeID) bool {
	if !t.Is(id, ast.KindBinary) {
		return false
	}
	op := t.Node(id).Op
	if parentOp == "??" {
		return op == "||" || op == "&&"
	}
	if parentOp == "||" || parentOp == "&&" {
		return op == "??"
	}
	return false
}

func (p *printer) raw(id ast.NodeID) {
	n := p.t.Node(id)
	children := p.t.Children(id, "children")
	if len(n.Segments) != len(children)+1 {
		p.fail("raw %s has %d segments for %d children", n.Name, len(n.Segments), len(children))
		return
	}
	childMin := rawChildPrec(n.Name)
	for i, c := range children {
		p.write(n.Segments[i])
		if isStatement(p.t.Kind(c)) {
			p.statement(c)
		} else {
			p.expr(c, childMin)
		}
	}
	p.write(n.Segments[len(children)])
}

// ambiguousStart reports whether printing id at the start of a statement
// (or an arrow body, when fn is false) would be misread as a block, or as a
// function or class declaration.
func (p *printer) ambiguousStart(id ast.NodeID, fn bool) bool {
	if !p.t.Valid(id) {
		return false
	}
	n := p.t.Node(id)
	switch n.Kind {
	case ast.KindFunction:
		return fn && !n.Arrow
	case ast.KindBinary:
		return p.ambiguousStart(p.t.Child(id, "left"), fn)
	case ast.KindCall:
		return p.ambiguousStart(p.t.Child(id, "callee"), fn)
	case ast.KindMember:
		return p.ambiguousStart(p.t.Child(id, "object"), fn)
	case ast.KindUpdate:
		if !n.Prefix {
			return p.ambiguousStart(p.t.Child(id, "argument"), fn)
		}
	case ast.KindRaw:
		lead := strings.TrimLeft(n.Segments[0], " \t\r\n")
		if lead == "" {
			if cs := p.t.Children(id, "children"); len(cs) > 0 {
				return p.ambiguousStart(cs[0], fn)
			}
			return false
		}
		if strings.HasPrefix(lead, "{") {
			return true
		}
		if fn {
			for _, kw := range []string{"function", "class", "async function"} {
				if strings.HasPrefix(lead, kw) && !isIdentPart(lead, len(kw)) {
					return true
				}
			}
			if strings.HasPrefix(lead, "let") && strings.HasPrefix(strings.TrimLeft(lead[3:], " \t"), "[") {
				return true
			}
		}
	}
	return false
}

func isIdentPart(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isBareNumber(t *ast.Tree, id ast.NodeID) bool {
	if !t.Is(id, ast.KindLiteral) {
		return false
	}
	raw := t.Node(id).Raw
	if raw == "" {
		return false
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func needsUnarySpace(t *ast.Tree, op string, arg ast.NodeID) bool {
	switch op {
	case "typeof", "void", "delete", "await":
		return true
	case "+", "-":
		n := t.Node(arg)
		if (n.Kind == ast.KindUnary || n.Kind == ast.KindUpdate) && n.Prefix && n.Op != "" && n.Op[0] == op[0] {
			return true
		}
		if n.Kind == ast.KindLiteral && strings.HasPrefix(n.Raw, op) {
			return true
		}
	}
	return false
}
