package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/jsnext/internal/ast"
)

// lowerer converts tree-sitter's concrete syntax tree into the engine's
// arena tree. Grammar types without a structural kind become Raw nodes that
// keep their text and recurse into their named children.
type lowerer struct {
	src  []byte
	name string
	tree *ast.Tree
}

func (l *lowerer) text(n *sitter.Node) string {
	return string(l.src[n.StartByte():n.EndByte()])
}

func (l *lowerer) loc(n *sitter.Node) ast.Loc {
	sp, ep := n.StartPoint(), n.EndPoint()
	return ast.Loc{
		Source:    l.name,
		StartLine: int(sp.Row) + 1,
		StartCol:  int(sp.Column),
		EndLine:   int(ep.Row) + 1,
		EndCol:    int(ep.Column),
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
	}
}

func (l *lowerer) at(n *sitter.Node) ast.NodeOption {
	return ast.At(l.loc(n))
}

// named returns the named children of n other than comments.
func named(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// hasChild reports whether n has a direct child, named or not, of type typ.
func hasChild(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

func (l *lowerer) program(n *sitter.Node) ast.NodeID {
	return l.tree.Program(l.statements(n), l.at(n))
}

// statements lowers every named child of a statement container, comments
// included, so they survive regeneration.
func (l *lowerer) statements(n *sitter.Node) []ast.NodeID {
	var out []ast.NodeID
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, l.statement(n.NamedChild(i)))
	}
	return out
}

func (l *lowerer) statement(n *sitter.Node) ast.NodeID {
	if n.Type() == "comment" {
		return l.tree.Raw("comment", []string{l.text(n)}, nil, l.at(n))
	}
	return l.lower(n)
}

func (l *lowerer) list(nodes []*sitter.Node) []ast.NodeID {
	out := make([]ast.NodeID, 0, len(nodes))
	for _, c := range nodes {
		out = append(out, l.lower(c))
	}
	return out
}

func (l *lowerer) lower(n *sitter.Node) ast.NodeID {
	t := l.tree
	switch n.Type() {
	case "identifier", "property_identifier", "shorthand_property_identifier",
		"private_property_identifier", "undefined":
		return t.Identifier(l.text(n), l.at(n))

	case "string":
		raw := l.text(n)
		return t.Literal(raw, unquote(raw), l.at(n))

	case "template_string":
		for _, c := range named(n) {
			if c.Type() == "template_substitution" {
				return l.raw(n)
			}
		}
		raw := l.text(n)
		return t.Literal(raw, unquote(raw), l.at(n))

	case "number", "true", "false", "null", "regex":
		raw := l.text(n)
		return t.Literal(raw, raw, l.at(n))

	case "array":
		return l.array(n)

	case "member_expression":
		obj, prop := n.ChildByFieldName("object"), n.ChildByFieldName("property")
		if obj == nil || prop == nil || hasChild(n, "optional_chain") {
			return l.raw(n)
		}
		return t.Member(l.lower(obj), t.Identifier(l.text(prop), l.at(prop)), l.at(n))

	case "subscript_expression":
		obj, idx := n.ChildByFieldName("object"), n.ChildByFieldName("index")
		if obj == nil || idx == nil || hasChild(n, "optional_chain") {
			return l.raw(n)
		}
		return t.Index(l.lower(obj), l.lower(idx), l.at(n))

	case "call_expression":
		fn, args := n.ChildByFieldName("function"), n.ChildByFieldName("arguments")
		if fn == nil || args == nil || args.Type() != "arguments" || hasChild(n, "optional_chain") {
			return l.raw(n)
		}
		return t.Call(l.lower(fn), l.list(named(args)), l.at(n))

	case "import_statement":
		return l.importStatement(n)

	case "function_declaration", "generator_function_declaration":
		return l.functionDecl(n)

	case "function_expression", "function", "generator_function":
		return l.functionExpr(n)

	case "arrow_function":
		return l.arrow(n)

	case "statement_block":
		return t.Block(l.statements(n), l.at(n))

	case "return_statement":
		arg := ast.Nil
		if cs := named(n); len(cs) > 0 {
			arg = l.lower(cs[0])
		}
		return t.Return(arg, l.at(n))

	case "expression_statement":
		cs := named(n)
		if len(cs) == 0 {
			return l.raw(n)
		}
		return t.ExpressionStmt(l.lower(cs[0]), l.at(n))

	case "unary_expression":
		op, arg := n.ChildByFieldName("operator"), n.ChildByFieldName("argument")
		if op == nil || arg == nil {
			return l.raw(n)
		}
		return t.Unary(l.text(op), l.lower(arg), l.at(n))

	case "update_expression":
		op, arg := n.ChildByFieldName("operator"), n.ChildByFieldName("argument")
		if op == nil || arg == nil {
			return l.raw(n)
		}
		prefix := op.StartByte() < arg.StartByte()
		return t.Update(l.text(op), prefix, l.lower(arg), l.at(n))

	case "binary_expression":
		left, op, right := n.ChildByFieldName("left"), n.ChildByFieldName("operator"), n.ChildByFieldName("right")
		if left == nil || op == nil || right == nil {
			return l.raw(n)
		}
		return t.Binary(l.text(op), l.lower(left), l.lower(right), l.at(n))

	case "if_statement":
		return l.ifStatement(n)

	case "lexical_declaration", "variable_declaration":
		return l.varDecl(n)
	}
	return l.raw(n)
}

// raw keeps n verbatim, with its named children lowered into holes.
func (l *lowerer) raw(n *sitter.Node) ast.NodeID {
	children := named(n)
	segments := make([]string, 0, len(children)+1)
	pos := n.StartByte()
	for _, c := range children {
		segments = append(segments, string(l.src[pos:c.StartByte()]))
		pos = c.EndByte()
	}
	segments = append(segments, string(l.src[pos:n.EndByte()]))
	return l.tree.Raw(n.Type(), segments, l.list(children), l.at(n))
}

// array lowers an array literal unless it has holes, which the structural
// form cannot express. A hole is a comma directly after "[" or another comma.
func (l *lowerer) array(n *sitter.Node) ast.NodeID {
	prev := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		typ := n.Child(i).Type()
		if typ == "comment" {
			continue
		}
		if typ == "," && (prev == "[" || prev == ",") {
			return l.raw(n)
		}
		prev = typ
	}
	return l.tree.Array(l.list(named(n)), l.at(n))
}

func (l *lowerer) importStatement(n *sitter.Node) ast.NodeID {
	src := n.ChildByFieldName("source")
	if src == nil || hasChild(n, "import_attribute") {
		return l.raw(n)
	}
	var specs []ast.NodeID
	for _, c := range named(n) {
		if c.Type() != "import_clause" {
			continue
		}
		for _, part := range named(c) {
			switch part.Type() {
			case "identifier":
				specs = append(specs, l.specifier("default", part, part))
			case "namespace_import":
				for _, id := range named(part) {
					if id.Type() == "identifier" {
						specs = append(specs, l.specifier("*", id, part))
					}
				}
			case "named_imports":
				for _, s := range named(part) {
					if s.Type() != "import_specifier" {
						continue
					}
					name, alias := s.ChildByFieldName("name"), s.ChildByFieldName("alias")
					if name == nil {
						return l.raw(n)
					}
					local := alias
					if local == nil {
						if name.Type() != "identifier" {
							return l.raw(n)
						}
						local = name
					}
					imported := l.text(name)
					if name.Type() == "string" {
						imported = unquote(imported)
					}
					specs = append(specs, l.specifier(imported, local, s))
				}
			}
		}
	}
	raw := l.text(src)
	return l.tree.Import(specs, l.tree.Literal(raw, unquote(raw), l.at(src)), l.at(n))
}

func (l *lowerer) specifier(imported string, local, whole *sitter.Node) ast.NodeID {
	return l.tree.ImportSpecifier(imported, l.tree.Identifier(l.text(local), l.at(local)), l.at(whole))
}

func (l *lowerer) params(n *sitter.Node) []ast.NodeID {
	if n == nil {
		return nil
	}
	return l.list(named(n))
}

func (l *lowerer) functionDecl(n *sitter.Node) ast.NodeID {
	name, body := n.ChildByFieldName("name"), n.ChildByFieldName("body")
	if name == nil || body == nil {
		return l.raw(n)
	}
	id := l.tree.FunctionDecl(l.lower(name), l.params(n.ChildByFieldName("parameters")), l.lower(body), l.at(n))
	fn := l.tree.Node(id)
	fn.Async = hasChild(n, "async")
	fn.Generator = n.Type() == "generator_function_declaration"
	return id
}

func (l *lowerer) functionExpr(n *sitter.Node) ast.NodeID {
	body := n.ChildByFieldName("body")
	if body == nil {
		return l.raw(n)
	}
	name := ast.Nil
	if nm := n.ChildByFieldName("name"); nm != nil {
		name = l.lower(nm)
	}
	id := l.tree.FunctionExpr(name, l.params(n.ChildByFieldName("parameters")), l.lower(body), l.at(n))
	fn := l.tree.Node(id)
	fn.Async = hasChild(n, "async")
	fn.Generator = n.Type() == "generator_function"
	return id
}

func (l *lowerer) arrow(n *sitter.Node) ast.NodeID {
	body := n.ChildByFieldName("body")
	if body == nil {
		return l.raw(n)
	}
	var params []ast.NodeID
	if p := n.ChildByFieldName("parameter"); p != nil {
		params = []ast.NodeID{l.lower(p)}
	} else {
		params = l.params(n.ChildByFieldName("parameters"))
	}
	id := l.tree.Arrow(params, l.lower(body), l.at(n))
	l.tree.Node(id).Async = hasChild(n, "async")
	return id
}

func (l *lowerer) ifStatement(n *sitter.Node) ast.NodeID {
	cond, cons := n.ChildByFieldName("condition"), n.ChildByFieldName("consequence")
	if cond == nil || cons == nil {
		return l.raw(n)
	}
	test := cond
	if cond.Type() == "parenthesized_expression" {
		inner := named(cond)
		if len(inner) != 1 {
			return l.raw(n)
		}
		test = inner[0]
	}
	alt := ast.Nil
	if a := n.ChildByFieldName("alternative"); a != nil {
		stmt := a
		if a.Type() == "else_clause" {
			inner := named(a)
			if len(inner) != 1 {
				return l.raw(n)
			}
			stmt = inner[0]
		}
		alt = l.statement(stmt)
	}
	return l.tree.If(l.lower(test), l.statement(cons), alt, l.at(n))
}

func (l *lowerer) varDecl(n *sitter.Node) ast.NodeID {
	keyword := "var"
	if n.ChildCount() > 0 {
		if k := n.Child(0); !k.IsNamed() {
			keyword = k.Type()
		}
	}
	var decls []ast.NodeID
	for _, c := range named(n) {
		if c.Type() != "variable_declarator" {
			return l.raw(n)
		}
		name := c.ChildByFieldName("name")
		if name == nil {
			return l.raw(n)
		}
		init := ast.Nil
		if v := c.ChildByFieldName("value"); v != nil {
			init = l.lower(v)
		}
		decls = append(decls, l.tree.VarDeclarator(l.lower(name), init, l.at(c)))
	}
	return l.tree.VarDecl(keyword, decls, l.at(n))
}
