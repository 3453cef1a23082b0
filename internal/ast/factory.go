package ast

import (
	"fmt"
	"strconv"
)

// NodeOption adjusts a node built by one of the Tree constructors.
type NodeOption func(t *Tree, n *Node)

// From copies the location of origin onto the new node. Synthetic nodes
// built to replace origin should carry its location so generated code stays
// traceable to the input.
func From(origin NodeID) NodeOption {
	return func(t *Tree, n *Node) {
		if t.Valid(origin) {
			n.Loc = t.Node(origin).Loc
		}
	}
}

// At sets an explicit location, overriding any From option given before it.
func At(loc Loc) NodeOption {
	return func(_ *Tree, n *Node) {
		n.Loc = loc
	}
}

func (t *Tree) build(kind Kind, fields []Field, opts []NodeOption, init func(n *Node)) NodeID {
	id, n := t.alloc()
	n.Kind = kind
	n.Fields = fields
	if init != nil {
		init(n)
	}
	for _, opt := range opts {
		opt(t, n)
	}
	return id
}

func (t *Tree) required(kind Kind, field string, id NodeID) {
	if !t.Valid(id) {
		panic(fmt.Sprintf("ast: %s requires a %s node", kind, field))
	}
}

func one(name string, id NodeID) Field {
	return Field{Name: name, Nodes: []NodeID{id}}
}

func seq(name string, ids []NodeID) Field {
	nodes := make([]NodeID, len(ids))
	copy(nodes, ids)
	return Field{Name: name, Seq: true, Nodes: nodes}
}

// Program builds the root node.
func (t *Tree) Program(body []NodeID, opts ...NodeOption) NodeID {
	return t.build(KindProgram, []Field{seq("body", body)}, opts, nil)
}

// Identifier builds a bare name reference.
func (t *Tree) Identifier(name string, opts ...NodeOption) NodeID {
	if name == "" {
		panic("ast: Identifier requires a name")
	}
	return t.build(KindIdentifier, nil, opts, func(n *Node) { n.Name = name })
}

// Literal builds a literal from its source text and decoded value.
func (t *Tree) Literal(raw, value string, opts ...NodeOption) NodeID {
	return t.build(KindLiteral, nil, opts, func(n *Node) {
		n.Raw = raw
		n.Value = value
	})
}

// StringLiteral builds a double-quoted string literal.
func (t *Tree) StringLiteral(value string, opts ...NodeOption) NodeID {
	return t.Literal(strconv.Quote(value), value, opts...)
}

// Array builds an array literal.
func (t *Tree) Array(elements []NodeID, opts ...NodeOption) NodeID {
	return t.build(KindArray, []Field{seq("elements", elements)}, opts, nil)
}

// Member builds object.property.
func (t *Tree) Member(object, property NodeID, opts ...NodeOption) NodeID {
	t.required(KindMember, "object", object)
	t.required(KindMember, "property", property)
	return t.build(KindMember, []Field{one("object", object), one("property", property)}, opts, nil)
}

// Index builds object[property].
func (t *Tree) Index(object, property NodeID, opts ...NodeOption) NodeID {
	id := t.Member(object, property, opts...)
	t.Node(id).Computed = true
	return id
}

// Call builds callee(args...).
func (t *Tree) Call(callee NodeID, args []NodeID, opts ...NodeOption) NodeID {
	t.required(KindCall, "callee", callee)
	return t.build(KindCall, []Field{one("callee", callee), seq("arguments", args)}, opts, nil)
}

// Arrow builds an arrow function. body is a Block or an expression.
func (t *Tree) Arrow(params []NodeID, body NodeID, opts ...NodeOption) NodeID {
	t.required(KindFunction, "body", body)
	return t.build(KindFunction,
		[]Field{one("id", Nil), seq("params", params), one("body", body)},
		opts, func(n *Node) { n.Arrow = true })
}

// FunctionExpr builds an anonymous `function (...) {...}` expression. id
// may be Nil.
func (t *Tree) FunctionExpr(id NodeID, params []NodeID, body NodeID, opts ...NodeOption) NodeID {
	t.required(KindFunction, "body", body)
	return t.build(KindFunction,
		[]Field{one("id", id), seq("params", params), one("body", body)}, opts, nil)
}

// FunctionDecl builds a named function declaration.
func (t *Tree) FunctionDecl(id NodeID, params []NodeID, body NodeID, opts ...NodeOption) NodeID {
	t.required(KindFunctionDecl, "id", id)
	t.required(KindFunctionDecl, "body", body)
	return t.build(KindFunctionDecl,
		[]Field{one("id", id), seq("params", params), one("body", body)}, opts, nil)
}

// Block builds a statement block.
func (t *Tree) Block(body []NodeID, opts ...NodeOption) NodeID {
	return t.build(KindBlock, []Field{seq("body", body)}, opts, nil)
}

// Return builds a return statement; argument may be Nil.
func (t *Tree) Return(argument NodeID, opts ...NodeOption) NodeID {
	return t.build(KindReturn, []Field{one("argument", argument)}, opts, nil)
}

// ExpressionStmt wraps an expression in statement position.
func (t *Tree) ExpressionStmt(expr NodeID, opts ...NodeOption) NodeID {
	t.required(KindExpressionStmt, "expression", expr)
	return t.build(KindExpressionStmt, []Field{one("expression", expr)}, opts, nil)
}

// Unary builds a prefix operator expression such as !x or typeof x.
func (t *Tree) Unary(op string, argument NodeID, opts ...NodeOption) NodeID {
	t.required(KindUnary, "argument", argument)
	return t.build(KindUnary, []Field{one("argument", argument)}, opts, func(n *Node) {
		n.Op = op
		n.Prefix = true
	})
}

// Update builds ++x, x++, --x or x--.
func (t *Tree) Update(op string, prefix bool, argument NodeID, opts ...NodeOption) NodeID {
	t.required(KindUpdate, "argument", argument)
	return t.build(KindUpdate, []Field{one("argument", argument)}, opts, func(n *Node) {
		n.Op = op
		n.Prefix = prefix
	})
}

// Binary builds left op right, logical operators included.
func (t *Tree) Binary(op string, left, right NodeID, opts ...NodeOption) NodeID {
	t.required(KindBinary, "left", left)
	t.required(KindBinary, "right", right)
	return t.build(KindBinary, []Field{one("left", left), one("right", right)}, opts,
		func(n *Node) { n.Op = op })
}

// If builds a conditional statement; alternate may be Nil.
func (t *Tree) If(test, consequent, alternate NodeID, opts ...NodeOption) NodeID {
	t.required(KindIf, "test", test)
	t.required(KindIf, "consequent", consequent)
	return t.build(KindIf,
		[]Field{one("test", test), one("consequent", consequent), one("alternate", alternate)},
		opts, nil)
}

// VarDecl builds a const/let/var declaration.
func (t *Tree) VarDecl(keyword string, declarators []NodeID, opts ...NodeOption) NodeID {
	return t.build(KindVarDecl, []Field{seq("declarations", declarators)}, opts,
		func(n *Node) { n.Op = keyword })
}

// VarDeclarator builds `id = init`; init may be Nil.
func (t *Tree) VarDeclarator(id, init NodeID, opts ...NodeOption) NodeID {
	t.required(KindVarDeclarator, "id", id)
	return t.build(KindVarDeclarator, []Field{one("id", id), one("init", init)}, opts, nil)
}

// Import builds an import declaration from specifiers and a source literal.
func (t *Tree) Import(specifiers []NodeID, source NodeID, opts ...NodeOption) NodeID {
	t.required(KindImport, "source", source)
	return t.build(KindImport, []Field{seq("specifiers", specifiers), one("source", source)}, opts, nil)
}

// ImportSpecifier binds the export imported ("default", "*" or a name) to
// the local identifier.
func (t *Tree) ImportSpecifier(imported string, local NodeID, opts ...NodeOption) NodeID {
	t.required(KindImportSpecifier, "local", local)
	return t.build(KindImportSpecifier, []Field{one("local", local)}, opts,
		func(n *Node) { n.Imported = imported })
}

// Raw builds an opaque node of grammar type typ. segments must have exactly
// one more element than children.
func (t *Tree) Raw(typ string, segments []string, children []NodeID, opts ...NodeOption) NodeID {
	if len(segments) != len(children)+1 {
		panic(fmt.Sprintf("ast: Raw %s has %d segments for %d children", typ, len(segments), len(children)))
	}
	segs := make([]string, len(segments))
	copy(segs, segments)
	return t.build(KindRaw, []Field{seq("children", children)}, opts, func(n *Node) {
		n.Name = typ
		n.Segments = segs
	})
}

// RawText builds a childless opaque node printed exactly as text.
func (t *Tree) RawText(text string, opts ...NodeOption) NodeID {
	return t.Raw("raw", []string{text}, nil, opts...)
}
