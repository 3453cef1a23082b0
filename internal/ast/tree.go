package ast

import "fmt"

// NodeID addresses a node inside a Tree's arena. The zero value is the nil
// node; no real node ever has ID 0.
type NodeID int32

// Nil is the absent node, used for optional fields that are not present.
const Nil NodeID = 0

// Loc is the source location of a node. A zero Loc marks a synthetic node
// with no origin in the parsed text.
type Loc struct {
	Source    string
	StartLine int // 1-based
	StartCol  int // 0-based
	EndLine   int
	EndCol    int
	StartByte int
	EndByte   int
}

// IsZero reports whether the location carries no position information.
func (l Loc) IsZero() bool {
	return l.StartLine == 0 && l.EndLine == 0
}

func (l Loc) String() string {
	if l.IsZero() {
		return "<synthetic>"
	}
	if l.Source == "" {
		return fmt.Sprintf("%d:%d", l.StartLine, l.StartCol)
	}
	return fmt.Sprintf("%s:%d:%d", l.Source, l.StartLine, l.StartCol)
}

// Field is a named child slot. Single-valued fields hold exactly one entry,
// which is Nil when an optional child is absent. Sequence fields hold zero or
// more entries.
type Field struct {
	Name  string
	Seq   bool
	Nodes []NodeID
}

// Node is a syntax tree node. Which scalars and fields are meaningful depends
// on Kind; the constructors in factory.go always produce the full field set
// for their kind.
type Node struct {
	Kind Kind
	Loc  Loc

	// Name is the identifier name for Identifier, and the grammar type
	// (e.g. "class_declaration") for Raw.
	Name string
	// Raw is the literal exactly as written; Value is its decoded form
	// (string contents without quotes, or the same text for numbers).
	Raw   string
	Value string
	// Op is the operator for Unary/Update/Binary and the declaration
	// keyword (const/let/var) for VariableDeclaration.
	Op string
	// Imported is the exported name an ImportSpecifier binds: "default",
	// "*" for namespace imports, or the named export.
	Imported string

	Prefix    bool
	Computed  bool
	Async     bool
	Generator bool
	Arrow     bool

	// Segments holds the verbatim text of a Raw node around its children:
	// Segments[0] child[0] Segments[1] ... child[n-1] Segments[n].
	Segments []string

	Fields []Field
}

const chunkSize = 256

// Tree is an arena-backed syntax tree. Nodes carry no parent pointers; the
// ancestor chain handed out by Walk is the only way to discover context.
//
// A Tree is not safe for concurrent mutation.
type Tree struct {
	chunks [][]Node
	count  int

	// Root is the Program node.
	Root NodeID
	// Source names the parsed input, used for locations and diagnostics.
	Source string
	// Text is the original source text, if the tree came from a parse.
	Text string
}

// NewTree creates an empty tree. The nil node is allocated up front so that
// every real node has a non-zero ID.
func NewTree(source string) *Tree {
	t := &Tree{Source: source}
	t.alloc()
	return t
}

// alloc reserves a node slot. Chunks are never reallocated, so pointers
// returned by Node stay valid while the tree grows.
func (t *Tree) alloc() (NodeID, *Node) {
	ci, off := t.count/chunkSize, t.count%chunkSize
	if ci == len(t.chunks) {
		t.chunks = append(t.chunks, make([]Node, chunkSize))
	}
	id := NodeID(t.count)
	t.count++
	return id, &t.chunks[ci][off]
}

// Len returns the number of allocated nodes, including detached ones.
func (t *Tree) Len() int {
	return t.count - 1
}

// Valid reports whether id addresses an allocated, non-nil node.
func (t *Tree) Valid(id NodeID) bool {
	return id > Nil && int(id) < t.count
}

// Node returns the node for id. It panics on Nil or an out-of-range ID, the
// same way an out-of-range slice index would.
func (t *Tree) Node(id NodeID) *Node {
	if !t.Valid(id) {
		panic(fmt.Sprintf("ast: invalid node id %d", id))
	}
	return &t.chunks[int(id)/chunkSize][int(id)%chunkSize]
}

// Kind returns the kind of id, or KindInvalid for Nil.
func (t *Tree) Kind(id NodeID) Kind {
	if !t.Valid(id) {
		return KindInvalid
	}
	return t.Node(id).Kind
}

// Is reports whether id is a node of kind k.
func (t *Tree) Is(id NodeID, k Kind) bool {
	return t.Kind(id) == k
}

// IsIdentifierNamed reports whether id is an Identifier called name.
func (t *Tree) IsIdentifierNamed(id NodeID, name string) bool {
	return t.Is(id, KindIdentifier) && t.Node(id).Name == name
}

func (t *Tree) field(id NodeID, name string) *Field {
	n := t.Node(id)
	for i := range n.Fields {
		if n.Fields[i].Name == name {
			return &n.Fields[i]
		}
	}
	return nil
}

// Child returns the node in the single-valued field name, or Nil when the
// field is absent, empty, or a sequence.
func (t *Tree) Child(id NodeID, name string) NodeID {
	if !t.Valid(id) {
		return Nil
	}
	f := t.field(id, name)
	if f == nil || f.Seq || len(f.Nodes) == 0 {
		return Nil
	}
	return f.Nodes[0]
}

// Children returns the nodes of the sequence field name. The returned slice
// is a copy.
func (t *Tree) Children(id NodeID, name string) []NodeID {
	if !t.Valid(id) {
		return nil
	}
	f := t.field(id, name)
	if f == nil || !f.Seq {
		return nil
	}
	out := make([]NodeID, len(f.Nodes))
	copy(out, f.Nodes)
	return out
}

// SetChild overwrites the single-valued field name.
func (t *Tree) SetChild(id NodeID, name string, child NodeID) error {
	f := t.field(id, name)
	if f == nil || f.Seq {
		return fmt.Errorf("ast: %s has no single-valued field %q", t.Kind(id), name)
	}
	f.Nodes[0] = child
	return nil
}

// Insert places child at index in the sequence field name, shifting later
// elements right. An index equal to the length appends.
func (t *Tree) Insert(id NodeID, name string, index int, child NodeID) error {
	f := t.field(id, name)
	if f == nil || !f.Seq {
		return fmt.Errorf("ast: %s has no sequence field %q", t.Kind(id), name)
	}
	if index < 0 || index > len(f.Nodes) {
		return fmt.Errorf("ast: insert index %d out of range [0,%d]", index, len(f.Nodes))
	}
	f.Nodes = append(f.Nodes, Nil)
	copy(f.Nodes[index+1:], f.Nodes[index:])
	f.Nodes[index] = child
	if n := t.Node(id); n.Kind == KindRaw {
		// Keep Segments aligned with an empty separator next to the new
		// child. The first and last segments never move.
		seg := index
		if seg == 0 {
			seg = 1
		}
		n.Segments = append(n.Segments, "")
		copy(n.Segments[seg+1:], n.Segments[seg:])
		n.Segments[seg] = ""
	}
	return nil
}

// Each calls fn for every non-nil child of id in field declaration order.
func (t *Tree) Each(id NodeID, fn func(child NodeID)) {
	n := t.Node(id)
	for fi := range n.Fields {
		for i := 0; i < len(n.Fields[fi].Nodes); i++ {
			if c := n.Fields[fi].Nodes[i]; c != Nil {
				fn(c)
			}
		}
	}
}

// StringValue returns the decoded value of a string Literal.
func (t *Tree) StringValue(id NodeID) (string, bool) {
	if !t.Is(id, KindLiteral) {
		return "", false
	}
	n := t.Node(id)
	if len(n.Raw) < 2 {
		return "", false
	}
	switch n.Raw[0] {
	case '"', '\'', '`':
		return n.Value, true
	}
	return "", false
}
