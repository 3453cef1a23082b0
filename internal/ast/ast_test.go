package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSum returns a tree for `f(a + b, a + b);` where the two sums are
// distinct nodes with identical shape.
func buildSum(t *testing.T) (*Tree, NodeID, NodeID, NodeID) {
	t.Helper()
	tr := NewTree("sum.js")
	s1 := tr.Binary("+", tr.Identifier("a"), tr.Identifier("b"))
	s2 := tr.Binary("+", tr.Identifier("a"), tr.Identifier("b"))
	call := tr.Call(tr.Identifier("f"), []NodeID{s1, s2})
	tr.Root = tr.Program([]NodeID{tr.ExpressionStmt(call)})
	return tr, call, s1, s2
}

func TestNewTree_NilNodeReserved(t *testing.T) {
	tr := NewTree("x.js")
	assert.Equal(t, 0, tr.Len())
	assert.False(t, tr.Valid(Nil))
	assert.Equal(t, KindInvalid, tr.Kind(Nil))

	id := tr.Identifier("x")
	assert.NotEqual(t, Nil, id)
	assert.True(t, tr.Valid(id))
	assert.Equal(t, 1, tr.Len())
}

func TestNode_PointersStableAcrossGrowth(t *testing.T) {
	tr := NewTree("x.js")
	first := tr.Identifier("first")
	n := tr.Node(first)
	for i := 0; i < chunkSize*3; i++ {
		tr.Identifier("filler")
	}
	n.Name = "renamed"
	assert.Equal(t, "renamed", tr.Node(first).Name)
}

func TestKindByName(t *testing.T) {
	tests := []struct {
		name string
		want Kind
		ok   bool
	}{
		{"BinaryExpression", KindBinary, true},
		{"IfStatement", KindIf, true},
		{"ArrowFunctionExpression", KindFunction, true},
		{"FunctionExpression", KindFunction, true},
		{"Raw", KindRaw, true},
		{"ClassDeclaration", KindInvalid, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KindByName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "CallExpression", KindCall.String())
	assert.Equal(t, "Invalid", Kind(200).String())
}

func TestFactory_LocationFromOrigin(t *testing.T) {
	tr := NewTree("loc.js")
	loc := Loc{Source: "loc.js", StartLine: 3, StartCol: 4, EndLine: 3, EndCol: 9}
	origin := tr.Identifier("x", At(loc))

	id := tr.Identifier("y", From(origin))
	assert.Equal(t, loc, tr.Node(id).Loc)

	override := Loc{StartLine: 7, EndLine: 7}
	id2 := tr.Call(tr.Identifier("f"), nil, From(origin), At(override))
	assert.Equal(t, override, tr.Node(id2).Loc)

	synthetic := tr.Identifier("z")
	assert.True(t, tr.Node(synthetic).Loc.IsZero())
	assert.Equal(t, "<synthetic>", tr.Node(synthetic).Loc.String())
	assert.Equal(t, "loc.js:3:4", loc.String())
}

func TestFactory_FieldsComplete(t *testing.T) {
	tr := NewTree("f.js")
	body := tr.Block(nil)
	fn := tr.Arrow(nil, body)
	assert.True(t, tr.Node(fn).Arrow)
	assert.Equal(t, Nil, tr.Child(fn, "id"))
	assert.Equal(t, body, tr.Child(fn, "body"))
	assert.Empty(t, tr.Children(fn, "params"))

	ret := tr.Return(Nil)
	assert.Equal(t, Nil, tr.Child(ret, "argument"))

	ifs := tr.If(tr.Identifier("x"), tr.Block(nil), Nil)
	assert.Equal(t, Nil, tr.Child(ifs, "alternate"))

	lit := tr.StringLiteral(`say "hi"`)
	v, ok := tr.StringValue(lit)
	require.True(t, ok)
	assert.Equal(t, `say "hi"`, v)
	assert.Equal(t, `"say \"hi\""`, tr.Node(lit).Raw)

	num := tr.Literal("42", "42")
	_, ok = tr.StringValue(num)
	assert.False(t, ok)
}

func TestFactory_RequiredChildPanics(t *testing.T) {
	tr := NewTree("p.js")
	assert.Panics(t, func() { tr.Call(Nil, nil) })
	assert.Panics(t, func() { tr.Member(tr.Identifier("a"), Nil) })
	assert.Panics(t, func() { tr.Identifier("") })
	assert.Panics(t, func() { tr.Raw("x", []string{"a"}, []NodeID{tr.Identifier("b")}) })
}

func TestReplace_ByIdentityNotShape(t *testing.T) {
	tr, call, s1, s2 := buildSum(t)
	repl := tr.Identifier("r")

	require.NoError(t, tr.Replace(call, s2, repl))
	args := tr.Children(call, "arguments")
	assert.Equal(t, []NodeID{s1, repl}, args)
}

func TestReplace_SingleField(t *testing.T) {
	tr, call, _, _ := buildSum(t)
	callee := tr.Child(call, "callee")
	g := tr.Identifier("g")

	require.NoError(t, tr.Replace(call, callee, g))
	assert.Equal(t, g, tr.Child(call, "callee"))
}

func TestReplace_StructuralMismatch(t *testing.T) {
	tr, call, s1, _ := buildSum(t)
	stranger := tr.Identifier("stranger")

	err := tr.Replace(call, stranger, tr.Identifier("r"))
	require.ErrorIs(t, err, ErrStructuralMismatch)

	// A grandchild is not a child.
	left := tr.Child(s1, "left")
	err = tr.Replace(call, left, tr.Identifier("r"))
	require.ErrorIs(t, err, ErrStructuralMismatch)

	// The tree is untouched.
	assert.Equal(t, left, tr.Child(s1, "left"))

	err = tr.Replace(Nil, s1, stranger)
	require.ErrorIs(t, err, ErrStructuralMismatch)
}

func TestRemove_SequenceElement(t *testing.T) {
	tr, call, s1, s2 := buildSum(t)
	require.NoError(t, tr.Remove(call, s1))
	assert.Equal(t, []NodeID{s2}, tr.Children(call, "arguments"))
}

func TestRemove_NonOptional(t *testing.T) {
	tr, call, _, _ := buildSum(t)
	err := tr.Remove(call, tr.Child(call, "callee"))
	require.ErrorIs(t, err, ErrNonOptionalRemoval)
}

func TestRemove_NotFound(t *testing.T) {
	tr, call, _, _ := buildSum(t)
	err := tr.Remove(call, tr.Identifier("nope"))
	require.ErrorIs(t, err, ErrStructuralMismatch)
}

func TestRemove_RawKeepsSegmentsAligned(t *testing.T) {
	tr := NewTree("r.js")
	a, b := tr.Identifier("a"), tr.Identifier("b")
	raw := tr.Raw("pair", []string{"[", ", ", "]"}, []NodeID{a, b})

	require.NoError(t, tr.Remove(raw, a))
	assert.Equal(t, []string{"[", "]"}, tr.Node(raw).Segments)
	assert.Equal(t, []NodeID{b}, tr.Children(raw, "children"))
}

func TestRemove_RawLastChildKeepsClosingText(t *testing.T) {
	tr := NewTree("r.js")
	a, b := tr.Identifier("a"), tr.Identifier("b")
	raw := tr.Raw("args", []string{"(", ", ", ")"}, []NodeID{a, b})

	require.NoError(t, tr.Remove(raw, b))
	assert.Equal(t, []string{"(", ")"}, tr.Node(raw).Segments)
	assert.Equal(t, []NodeID{a}, tr.Children(raw, "children"))

	require.NoError(t, tr.Remove(raw, a))
	assert.Equal(t, []string{"()"}, tr.Node(raw).Segments)
	assert.Empty(t, tr.Children(raw, "children"))
}

func TestRemove_RawMiddleChild(t *testing.T) {
	tr := NewTree("r.js")
	a, b, c := tr.Identifier("a"), tr.Identifier("b"), tr.Identifier("c")
	raw := tr.Raw("args", []string{"(", ", ", "; ", ")"}, []NodeID{a, b, c})

	require.NoError(t, tr.Remove(raw, b))
	assert.Equal(t, []string{"(", "; ", ")"}, tr.Node(raw).Segments)
	assert.Equal(t, []NodeID{a, c}, tr.Children(raw, "children"))
}

func TestInsert(t *testing.T) {
	tr := NewTree("i.js")
	s1 := tr.ExpressionStmt(tr.Identifier("a"))
	s2 := tr.ExpressionStmt(tr.Identifier("b"))
	blk := tr.Block([]NodeID{s1})

	require.NoError(t, tr.Insert(blk, "body", 0, s2))
	assert.Equal(t, []NodeID{s2, s1}, tr.Children(blk, "body"))

	assert.Error(t, tr.Insert(blk, "body", 5, s2))
	assert.Error(t, tr.Insert(blk, "nope", 0, s2))

	raw := tr.Raw("list", []string{"(", ")"}, []NodeID{s1})
	require.NoError(t, tr.Insert(raw, "children", 1, s2))
	assert.Equal(t, []string{"(", "", ")"}, tr.Node(raw).Segments)
	assert.Equal(t, []NodeID{s1, s2}, tr.Children(raw, "children"))
}

func TestInsert_RawKeepsOuterSegments(t *testing.T) {
	tr := NewTree("i.js")
	a, b := tr.Identifier("a"), tr.Identifier("b")
	raw := tr.Raw("args", []string{"(", ", ", ")"}, []NodeID{a, b})

	first := tr.Identifier("first")
	require.NoError(t, tr.Insert(raw, "children", 0, first))
	assert.Equal(t, []string{"(", "", ", ", ")"}, tr.Node(raw).Segments)

	last := tr.Identifier("last")
	require.NoError(t, tr.Insert(raw, "children", 3, last))
	assert.Equal(t, []string{"(", "", ", ", "", ")"}, tr.Node(raw).Segments)
	assert.Equal(t, []NodeID{first, a, b, last}, tr.Children(raw, "children"))
}

func TestSetChild(t *testing.T) {
	tr := NewTree("s.js")
	ret := tr.Return(Nil)
	x := tr.Identifier("x")
	require.NoError(t, tr.SetChild(ret, "argument", x))
	assert.Equal(t, x, tr.Child(ret, "argument"))
	assert.Error(t, tr.SetChild(ret, "body", x))
}

func TestWalk_PostOrderWithAncestors(t *testing.T) {
	tr, call, s1, s2 := buildSum(t)

	var order []NodeID
	var chains [][]NodeID
	tr.Walk(tr.Root, Visitors{
		KindBinary: func(id NodeID, ancestors []NodeID) {
			order = append(order, id)
			chains = append(chains, append([]NodeID(nil), ancestors...))
		},
	})

	require.Equal(t, []NodeID{s1, s2}, order)
	stmt := tr.Children(tr.Root, "body")[0]
	assert.Equal(t, []NodeID{tr.Root, stmt, call}, chains[0])
}

func TestWalk_ChildrenBeforeParent(t *testing.T) {
	tr := NewTree("n.js")
	inner := tr.Binary("+", tr.Identifier("a"), tr.Identifier("b"))
	outer := tr.Binary("*", inner, tr.Identifier("c"))
	tr.Root = tr.Program([]NodeID{tr.ExpressionStmt(outer)})

	var order []NodeID
	tr.Walk(tr.Root, Visitors{
		KindBinary: func(id NodeID, _ []NodeID) { order = append(order, id) },
	})
	assert.Equal(t, []NodeID{inner, outer}, order)
}

func TestWalk_ReplaceInParentDuringVisit(t *testing.T) {
	tr := NewTree("n.js")
	inner := tr.Binary("+", tr.Identifier("a"), tr.Identifier("b"))
	outer := tr.Binary("+", inner, tr.Identifier("c"))
	stmt := tr.ExpressionStmt(outer)
	tr.Root = tr.Program([]NodeID{stmt})

	tr.Walk(tr.Root, Visitors{
		KindBinary: func(id NodeID, ancestors []NodeID) {
			call := tr.Call(tr.Identifier("add", From(id)),
				[]NodeID{tr.Child(id, "left"), tr.Child(id, "right")}, From(id))
			require.NoError(t, tr.Replace(ancestors[len(ancestors)-1], id, call))
		},
	})

	top := tr.Child(stmt, "expression")
	require.True(t, tr.Is(top, KindCall))
	first := tr.Children(top, "arguments")[0]
	assert.True(t, tr.Is(first, KindCall), "inner sum must be rewritten before the outer one")
}

func TestCollect_CopiesChains(t *testing.T) {
	tr, call, s1, s2 := buildSum(t)
	matches := tr.Collect(tr.Root, nil, KindBinary, KindCall)
	require.Len(t, matches, 3)
	assert.Equal(t, s1, matches[0].Node)
	assert.Equal(t, s2, matches[1].Node)
	assert.Equal(t, call, matches[2].Node)
	assert.Equal(t, call, matches[0].Parent())

	matches[0].Ancestors[0] = Nil
	assert.Equal(t, tr.Root, matches[1].Ancestors[0])

	sub := tr.Collect(s1, []NodeID{tr.Root, call}, KindIdentifier)
	require.Len(t, sub, 2)
	assert.Equal(t, []NodeID{tr.Root, call, s1}, sub[0].Ancestors)

	assert.Equal(t, Nil, Match{Node: tr.Root}.Parent())
}
