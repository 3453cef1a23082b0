package ast

// Visitor receives a matched node and its ancestor chain: root first,
// immediate parent last, the node itself excluded. The chain is only valid
// for the duration of the call; copy it to keep it.
type Visitor func(id NodeID, ancestors []NodeID)

// Visitors selects a callback per node kind.
type Visitors map[Kind]Visitor

// Walk traverses the subtree at root depth-first in document order (fields
// in declaration order, sequences left to right) and calls the visitor
// registered for each node's kind after its children have been visited.
//
// Because callbacks run after the subtree below them, a visitor may replace
// its own node in the immediate parent: the parent's remaining children are
// read from the tree as the walk reaches them. Edits to ancestors beyond
// that one slot are not safe while the walk is running.
func (t *Tree) Walk(root NodeID, visitors Visitors) {
	if !t.Valid(root) || len(visitors) == 0 {
		return
	}
	stack := make([]NodeID, 0, 32)
	t.walk(root, &stack, visitors)
}

// WalkFrom is Walk with a starting ancestor chain, for walks over a subtree
// whose context is already known.
func (t *Tree) WalkFrom(root NodeID, ancestors []NodeID, visitors Visitors) {
	if !t.Valid(root) || len(visitors) == 0 {
		return
	}
	stack := make([]NodeID, len(ancestors), len(ancestors)+32)
	copy(stack, ancestors)
	t.walk(root, &stack, visitors)
}

func (t *Tree) walk(id NodeID, stack *[]NodeID, visitors Visitors) {
	n := t.Node(id)
	*stack = append(*stack, id)
	for fi := 0; fi < len(n.Fields); fi++ {
		for i := 0; i < len(n.Fields[fi].Nodes); i++ {
			if c := n.Fields[fi].Nodes[i]; c != Nil {
				t.walk(c, stack, visitors)
			}
		}
	}
	*stack = (*stack)[:len(*stack)-1]
	if v, ok := visitors[n.Kind]; ok {
		s := *stack
		v(id, s[:len(s):len(s)])
	}
}

// Match is a node found by Collect together with a private copy of its
// ancestor chain.
type Match struct {
	Node      NodeID
	Ancestors []NodeID
}

// Parent returns the immediate parent, or Nil for the walk root.
func (m Match) Parent() NodeID {
	if len(m.Ancestors) == 0 {
		return Nil
	}
	return m.Ancestors[len(m.Ancestors)-1]
}

// Collect returns every node of the given kinds below root (root included),
// in the order Walk would visit them. Collecting first and editing afterwards
// lets callers make arbitrary edits without disturbing the traversal.
func (t *Tree) Collect(root NodeID, ancestors []NodeID, kinds ...Kind) []Match {
	var out []Match
	visitors := make(Visitors, len(kinds))
	for _, k := range kinds {
		visitors[k] = func(id NodeID, chain []NodeID) {
			cp := make([]NodeID, len(chain))
			copy(cp, chain)
			out = append(out, Match{Node: id, Ancestors: cp})
		}
	}
	t.WalkFrom(root, ancestors, visitors)
	return out
}
