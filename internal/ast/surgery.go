package ast

import (
	"errors"
	"fmt"
)

var (
	// ErrStructuralMismatch means the node to act on is not a child of the
	// stated parent, usually because an earlier edit already moved it.
	ErrStructuralMismatch = errors.New("structural mismatch")
	// ErrNonOptionalRemoval means the node sits in a single-valued field,
	// and removing it would leave the parent invalid.
	ErrNonOptionalRemoval = errors.New("cannot remove non-optional value")
)

// Slot is the address of one child position: field index and element index
// within the parent's Fields.
type Slot struct {
	Parent NodeID
	Field  int
	Index  int
}

// Locate finds the first slot in parent holding child, scanning fields in
// declaration order and sequence elements left to right. Nodes are compared
// by identity, never by shape.
func (t *Tree) Locate(parent, child NodeID) (Slot, error) {
	if !t.Valid(parent) || !t.Valid(child) {
		return Slot{}, fmt.Errorf("ast: locate %d in %d: %w", child, parent, ErrStructuralMismatch)
	}
	n := t.Node(parent)
	for fi, f := range n.Fields {
		for i, c := range f.Nodes {
			if c == child {
				return Slot{Parent: parent, Field: fi, Index: i}, nil
			}
		}
	}
	return Slot{}, fmt.Errorf("ast: %s is not a child of %s: %w",
		t.describe(child), t.describe(parent), ErrStructuralMismatch)
}

// ReplaceAt overwrites the child at slot.
func (t *Tree) ReplaceAt(s Slot, newNode NodeID) {
	t.Node(s.Parent).Fields[s.Field].Nodes[s.Index] = newNode
}

// Replace substitutes newNode for oldNode in parent. It fails with
// ErrStructuralMismatch when oldNode is not one of parent's children.
func (t *Tree) Replace(parent, oldNode, newNode NodeID) error {
	s, err := t.Locate(parent, oldNode)
	if err != nil {
		return err
	}
	t.ReplaceAt(s, newNode)
	return nil
}

// Remove deletes oldNode from a sequence field of parent, shifting later
// elements left. Nodes found in single-valued fields cannot be removed.
func (t *Tree) Remove(parent, oldNode NodeID) error {
	s, err := t.Locate(parent, oldNode)
	if err != nil {
		return err
	}
	n := t.Node(parent)
	f := &n.Fields[s.Field]
	if !f.Seq {
		return fmt.Errorf("ast: remove %s from %s.%s: %w",
			t.describe(oldNode), n.Kind, f.Name, ErrNonOptionalRemoval)
	}
	f.Nodes = append(f.Nodes[:s.Index], f.Nodes[s.Index+1:]...)
	if n.Kind == KindRaw {
		// Drop the separator before the child, or after it for the first
		// child, so the leading and trailing text stay in place.
		switch {
		case s.Index > 0:
			n.Segments = append(n.Segments[:s.Index], n.Segments[s.Index+1:]...)
		case len(n.Segments) > 2:
			n.Segments = append(n.Segments[:1], n.Segments[2:]...)
		default:
			n.Segments = []string{n.Segments[0] + n.Segments[1]}
		}
	}
	return nil
}

func (t *Tree) describe(id NodeID) string {
	if !t.Valid(id) {
		return fmt.Sprintf("node#%d", id)
	}
	return fmt.Sprintf("%s#%d", t.Node(id).Kind, id)
}
