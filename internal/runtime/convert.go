package runtime

import (
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/jsnext/internal/ast"
)

// nodeObject converts a node handle for Risor; the nil node becomes nil.
func nodeObject(id ast.NodeID) object.Object {
	if id == ast.Nil {
		return object.Nil
	}
	return object.NewInt(int64(id))
}

func nodeList(ids []ast.NodeID) *object.List {
	out := make([]object.Object, 0, len(ids))
	for _, id := range ids {
		out = append(out, nodeObject(id))
	}
	return object.NewList(out)
}

// node converts a handle back, accepting nil as the nil node.
func (h *treeHost) node(obj object.Object) (ast.NodeID, error) {
	if _, ok := obj.(*object.NilType); ok {
		return ast.Nil, nil
	}
	v, err := toInt64(obj)
	if err != nil {
		return ast.Nil, fmt.Errorf("expected a node, got %s", obj.Type())
	}
	id := ast.NodeID(v)
	if !h.tree().Valid(id) {
		return ast.Nil, fmt.Errorf("no node %d", v)
	}
	return id, nil
}

// liveNode is node that rejects nil.
func (h *treeHost) liveNode(obj object.Object) (ast.NodeID, error) {
	id, err := h.node(obj)
	if err != nil {
		return ast.Nil, err
	}
	if id == ast.Nil {
		return ast.Nil, fmt.Errorf("expected a node, got nil")
	}
	return id, nil
}

func (h *treeHost) liveNodes(objs ...object.Object) ([]ast.NodeID, error) {
	ids := make([]ast.NodeID, 0, len(objs))
	for _, o := range objs {
		id, err := h.liveNode(o)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *treeHost) nodeSlice(obj object.Object) ([]ast.NodeID, error) {
	list, ok := obj.(*object.List)
	if !ok {
		return nil, fmt.Errorf("expected a list of nodes, got %s", obj.Type())
	}
	return h.liveNodes(list.Value()...)
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
