package runtime

import (
	"context"
	"fmt"
	"strconv"

	"github.com/risor-io/risor/object"

	"github.com/jward/jsnext/internal/ast"
	"github.com/jward/jsnext/internal/printer"
)

// treeHost holds the state behind the host functions of one script run.
// Nodes cross into Risor as integer handles.
type treeHost struct {
	env Env
}

// treeGlobals builds the globals a mutator script sees for env.
func (r *Runtime) treeGlobals(env Env) map[string]any {
	h := &treeHost{env: env}
	logger := env.Logger
	if logger == nil {
		logger = r.logger.With("tag", env.Tag, "file", env.FileName)
	}

	return map[string]any{
		"target":    nodeObject(env.Target),
		"ancestors": nodeList(env.Ancestors),
		"tag":       object.NewString(env.Tag),
		"file_name": object.NewString(env.FileName),
		"log":       mustProxy(&logObject{logger: logger}),

		// Inspection
		"kind":     h.builtin("kind", 1, h.kind),
		"attr":     h.builtin("attr", 2, h.attr),
		"set_attr": h.builtin("set_attr", 3, h.setAttr),
		"child":    h.builtin("child", 2, h.child),
		"children": h.builtin("children", 2, h.children),
		"nodes":    h.builtin("nodes", -1, h.nodes),
		"text":     h.builtin("text", 1, h.text),

		// Construction
		"identifier":  h.builtin("identifier", 1, h.identifier),
		"literal":     h.builtin("literal", 1, h.literal),
		"member":      h.builtin("member", 2, h.member),
		"call_expr":   h.builtin("call_expr", 2, h.call),
		"arrow":       h.builtin("arrow", 2, h.arrow),
		"block":       h.builtin("block", 1, h.block),
		"return_stmt": h.builtin("return_stmt", 1, h.returnStmt),
		"array":       h.builtin("array", 1, h.array),
		"binary":      h.builtin("binary", 3, h.binary),
		"expr_stmt":   h.builtin("expr_stmt", 1, h.exprStmt),
		"raw":         h.builtin("raw", 1, h.raw),

		// Surgery
		"replace": h.builtin("replace", 3, h.replace),
		"remove":  h.builtin("remove", 2, h.remove),
		"insert":  h.builtin("insert", 4, h.insert),
	}
}

// builtin wraps fn with an argument count check (nargs < 0 means variadic)
// and turns panics from the tree into script errors.
func (h *treeHost) builtin(name string, nargs int, fn func(args []object.Object) (object.Object, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) (result object.Object) {
		if nargs >= 0 && len(args) != nargs {
			return object.NewArgsError(name, nargs, len(args))
		}
		defer func() {
			if p := recover(); p != nil {
				result = object.Errorf("%s: %v", name, p)
			}
		}()
		out, err := fn(args)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		if out == nil {
			return object.Nil
		}
		return out
	})
}

func (h *treeHost) tree() *ast.Tree { return h.env.Tree }

// origin stamps new nodes with the location of the node being expanded.
func (h *treeHost) origin() ast.NodeOption { return ast.From(h.env.Target) }

// --- Inspection ---

func (h *treeHost) kind(args []object.Object) (object.Object, error) {
	id, err := h.node(args[0])
	if err != nil {
		return nil, err
	}
	if id == ast.Nil {
		return object.Nil, nil
	}
	return object.NewString(h.tree().Kind(id).String()), nil
}

func (h *treeHost) attr(args []object.Object) (object.Object, error) {
	id, err := h.node(args[0])
	if err != nil {
		return nil, err
	}
	name, err := toString(args[1])
	if err != nil {
		return nil, err
	}
	if id == ast.Nil {
		return object.Nil, nil
	}
	n := h.tree().Node(id)
	switch name {
	case "name", "type":
		return object.NewString(n.Name), nil
	case "value":
		return object.NewString(n.Value), nil
	case "raw":
		return object.NewString(n.Raw), nil
	case "op", "keyword":
		return object.NewString(n.Op), nil
	case "imported":
		return object.NewString(n.Imported), nil
	case "prefix":
		return object.NewBool(n.Prefix), nil
	case "computed":
		return object.NewBool(n.Computed), nil
	case "async":
		return object.NewBool(n.Async), nil
	case "generator":
		return object.NewBool(n.Generator), nil
	case "arrow":
		return object.NewBool(n.Arrow), nil
	case "line":
		return object.NewInt(int64(n.Loc.StartLine)), nil
	case "col":
		return object.NewInt(int64(n.Loc.StartCol)), nil
	}
	return nil, fmt.Errorf("unknown attribute %q", name)
}

func (h *treeHost) setAttr(args []object.Object) (object.Object, error) {
	id, err := h.liveNode(args[0])
	if err != nil {
		return nil, err
	}
	name, err := toString(args[1])
	if err != nil {
		return nil, err
	}
	n := h.tree().Node(id)
	switch name {
	case "name", "value", "raw", "op", "imported":
		s, err := toString(args[2])
		if err != nil {
			return nil, err
		}
		switch name {
		case "name":
			n.Name = s
		case "value":
			n.Value = s
		case "raw":
			n.Raw = s
		case "op":
			n.Op = s
		case "imported":
			n.Imported = s
		}
	case "prefix", "async", "generator":
		b, ok := args[2].(*object.Bool)
		if !ok {
			return nil, fmt.Errorf("%s expects a bool, got %s", name, args[2].Type())
		}
		switch name {
		case "prefix":
			n.Prefix = b.Value()
		case "async":
			n.Async = b.Value()
		case "generator":
			n.Generator = b.Value()
		}
	default:
		return nil, fmt.Errorf("attribute %q is not settable", name)
	}
	return object.Nil, nil
}

func (h *treeHost) child(args []object.Object) (object.Object, error) {
	id, err := h.liveNode(args[0])
	if err != nil {
		return nil, err
	}
	field, err := toString(args[1])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().Child(id, field)), nil
}

func (h *treeHost) children(args []object.Object) (object.Object, error) {
	id, err := h.liveNode(args[0])
	if err != nil {
		return nil, err
	}
	field, err := toString(args[1])
	if err != nil {
		return nil, err
	}
	return nodeList(h.tree().Children(id, field)), nil
}

// nodes(root, kinds...) returns every node of the given kinds below root
// in post-order, each as {"node", "parent", "ancestors"}.
func (h *treeHost) nodes(args []object.Object) (object.Object, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("expected a root and at least one kind, got %d arguments", len(args))
	}
	root, err := h.liveNode(args[0])
	if err != nil {
		return nil, err
	}
	kinds := make([]ast.Kind, 0, len(args)-1)
	for _, a := range args[1:] {
		s, err := toString(a)
		if err != nil {
			return nil, err
		}
		k, ok := ast.KindByName(s)
		if !ok {
			return nil, fmt.Errorf("unknown kind %q", s)
		}
		kinds = append(kinds, k)
	}

	matches := h.tree().Collect(root, h.chainTo(root), kinds...)
	out := make([]object.Object, 0, len(matches))
	for _, m := range matches {
		out = append(out, object.NewMap(map[string]object.Object{
			"node":      nodeObject(m.Node),
			"parent":    nodeObject(m.Parent()),
			"ancestors": nodeList(m.Ancestors),
		}))
	}
	return object.NewList(out), nil
}

// chainTo returns the known ancestors of id: the site's chain for the target
// or one of its ancestors, nothing otherwise.
func (h *treeHost) chainTo(id ast.NodeID) []ast.NodeID {
	if id == h.env.Target {
		return h.env.Ancestors
	}
	for i, a := range h.env.Ancestors {
		if a == id {
			return h.env.Ancestors[:i]
		}
	}
	return nil
}

func (h *treeHost) text(args []object.Object) (object.Object, error) {
	id, err := h.liveNode(args[0])
	if err != nil {
		return nil, err
	}
	s, err := printer.PrintNode(h.tree(), id, printer.Options{})
	if err != nil {
		return nil, err
	}
	return object.NewString(s), nil
}

// --- Construction ---

func (h *treeHost) identifier(args []object.Object) (object.Object, error) {
	name, err := toString(args[0])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().Identifier(name, h.origin())), nil
}

// literal builds a string, number, boolean or null literal from a Risor value.
func (h *treeHost) literal(args []object.Object) (object.Object, error) {
	t := h.tree()
	switch v := args[0].(type) {
	case *object.String:
		return nodeObject(t.StringLiteral(v.Value(), h.origin())), nil
	case *object.Int:
		s := strconv.FormatInt(v.Value(), 10)
		return nodeObject(t.Literal(s, s, h.origin())), nil
	case *object.Float:
		s := strconv.FormatFloat(v.Value(), 'g', -1, 64)
		return nodeObject(t.Literal(s, s, h.origin())), nil
	case *object.Bool:
		s := strconv.FormatBool(v.Value())
		return nodeObject(t.Literal(s, s, h.origin())), nil
	case *object.NilType:
		return nodeObject(t.Literal("null", "null", h.origin())), nil
	}
	return nil, fmt.Errorf("cannot build a literal from %s", args[0].Type())
}

// member(object, property) accepts a property name or an Identifier node.
func (h *treeHost) member(args []object.Object) (object.Object, error) {
	obj, err := h.liveNode(args[0])
	if err != nil {
		return nil, err
	}
	var prop ast.NodeID
	if s, ok := args[1].(*object.String); ok {
		prop = h.tree().Identifier(s.Value(), h.origin())
	} else if prop, err = h.liveNode(args[1]); err != nil {
		return nil, err
	}
	return nodeObject(h.tree().Member(obj, prop, h.origin())), nil
}

func (h *treeHost) call(args []object.Object) (object.Object, error) {
	callee, err := h.liveNode(args[0])
	if err != nil {
		return nil, err
	}
	list, err := h.nodeSlice(args[1])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().Call(callee, list, h.origin())), nil
}

func (h *treeHost) arrow(args []object.Object) (object.Object, error) {
	params, err := h.nodeSlice(args[0])
	if err != nil {
		return nil, err
	}
	body, err := h.liveNode(args[1])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().Arrow(params, body, h.origin())), nil
}

func (h *treeHost) block(args []object.Object) (object.Object, error) {
	body, err := h.nodeSlice(args[0])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().Block(body, h.origin())), nil
}

func (h *treeHost) returnStmt(args []object.Object) (object.Object, error) {
	arg, err := h.node(args[0])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().Return(arg, h.origin())), nil
}

func (h *treeHost) array(args []object.Object) (object.Object, error) {
	elems, err := h.nodeSlice(args[0])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().Array(elems, h.origin())), nil
}

func (h *treeHost) binary(args []object.Object) (object.Object, error) {
	op, err := toString(args[0])
	if err != nil {
		return nil, err
	}
	left, err := h.liveNode(args[1])
	if err != nil {
		return nil, err
	}
	right, err := h.liveNode(args[2])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().Binary(op, left, right, h.origin())), nil
}

func (h *treeHost) exprStmt(args []object.Object) (object.Object, error) {
	expr, err := h.liveNode(args[0])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().ExpressionStmt(expr, h.origin())), nil
}

func (h *treeHost) raw(args []object.Object) (object.Object, error) {
	text, err := toString(args[0])
	if err != nil {
		return nil, err
	}
	return nodeObject(h.tree().RawText(text, h.origin())), nil
}

// --- Surgery ---

func (h *treeHost) replace(args []object.Object) (object.Object, error) {
	ids, err := h.liveNodes(args...)
	if err != nil {
		return nil, err
	}
	return object.Nil, h.tree().Replace(ids[0], ids[1], ids[2])
}

func (h *treeHost) remove(args []object.Object) (object.Object, error) {
	ids, err := h.liveNodes(args...)
	if err != nil {
		return nil, err
	}
	return object.Nil, h.tree().Remove(ids[0], ids[1])
}

func (h *treeHost) insert(args []object.Object) (object.Object, error) {
	parent, err := h.liveNode(args[0])
	if err != nil {
		return nil, err
	}
	field, err := toString(args[1])
	if err != nil {
		return nil, err
	}
	index, err := toInt64(args[2])
	if err != nil {
		return nil, err
	}
	id, err := h.liveNode(args[3])
	if err != nil {
		return nil, err
	}
	return object.Nil, h.tree().Insert(parent, field, int(index), id)
}
