package jsnext

import (
	"sort"

	"github.com/jward/jsnext/internal/ast"
)

// Bindings is the set of local names that refer to the library module.
type Bindings map[string]struct{}

// Has reports whether name is a binding.
func (b Bindings) Has(name string) bool {
	_, ok := b[name]
	return ok
}

// Names returns the bindings in sorted order.
func (b Bindings) Names() []string {
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ResolveBindings collects every local name bound to library, from
//
//	import x from 'library'          (first specifier of the import)
//	const x = require('library')     (any declaration keyword)
//
// A module bound under several names yields all of them.
func ResolveBindings(t *ast.Tree, library string) Bindings {
	b := make(Bindings)
	t.Walk(t.Root, ast.Visitors{
		ast.KindImport: func(id ast.NodeID, _ []ast.NodeID) {
			src, ok := t.StringValue(t.Child(id, "source"))
			if !ok || src != library {
				return
			}
			specs := t.Children(id, "specifiers")
			if len(specs) == 0 {
				return
			}
			if local := t.Child(specs[0], "local"); t.Is(local, ast.KindIdentifier) {
				b[t.Node(local).Name] = struct{}{}
			}
		},
		ast.KindCall: func(id ast.NodeID, ancestors []ast.NodeID) {
			if !isRequireOf(t, id, library) || len(ancestors) == 0 {
				return
			}
			decl := ancestors[len(ancestors)-1]
			if !t.Is(decl, ast.KindVarDeclarator) || t.Child(decl, "init") != id {
				return
			}
			if name := t.Child(decl, "id"); t.Is(name, ast.KindIdentifier) {
				b[t.Node(name).Name] = struct{}{}
			}
		},
	})
	return b
}

func isRequireOf(t *ast.Tree, call ast.NodeID, library string) bool {
	if !t.IsIdentifierNamed(t.Child(call, "callee"), "require") {
		return false
	}
	args := t.Children(call, "arguments")
	if len(args) != 1 {
		return false
	}
	v, ok := t.StringValue(args[0])
	return ok && v == library
}
