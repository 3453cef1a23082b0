package extensions

import (
	"strings"

	"github.com/jward/jsnext"
	"github.com/jward/jsnext/internal/ast"
)

// ReplaceQualifiedAccessors rewrites member accesses on the identifier name
// to go through newName, which may itself be dotted:
//
//	Math.sin(a)  =>  X.Math.sin(a)
func ReplaceQualifiedAccessors(name, newName string) jsnext.Mutator {
	return jsnext.MutatorFunc(func(mc *jsnext.MutationContext, target ast.NodeID, ancestors []ast.NodeID) error {
		t := mc.Tree
		var err error
		t.WalkFrom(target, ancestors, ast.Visitors{
			ast.KindMember: func(id ast.NodeID, _ []ast.NodeID) {
				obj := t.Child(id, "object")
				if err != nil || !t.IsIdentifierNamed(obj, name) {
					return
				}
				err = t.SetChild(id, "object", qualified(t, newName, obj))
			},
		})
		return err
	})
}

// qualified builds a.b.c from a dotted name, located at origin.
func qualified(t *ast.Tree, dotted string, origin ast.NodeID) ast.NodeID {
	parts := strings.Split(dotted, ".")
	id := t.Identifier(parts[0], ast.From(origin))
	for _, p := range parts[1:] {
		id = t.Member(id, t.Identifier(p, ast.From(origin)), ast.From(origin))
	}
	return id
}
