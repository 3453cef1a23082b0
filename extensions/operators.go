// Package extensions holds sample mutators: operator overloading, if/else
// rewriting, qualified name rewriting and header injection.
package extensions

import (
	"github.com/jward/jsnext"
	"github.com/jward/jsnext/internal/ast"
)

// OverloadOperators rewrites operator expressions in the target into calls.
// rename receives "prefix<op>" for unary operators and prefix updates,
// "postfix<op>" for postfix updates, and the bare operator for binary ones,
// and returns the function to call. An empty name leaves the expression as
// it is.
//
//	a + b  =>  add(a, b)
//	!a     =>  not(a)
func OverloadOperators(rename func(op string) string) jsnext.Mutator {
	return jsnext.MutatorFunc(func(mc *jsnext.MutationContext, target ast.NodeID, ancestors []ast.NodeID) error {
		t := mc.Tree
		var err error
		rewrite := func(id ast.NodeID, chain []ast.NodeID, op string, args ...ast.NodeID) {
			if err != nil || len(chain) == 0 {
				return
			}
			name := rename(op)
			if name == "" {
				return
			}
			call := t.Call(t.Identifier(name, ast.From(id)), args, ast.From(id))
			err = t.Replace(chain[len(chain)-1], id, call)
		}

		t.WalkFrom(target, ancestors, ast.Visitors{
			ast.KindUnary: func(id ast.NodeID, chain []ast.NodeID) {
				rewrite(id, chain, "prefix"+t.Node(id).Op, t.Child(id, "argument"))
			},
			ast.KindUpdate: func(id ast.NodeID, chain []ast.NodeID) {
				n := t.Node(id)
				fix := "postfix"
				if n.Prefix {
					fix = "prefix"
				}
				rewrite(id, chain, fix+n.Op, t.Child(id, "argument"))
			},
			ast.KindBinary: func(id ast.NodeID, chain []ast.NodeID) {
				rewrite(id, chain, t.Node(id).Op, t.Child(id, "left"), t.Child(id, "right"))
			},
		})
		return err
	})
}

// OperatorNames maps operators to readable function names, for use with
// OverloadOperators.
func OperatorNames(names map[string]string) func(op string) string {
	return func(op string) string { return names[op] }
}
