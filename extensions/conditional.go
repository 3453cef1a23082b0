package extensions

import (
	"github.com/jward/jsnext"
	"github.com/jward/jsnext/internal/ast"
)

// OverloadIfThenElse rewrites if statements in the target into calls of
// name with the test and the branches as thunks:
//
//	if (t) { a } else { b }  =>  name(t, () => { a }, () => { b });
//
// Nested ifs are rewritten inside out.
func OverloadIfThenElse(name string) jsnext.Mutator {
	return jsnext.MutatorFunc(func(mc *jsnext.MutationContext, target ast.NodeID, ancestors []ast.NodeID) error {
		t := mc.Tree
		var err error
		t.WalkFrom(target, ancestors, ast.Visitors{
			ast.KindIf: func(id ast.NodeID, chain []ast.NodeID) {
				if err != nil || len(chain) == 0 {
					return
				}
				cons := t.Child(id, "consequent")
				args := []ast.NodeID{
					t.Child(id, "test"),
					t.Arrow(nil, asBlock(t, cons), ast.From(cons)),
				}
				if alt := t.Child(id, "alternate"); alt != ast.Nil {
					args = append(args, t.Arrow(nil, asBlock(t, alt), ast.From(alt)))
				}
				call := t.Call(t.Identifier(name, ast.From(id)), args, ast.From(id))
				err = t.Replace(chain[len(chain)-1], id, t.ExpressionStmt(call, ast.From(id)))
			},
		})
		return err
	})
}

// asBlock returns stmt if it is a block, or a new block holding it.
func asBlock(t *ast.Tree, stmt ast.NodeID) ast.NodeID {
	if t.Is(stmt, ast.KindBlock) {
		return stmt
	}
	return t.Block([]ast.NodeID{stmt}, ast.From(stmt))
}
