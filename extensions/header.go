package extensions

import (
	"log/slog"

	"github.com/jward/jsnext"
	"github.com/jward/jsnext/internal/ast"
)

// InsertHeader prepends raw, verbatim, to the body of the target function.
// When the target is an immediately invoked function the header goes into
// the invoked function. An expression-bodied arrow gets a block body first.
//
// The header is not parsed. Register it after every other mutator so no
// other pass has to look at it.
func InsertHeader(raw string) jsnext.Mutator {
	return jsnext.MutatorFunc(func(mc *jsnext.MutationContext, target ast.NodeID, _ []ast.NodeID) error {
		t := mc.Tree
		fn := target
		if t.Is(fn, ast.KindCall) {
			fn = t.Child(fn, "callee")
		}
		if !t.Is(fn, ast.KindFunction) {
			mc.Logger.Debug("header.skip",
				slog.String("kind", t.Kind(fn).String()),
				slog.String("at", t.Node(target).Loc.String()))
			return nil
		}
		body := t.Child(fn, "body")
		if !t.Is(body, ast.KindBlock) {
			block := t.Block([]ast.NodeID{t.Return(body, ast.From(body))}, ast.From(body))
			if err := t.SetChild(fn, "body", block); err != nil {
				return err
			}
			body = block
		}
		return t.Insert(body, "body", 0, t.RawText(raw, ast.From(target)))
	})
}
