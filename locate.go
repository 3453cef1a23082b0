package jsnext

import (
	"log/slog"

	"github.com/jward/jsnext/internal/ast"
)

// ApplySite is a call of the apply method on a binding.
type ApplySite struct {
	Call ast.NodeID
	// Ancestors runs from the program root to the call's parent. It
	// excludes the call and its callee.
	Ancestors []ast.NodeID
}

// Parent returns the node holding the call.
func (s ApplySite) Parent() ast.NodeID {
	if len(s.Ancestors) == 0 {
		return ast.Nil
	}
	return s.Ancestors[len(s.Ancestors)-1]
}

// LocateApplySites walks t in post-order and calls handle for every
// binding.method(...) call. A handler error stops the walk and is returned.
//
// A matching member access that is not the callee of a call (for example
// `lib.apply` passed as a value) is skipped. Handlers may splice the call out
// of its parent; the walk goes on into the call's arguments, so apply-sites
// nested in a body are found after the enclosing site was expanded.
func LocateApplySites(t *ast.Tree, b Bindings, method string, logger *slog.Logger, handle func(ApplySite) error) error {
	if len(b) == 0 {
		return nil
	}
	if logger == nil {
		logger = discardLogger()
	}
	var err error
	t.Walk(t.Root, ast.Visitors{
		ast.KindMember: func(id ast.NodeID, ancestors []ast.NodeID) {
			if err != nil {
				return
			}
			n := t.Node(id)
			if n.Computed || !t.IsIdentifierNamed(t.Child(id, "property"), method) {
				return
			}
			obj := t.Child(id, "object")
			if !t.Is(obj, ast.KindIdentifier) || !b.Has(t.Node(obj).Name) {
				return
			}
			if len(ancestors) == 0 {
				return
			}
			call := ancestors[len(ancestors)-1]
			if !t.Is(call, ast.KindCall) || t.Child(call, "callee") != id {
				logger.Debug("apply.skip",
					slog.String("reason", "not called"),
					slog.String("at", n.Loc.String()))
				return
			}
			chain := make([]ast.NodeID, len(ancestors)-1)
			copy(chain, ancestors)
			err = handle(ApplySite{Call: call, Ancestors: chain})
		},
	})
	return err
}
