package jsnext

import (
	"context"
	"log/slog"
	"sort"

	"github.com/jward/jsnext/internal/ast"
)

// MutationContext is what a mutator gets besides its target: the tree to
// edit and a description of the run.
type MutationContext struct {
	Tree     *ast.Tree
	FileName string
	// Tag is the extension tag the mutator was registered under.
	Tag    string
	Logger *slog.Logger

	ctx context.Context
}

// Context returns the context of the pipeline run.
func (mc *MutationContext) Context() context.Context {
	if mc.ctx == nil {
		return context.Background()
	}
	return mc.ctx
}

// Mutator edits the subtree at target in place. ancestors runs from the
// program root to the apply-site call, so the call is the last element.
// Success is signalled by mutation alone; a returned error aborts the run.
type Mutator interface {
	Mutate(mc *MutationContext, target ast.NodeID, ancestors []ast.NodeID) error
}

// MutatorFunc adapts a plain function to the Mutator interface.
type MutatorFunc func(mc *MutationContext, target ast.NodeID, ancestors []ast.NodeID) error

// Mutate calls f.
func (f MutatorFunc) Mutate(mc *MutationContext, target ast.NodeID, ancestors []ast.NodeID) error {
	return f(mc, target, ancestors)
}

// Registry maps extension tags to the mutators that implement them, run in
// list order. It is only read during a run.
type Registry map[string][]Mutator

// Register appends mutators to tag.
func (r Registry) Register(tag string, m ...Mutator) Registry {
	r[tag] = append(r[tag], m...)
	return r
}

// Tags returns the registered tags in sorted order.
func (r Registry) Tags() []string {
	tags := make([]string, 0, len(r))
	for tag := range r {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Merge returns a new registry with the mutators of r followed by those of
// other for every tag.
func (r Registry) Merge(other Registry) Registry {
	out := make(Registry, len(r)+len(other))
	for tag, ms := range r {
		out[tag] = append([]Mutator(nil), ms...)
	}
	for tag, ms := range other {
		out[tag] = append(out[tag], ms...)
	}
	return out
}
