package jsnext

import (
	"github.com/jward/jsnext/internal/ast"
	"github.com/jward/jsnext/internal/runtime"
)

// scriptMutator runs the Risor script named after the tag it was
// dispatched for.
type scriptMutator struct {
	rt *runtime.Runtime
}

func (s scriptMutator) Mutate(mc *MutationContext, target ast.NodeID, ancestors []ast.NodeID) error {
	return s.rt.Mutate(mc.Context(), runtime.Env{
		Tree:      mc.Tree,
		FileName:  mc.FileName,
		Tag:       mc.Tag,
		Target:    target,
		Ancestors: ancestors,
		Logger:    mc.Logger,
	})
}

// scriptRegistry returns a registry with one script mutator for every tag
// rt has a script for.
func scriptRegistry(rt *runtime.Runtime) (Registry, error) {
	tags, err := rt.Tags()
	if err != nil {
		return nil, err
	}
	reg := make(Registry, len(tags))
	m := scriptMutator{rt: rt}
	for _, tag := range tags {
		reg.Register(tag, m)
	}
	return reg, nil
}
