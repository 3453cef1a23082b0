package jsnext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jward/jsnext/internal/ast"
)

// ErrUnsupportedShape is returned when an apply-site call does not have one
// or two arguments.
var ErrUnsupportedShape = errors.New("unsupported apply-site shape")

// SiteReport describes one expanded apply-site.
type SiteReport struct {
	Line int      `json:"line"`
	Col  int      `json:"col"`
	Tags []string `json:"tags"`
}

// dispatcher runs the registered mutators for each apply-site and splices
// the result into the tree.
type dispatcher struct {
	ctx      context.Context
	tree     *ast.Tree
	reg      Registry
	cfg      Config
	fileName string

	sites []SiteReport
}

func (d *dispatcher) dispatch(site ApplySite) error {
	if err := d.ctx.Err(); err != nil {
		return err
	}
	t := d.tree
	loc := t.Node(site.Call).Loc
	args := t.Children(site.Call, "arguments")

	var (
		tags    []string
		bodyIdx int
	)
	switch len(args) {
	case 2:
		siteTags, ok := readTags(t, args[0])
		if !ok {
			d.cfg.Logger.Warn("tags.degraded",
				slog.String("at", loc.String()),
				slog.String("kind", t.Kind(args[0]).String()))
		}
		tags = append(append(tags, d.cfg.DefaultTags...), siteTags...)
		bodyIdx = 1
	case 1:
		tags = append(tags, d.cfg.DefaultTags...)
	default:
		return fmt.Errorf("jsnext: %s: %d arguments to %s: %w",
			loc, len(args), d.cfg.Method, ErrUnsupportedShape)
	}

	body := args[bodyIdx]
	chain := make([]ast.NodeID, len(site.Ancestors)+1)
	copy(chain, site.Ancestors)
	chain[len(site.Ancestors)] = site.Call

	for _, tag := range tags {
		ms, ok := d.reg[tag]
		if !ok {
			d.cfg.Logger.Debug("tag.unregistered", slog.String("tag", tag), slog.String("at", loc.String()))
			continue
		}
		mc := &MutationContext{
			Tree:     t,
			FileName: d.fileName,
			Tag:      tag,
			Logger:   d.cfg.Logger.With(slog.String("tag", tag)),
			ctx:      d.ctx,
		}
		for _, m := range ms {
			if err := m.Mutate(mc, body, chain); err != nil {
				return fmt.Errorf("jsnext: %s: extension %q: %w", loc, tag, err)
			}
		}
	}

	// A mutator may have replaced the body itself inside the call.
	if cur := t.Children(site.Call, "arguments"); len(cur) == len(args) {
		body = cur[bodyIdx]
	}
	if err := t.Replace(site.Parent(), site.Call, body); err != nil {
		return fmt.Errorf("jsnext: %s: splice: %w", loc, err)
	}

	d.sites = append(d.sites, SiteReport{Line: loc.StartLine, Col: loc.StartCol, Tags: tags})
	d.cfg.Logger.Debug("apply.expanded",
		slog.String("at", loc.String()),
		slog.Any("tags", tags))
	return nil
}

// readTags reads a string literal or an array of string literals. Anything
// else yields no tags; ok is false when something was discarded.
func readTags(t *ast.Tree, id ast.NodeID) (tags []string, ok bool) {
	if v, isStr := t.StringValue(id); isStr {
		return []string{v}, true
	}
	if !t.Is(id, ast.KindArray) {
		return nil, false
	}
	ok = true
	for _, el := range t.Children(id, "elements") {
		v, isStr := t.StringValue(el)
		if !isStr {
			ok = false
			continue
		}
		tags = append(tags, v)
	}
	return tags, ok
}
