package jsnext

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jward/jsnext/internal/ast"
	"github.com/jward/jsnext/internal/parser"
	"github.com/jward/jsnext/internal/printer"
)

// Result is the outcome of expanding one file.
type Result struct {
	// Code is the expanded source, or the input itself when nothing changed.
	Code string
	// Changed reports whether at least one apply-site was expanded.
	Changed bool
	Sites   []SiteReport
}

// Preprocess expands every apply-site in code and returns the new source.
// Code without apply-sites is returned unchanged. On error the returned
// string is empty and the caller should keep its input.
func Preprocess(ctx context.Context, fileName, code string, reg Registry, cfg Config) (string, error) {
	res, err := PreprocessWithReport(ctx, fileName, code, reg, cfg)
	if err != nil {
		return "", err
	}
	return res.Code, nil
}

// PreprocessWithReport is Preprocess with a description of the expanded
// sites.
func PreprocessWithReport(ctx context.Context, fileName, code string, reg Registry, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	tree, err := parser.Parse(ctx, []byte(code), parser.Options{SourceName: fileName})
	if err != nil {
		return nil, fmt.Errorf("jsnext: parse %s: %w", fileName, err)
	}

	sites, err := ExpandTree(ctx, tree, fileName, reg, cfg)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return &Result{Code: code}, nil
	}

	out, err := printer.Print(tree, printer.Options{})
	if err != nil {
		return nil, fmt.Errorf("jsnext: generate %s: %w", fileName, err)
	}
	return &Result{Code: out, Changed: true, Sites: sites}, nil
}

// ExpandTree expands the apply-sites of an already parsed tree in place and
// reports the sites it expanded. On error the tree may be partly rewritten.
func ExpandTree(ctx context.Context, tree *ast.Tree, fileName string, reg Registry, cfg Config) ([]SiteReport, error) {
	cfg = cfg.withDefaults()
	bindings := ResolveBindings(tree, cfg.Library)
	if len(bindings) == 0 {
		return nil, nil
	}
	cfg.Logger.Debug("bindings.resolved",
		slog.String("file", fileName),
		slog.Any("names", bindings.Names()))

	d := &dispatcher{ctx: ctx, tree: tree, reg: reg, cfg: cfg, fileName: fileName}
	if err := LocateApplySites(tree, bindings, cfg.Method, cfg.Logger, d.dispatch); err != nil {
		return nil, err
	}
	return d.sites, nil
}
