// Package parser turns JavaScript source into an ast.Tree using the
// tree-sitter JavaScript grammar.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/jward/jsnext/internal/ast"
)

// ErrSyntax is returned (wrapped in a *SyntaxError) when the input does not
// parse cleanly.
var ErrSyntax = errors.New("syntax error")

// SyntaxError locates the first error or missing node in the parse.
type SyntaxError struct {
	Loc  ast.Loc
	Near string
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("%s: %s", e.Loc, ErrSyntax)
	}
	return fmt.Sprintf("%s: %s near %q", e.Loc, ErrSyntax, e.Near)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Options configures a parse.
type Options struct {
	// SourceName labels locations and diagnostics, usually the file path.
	SourceName string
}

var extensions = map[string]bool{
	".js":  true,
	".mjs": true,
	".cjs": true,
	".jsx": true,
}

// SupportsFile reports whether path has a JavaScript extension the parser
// handles. Matching is case-insensitive.
func SupportsFile(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// Parse parses src into a new tree. Locations are always tracked.
func Parse(ctx context.Context, src []byte, opts Options) (*ast.Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(javascript.GetLanguage())

	cst, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parser: tree-sitter parse failed: %w", err)
	}
	defer cst.Close()

	root := cst.RootNode()
	if root.HasError() {
		if bad := firstError(root); bad != nil {
			l := &lowerer{src: src, name: opts.SourceName}
			near := l.text(bad)
			if len(near) > 40 {
				near = near[:40]
			}
			return nil, &SyntaxError{Loc: l.loc(bad), Near: near}
		}
		return nil, &SyntaxError{Loc: ast.Loc{Source: opts.SourceName, StartLine: 1, EndLine: 1}}
	}

	l := &lowerer{
		src:  src,
		name: opts.SourceName,
		tree: ast.NewTree(opts.SourceName),
	}
	l.tree.Text = string(src)
	l.tree.Root = l.program(root)
	return l.tree, nil
}

// firstError returns the first ERROR or missing node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}
