// Package runtime runs mutators written as Risor scripts. A script sees the
// apply-site it was dispatched for as integer node handles and edits the
// tree through host functions.
package runtime

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"github.com/zeebo/xxh3"

	"github.com/jward/jsnext/internal/ast"
)

const (
	// extDir holds one script per extension tag: ext/<tag>.risor.
	extDir = "ext"
	// libDir holds modules scripts may import.
	libDir = "lib"

	scriptExt = ".risor"
)

// Runtime embeds a Risor VM and provides tree host functions to mutator
// scripts. It is safe for concurrent use; every run gets its own globals.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger

	mu      sync.Mutex
	sources map[string]string
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Risor imports resolve from lib/ in the same FS.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger sets the logger behind the scripts' log global.
func WithRuntimeLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime loading scripts from scriptsDir unless an
// fs.FS is configured.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		sources:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Env is the apply-site a script mutator runs for.
type Env struct {
	Tree     *ast.Tree
	FileName string
	Tag      string
	Target   ast.NodeID
	// Ancestors runs from the program root to the apply-site call.
	Ancestors []ast.NodeID
	Logger    *slog.Logger
}

// Mutate runs the script registered for env.Tag against env.Target.
func (r *Runtime) Mutate(ctx context.Context, env Env) error {
	return r.RunScript(ctx, ScriptPath(env.Tag), r.treeGlobals(env))
}

// RunScript loads and executes a Risor script with the standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly. Useful for testing
// without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer rooted at lib/ of the script
// source, or nil when no source is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		sub, err := fs.Sub(r.fsys, libDir)
		if err != nil {
			return nil
		}
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    sub,
			Extensions:  []string{scriptExt},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   filepath.Join(r.scriptsDir, libDir),
			Extensions:  []string{scriptExt},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code. Sources are
// cached per path for the lifetime of the Runtime.
func (r *Runtime) LoadScript(p string) (string, error) {
	r.mu.Lock()
	src, ok := r.sources[p]
	r.mu.Unlock()
	if ok {
		return src, nil
	}

	data, err := r.readScript(p)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.sources[p] = string(data)
	r.mu.Unlock()
	return string(data), nil
}

func (r *Runtime) readScript(p string) ([]byte, error) {
	if r.fsys != nil {
		// fs.FS paths are slash-separated and relative.
		fsPath := strings.TrimPrefix(filepath.ToSlash(p), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return nil, fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return data, nil
	}

	fullPath := p
	if !filepath.IsAbs(p) {
		fullPath = filepath.Join(r.scriptsDir, p)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return data, nil
}

// ScriptPath returns the path of the script implementing tag.
func ScriptPath(tag string) string {
	return path.Join(extDir, tag+scriptExt)
}

// source returns the script tree as an fs.FS, or nil when none is set.
func (r *Runtime) source() fs.FS {
	if r.fsys != nil {
		return r.fsys
	}
	if r.scriptsDir != "" {
		return os.DirFS(r.scriptsDir)
	}
	return nil
}

// Tags lists the extension tags that have a script, sorted.
func (r *Runtime) Tags() ([]string, error) {
	src := r.source()
	if src == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(src, extDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("runtime: list scripts: %w", err)
	}
	var tags []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, scriptExt) {
			continue
		}
		tags = append(tags, strings.TrimSuffix(name, scriptExt))
	}
	sort.Strings(tags)
	return tags, nil
}

// Hash fingerprints every script and library module, so cached expansions
// can be invalidated when scripts change.
func (r *Runtime) Hash() (string, error) {
	h := xxh3.New()
	src := r.source()
	if src == nil {
		return hex.EncodeToString(h.Sum(nil)), nil
	}
	for _, dir := range []string{extDir, libDir} {
		err := fs.WalkDir(src, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && p == dir {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() || !strings.HasSuffix(p, scriptExt) {
				return nil
			}
			data, err := fs.ReadFile(src, p)
			if err != nil {
				return err
			}
			h.WriteString(p)
			h.Write([]byte{0})
			h.Write(data)
			h.Write([]byte{0})
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("runtime: hash scripts: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// buildGlobals constructs the globals every script sees.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{logger: r.logger}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// logObject provides log.Debug/Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg) }

func (l *logObject) Info(msg string) { l.logger.Info(msg) }

func (l *logObject) Warn(msg string) { l.logger.Warn(msg) }

func (l *logObject) Error(msg string) { l.logger.Error(msg) }
