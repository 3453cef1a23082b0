package jsnext

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jward/jsnext/internal/parser"
	"github.com/jward/jsnext/internal/runtime"
	"github.com/jward/jsnext/internal/store"
)

// Engine expands files on disk: discovery, change detection against the
// expansion cache, parallel expansion with Go and script mutators, and a
// log of expanded apply-sites.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	registry   Registry
	cfg        Config
	scriptsDir string
	scriptsFS  fs.FS

	// useParallel enables the parallel expansion pipeline.
	useParallel bool
	// useCache skips files whose cache key matches the stored one.
	useCache bool
	// cacheSalt fingerprints mutator parameters the registry tags cannot show.
	cacheSalt string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the Go mutators. Script mutators for the same tag run
// after them.
func WithRegistry(reg Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithConfig sets the library, method and default tags. A logger set with
// WithLogger wins over cfg.Logger.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		logger := e.cfg.Logger
		e.cfg = cfg
		if cfg.Logger == nil {
			e.cfg.Logger = logger
		}
	}
}

// WithLogger sets the logger for the engine and every expansion it runs.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.cfg.Logger = l
	}
}

// WithParallel controls parallel expansion. When true (default), files are
// expanded by a bounded pool of goroutines and committed to the cache in a
// single transaction. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithCache controls reuse of cached expansions (default true). Results
// are still recorded when the cache is off.
func WithCache(enabled bool) Option {
	return func(e *Engine) {
		e.useCache = enabled
	}
}

// WithCacheSalt mixes salt into every cache key. Callers that build Go
// mutators from settings pass a fingerprint of those settings, so editing
// them invalidates earlier expansions.
func WithCacheSalt(salt string) Option {
	return func(e *Engine) {
		e.cacheSalt = salt
	}
}

// WithScriptsDir loads Risor mutator scripts from dir on disk.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS loads Risor mutator scripts from fsys, e.g. the embedded
// scripts.FS. It takes precedence over WithScriptsDir.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New creates an Engine whose expansion cache lives in a SQLite database at
// dbPath. An empty dbPath runs without a cache.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		registry:    Registry{},
		useParallel: true,
		useCache:    true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.withDefaults()

	if e.scriptsFS != nil || e.scriptsDir != "" {
		rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.cfg.Logger)}
		if e.scriptsFS != nil {
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
		}
		e.runtime = runtime.NewRuntime(e.scriptsDir, rtOpts...)
		scripted, err := scriptRegistry(e.runtime)
		if err != nil {
			return nil, fmt.Errorf("jsnext: load scripts: %w", err)
		}
		e.registry = e.registry.Merge(scripted)
	}

	if dbPath != "" {
		s, err := store.NewStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("jsnext: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("jsnext: migrate: %w", err)
		}
		e.store = s
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the expansion cache, or nil when running without one.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Registry returns the merged registry of Go and script mutators.
func (e *Engine) Registry() Registry {
	return e.registry
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// ExpandSource expands code held in memory with the engine's registry and
// configuration. The cache is not consulted.
func (e *Engine) ExpandSource(ctx context.Context, fileName, code string) (*Result, error) {
	return PreprocessWithReport(ctx, fileName, code, e.registry, e.cfg)
}

// scriptsHash fingerprints the script mutators, empty without scripts.
func (e *Engine) scriptsHash() (string, error) {
	if e.runtime == nil {
		return "", nil
	}
	return e.runtime.Hash()
}

// ScriptsChanged reports whether the scripts differ from those recorded by
// the last run. Cached expansions are keyed on the scripts hash anyway, so
// this is informational.
func (e *Engine) ScriptsChanged() (bool, error) {
	if e.store == nil {
		return true, nil
	}
	current, err := e.scriptsHash()
	if err != nil {
		return false, err
	}
	stored, err := e.store.GetMetadata(metaScriptsHash)
	if err != nil {
		return false, err
	}
	return stored == "" || stored != current, nil
}

const metaScriptsHash = "scripts_hash"

// cacheParts lists everything besides the file content that decides what
// an expansion produces.
func (e *Engine) cacheParts() ([]string, error) {
	hash, err := e.scriptsHash()
	if err != nil {
		return nil, err
	}
	return []string{
		e.cfg.Library,
		e.cfg.Method,
		strings.Join(e.cfg.DefaultTags, ","),
		strings.Join(e.registry.Tags(), ","),
		hash,
		e.cacheSalt,
	}, nil
}

// skipDirs are excluded when walking a directory.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
}

// ExpandDirectory expands every JavaScript file under root. Inside a git
// repository, git ls-files is used to respect .gitignore; otherwise the
// filesystem is walked, skipping hidden directories, node_modules, vendor
// and dist. Cached rows for files under root that no longer exist are
// dropped afterwards.
func (e *Engine) ExpandDirectory(ctx context.Context, root string) ([]FileResult, error) {
	paths, err := gitListFiles(root)
	if err != nil {
		e.cfg.Logger.Debug("discover.walk", slog.String("root", root), slog.Any("reason", err))
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	results, err := e.ExpandFiles(ctx, paths)
	if pruneErr := e.prune(root); pruneErr != nil && err == nil {
		err = pruneErr
	}
	return results, err
}

// prune drops cached rows for files under root that no longer exist.
func (e *Engine) prune(root string) error {
	if e.store == nil {
		return nil
	}
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("jsnext: prune: %w", err)
	}
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if _, err := os.Stat(f.Path); !os.IsNotExist(err) {
			continue
		}
		if err := e.store.DeleteFileData(f.ID); err != nil {
			return fmt.Errorf("jsnext: prune %s: %w", f.Path, err)
		}
		e.cfg.Logger.Debug("cache.pruned", slog.String("file", f.Path))
	}
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) JavaScript files under root.
func gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if parser.SupportsFile(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used when git is
// not available.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.SupportsFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// readSource reads a file to expand.
func readSource(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return content, nil
}
