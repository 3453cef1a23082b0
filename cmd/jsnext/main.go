package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jward/jsnext"
	"github.com/jward/jsnext/extensions"
	"github.com/jward/jsnext/internal/config"
	"github.com/jward/jsnext/internal/store"
	"github.com/jward/jsnext/scripts"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand. Flags the user sets override
// values from the config file.
type rootFlags struct {
	configPath string
	db         string
	scriptsDir string
	library    string
	method     string
	tags       string
	noCache    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "jsnext",
		Short:         "Expand apply-site macros in JavaScript sources",
		Long:          "jsnext finds apply-sites of a macro library in JavaScript files and rewrites them with Go and Risor extensions.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if flags.noColor {
				color.NoColor = true //nolint:reassign // library global
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default: .jsnext.yaml in cwd or $HOME)")
	pf.StringVar(&flags.db, "db", "", "cache database path (default: .jsnext/cache.db relative to repo root)")
	pf.StringVar(&flags.scriptsDir, "scripts-dir", "", "load extension scripts from disk instead of embedded")
	pf.StringVar(&flags.library, "library", "", "module whose bindings mark apply-sites")
	pf.StringVar(&flags.method, "method", "", "apply-site method name")
	pf.StringVar(&flags.tags, "tags", "", "comma-separated tags run at every apply-site")
	pf.BoolVar(&flags.noCache, "no-cache", false, "expand every file and skip the cache database")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newExpandCmd(flags))
	root.AddCommand(newSitesCmd(flags))
	root.AddCommand(newTagsCmd(flags))
	return root
}

// settings is the merged result of the config file and the flags.
type settings struct {
	cfg    *config.Config
	dbPath string
}

func loadSettings(cmd *cobra.Command, flags *rootFlags, targetDir string) (*settings, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed
	if changed("library") {
		cfg.Library = flags.library
	}
	if changed("method") {
		cfg.Method = flags.method
	}
	if changed("tags") {
		cfg.DefaultTags = splitTags(flags.tags)
	}
	if changed("scripts-dir") {
		cfg.ScriptsDir = flags.scriptsDir
	}
	if changed("db") {
		cfg.DB = flags.db
	}
	if flags.noCache {
		cfg.Cache = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	s := &settings{cfg: cfg}
	if cfg.Cache {
		s.dbPath = resolveDBPath(findRepoRoot(targetDir), cfg.DB)
	}
	return s, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// newEngine opens the engine described by s. Diagnostics go to w.
func newEngine(s *settings, w io.Writer) (*jsnext.Engine, error) {
	if s.dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(s.dbPath), err)
		}
	}

	opts := []jsnext.Option{
		jsnext.WithConfig(jsnext.Config{
			Library:     s.cfg.Library,
			Method:      s.cfg.Method,
			DefaultTags: s.cfg.DefaultTags,
		}),
		jsnext.WithLogger(newLogger(w, s.cfg.LogLevel)),
		jsnext.WithRegistry(buildRegistry(s.cfg.Extensions)),
		jsnext.WithCacheSalt(extensionsFingerprint(s.cfg.Extensions)),
		jsnext.WithParallel(s.cfg.Parallel),
		jsnext.WithCache(s.cfg.Cache),
	}
	if s.cfg.ScriptsDir != "" {
		opts = append(opts, jsnext.WithScriptsDir(s.cfg.ScriptsDir))
	} else {
		opts = append(opts, jsnext.WithScriptsFS(scripts.FS))
	}

	engine, err := jsnext.New(s.dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// buildRegistry registers the Go extensions enabled by the config. Script
// extensions are added by the engine.
func buildRegistry(ext config.ExtensionsConfig) jsnext.Registry {
	reg := jsnext.Registry{}
	if len(ext.Operators) > 0 {
		reg.Register("operators", extensions.OverloadOperators(extensions.OperatorNames(ext.Operators)))
	}
	if ext.IfThenElse != "" {
		reg.Register("if-then-else", extensions.OverloadIfThenElse(ext.IfThenElse))
	}
	if ext.Qualify.From != "" {
		reg.Register("qualify", extensions.ReplaceQualifiedAccessors(ext.Qualify.From, ext.Qualify.To))
	}
	if ext.Header != "" {
		reg.Register("header", extensions.InsertHeader(ext.Header))
	}
	return reg
}

// extensionsFingerprint hashes the settings behind the Go extensions. Tag
// names alone do not change when, say, an operator is renamed.
func extensionsFingerprint(ext config.ExtensionsConfig) string {
	data, err := json.Marshal(ext)
	if err != nil {
		return ""
	}
	return store.CacheKey(data)
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath anchors a relative database path at the repo root.
func resolveDBPath(repoRoot, db string) string {
	if db == "" {
		db = config.DefaultDB
	}
	if filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(repoRoot, db)
}

// targetDir returns the absolute directory that anchors the repo root
// lookup: the first argument's directory, or the working directory.
func targetDir(args []string) (string, error) {
	p := "."
	if len(args) > 0 {
		p = args[0]
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", p, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("path not found: %s", abs)
	}
	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	return abs, nil
}
