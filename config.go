package jsnext

import (
	"io"
	"log/slog"
)

const (
	// DefaultLibrary is the module whose bindings mark apply-sites.
	DefaultLibrary = "@luna-lang/jsnext"
	// DefaultMethod is the method invoked on a binding at an apply-site.
	DefaultMethod = "apply"
)

// Config is the per-run configuration of the expander.
type Config struct {
	// Library is the module name bindings are resolved against.
	Library string
	// Method is the apply-site method name.
	Method string
	// DefaultTags run at every apply-site, before the site's own tags.
	DefaultTags []string
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Library == "" {
		c.Library = DefaultLibrary
	}
	if c.Method == "" {
		c.Method = DefaultMethod
	}
	if c.Logger == nil {
		c.Logger = discardLogger()
	}
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
