// Package config loads jsnext settings from .jsnext.yaml and JSNEXT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"regexp"
)

// Defaults applied before the config file and environment are read.
const (
	DefaultLibrary    = "@luna-lang/jsnext"
	DefaultMethod     = "apply"
	DefaultDB         = ".jsnext/cache.db"
	DefaultCache      = true
	DefaultParallel   = true
	DefaultLogLevel   = "warn"
	DefaultIfThenElse = "ifThenElse"
)

// DefaultOperators maps operators to the functions the "operators"
// extension calls in their place.
var DefaultOperators = map[string]string{
	"+":  "add",
	"-":  "sub",
	"*":  "mul",
	"/":  "div",
	"==": "eq",
	"<":  "lt",
}

// Config is the top-level configuration struct for jsnext.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Library     string           `mapstructure:"library"`
	Method      string           `mapstructure:"method"`
	DefaultTags []string         `mapstructure:"default_tags"`
	ScriptsDir  string           `mapstructure:"scripts_dir"`
	DB          string           `mapstructure:"db"`
	Cache       bool             `mapstructure:"cache"`
	Parallel    bool             `mapstructure:"parallel"`
	LogLevel    string           `mapstructure:"log_level"`
	Extensions  ExtensionsConfig `mapstructure:"extensions"`
}

// ExtensionsConfig parameterises the built-in Go extensions.
type ExtensionsConfig struct {
	// Operators maps an operator to a function name; operators without an
	// entry are left alone.
	Operators  map[string]string `mapstructure:"operators"`
	IfThenElse string            `mapstructure:"if_then_else"`
	Qualify    QualifyConfig     `mapstructure:"qualify"`
	// Header is a statement prepended to wrapped functions. Empty disables
	// the extension.
	Header string `mapstructure:"header"`
}

// QualifyConfig renames the object of qualified accesses From.x to To.x.
// Empty From disables the extension.
type QualifyConfig struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

var (
	// ErrInvalidMethod is returned when the apply method is not an identifier.
	ErrInvalidMethod = errors.New("method must be an identifier")
	// ErrInvalidLogLevel is returned for an unknown log level.
	ErrInvalidLogLevel = errors.New("log_level must be one of debug, info, warn, error")
	// ErrEmptyLibrary is returned when no library is configured.
	ErrEmptyLibrary = errors.New("library must not be empty")
	// ErrIncompleteQualify is returned when only one side of qualify is set.
	ErrIncompleteQualify = errors.New("extensions.qualify needs both from and to")
)

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Validate checks the configuration for values the expander cannot use.
func (c *Config) Validate() error {
	if c.Library == "" {
		return ErrEmptyLibrary
	}
	if !identifier.MatchString(c.Method) {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, c.Method)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	if (c.Extensions.Qualify.From == "") != (c.Extensions.Qualify.To == "") {
		return ErrIncompleteQualify
	}
	return nil
}
