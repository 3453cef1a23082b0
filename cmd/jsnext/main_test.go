package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/jsnext/internal/config"
	"github.com/jward/jsnext/internal/store"
)

const header = "import lib from '@luna-lang/jsnext';\n"

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFixture creates a project dir with an empty config file and one
// source file, returning the config path and the source path.
func writeFixture(t *testing.T, code string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, ".jsnext.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))
	src := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(src, []byte(code), 0o644))
	return cfg, src
}

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestResolveDBPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("/repo", config.DefaultDB), resolveDBPath("/repo", ""))
	assert.Equal(t, filepath.Join("/repo", "x.db"), resolveDBPath("/repo", "x.db"))
	assert.Equal(t, "/abs/x.db", resolveDBPath("/repo", "/abs/x.db"))
}

func TestSplitTags(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"operators", "trace"}, splitTags(" operators, ,trace "))
	assert.Nil(t, splitTags(""))
}

func TestBuildRegistry(t *testing.T) {
	t.Parallel()

	reg := buildRegistry(config.ExtensionsConfig{})
	assert.Empty(t, reg.Tags())

	reg = buildRegistry(config.ExtensionsConfig{
		Operators:  config.DefaultOperators,
		IfThenElse: "ite",
		Qualify:    config.QualifyConfig{From: "Math", To: "X.Math"},
		Header:     `"use strict";`,
	})
	assert.Equal(t, []string{"header", "if-then-else", "operators", "qualify"}, reg.Tags())
}

func TestExtensionsFingerprint(t *testing.T) {
	t.Parallel()

	add := config.ExtensionsConfig{Operators: map[string]string{"+": "add", "-": "sub"}}
	same := config.ExtensionsConfig{Operators: map[string]string{"-": "sub", "+": "add"}}
	plus := config.ExtensionsConfig{Operators: map[string]string{"+": "plus", "-": "sub"}}

	assert.Equal(t, extensionsFingerprint(add), extensionsFingerprint(same))
	assert.NotEqual(t, extensionsFingerprint(add), extensionsFingerprint(plus))
	assert.NotEqual(t, extensionsFingerprint(add), extensionsFingerprint(config.ExtensionsConfig{}))
}

func TestExpand_OperatorConfigChangeInvalidatesCache(t *testing.T) {
	cfg, src := writeFixture(t, header+"lib.apply(['operators'], () => a + b)\n")
	db := filepath.Join(t.TempDir(), "cache.db")

	stdout, _, err := runCLI(t, "expand", "--config", cfg, "--db", db, src)
	require.NoError(t, err)
	assert.Equal(t, header+"() => add(a, b);\n", stdout)

	require.NoError(t, os.WriteFile(cfg, []byte("extensions:\n  operators:\n    \"+\": plus\n"), 0o644))
	stdout, _, err = runCLI(t, "expand", "--config", cfg, "--db", db, src)
	require.NoError(t, err)
	assert.Equal(t, header+"() => plus(a, b);\n", stdout)
}

func TestExpand_ReportsChangedScripts(t *testing.T) {
	cfg, src := writeFixture(t, header+"lib.apply(['noop'], () => 1)\n")
	db := filepath.Join(t.TempDir(), "cache.db")
	scriptsDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(scriptsDir, "ext"), 0o755))
	script := filepath.Join(scriptsDir, "ext", "noop.risor")
	require.NoError(t, os.WriteFile(script, []byte("x := 1\n"), 0o644))

	args := []string{"expand", "--config", cfg, "--db", db, "--scripts-dir", scriptsDir, src}
	_, stderr, err := runCLI(t, args...)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Scripts changed")

	_, stderr, err = runCLI(t, args...)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "Scripts changed")
	assert.Contains(t, stderr, "1 cached")

	require.NoError(t, os.WriteFile(script, []byte("x := 2\n"), 0o644))
	_, stderr, err = runCLI(t, args...)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Scripts changed since the last run")
	assert.Contains(t, stderr, "0 cached")
}

func TestLineDiff(t *testing.T) {
	t.Parallel()

	assert.Empty(t, lineDiff("a.js", "x\n", "x\n"))

	got := lineDiff("a.js", "keep\nold\n", "keep\nnew\n")
	assert.Equal(t, "--- a.js\n+++ a.js (expanded)\n keep\n-old\n+new\n", got)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	require.NoError(t, validateFormat("json"))
	require.NoError(t, validateFormat("text"))
	require.Error(t, validateFormat("xml"))
}

func TestExpand_SingleFilePrintsResult(t *testing.T) {
	cfg, src := writeFixture(t, header+"lib.apply(['operators'], () => a + b)\n")

	stdout, _, err := runCLI(t, "expand", "--config", cfg, "--no-cache", src)
	require.NoError(t, err)
	assert.Equal(t, header+"() => add(a, b);\n", stdout)

	// The source is untouched without --write.
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Contains(t, string(data), "lib.apply")
}

func TestExpand_TagsFlagAddsDefaultTags(t *testing.T) {
	cfg, src := writeFixture(t, header+"lib.apply(() => a * b)\n")

	stdout, _, err := runCLI(t, "expand", "--config", cfg, "--no-cache", "--tags", "operators", src)
	require.NoError(t, err)
	assert.Equal(t, header+"() => mul(a, b);\n", stdout)
}

func TestExpand_WriteAndDiff(t *testing.T) {
	cfg, src := writeFixture(t, header+"lib.apply(['operators'], () => a + b)\n")

	stdout, stderr, err := runCLI(t, "expand", "--config", cfg, "--no-cache", "--write", "--diff", src)
	require.NoError(t, err)
	assert.Contains(t, stdout, "-lib.apply(['operators'], () => a + b)\n")
	assert.Contains(t, stdout, "+() => add(a, b);\n")
	assert.Contains(t, stderr, "wrote")
	assert.Contains(t, stderr, "1 changed")

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, header+"() => add(a, b);\n", string(data))
}

func TestExpand_ScriptExtension(t *testing.T) {
	cfg, src := writeFixture(t, header+"lib.apply(['ops'], () => a - b)\n")

	stdout, _, err := runCLI(t, "expand", "--config", cfg, "--no-cache", src)
	require.NoError(t, err)
	assert.Equal(t, header+"() => sub(a, b);\n", stdout)
}

func TestExpand_SyntaxErrorFails(t *testing.T) {
	cfg, src := writeFixture(t, header+"lib.apply(['operators'], () => a +)\n")

	_, stderr, err := runCLI(t, "expand", "--config", cfg, "--no-cache", "--diff", src)
	require.Error(t, err)
	assert.Contains(t, stderr, "error")
}

func TestExpand_InvalidMethodFlag(t *testing.T) {
	cfg, src := writeFixture(t, header)

	_, _, err := runCLI(t, "expand", "--config", cfg, "--no-cache", "--method", "not valid", src)
	require.ErrorIs(t, err, config.ErrInvalidMethod)
}

func TestSites_ListsExpandedApplySites(t *testing.T) {
	cfg, src := writeFixture(t, header+"\nlib.apply(['operators'], () => a + b)\n")
	db := filepath.Join(t.TempDir(), "cache.db")

	_, _, err := runCLI(t, "expand", "--config", cfg, "--db", db, "--write", src)
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "sites", "--config", cfg, "--db", db, "--format", "json")
	require.NoError(t, err)
	var sites []store.Site
	require.NoError(t, json.Unmarshal([]byte(stdout), &sites))
	require.Len(t, sites, 1)
	assert.Equal(t, src, sites[0].Path)
	assert.Equal(t, 3, sites[0].Line)
	assert.Equal(t, []string{"operators"}, sites[0].Tags)

	stdout, _, err = runCLI(t, "sites", "--config", cfg, "--db", db, "--format", "text", src)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "operators")
}

func TestSites_RequiresCache(t *testing.T) {
	cfg, _ := writeFixture(t, header)

	_, _, err := runCLI(t, "sites", "--config", cfg, "--no-cache")
	require.ErrorIs(t, err, errNoCache)
}

func TestSites_InvalidFormat(t *testing.T) {
	cfg, _ := writeFixture(t, header)

	_, _, err := runCLI(t, "sites", "--config", cfg, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestTags_ListsGoAndScriptTags(t *testing.T) {
	cfg, _ := writeFixture(t, header)

	stdout, _, err := runCLI(t, "tags", "--config", cfg)
	require.NoError(t, err)
	tags := strings.Fields(stdout)
	assert.Contains(t, tags, "operators")
	assert.Contains(t, tags, "if-then-else")
	assert.Contains(t, tags, "ops")
	assert.Contains(t, tags, "ite")
	assert.Contains(t, tags, "trace")
	assert.NotContains(t, tags, "header")
}
