package jsnext_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/jsnext"
	"github.com/jward/jsnext/extensions"
	"github.com/jward/jsnext/internal/parser"
)

const siteSource = header + "lib.apply(['ops'], () => a + b)\n"

func newTestEngine(t *testing.T, opts ...jsnext.Option) *jsnext.Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	opts = append([]jsnext.Option{jsnext.WithRegistry(opsRegistry())}, opts...)
	e, err := jsnext.New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_CreatesStore(t *testing.T) {
	e := newTestEngine(t)
	require.NotNil(t, e.Store())
	files, err := e.Store().Files()
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, jsnext.DefaultLibrary, e.Config().Library)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := jsnext.New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestNew_WithoutStore(t *testing.T) {
	e, err := jsnext.New("", jsnext.WithRegistry(opsRegistry()))
	require.NoError(t, err)
	assert.Nil(t, e.Store())
	require.NoError(t, e.Close())

	path := writeFile(t, t.TempDir(), "a.js", siteSource)
	results, err := e.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Changed)
	assert.False(t, results[0].Cached)
}

func TestExpandFiles_ExpandsAndRecords(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	site := writeFile(t, dir, "site.js", siteSource)
	plain := writeFile(t, dir, "plain.js", "const x = 1;\n")

	results, err := e.ExpandFiles(context.Background(), []string{site, plain})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, site, results[0].Path)
	assert.True(t, results[0].Changed)
	assert.Equal(t, header+"() => add(a, b);\n", results[0].Code)
	require.Len(t, results[0].Sites, 1)
	assert.Equal(t, 2, results[0].Sites[0].Line)
	assert.Equal(t, []string{"ops"}, results[0].Sites[0].Tags)

	assert.False(t, results[1].Changed)
	assert.Equal(t, "const x = 1;\n", results[1].Code)

	f, err := e.Store().FileByPath(site)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.True(t, f.Changed)
	assert.Equal(t, results[0].Code, f.Output)

	sites, err := e.Store().AllSites()
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, site, sites[0].Path)
}

func TestExpandFiles_CacheHit(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "site.js", siteSource)

	first, err := e.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	second, err := e.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)

	assert.False(t, first[0].Cached)
	assert.True(t, second[0].Cached)
	assert.Equal(t, first[0].Code, second[0].Code)
	assert.Equal(t, first[0].Sites, second[0].Sites)
}

func TestExpandFiles_ContentChangeInvalidates(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "site.js", siteSource)
	_, err := e.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)

	writeFile(t, dir, "site.js", "const y = 2;\n")
	results, err := e.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.False(t, results[0].Cached)
	assert.False(t, results[0].Changed)

	f, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	sites, err := e.Store().SitesByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestExpandFiles_ConfigChangeInvalidates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	path := writeFile(t, t.TempDir(), "site.js", siteSource)

	e1, err := jsnext.New(dbPath, jsnext.WithRegistry(opsRegistry()))
	require.NoError(t, err)
	_, err = e1.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.NoError(t, e1.Close())

	e2, err := jsnext.New(dbPath, jsnext.WithRegistry(opsRegistry()),
		jsnext.WithConfig(jsnext.Config{DefaultTags: []string{"ops"}}))
	require.NoError(t, err)
	defer e2.Close()
	results, err := e2.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.False(t, results[0].Cached)
	assert.Equal(t, []string{"ops", "ops"}, results[0].Sites[0].Tags)
}

func TestExpandFiles_CacheSaltInvalidates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	path := writeFile(t, t.TempDir(), "site.js", siteSource)
	plus := jsnext.Registry{
		"ops": {extensions.OverloadOperators(extensions.OperatorNames(map[string]string{"+": "plus"}))},
	}

	e1, err := jsnext.New(dbPath, jsnext.WithRegistry(opsRegistry()), jsnext.WithCacheSalt("add"))
	require.NoError(t, err)
	_, err = e1.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.NoError(t, e1.Close())

	// Same tag, different mutator: the tag list alone cannot tell them apart.
	e2, err := jsnext.New(dbPath, jsnext.WithRegistry(plus), jsnext.WithCacheSalt("plus"))
	require.NoError(t, err)
	defer e2.Close()
	results, err := e2.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.False(t, results[0].Cached)
	assert.Equal(t, header+"() => plus(a, b);\n", results[0].Code)

	results, err = e2.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.True(t, results[0].Cached)
}

func TestExpandFiles_CachedSitesKeepExpansionOrder(t *testing.T) {
	e := newTestEngine(t)
	nested := header + "lib.apply(['ops'], () => lib.apply(['ops'], () => a + b) + c);\n"
	path := writeFile(t, t.TempDir(), "nested.js", nested)

	first, err := e.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, first[0].Sites, 2)

	second, err := e.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.True(t, second[0].Cached)
	assert.Equal(t, first[0].Sites, second[0].Sites)
}

func TestExpandFiles_CacheDisabled(t *testing.T) {
	e := newTestEngine(t, jsnext.WithCache(false))
	path := writeFile(t, t.TempDir(), "site.js", siteSource)

	for i := 0; i < 2; i++ {
		results, err := e.ExpandFiles(context.Background(), []string{path})
		require.NoError(t, err)
		assert.False(t, results[0].Cached)
	}
	f, err := e.Store().FileByPath(path)
	require.NoError(t, err)
	assert.NotNil(t, f, "results are still recorded")
}

func TestExpandFiles_SkipsUnsupportedExtensions(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	txt := writeFile(t, dir, "notes.txt", siteSource)
	ts := writeFile(t, dir, "a.ts", siteSource)

	results, err := e.ExpandFiles(context.Background(), []string{txt, ts})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExpandFiles_ErrorsAreRecordedPerFile(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.js", "const = ;\n")
	good := writeFile(t, dir, "good.js", siteSource)
	missing := filepath.Join(dir, "missing.js")

	results, err := e.ExpandFiles(context.Background(), []string{bad, good, missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 error(s)")
	require.Len(t, results, 3)

	assert.ErrorIs(t, results[0].Err, parser.ErrSyntax)
	assert.NoError(t, results[1].Err)
	assert.True(t, results[1].Changed)
	assert.Error(t, results[2].Err)

	f, err := e.Store().FileByPath(bad)
	require.NoError(t, err)
	assert.Nil(t, f, "failed files are not cached")
}

func TestExpandFiles_SerialMatchesParallel(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.js", "b.js", "c.js", "d.mjs"} {
		paths = append(paths, writeFile(t, dir, name, siteSource))
	}

	par := newTestEngine(t, jsnext.WithParallel(true))
	ser := newTestEngine(t, jsnext.WithParallel(false))
	pr, err := par.ExpandFiles(context.Background(), paths)
	require.NoError(t, err)
	sr, err := ser.ExpandFiles(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, pr, len(paths))
	for i := range paths {
		assert.Equal(t, paths[i], pr[i].Path, "results keep input order")
		assert.Equal(t, sr[i].Code, pr[i].Code)
	}
}

func TestExpandFiles_Cancelled(t *testing.T) {
	e := newTestEngine(t, jsnext.WithParallel(false))
	path := writeFile(t, t.TempDir(), "site.js", siteSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ExpandFiles(ctx, []string{path})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExpandDirectory_SkipsHiddenAndVendoredDirs(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	writeFile(t, dir, "src/app.js", siteSource)
	writeFile(t, dir, "src/lib/util.cjs", "module.exports = 1;\n")
	writeFile(t, dir, ".cache/x.js", siteSource)
	writeFile(t, dir, "node_modules/pkg/index.js", siteSource)
	writeFile(t, dir, "README.md", "# readme\n")

	results, err := e.ExpandDirectory(context.Background(), dir)
	require.NoError(t, err)

	var got []string
	for _, r := range results {
		rel, err := filepath.Rel(dir, r.Path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"src/app.js", "src/lib/util.cjs"}, got)
}

func TestExpandDirectory_PrunesDeletedFiles(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	keep := writeFile(t, dir, "keep.js", siteSource)
	gone := writeFile(t, dir, "gone.js", siteSource)
	outside := writeFile(t, t.TempDir(), "outside.js", siteSource)

	_, err := e.ExpandFiles(context.Background(), []string{outside})
	require.NoError(t, err)
	_, err = e.ExpandDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))
	require.NoError(t, os.Remove(outside))
	_, err = e.ExpandDirectory(context.Background(), dir)
	require.NoError(t, err)

	f, err := e.Store().FileByPath(gone)
	require.NoError(t, err)
	assert.Nil(t, f, "deleted file is pruned")

	f, err = e.Store().FileByPath(keep)
	require.NoError(t, err)
	assert.NotNil(t, f)

	f, err = e.Store().FileByPath(outside)
	require.NoError(t, err)
	assert.NotNil(t, f, "files outside the expanded root are left alone")
}

func TestEngine_ScriptMutatorsRunAfterGoMutators(t *testing.T) {
	fsys := fstest.MapFS{
		"ext/ops.risor": &fstest.MapFile{Data: []byte(`
for _, m := range nodes(target, "BinaryExpression") {
	n := m["node"]
	if attr(n, "op") == "*" {
		replace(m["parent"], n, call_expr(identifier("mul"), [child(n, "left"), child(n, "right")]))
	}
}
`)},
		"ext/noop.risor": &fstest.MapFile{Data: []byte(`x := 1`)},
	}
	e := newTestEngine(t, jsnext.WithScriptsFS(fsys))
	assert.Equal(t, []string{"noop", "ops"}, e.Registry().Tags())
	assert.Len(t, e.Registry()["ops"], 2)

	res, err := e.ExpandSource(context.Background(), "s.js", header+"lib.apply(['ops', 'noop'], () => a + b * c)\n")
	require.NoError(t, err)
	assert.Equal(t, header+"() => add(a, mul(b, c));\n", res.Code)
}

func TestEngine_ScriptErrorFailsFile(t *testing.T) {
	fsys := fstest.MapFS{
		"ext/boom.risor": &fstest.MapFile{Data: []byte(`error("boom")`)},
	}
	e := newTestEngine(t, jsnext.WithScriptsFS(fsys))
	_, err := e.ExpandSource(context.Background(), "s.js", header+"lib.apply(['boom'], () => 1)\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), `extension "boom"`)
}

func TestEngine_ScriptsChanged(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	path := writeFile(t, t.TempDir(), "site.js", siteSource)
	v1 := fstest.MapFS{"ext/noop.risor": &fstest.MapFile{Data: []byte(`x := 1`)}}
	v2 := fstest.MapFS{"ext/noop.risor": &fstest.MapFile{Data: []byte(`x := 2`)}}

	e, err := jsnext.New(dbPath, jsnext.WithRegistry(opsRegistry()), jsnext.WithScriptsFS(v1))
	require.NoError(t, err)
	changed, err := e.ScriptsChanged()
	require.NoError(t, err)
	assert.True(t, changed, "first run")

	_, err = e.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	changed, err = e.ScriptsChanged()
	require.NoError(t, err)
	assert.False(t, changed)
	require.NoError(t, e.Close())

	e, err = jsnext.New(dbPath, jsnext.WithRegistry(opsRegistry()), jsnext.WithScriptsFS(v2))
	require.NoError(t, err)
	defer e.Close()
	changed, err = e.ScriptsChanged()
	require.NoError(t, err)
	assert.True(t, changed)

	results, err := e.ExpandFiles(context.Background(), []string{path})
	require.NoError(t, err)
	assert.False(t, results[0].Cached, "new scripts invalidate the cache")
}
