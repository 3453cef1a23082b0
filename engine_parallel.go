package jsnext

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/jsnext/internal/parser"
	"github.com/jward/jsnext/internal/store"
)

// FileResult is the outcome of expanding one file on disk.
type FileResult struct {
	Path string
	// Source is the file content as read.
	Source string
	// Code is the expanded source, equal to Source when nothing changed.
	Code    string
	Changed bool
	Sites   []SiteReport
	// Cached reports that the result came from the expansion cache.
	Cached bool
	// Err is set when the file could not be expanded; the other fields
	// besides Path and Source are then empty.
	Err error
}

// workItem holds everything an expansion worker needs.
type workItem struct {
	index   int
	path    string
	content []byte
	key     string
}

// ExpandFiles expands the given files. Unsupported extensions are skipped.
// Files whose cache key matches the stored one are served from the cache.
//
// The pipeline has three phases:
//
//	Phase A (serial):   read files, compute cache keys, serve cache hits.
//	Phase B (parallel): parse, expand and print in a bounded goroutine pool.
//	Phase C (serial):   commit the new results to the cache in one batch.
//
// Errors on individual files are recorded in their FileResult and the
// returned error summarises them; processing continues.
func (e *Engine) ExpandFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	parts, err := e.cacheParts()
	if err != nil {
		return nil, fmt.Errorf("jsnext: cache key: %w", err)
	}

	// ---- Phase A: Serial preparation ----
	var (
		results []FileResult
		items   []workItem
	)
	for _, path := range paths {
		if !parser.SupportsFile(path) {
			continue
		}
		res := FileResult{Path: path}
		content, err := readSource(path)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		res.Source = string(content)
		key := store.CacheKey(content, parts...)

		if hit, err := e.lookup(path, key, &res); err != nil {
			res.Err = err
		} else if !hit {
			items = append(items, workItem{index: len(results), path: path, content: content, key: key})
		}
		results = append(results, res)
	}

	// ---- Phase B: Expansion ----
	batch := &store.Batch{}
	if e.useParallel && len(items) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(runtime.NumCPU(), len(items)))
		for _, item := range items {
			g.Go(func() error {
				results[item.index] = e.expandItem(gctx, item, batch)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
	} else {
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			results[item.index] = e.expandItem(ctx, item, batch)
		}
	}

	// ---- Phase C: Serial commit ----
	if e.store != nil && batch.Len() > 0 {
		if err := e.store.CommitBatch(batch); err != nil {
			return results, fmt.Errorf("jsnext: %w", err)
		}
		if hash, err := e.scriptsHash(); err == nil {
			_ = e.store.SetMetadata(metaScriptsHash, hash)
		}
	}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("expand %s: %w", r.Path, r.Err))
		}
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("expansion had %d error(s): %w", len(errs), errs[0])
	}
	return results, nil
}

// lookup fills res from the cache when path was last expanded under key.
func (e *Engine) lookup(path, key string, res *FileResult) (bool, error) {
	if e.store == nil || !e.useCache {
		return false, nil
	}
	f, err := e.store.FileByPath(path)
	if err != nil {
		return false, fmt.Errorf("lookup file: %w", err)
	}
	if f == nil || f.Hash != key {
		return false, nil
	}
	sites, err := e.store.SitesByFile(f.ID)
	if err != nil {
		return false, fmt.Errorf("lookup sites: %w", err)
	}

	res.Cached = true
	res.Changed = f.Changed
	res.Code = res.Source
	if f.Changed {
		res.Code = f.Output
	}
	for _, s := range sites {
		res.Sites = append(res.Sites, SiteReport{Line: s.Line, Col: s.Col, Tags: s.Tags})
	}
	e.cfg.Logger.Debug("expand.cached", slog.String("file", path))
	return true, nil
}

// expandItem expands one file and buffers its result for the cache.
func (e *Engine) expandItem(ctx context.Context, item workItem, batch *store.Batch) FileResult {
	res := FileResult{Path: item.path, Source: string(item.content)}
	out, err := PreprocessWithReport(ctx, item.path, res.Source, e.registry, e.cfg)
	if err != nil {
		e.cfg.Logger.Warn("expand.error", slog.String("file", item.path), slog.Any("err", err))
		res.Err = err
		return res
	}
	res.Code = out.Code
	res.Changed = out.Changed
	res.Sites = out.Sites
	e.cfg.Logger.Debug("expand.file",
		slog.String("file", item.path),
		slog.Int("sites", len(out.Sites)),
		slog.Bool("changed", out.Changed))

	f := store.File{Path: item.path, Hash: item.key, Changed: out.Changed, ExpandedAt: time.Now().UTC()}
	if out.Changed {
		f.Output = out.Code
	}
	sites := make([]store.Site, 0, len(out.Sites))
	for _, s := range out.Sites {
		sites = append(sites, store.Site{Line: s.Line, Col: s.Col, Tags: s.Tags})
	}
	batch.Add(f, sites)
	return res
}
