package store

import (
	"fmt"
	"sync"
)

// Batch holds the expansion results of several files in memory so workers
// can produce them concurrently while a single goroutine writes them.
type Batch struct {
	mu      sync.Mutex
	entries []batchEntry
}

type batchEntry struct {
	file  File
	sites []Site
}

// Add buffers the result for one file. Safe for concurrent use.
func (b *Batch) Add(f File, sites []Site) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, batchEntry{file: f, sites: sites})
}

// Len returns the number of buffered files.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// CommitBatch writes every buffered file and its sites in one transaction.
func (s *Store) CommitBatch(b *Batch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for i := range b.entries {
		e := &b.entries[i]
		id, err := upsertFileTx(tx, &e.file)
		if err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		if err := replaceSitesTx(tx, id, e.sites); err != nil {
			return fmt.Errorf("commit batch: %s: %w", e.file.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.entries = nil
	return nil
}
