package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

// FileByPath returns the cached file at path, or nil when there is none.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	var output sql.NullString
	var expandedAt sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, path, hash, changed, output, expanded_at FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Hash, &f.Changed, &output, &expandedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	f.Output = output.String
	f.ExpandedAt = expandedAt.Time
	return f, nil
}

// Files returns every cached file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, hash, changed, expanded_at FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		var expandedAt sql.NullTime
		if err := rows.Scan(&f.ID, &f.Path, &f.Hash, &f.Changed, &expandedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.ExpandedAt = expandedAt.Time
		files = append(files, f)
	}
	return files, rows.Err()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func upsertFileTx(db execer, f *File) (int64, error) {
	err := db.QueryRow(
		`INSERT INTO files (path, hash, changed, output, expanded_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   hash = excluded.hash, changed = excluded.changed,
		   output = excluded.output, expanded_at = excluded.expanded_at
		 RETURNING id`,
		f.Path, f.Hash, f.Changed, f.Output, f.ExpandedAt,
	).Scan(&f.ID)
	if err != nil {
		return 0, fmt.Errorf("upsert file %s: %w", f.Path, err)
	}
	return f.ID, nil
}

// --- Site operations ---

// replaceSitesTx replaces every site recorded for fileID. Sites keep the
// order they are given in, which is dispatch order.
func replaceSitesTx(db execer, fileID int64, sites []Site) error {
	if _, err := db.Exec("DELETE FROM sites WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete sites: %w", err)
	}
	for i, site := range sites {
		if _, err := db.Exec(
			"INSERT INTO sites (file_id, seq, line, col, tags) VALUES (?, ?, ?, ?, ?)",
			fileID, i, site.Line, site.Col, marshalTags(site.Tags),
		); err != nil {
			return fmt.Errorf("insert site %d:%d: %w", site.Line, site.Col, err)
		}
	}
	return nil
}

// SitesByFile returns the sites of one file in the order they were expanded.
func (s *Store) SitesByFile(fileID int64) ([]*Site, error) {
	return s.querySites(
		`SELECT s.id, s.file_id, f.path, s.line, s.col, s.tags
		 FROM sites s JOIN files f ON f.id = s.file_id
		 WHERE s.file_id = ? ORDER BY s.seq`, fileID)
}

// AllSites returns every recorded site ordered by path, then expansion order.
func (s *Store) AllSites() ([]*Site, error) {
	return s.querySites(
		`SELECT s.id, s.file_id, f.path, s.line, s.col, s.tags
		 FROM sites s JOIN files f ON f.id = s.file_id
		 ORDER BY f.path, s.seq`)
}

func (s *Store) querySites(query string, args ...any) ([]*Site, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()
	var sites []*Site
	for rows.Next() {
		site := &Site{}
		var tags sql.NullString
		if err := rows.Scan(&site.ID, &site.FileID, &site.Path, &site.Line, &site.Col, &tags); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		site.Tags = unmarshalTags(tags.String)
		sites = append(sites, site)
	}
	return sites, rows.Err()
}
