package store

import "time"

// File is the cached expansion of one source file.
type File struct {
	ID   int64
	Path string
	// Hash is the cache key the output was produced under.
	Hash string
	// Changed reports whether expansion rewrote the file.
	Changed    bool
	Output     string
	ExpandedAt time.Time
}

// Site is one expanded apply-site.
type Site struct {
	ID     int64    `json:"-"`
	FileID int64    `json:"-"`
	Path   string   `json:"path,omitempty"`
	Line   int      `json:"line"`
	Col    int      `json:"col"`
	Tags   []string `json:"tags"`
}
