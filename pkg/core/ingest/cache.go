package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DocumentCache stores downloaded filing documents on disk.
type DocumentCache struct {
	dir string
}

// NewDocumentCache creates a cache under dir.
func NewDocumentCache(dir string) *DocumentCache {
	return &DocumentCache{dir: dir}
}

func (c *DocumentCache) path(cik, accession string) string {
	key := fmt.Sprintf("%s_%s.html", strings.TrimLeft(cik, "0"), strings.ReplaceAll(accession, "-", ""))
	return filepath.Join(c.dir, key)
}

// Get returns a cached document.
func (c *DocumentCache) Get(cik, accession string) (string, bool) {
	data, err := os.ReadFile(c.path(cik, accession))
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// Set stores a document.
func (c *DocumentCache) Set(cik, accession, html string) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(c.path(cik, accession), []byte(html), 0644)
}
