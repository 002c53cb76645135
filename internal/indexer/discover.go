package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/membootio/memboot/internal/chunker"
	"github.com/membootio/memboot/internal/config"
)

// Document is one discoverable unit of content. Content is loaded lazily so
// unchanged files can be fingerprinted without a full read. Ingestion
// adapters (PDF, web) reduce to the same shape with preloaded content.
type Document struct {
	Path        string // relative to the project root
	ContentType string
	MTime       time.Time
	Size        int64
	Load        func() (string, error)
}

// Source supplies the candidate documents for a root. The pipeline does not
// own traversal policy beyond consuming its output.
type Source interface {
	Documents(ctx context.Context, root string) ([]Document, error)
}

// FSSource walks the project directory, honoring the configured extension
// list and doublestar ignore patterns.
type FSSource struct {
	cfg *config.Config
}

// NewFSSource creates the default filesystem discovery source.
func NewFSSource(cfg *config.Config) *FSSource {
	return &FSSource{cfg: cfg}
}

func (s *FSSource) Documents(ctx context.Context, root string) ([]Document, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	extensions := make(map[string]bool, len(s.cfg.FileExtensions))
	for _, ext := range s.cfg.FileExtensions {
		extensions[strings.ToLower(ext)] = true
	}

	var docs []Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if s.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil // vanished between walk and stat; skip
		}
		abs := path
		docs = append(docs, Document{
			Path:        rel,
			ContentType: chunker.SniffType(rel),
			MTime:       fi.ModTime(),
			Size:        fi.Size(),
			Load: func() (string, error) {
				b, err := os.ReadFile(abs)
				if err != nil {
					return "", err
				}
				return string(b), nil
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// ignored matches each ignore pattern against the full relative path and
// against every path component, so a bare "node_modules" pattern prunes the
// tree at any depth.
func (s *FSSource) ignored(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, pattern := range s.cfg.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		for _, part := range parts {
			if ok, _ := doublestar.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}
