// Package chunker splits documents into semantically bounded chunks.
//
// The strategy is selected by declared content type or sniffed from the
// path extension: syntax-aware chunking for Go and Python sources, heading
// sections for markdown, top-level entries for YAML and JSON, and a
// whitespace-aligned sliding window for everything else. Structural
// strategies degrade to the window fallback instead of erroring.
package chunker

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/membootio/memboot/internal/model"
)

const (
	DefaultMaxTokens     = 500
	DefaultOverlapTokens = 50

	// Rough chars-per-token estimate used for window sizing and budgets.
	charsPerToken = 4
)

// Options configures chunking behavior.
type Options struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		MaxTokens:     DefaultMaxTokens,
		OverlapTokens: DefaultOverlapTokens,
	}
}

// Piece is a chunk before it is assigned an identity or a vector.
type Piece struct {
	Content     string
	Title       string
	Kind        model.ChunkKind
	StartOffset int
	EndOffset   int
}

// Chunk splits content into an ordered sequence of pieces. Empty or
// whitespace-only input yields zero pieces. A single unit larger than any
// configured maximum is still emitted whole; truncation is the context
// builder's concern.
func Chunk(content, contentType, path string, opts Options) []Piece {
	if opts.MaxTokens <= 0 {
		opts = DefaultOptions()
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	if contentType == "" {
		contentType = SniffType(path)
	}

	switch contentType {
	case "go":
		return chunkGo(content, path, opts)
	case "python":
		return chunkPython(content, opts)
	case "markdown":
		return chunkMarkdown(content, opts)
	case "yaml":
		return chunkYAML(content, opts)
	case "json":
		return chunkJSON(content, opts)
	default:
		return window(content, opts)
	}
}

// SniffType maps a path extension to a content type name.
func SniffType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".md", ".markdown":
		return "markdown"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return "text"
	}
}

// window is the sliding-window fallback. Every byte of input is covered by
// at least one piece, consecutive pieces overlap by at most the configured
// overlap, and breaks never land inside a token.
func window(content string, opts Options) []Piece {
	size := opts.MaxTokens * charsPerToken
	overlap := opts.OverlapTokens * charsPerToken
	n := len(content)

	var pieces []Piece
	start := 0
	for start < n {
		end := start + size
		if end >= n {
			end = n
		} else {
			end = alignBreak(content, start, end)
		}
		pieces = append(pieces, Piece{
			Content:     content[start:end],
			Kind:        model.KindWindow,
			StartOffset: start,
			EndOffset:   end,
		})
		if end >= n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		// Never start mid-token; the overlap only shrinks.
		for next < end && !boundaryAt(content, next) {
			next++
		}
		start = next
	}
	return pieces
}

// alignBreak moves a proposed break position onto a token boundary.
// It prefers moving left; a single token longer than the whole window is
// kept intact by extending right instead.
func alignBreak(content string, start, end int) int {
	for i := end; i > start+1; i-- {
		if boundaryAt(content, i) {
			return i
		}
	}
	for i := end; i < len(content); i++ {
		if isSpace(content[i]) {
			return i
		}
	}
	return len(content)
}

// boundaryAt reports whether position i does not split a token.
func boundaryAt(content string, i int) bool {
	if i <= 0 || i >= len(content) {
		return true
	}
	return isSpace(content[i]) || isSpace(content[i-1])
}

func isSpace(b byte) bool {
	return unicode.IsSpace(rune(b))
}

// lineOffsets returns the byte offset of the start of each line.
func lineOffsets(content string) []int {
	offs := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offs = append(offs, i+1)
		}
	}
	return offs
}
