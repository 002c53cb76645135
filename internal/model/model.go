// Package model defines the core data types shared across the pipeline.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"
)

// ChunkKind identifies the chunking strategy that produced a chunk.
type ChunkKind string

const (
	KindCodeUnit        ChunkKind = "code_unit"
	KindHeadingSection  ChunkKind = "heading_section"
	KindStructuredEntry ChunkKind = "structured_entry"
	KindWindow          ChunkKind = "window"
)

// MemoryKind identifies the type of an episodic memory.
type MemoryKind string

const (
	MemoryDecision    MemoryKind = "decision"
	MemoryNote        MemoryKind = "note"
	MemoryObservation MemoryKind = "observation"
	MemoryPattern     MemoryKind = "pattern"
)

// ValidMemoryKinds are the allowed memory kinds.
var ValidMemoryKinds = map[MemoryKind]bool{
	MemoryDecision:    true,
	MemoryNote:        true,
	MemoryObservation: true,
	MemoryPattern:     true,
}

// Chunk is a contiguous slice of a source document with its vector.
// A chunk is identified by (project_id, source_path, start_offset);
// re-indexing a path upserts in place rather than duplicating rows.
type Chunk struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	SourcePath  string    `json:"source_path"`
	Content     string    `json:"content"`
	Title       string    `json:"title,omitempty"` // synthetic heading: unit name, section header, or entry key
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	Kind        ChunkKind `json:"chunk_kind"`
	Vector      []float32 `json:"-"`
	VocabVer    int       `json:"vocab_version"`
	CreatedAt   time.Time `json:"created_at"`
}

// EmbeddingText returns the text a chunk is embedded under. The synthetic
// title participates so that a query for "function" can reach a code unit
// whose body never spells the word out.
func (c *Chunk) EmbeddingText() string {
	if c.Title == "" {
		return c.Content
	}
	return c.Title + "\n" + c.Content
}

// Memory is a user-authored note embedded alongside code chunks.
// Immutable once created, except for deletion.
type Memory struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	Kind      MemoryKind `json:"kind"`
	Content   string     `json:"content"`
	Tags      []string   `json:"tags,omitempty"`
	Vector    []float32  `json:"-"`
	VocabVer  int        `json:"vocab_version"`
	CreatedAt time.Time  `json:"created_at"`
}

// VocabularyState is the shared term statistics model for one project.
// Every stored vector must have been produced under the version that is
// currently live, or similarity comparisons are meaningless.
type VocabularyState struct {
	Version   int            `json:"version"`
	Dimension int            `json:"dimension"`
	Terms     map[string]int `json:"term_to_index"`
	IDF       []float32      `json:"idf_weights"`
}

// FileMeta records a file fingerprint for change detection between runs.
type FileMeta struct {
	Path       string
	MTime      time.Time
	Size       int64
	SHA256     string
	ChunkCount int
}

// ProjectInfo summarizes an indexed project. Derived state, rebuildable
// from chunks, memories, and vocabulary.
type ProjectInfo struct {
	ProjectID     string     `json:"project_id"`
	RootPath      string     `json:"root_path"`
	DBPath        string     `json:"db_path"`
	LastIndexedAt *time.Time `json:"last_indexed_at,omitempty"`
	ChunkCount    int        `json:"chunk_count"`
	MemoryCount   int        `json:"memory_count"`
	VocabVersion  int        `json:"vocab_version"`
	Dimension     int        `json:"embedding_dim"`
	Backend       string     `json:"embedding_backend"`

	// Index run summary.
	UnchangedFiles int `json:"unchanged_files"`
	ChangedFiles   int `json:"changed_files"`
	NewFiles       int `json:"new_files"`
	DeletedFiles   int `json:"deleted_files"`
	SkippedFiles   int `json:"skipped_files"`
	NewChunks      int `json:"new_chunks"`
}

// EntityType distinguishes the two vector-bearing entities.
type EntityType string

const (
	EntityChunk  EntityType = "chunk"
	EntityMemory EntityType = "memory"
)

// EntityRef points at a stored chunk or memory.
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// ProjectID derives the stable store identifier for a project root.
func ProjectID(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:12]
}
