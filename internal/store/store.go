// Package store provides the durable, project-scoped persistence layer for
// chunks, memories, and vocabulary state.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/membootio/memboot/internal/model"
)

// ErrVersionMismatch is returned when a stored vector was produced under a
// vocabulary version other than the one currently live. It is fatal to the
// running operation and remediated by a full reindex; stale vectors are
// never silently compared.
var ErrVersionMismatch = errors.New("vector vocabulary version does not match live vocabulary")

// VectorRow is one entity's vector as yielded by ScanVectors.
type VectorRow struct {
	Ref       model.EntityRef
	Vector    []float32
	VocabVer  int
	CreatedAt time.Time
}

// CommitParams describes one atomic index commit: every chunk and memory
// re-embedded under a new vocabulary state lands together with the state
// itself, so readers never observe a mix of old- and new-version vectors.
type CommitParams struct {
	ProjectID string
	RootPath  string
	Backend   string

	// State, when non-nil, replaces the live vocabulary; its version is
	// assigned inside the transaction and stamped onto every row. When nil
	// (the approximate fast path) rows keep the versions they carry.
	State *model.VocabularyState

	Chunks   []model.Chunk
	Memories []model.Memory

	FileMetas   []model.FileMeta
	RemovePaths []string // files whose chunks and metadata are dropped
}

// Store is the persistence contract the pipeline depends on.
type Store interface {
	UpsertChunks(ctx context.Context, chunks []model.Chunk) error
	UpsertMemories(ctx context.Context, memories []model.Memory) error
	FetchVocabulary(ctx context.Context, projectID string) (*model.VocabularyState, error)
	ReplaceVocabulary(ctx context.Context, projectID string, state *model.VocabularyState) (int, error)
	ScanVectors(ctx context.Context, projectID string) ([]VectorRow, error)
	DeleteProject(ctx context.Context, projectID string) error

	GetChunk(ctx context.Context, id string) (*model.Chunk, error)
	GetMemory(ctx context.Context, id string) (*model.Memory, error)
	ChunksByPath(ctx context.Context, projectID, path string) ([]model.Chunk, error)
	AllMemories(ctx context.Context, projectID string, kind model.MemoryKind) ([]model.Memory, error)
	DeleteMemory(ctx context.Context, id string) (bool, error)
	FileMetas(ctx context.Context, projectID string) (map[string]model.FileMeta, error)

	CommitIndex(ctx context.Context, p CommitParams) (int, error)
	Info(ctx context.Context, projectID string) (*model.ProjectInfo, error)

	Close() error
}
