// Package query embeds query text under the live vocabulary and ranks
// stored vectors by cosine similarity.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/membootio/memboot/internal/embedding"
	"github.com/membootio/memboot/internal/model"
	"github.com/membootio/memboot/internal/observe"
	"github.com/membootio/memboot/internal/store"
)

// ErrEmptyQuery is returned for empty or whitespace-only query text,
// rejected before any embedding work.
var ErrEmptyQuery = errors.New("query text is empty")

// DefaultTopK bounds result count when the caller passes none.
const DefaultTopK = 5

// Result is one ranked hit with enough provenance to attribute it.
type Result struct {
	Ref         model.EntityRef  `json:"ref"`
	Content     string           `json:"content"`
	Source      string           `json:"source"`
	Kind        string           `json:"kind,omitempty"`
	Title       string           `json:"title,omitempty"`
	StartOffset int              `json:"start_offset,omitempty"`
	EndOffset   int              `json:"end_offset,omitempty"`
	Score       float64          `json:"score"`
	CreatedAt   time.Time        `json:"created_at"`
	MemoryKind  model.MemoryKind `json:"memory_kind,omitempty"`
}

// Engine ranks stored vectors against query embeddings.
type Engine struct {
	store    store.Store
	embedder embedding.Embedder
	obs      *observe.Observer
}

// NewEngine creates a query engine over an open store.
func NewEngine(st store.Store, emb embedding.Embedder, obs *observe.Observer) *Engine {
	return &Engine{store: st, embedder: emb, obs: obs}
}

// Search returns up to topK results in descending score order. Querying an
// empty project yields an empty slice, not an error. Any stored vector
// whose vocabulary version differs from the live one aborts the query with
// store.ErrVersionMismatch: stale vectors are never silently compared.
func (e *Engine) Search(ctx context.Context, projectID, text string, topK int, includeMemories bool) ([]Result, error) {
	ctx, span := e.obs.StartSpan(ctx, "query")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	state, err := e.store.FetchVocabulary(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		// Never indexed and nothing remembered: empty corpus, empty answer.
		return []Result{}, nil
	}

	started := time.Now()
	qvec, err := e.embedder.Embed(ctx, text, state)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := e.store.ScanVectors(ctx, projectID)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredRow, 0, len(rows))
	for _, row := range rows {
		if row.VocabVer != state.Version {
			return nil, fmt.Errorf("%s %s embedded under version %d, live is %d: %w",
				row.Ref.Type, row.Ref.ID, row.VocabVer, state.Version, store.ErrVersionMismatch)
		}
		if !includeMemories && row.Ref.Type == model.EntityMemory {
			continue
		}
		scored = append(scored, scoredRow{
			row:   row,
			score: embedding.Dot(qvec, row.Vector),
		})
	}

	// Descending score; ties go to the most recent entity, then to the
	// larger ID, so repeated queries return identical orderings.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if !scored[i].row.CreatedAt.Equal(scored[j].row.CreatedAt) {
			return scored[i].row.CreatedAt.After(scored[j].row.CreatedAt)
		}
		return scored[i].row.Ref.ID > scored[j].row.Ref.ID
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	results := make([]Result, 0, len(scored))
	for _, sc := range scored {
		r, err := e.hydrate(ctx, sc)
		if err != nil {
			return nil, err
		}
		if r != nil {
			results = append(results, *r)
		}
	}

	e.obs.Log().Info().
		Str("project", projectID).
		Int("candidates", len(rows)).
		Int("results", len(results)).
		Int("elapsed_ms", int(time.Since(started).Milliseconds())).
		Msg("query complete")

	return results, nil
}

type scoredRow struct {
	row   store.VectorRow
	score float64
}

func (e *Engine) hydrate(ctx context.Context, sc scoredRow) (*Result, error) {
	switch sc.row.Ref.Type {
	case model.EntityMemory:
		mem, err := e.store.GetMemory(ctx, sc.row.Ref.ID)
		if err != nil || mem == nil {
			return nil, err
		}
		return &Result{
			Ref:        sc.row.Ref,
			Content:    mem.Content,
			Source:     "memory:" + mem.ID,
			MemoryKind: mem.Kind,
			Score:      sc.score,
			CreatedAt:  mem.CreatedAt,
		}, nil
	default:
		chunk, err := e.store.GetChunk(ctx, sc.row.Ref.ID)
		if err != nil || chunk == nil {
			return nil, err
		}
		return &Result{
			Ref:         sc.row.Ref,
			Content:     chunk.Content,
			Source:      chunk.SourcePath,
			Kind:        string(chunk.Kind),
			Title:       chunk.Title,
			StartOffset: chunk.StartOffset,
			EndOffset:   chunk.EndOffset,
			Score:       sc.score,
			CreatedAt:   chunk.CreatedAt,
		}, nil
	}
}
