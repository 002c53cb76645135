// Package memory records and manages episodic memories: short free-text
// notes embedded into the same vector space as indexed chunks.
package memory

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/membootio/memboot/internal/embedding"
	"github.com/membootio/memboot/internal/model"
	"github.com/membootio/memboot/internal/observe"
	"github.com/membootio/memboot/internal/store"
)

// Service persists memories embedded under the project's live vocabulary.
type Service struct {
	store    store.Store
	embedder embedding.Embedder
	obs      *observe.Observer
	entropy  *ulid.MonotonicEntropy
}

// NewService creates a memory service over an open store.
func NewService(st store.Store, emb embedding.Embedder, obs *observe.Observer) *Service {
	return &Service{
		store:    st,
		embedder: emb,
		obs:      obs,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Remember stores a new memory. When the project has no vocabulary yet the
// memory's own content bootstraps one, so remembering before the first
// index still works; later indexing refits over files and memories
// together and re-embeds everything.
func (s *Service) Remember(ctx context.Context, projectID, content string, kind model.MemoryKind, tags []string) (*model.Memory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("memory content is empty")
	}
	if !model.ValidMemoryKinds[kind] {
		return nil, fmt.Errorf("unknown memory kind %q (want decision, note, observation or pattern)", kind)
	}

	state, err := s.store.FetchVocabulary(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state, err = s.bootstrap(ctx, projectID, content)
		if err != nil {
			return nil, err
		}
	}

	vec, err := s.embedder.Embed(ctx, content, state)
	if err != nil {
		return nil, fmt.Errorf("embed memory: %w", err)
	}

	mem := &model.Memory{
		ID:        ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String(),
		ProjectID: projectID,
		Kind:      kind,
		Content:   content,
		Tags:      tags,
		Vector:    vec,
		VocabVer:  state.Version,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.UpsertMemories(ctx, []model.Memory{*mem}); err != nil {
		return nil, err
	}

	s.obs.Log().Info().
		Str("project", projectID).
		Str("memory", mem.ID).
		Str("kind", string(kind)).
		Msg("memory recorded")

	return mem, nil
}

// bootstrap fits a first vocabulary from the initial memory's content.
func (s *Service) bootstrap(ctx context.Context, projectID, content string) (*model.VocabularyState, error) {
	state, err := s.embedder.Fit([]string{content})
	if err != nil {
		return nil, fmt.Errorf("bootstrap vocabulary: %w", err)
	}
	version, err := s.store.ReplaceVocabulary(ctx, projectID, state)
	if err != nil {
		return nil, err
	}
	state.Version = version
	return state, nil
}

// List returns memories newest first, optionally filtered by kind.
func (s *Service) List(ctx context.Context, projectID string, kind model.MemoryKind) ([]model.Memory, error) {
	return s.store.AllMemories(ctx, projectID, kind)
}

// Forget deletes a memory by ID. Deleting an unknown ID is an error so a
// mistyped ID never passes silently.
func (s *Service) Forget(ctx context.Context, projectID, id string) error {
	mem, err := s.store.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if mem == nil || mem.ProjectID != projectID {
		return fmt.Errorf("no memory with id %s", id)
	}
	deleted, err := s.store.DeleteMemory(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("no memory with id %s", id)
	}
	s.obs.Log().Info().Str("project", projectID).Str("memory", id).Msg("memory forgotten")
	return nil
}
