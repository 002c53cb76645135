// Package indexer drives the discover -> chunk -> embed -> store pipeline.
//
// Every index run refits the vocabulary over the union of unchanged and
// changed content and re-embeds the entire corpus, chunks and memories
// alike: IDF weights shift whenever the corpus changes, so partial
// re-embedding would leave stored vectors incomparable to fresh query
// vectors. The refit and all vectors land in a single store transaction.
// An approximate fast path that skips the refit exists behind an explicit
// flag and is reported as lower accuracy.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/membootio/memboot/internal/chunker"
	"github.com/membootio/memboot/internal/config"
	"github.com/membootio/memboot/internal/embedding"
	"github.com/membootio/memboot/internal/model"
	"github.com/membootio/memboot/internal/observe"
	"github.com/membootio/memboot/internal/store"
)

// Options alters one index run.
type Options struct {
	Force bool // reprocess every file regardless of fingerprints
	Fast  bool // approximate: skip the refit, embed only changed content (lower accuracy)
}

// Indexer orchestrates the indexing pipeline for one project store.
type Indexer struct {
	store    store.Store
	embedder embedding.Embedder
	source   Source
	cfg      *config.Config
	obs      *observe.Observer
	entropy  *rand.Rand
}

// New creates an Indexer. The source may be nil, in which case filesystem
// discovery with the config's rules is used.
func New(st store.Store, emb embedding.Embedder, src Source, cfg *config.Config, obs *observe.Observer) *Indexer {
	if src == nil {
		src = NewFSSource(cfg)
	}
	return &Indexer{
		store:    st,
		embedder: emb,
		source:   src,
		cfg:      cfg,
		obs:      obs,
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (ix *Indexer) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ix.entropy).String()
}

// pendingFile is a changed or new file with its content already loaded.
type pendingFile struct {
	doc     Document
	content string
	sha     string
}

// plan is the result of categorizing discovered files against stored
// fingerprints.
type plan struct {
	unchanged    []Document
	changed      []pendingFile
	added        []pendingFile
	deleted      []string
	refreshMetas []model.FileMeta // unchanged files whose mtime moved
	carryPaths   []string         // unreadable files whose stored chunks must ride along
	skipped      int
}

// Index runs the pipeline for root and returns the project summary.
// A single file's chunking failure is logged and skipped; a store failure
// aborts with the prior committed state intact.
func (ix *Indexer) Index(ctx context.Context, root string, opts Options) (*model.ProjectInfo, error) {
	ctx, span := ix.obs.StartSpan(ctx, "index_project")
	defer span.End()

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	projectID := model.ProjectID(root)

	docs, err := ix.source.Documents(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	stored, err := ix.store.FileMetas(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load file metadata: %w", err)
	}
	pl := ix.categorize(docs, stored, opts.Force)
	ix.obs.Log().Info().
		Str("project", projectID).
		Int("unchanged", len(pl.unchanged)).
		Int("changed", len(pl.changed)).
		Int("new", len(pl.added)).
		Int("deleted", len(pl.deleted)).
		Int("skipped", pl.skipped).
		Msg("discovery complete")

	// Nothing changed: keep the live vocabulary and every stored vector as
	// they are, so reindexing an unchanged project is idempotent. Only the
	// fingerprints of touched-but-identical files need refreshing.
	if len(pl.changed) == 0 && len(pl.added) == 0 && len(pl.deleted) == 0 {
		if state, err := ix.store.FetchVocabulary(ctx, projectID); err != nil {
			return nil, err
		} else if state != nil {
			if len(pl.refreshMetas) > 0 {
				if _, err := ix.store.CommitIndex(ctx, store.CommitParams{
					ProjectID: projectID,
					RootPath:  root,
					Backend:   ix.embedder.Name(),
					FileMetas: pl.refreshMetas,
				}); err != nil {
					return nil, fmt.Errorf("commit index: %w", err)
				}
			}
			ix.obs.Log().Info().Str("project", projectID).Msg("index up to date")
			return ix.summarize(ctx, projectID, pl, 0)
		}
	}

	// Chunks carried over from unchanged files keep their identity. Stored
	// chunks of files that turned unreadable ride along too, so the refit
	// restamps every surviving row under the new version.
	var chunks []model.Chunk
	for _, doc := range pl.unchanged {
		kept, err := ix.store.ChunksByPath(ctx, projectID, doc.Path)
		if err != nil {
			return nil, fmt.Errorf("load chunks for %s: %w", doc.Path, err)
		}
		chunks = append(chunks, kept...)
	}
	for _, path := range pl.carryPaths {
		kept, err := ix.store.ChunksByPath(ctx, projectID, path)
		if err != nil {
			return nil, fmt.Errorf("load chunks for %s: %w", path, err)
		}
		chunks = append(chunks, kept...)
	}

	// Changed and new files are re-chunked.
	now := time.Now().UTC()
	newChunks := 0
	removePaths := append([]string(nil), pl.deleted...)
	fileMetas := append([]model.FileMeta(nil), pl.refreshMetas...)
	var fresh []model.Chunk
	for _, pf := range append(pl.changed, pl.added...) {
		pieces := chunker.Chunk(pf.content, pf.doc.ContentType, pf.doc.Path, chunker.Options{
			MaxTokens:     ix.cfg.MaxChunkTokens,
			OverlapTokens: ix.cfg.OverlapTokens,
		})
		for _, p := range pieces {
			fresh = append(fresh, model.Chunk{
				ID:          ix.newID(),
				ProjectID:   projectID,
				SourcePath:  pf.doc.Path,
				Content:     p.Content,
				Title:       p.Title,
				StartOffset: p.StartOffset,
				EndOffset:   p.EndOffset,
				Kind:        p.Kind,
				CreatedAt:   now,
			})
		}
		newChunks += len(pieces)
		fileMetas = append(fileMetas, model.FileMeta{
			Path:       pf.doc.Path,
			MTime:      pf.doc.MTime,
			Size:       pf.doc.Size,
			SHA256:     pf.sha,
			ChunkCount: len(pieces),
		})
	}
	// Changed files are delete-then-insert: offsets may have shifted.
	for _, pf := range pl.changed {
		removePaths = append(removePaths, pf.doc.Path)
	}

	memories, err := ix.store.AllMemories(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}

	if opts.Fast {
		if err := ix.commitFast(ctx, projectID, root, fresh, fileMetas, removePaths); err != nil {
			return nil, err
		}
		ix.obs.Log().Warn().
			Str("project", projectID).
			Msg("fast path: vocabulary not refitted, results are approximate")
		return ix.summarize(ctx, projectID, pl, newChunks)
	}

	chunks = append(chunks, fresh...)

	// Full refit over the union corpus: all chunk text plus memory text.
	corpus := make([]string, 0, len(chunks)+len(memories))
	for i := range chunks {
		corpus = append(corpus, chunks[i].EmbeddingText())
	}
	for i := range memories {
		corpus = append(corpus, memories[i].Content)
	}
	if len(corpus) == 0 {
		// Nothing indexed and nothing remembered; still honor deletions.
		if len(removePaths) > 0 {
			if _, err := ix.store.CommitIndex(ctx, store.CommitParams{
				ProjectID:   projectID,
				RootPath:    root,
				RemovePaths: removePaths,
			}); err != nil {
				return nil, fmt.Errorf("commit index: %w", err)
			}
		}
		return ix.summarize(ctx, projectID, pl, newChunks)
	}

	state, err := ix.embedder.Fit(corpus)
	if err != nil {
		return nil, fmt.Errorf("fit vocabulary: %w", err)
	}
	for i := range chunks {
		vec, err := ix.embedder.Embed(ctx, chunks[i].EmbeddingText(), state)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %s: %w", chunks[i].ID, err)
		}
		chunks[i].Vector = vec
	}
	for i := range memories {
		vec, err := ix.embedder.Embed(ctx, memories[i].Content, state)
		if err != nil {
			return nil, fmt.Errorf("embed memory %s: %w", memories[i].ID, err)
		}
		memories[i].Vector = vec
	}

	version, err := ix.store.CommitIndex(ctx, store.CommitParams{
		ProjectID:   projectID,
		RootPath:    root,
		Backend:     ix.embedder.Name(),
		State:       state,
		Chunks:      chunks,
		Memories:    memories,
		FileMetas:   fileMetas,
		RemovePaths: removePaths,
	})
	if err != nil {
		return nil, fmt.Errorf("commit index: %w", err)
	}
	ix.obs.Log().Info().
		Str("project", projectID).
		Int("chunks", len(chunks)).
		Int("memories", len(memories)).
		Int("vocab_version", version).
		Msg("index committed")

	return ix.summarize(ctx, projectID, pl, newChunks)
}

// categorize compares discovered documents against stored fingerprints.
// The mtime+size fast path avoids reading unchanged files; on a mismatch
// the content hash decides, so a touched-but-identical file is not
// reprocessed. Unreadable files are skipped, not fatal; their stored
// chunks are carried so the commit leaves no row behind at a dead
// version. Under force the fingerprint shortcuts are bypassed and every
// known file is reprocessed as changed, while deletion detection still
// runs against the stored set.
func (ix *Indexer) categorize(docs []Document, stored map[string]model.FileMeta, force bool) *plan {
	pl := &plan{}
	seen := make(map[string]bool, len(docs))

	for _, doc := range docs {
		seen[doc.Path] = true
		prev, known := stored[doc.Path]
		if known && !force && prev.MTime.Equal(doc.MTime) && prev.Size == doc.Size {
			pl.unchanged = append(pl.unchanged, doc)
			continue
		}

		content, err := doc.Load()
		if err != nil {
			ix.obs.Log().Warn().Str("path", doc.Path).Err(err).Msg("skipping unreadable file")
			pl.skipped++
			if known {
				pl.carryPaths = append(pl.carryPaths, doc.Path)
			}
			continue
		}
		sum := sha256.Sum256([]byte(content))
		sha := hex.EncodeToString(sum[:])

		switch {
		case known && !force && prev.SHA256 == sha:
			// Touched but identical; refresh the fingerprint only.
			pl.unchanged = append(pl.unchanged, doc)
			pl.refreshMetas = append(pl.refreshMetas, model.FileMeta{
				Path:       doc.Path,
				MTime:      doc.MTime,
				Size:       doc.Size,
				SHA256:     sha,
				ChunkCount: prev.ChunkCount,
			})
		case known:
			pl.changed = append(pl.changed, pendingFile{doc: doc, content: content, sha: sha})
		default:
			pl.added = append(pl.added, pendingFile{doc: doc, content: content, sha: sha})
		}
	}

	for path := range stored {
		if !seen[path] {
			pl.deleted = append(pl.deleted, path)
		}
	}
	return pl
}

// commitFast embeds only the fresh chunks under the live vocabulary and
// leaves the version untouched. New terms weigh zero; this is the labeled
// lower-accuracy mode.
func (ix *Indexer) commitFast(ctx context.Context, projectID, root string, fresh []model.Chunk, fileMetas []model.FileMeta, removePaths []string) error {
	state, err := ix.store.FetchVocabulary(ctx, projectID)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("fast path requires an existing vocabulary; run a full index first")
	}
	for i := range fresh {
		vec, err := ix.embedder.Embed(ctx, fresh[i].EmbeddingText(), state)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", fresh[i].ID, err)
		}
		fresh[i].Vector = vec
		fresh[i].VocabVer = state.Version
	}
	if _, err := ix.store.CommitIndex(ctx, store.CommitParams{
		ProjectID:   projectID,
		RootPath:    root,
		Backend:     ix.embedder.Name(),
		Chunks:      fresh,
		FileMetas:   fileMetas,
		RemovePaths: removePaths,
	}); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	return nil
}

func (ix *Indexer) summarize(ctx context.Context, projectID string, pl *plan, newChunks int) (*model.ProjectInfo, error) {
	info, err := ix.store.Info(ctx, projectID)
	if err != nil {
		return nil, err
	}
	info.UnchangedFiles = len(pl.unchanged)
	info.ChangedFiles = len(pl.changed)
	info.NewFiles = len(pl.added)
	info.DeletedFiles = len(pl.deleted)
	info.SkippedFiles = pl.skipped
	info.NewChunks = newChunks
	return info, nil
}
