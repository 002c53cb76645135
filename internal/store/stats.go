package store

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/membootio/memboot/internal/model"
)

// Stats holds database statistics for one project.
type Stats struct {
	DBPath        string      `json:"db_path"`
	DBSizeBytes   int64       `json:"db_size_bytes"`
	ChunkCount    int         `json:"chunk_count"`
	MemoryCount   int         `json:"memory_count"`
	FileCount     int         `json:"file_count"`
	VocabVersion  int         `json:"vocab_version"`
	Dimension     int         `json:"embedding_dim"`
	Backend       string      `json:"embedding_backend,omitempty"`
	LastIndexedAt string      `json:"last_indexed_at,omitempty"`
	Kinds         []KindCount `json:"kinds,omitempty"`
}

// KindCount holds per-chunk-kind counts.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Stats returns database statistics for a project.
func (s *SQLiteStore) Stats(ctx context.Context, projectID string) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE project_id = ?`, projectID).Scan(&st.ChunkCount)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE project_id = ?`, projectID).Scan(&st.MemoryCount)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE project_id = ?`, projectID).Scan(&st.FileCount)
	s.db.QueryRowContext(ctx, `SELECT version, dimension FROM vocabulary WHERE project_id = ?`, projectID).
		Scan(&st.VocabVersion, &st.Dimension)
	st.Backend, _ = s.Meta(ctx, "backend")
	st.LastIndexedAt, _ = s.Meta(ctx, "last_indexed_at")

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_kind, COUNT(*) AS cnt FROM chunks
		WHERE project_id = ? GROUP BY chunk_kind ORDER BY cnt DESC`, projectID)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var kc KindCount
		rows.Scan(&kc.Kind, &kc.Count)
		st.Kinds = append(st.Kinds, kc)
	}

	return st, rows.Err()
}

// Info summarizes the project for callers that want the derived
// ProjectInfo shape.
func (s *SQLiteStore) Info(ctx context.Context, projectID string) (*model.ProjectInfo, error) {
	info := &model.ProjectInfo{ProjectID: projectID, DBPath: s.path}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE project_id = ?`, projectID).Scan(&info.ChunkCount)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE project_id = ?`, projectID).Scan(&info.MemoryCount)

	err := s.db.QueryRowContext(ctx,
		`SELECT version, dimension FROM vocabulary WHERE project_id = ?`, projectID).
		Scan(&info.VocabVersion, &info.Dimension)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	info.RootPath, _ = s.Meta(ctx, "root_path")
	info.Backend, _ = s.Meta(ctx, "backend")
	if raw, _ := s.Meta(ctx, "last_indexed_at"); raw != "" {
		if t, err := time.Parse(timeFormat, raw); err == nil {
			info.LastIndexedAt = &t
		}
	}
	return info, nil
}
