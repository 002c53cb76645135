package store

import (
	"context"

	"github.com/membootio/memboot/internal/model"
)

// ExportMemories returns all memories for a project, oldest first, for
// serialization. Vectors are omitted from exports; an import re-embeds
// under the importing project's live vocabulary.
func (s *SQLiteStore) ExportMemories(ctx context.Context, projectID string) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, kind, content, tags, vector, vocab_version, created_at
		FROM memories WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		m.Vector = nil
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}
