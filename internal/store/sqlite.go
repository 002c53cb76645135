package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/membootio/memboot/internal/embedding"
	"github.com/membootio/memboot/internal/model"
)

const timeFormat = time.RFC3339Nano

// SQLiteStore implements Store using SQLite. One store instance per
// project database; a single writer at a time is assumed, readers are safe
// against committed state thanks to WAL.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// Safe to call repeatedly for the same path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// NewID returns a fresh ULID.
func (s *SQLiteStore) NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL,
		source_path   TEXT NOT NULL,
		content       TEXT NOT NULL,
		title         TEXT,
		start_offset  INTEGER NOT NULL,
		end_offset    INTEGER NOT NULL,
		chunk_kind    TEXT NOT NULL,
		vector        BLOB,
		vocab_version INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		UNIQUE (project_id, source_path, start_offset)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_project_path ON chunks(project_id, source_path);

	CREATE TABLE IF NOT EXISTS memories (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL,
		kind          TEXT NOT NULL,
		content       TEXT NOT NULL,
		tags          TEXT,
		vector        BLOB,
		vocab_version INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS vocabulary (
		project_id TEXT PRIMARY KEY,
		version    INTEGER NOT NULL,
		dimension  INTEGER NOT NULL,
		state      BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS files (
		project_id  TEXT NOT NULL,
		path        TEXT NOT NULL,
		mtime       TEXT NOT NULL,
		size        INTEGER NOT NULL,
		sha256      TEXT NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (project_id, path)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const chunkUpsert = `
	INSERT INTO chunks (id, project_id, source_path, content, title, start_offset, end_offset, chunk_kind, vector, vocab_version, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (project_id, source_path, start_offset) DO UPDATE SET
		content = excluded.content,
		title = excluded.title,
		end_offset = excluded.end_offset,
		chunk_kind = excluded.chunk_kind,
		vector = excluded.vector,
		vocab_version = excluded.vocab_version`

const memoryUpsert = `
	INSERT INTO memories (id, project_id, kind, content, tags, vector, vocab_version, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		vector = excluded.vector,
		vocab_version = excluded.vocab_version`

func upsertChunkTx(ctx context.Context, tx *sql.Tx, c *model.Chunk) error {
	_, err := tx.ExecContext(ctx, chunkUpsert,
		c.ID, c.ProjectID, c.SourcePath, c.Content, c.Title,
		c.StartOffset, c.EndOffset, string(c.Kind),
		EncodeVector(c.Vector), c.VocabVer, c.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
	}
	return nil
}

func upsertMemoryTx(ctx context.Context, tx *sql.Tx, m *model.Memory) error {
	var tagsJSON *string
	if len(m.Tags) > 0 {
		b, _ := json.Marshal(m.Tags)
		s := string(b)
		tagsJSON = &s
	}
	_, err := tx.ExecContext(ctx, memoryUpsert,
		m.ID, m.ProjectID, string(m.Kind), m.Content, tagsJSON,
		EncodeVector(m.Vector), m.VocabVer, m.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("upsert memory %s: %w", m.ID, err)
	}
	return nil
}

// UpsertChunks writes chunks in one transaction.
func (s *SQLiteStore) UpsertChunks(ctx context.Context, chunks []model.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range chunks {
		if err := upsertChunkTx(ctx, tx, &chunks[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertMemories writes memories in one transaction.
func (s *SQLiteStore) UpsertMemories(ctx context.Context, memories []model.Memory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range memories {
		if err := upsertMemoryTx(ctx, tx, &memories[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FetchVocabulary loads the live vocabulary state, or nil when the project
// has never been fitted.
func (s *SQLiteStore) FetchVocabulary(ctx context.Context, projectID string) (*model.VocabularyState, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM vocabulary WHERE project_id = ?`, projectID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch vocabulary: %w", err)
	}
	return embedding.DecodeState(blob)
}

// ReplaceVocabulary installs state as the live vocabulary, assigning the
// next version number. Returns the assigned version.
func (s *SQLiteStore) ReplaceVocabulary(ctx context.Context, projectID string, state *model.VocabularyState) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	version, err := replaceVocabularyTx(ctx, tx, projectID, state)
	if err != nil {
		return 0, err
	}
	return version, tx.Commit()
}

func replaceVocabularyTx(ctx context.Context, tx *sql.Tx, projectID string, state *model.VocabularyState) (int, error) {
	var current int
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM vocabulary WHERE project_id = ?`, projectID).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("read vocabulary version: %w", err)
	}

	state.Version = current + 1
	blob, err := embedding.EncodeState(state)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vocabulary (project_id, version, dimension, state, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project_id) DO UPDATE SET
			version = excluded.version,
			dimension = excluded.dimension,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		projectID, state.Version, state.Dimension, blob, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("replace vocabulary: %w", err)
	}
	return state.Version, nil
}

// ScanVectors yields every stored chunk and memory vector for a project.
func (s *SQLiteStore) ScanVectors(ctx context.Context, projectID string) ([]VectorRow, error) {
	var out []VectorRow

	scan := func(query string, typ model.EntityType) error {
		rows, err := s.db.QueryContext(ctx, query, projectID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id, createdAt string
			var blob []byte
			var ver int
			if err := rows.Scan(&id, &blob, &ver, &createdAt); err != nil {
				return err
			}
			vec, err := DecodeVector(blob)
			if err != nil {
				return fmt.Errorf("%s %s: %w", typ, id, err)
			}
			t, _ := time.Parse(timeFormat, createdAt)
			out = append(out, VectorRow{
				Ref:       model.EntityRef{Type: typ, ID: id},
				Vector:    vec,
				VocabVer:  ver,
				CreatedAt: t,
			})
		}
		return rows.Err()
	}

	if err := scan(`SELECT id, vector, vocab_version, created_at FROM chunks
		WHERE project_id = ? AND vector IS NOT NULL`, model.EntityChunk); err != nil {
		return nil, fmt.Errorf("scan chunk vectors: %w", err)
	}
	if err := scan(`SELECT id, vector, vocab_version, created_at FROM memories
		WHERE project_id = ? AND vector IS NOT NULL`, model.EntityMemory); err != nil {
		return nil, fmt.Errorf("scan memory vectors: %w", err)
	}
	return out, nil
}

// GetChunk retrieves a chunk by ID, or nil when absent.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*model.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, source_path, content, title, start_offset, end_offset, chunk_kind, vector, vocab_version, created_at
		FROM chunks WHERE id = ?`, id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetMemory retrieves a memory by ID, or nil when absent.
func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, kind, content, tags, vector, vocab_version, created_at
		FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ChunksByPath returns all chunks from one source file, ordered by offset.
func (s *SQLiteStore) ChunksByPath(ctx context.Context, projectID, path string) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, source_path, content, title, start_offset, end_offset, chunk_kind, vector, vocab_version, created_at
		FROM chunks WHERE project_id = ? AND source_path = ? ORDER BY start_offset`, projectID, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

// AllMemories lists memories newest first, optionally filtered by kind.
func (s *SQLiteStore) AllMemories(ctx context.Context, projectID string, kind model.MemoryKind) ([]model.Memory, error) {
	query := `SELECT id, project_id, kind, content, tags, vector, vocab_version, created_at
		FROM memories WHERE project_id = ?`
	args := []interface{}{projectID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

// DeleteMemory removes a memory. Returns whether it existed.
func (s *SQLiteStore) DeleteMemory(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// FileMetas returns the stored file fingerprints keyed by path.
func (s *SQLiteStore) FileMetas(ctx context.Context, projectID string) (map[string]model.FileMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, mtime, size, sha256, chunk_count FROM files WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metas := make(map[string]model.FileMeta)
	for rows.Next() {
		var fm model.FileMeta
		var mtime string
		if err := rows.Scan(&fm.Path, &mtime, &fm.Size, &fm.SHA256, &fm.ChunkCount); err != nil {
			return nil, err
		}
		fm.MTime, _ = time.Parse(timeFormat, mtime)
		metas[fm.Path] = fm
	}
	return metas, rows.Err()
}

// DeleteProject removes all state for a project.
func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM chunks WHERE project_id = ?`,
		`DELETE FROM memories WHERE project_id = ?`,
		`DELETE FROM vocabulary WHERE project_id = ?`,
		`DELETE FROM files WHERE project_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, projectID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
	}
	return tx.Commit()
}

// CommitIndex applies one index run atomically: removed files are dropped,
// chunks and memories (all re-embedded) are upserted, file fingerprints are
// refreshed, and the vocabulary is replaced, all in a single transaction.
// A crash mid-write leaves the previous committed state fully intact.
func (s *SQLiteStore) CommitIndex(ctx context.Context, p CommitParams) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, path := range p.RemovePaths {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunks WHERE project_id = ? AND source_path = ?`, p.ProjectID, path); err != nil {
			return 0, fmt.Errorf("remove chunks for %s: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM files WHERE project_id = ? AND path = ?`, p.ProjectID, path); err != nil {
			return 0, fmt.Errorf("remove file meta for %s: %w", path, err)
		}
	}

	version := 0
	if p.State != nil {
		version, err = replaceVocabularyTx(ctx, tx, p.ProjectID, p.State)
		if err != nil {
			return 0, err
		}
	}

	for i := range p.Chunks {
		if p.State != nil {
			p.Chunks[i].VocabVer = version
		}
		if err := upsertChunkTx(ctx, tx, &p.Chunks[i]); err != nil {
			return 0, err
		}
	}
	for i := range p.Memories {
		if p.State != nil {
			p.Memories[i].VocabVer = version
		}
		if err := upsertMemoryTx(ctx, tx, &p.Memories[i]); err != nil {
			return 0, err
		}
	}

	for _, fm := range p.FileMetas {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO files (project_id, path, mtime, size, sha256, chunk_count)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (project_id, path) DO UPDATE SET
				mtime = excluded.mtime,
				size = excluded.size,
				sha256 = excluded.sha256,
				chunk_count = excluded.chunk_count`,
			p.ProjectID, fm.Path, fm.MTime.UTC().Format(timeFormat), fm.Size, fm.SHA256, fm.ChunkCount)
		if err != nil {
			return 0, fmt.Errorf("upsert file meta %s: %w", fm.Path, err)
		}
	}

	now := time.Now().UTC().Format(timeFormat)
	for k, v := range map[string]string{
		"last_indexed_at": now,
		"root_path":       p.RootPath,
		"backend":         p.Backend,
	} {
		if v == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return 0, fmt.Errorf("set meta %s: %w", k, err)
		}
	}

	return version, tx.Commit()
}

// Meta reads a metadata value, empty when unset.
func (s *SQLiteStore) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row scanner) (*model.Chunk, error) {
	var c model.Chunk
	var title sql.NullString
	var blob []byte
	var kind, createdAt string

	err := row.Scan(&c.ID, &c.ProjectID, &c.SourcePath, &c.Content, &title,
		&c.StartOffset, &c.EndOffset, &kind, &blob, &c.VocabVer, &createdAt)
	if err != nil {
		return nil, err
	}
	if title.Valid {
		c.Title = title.String
	}
	c.Kind = model.ChunkKind(kind)
	c.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	if c.Vector, err = DecodeVector(blob); err != nil {
		return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
	}
	return &c, nil
}

func scanMemory(row scanner) (*model.Memory, error) {
	var m model.Memory
	var tagsJSON sql.NullString
	var blob []byte
	var kind, createdAt string

	err := row.Scan(&m.ID, &m.ProjectID, &kind, &m.Content, &tagsJSON, &blob, &m.VocabVer, &createdAt)
	if err != nil {
		return nil, err
	}
	m.Kind = model.MemoryKind(kind)
	m.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	if tagsJSON.Valid && tagsJSON.String != "" {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	if m.Vector, err = DecodeVector(blob); err != nil {
		return nil, fmt.Errorf("memory %s: %w", m.ID, err)
	}
	return &m, nil
}

// DBPathFor derives the per-project database path. Override the home
// directory with MEMBOOT_HOME.
func DBPathFor(root string) string {
	home := os.Getenv("MEMBOOT_HOME")
	if home == "" {
		userHome, _ := os.UserHomeDir()
		home = filepath.Join(userHome, ".memboot")
	}
	return filepath.Join(home, model.ProjectID(root)+".db")
}

// Open opens the store for a project root, creating it if needed.
func Open(root string) (*SQLiteStore, error) {
	return NewSQLiteStore(DBPathFor(root))
}
