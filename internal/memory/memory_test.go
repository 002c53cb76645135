package memory

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/membootio/memboot/internal/embedding"
	"github.com/membootio/memboot/internal/model"
	"github.com/membootio/memboot/internal/observe"
	"github.com/membootio/memboot/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	svc := NewService(s, embedding.NewTFIDF(64), observe.New(io.Discard, false))
	return svc, s
}

func TestRememberBootstrapsVocabulary(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	mem, err := svc.Remember(ctx, "p1", "Use JWT for auth", model.MemoryDecision, []string{"security"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if mem.ID == "" {
		t.Error("expected assigned ID")
	}
	if mem.VocabVer != 1 {
		t.Errorf("bootstrap version: got %d, want 1", mem.VocabVer)
	}
	if len(mem.Vector) == 0 {
		t.Error("memory not embedded")
	}

	state, err := s.FetchVocabulary(ctx, "p1")
	if err != nil || state == nil {
		t.Fatalf("vocabulary not installed: %v, %v", state, err)
	}
	if state.Version != 1 {
		t.Errorf("installed version: got %d, want 1", state.Version)
	}
}

func TestRememberUsesLiveVocabulary(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	if _, err := svc.Remember(ctx, "p1", "first note about caching", model.MemoryNote, nil); err != nil {
		t.Fatalf("first remember: %v", err)
	}
	second, err := svc.Remember(ctx, "p1", "second note about retries", model.MemoryNote, nil)
	if err != nil {
		t.Fatalf("second remember: %v", err)
	}

	// No refit on the second call: it embeds under the existing version.
	if second.VocabVer != 1 {
		t.Errorf("second memory version: got %d, want 1", second.VocabVer)
	}
	state, _ := s.FetchVocabulary(ctx, "p1")
	if state.Version != 1 {
		t.Errorf("vocabulary version moved: %d", state.Version)
	}
}

func TestRememberRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Remember(ctx, "p1", "   ", model.MemoryNote, nil); err == nil {
		t.Error("expected error for empty content")
	}
	if _, err := svc.Remember(ctx, "p1", "content", "sonnet", nil); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestListFiltersByKind(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	svc.Remember(ctx, "p1", "picked sqlite over postgres", model.MemoryDecision, nil)
	svc.Remember(ctx, "p1", "tests are slow on ci", model.MemoryObservation, nil)

	decisions, err := svc.List(ctx, "p1", model.MemoryDecision)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Kind != model.MemoryDecision {
		t.Errorf("kind filter: %+v", decisions)
	}

	all, err := svc.List(ctx, "p1", "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 memories, got %d", len(all))
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	mem, err := svc.Remember(ctx, "p1", "temporary note", model.MemoryNote, nil)
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	if err := svc.Forget(ctx, "p1", mem.ID); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if err := svc.Forget(ctx, "p1", mem.ID); err == nil {
		t.Error("forgetting twice should fail")
	}
	if err := svc.Forget(ctx, "p1", "no-such-id"); err == nil {
		t.Error("unknown ID should fail")
	}
}

func TestForgetScopedToProject(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	mem, err := svc.Remember(ctx, "p1", "belongs to p1", model.MemoryNote, nil)
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if err := svc.Forget(ctx, "p2", mem.ID); err == nil {
		t.Error("cross-project forget should fail")
	}
}
