package contextbuild

import (
	"strings"
	"testing"
	"time"

	"github.com/membootio/memboot/internal/model"
	"github.com/membootio/memboot/internal/query"
)

func chunkResult(source, content string, score float64) query.Result {
	return query.Result{
		Ref:       model.EntityRef{Type: model.EntityChunk, ID: source},
		Content:   content,
		Source:    source,
		Kind:      string(model.KindCodeUnit),
		EndOffset: len(content),
		Score:     score,
		CreatedAt: time.Now(),
	}
}

func TestBuildEmptyResults(t *testing.T) {
	out := Build(nil, 100)
	if out != "## No relevant context found.\n" {
		t.Errorf("empty render: %q", out)
	}
}

func TestBuildRendersChunks(t *testing.T) {
	results := []query.Result{
		chunkResult("a.py", "def f():\n    pass", 0.91),
		chunkResult("b.md", "Some docs here.", 0.42),
	}
	out := Build(results, 1000)

	if !strings.HasPrefix(out, "## Relevant Context (2 results)") {
		t.Errorf("header: %q", out[:40])
	}
	if !strings.Contains(out, "### a.py:0-17 (code_unit)") {
		t.Errorf("chunk header missing:\n%s", out)
	}
	if !strings.Contains(out, "```\ndef f():\n    pass\n```") {
		t.Errorf("fenced content missing:\n%s", out)
	}
	if !strings.Contains(out, "*Score: 0.910*") {
		t.Errorf("score line missing:\n%s", out)
	}
	if strings.Index(out, "a.py") > strings.Index(out, "b.md") {
		t.Error("rank order not preserved")
	}
}

func TestBuildRendersMemories(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	results := []query.Result{{
		Ref:        model.EntityRef{Type: model.EntityMemory, ID: "m1"},
		Content:    "Use JWT for auth",
		Source:     "memory:m1",
		MemoryKind: model.MemoryDecision,
		Score:      0.8,
		CreatedAt:  created,
	}}
	out := Build(results, 1000)
	if !strings.Contains(out, "### Memory (decision, 2026-03-14 09:30)") {
		t.Errorf("memory header missing:\n%s", out)
	}
}

func TestBuildStopsAtBudget(t *testing.T) {
	// Each entry costs len/4 + 20 tokens; 32 chars -> 28 tokens.
	content := strings.Repeat("x", 32)
	results := []query.Result{
		chunkResult("a.py", content, 0.9),
		chunkResult("b.py", content, 0.8),
		chunkResult("c.py", content, 0.7),
	}

	out := Build(results, 60)
	if !strings.Contains(out, "(2 results)") {
		t.Errorf("expected exactly 2 results under a 60-token budget:\n%s", out)
	}
	if strings.Contains(out, "c.py") {
		t.Error("third entry should not fit")
	}
}

func TestBuildNeverTruncatesEntries(t *testing.T) {
	big := chunkResult("big.py", strings.Repeat("y", 4000), 0.99)
	small := chunkResult("small.py", "tiny", 0.5)

	out := Build([]query.Result{big, small}, 100)
	// The oversized first entry stops assembly outright; nothing partial.
	if strings.Contains(out, "yyyy") {
		t.Error("oversized entry included or truncated into the block")
	}
	if !strings.Contains(out, "No relevant context found") {
		t.Errorf("expected empty block when the top entry overflows:\n%s", out)
	}
}

func TestEstimateTokens(t *testing.T) {
	r := chunkResult("a.py", strings.Repeat("z", 40), 0.5)
	if got := EstimateTokens(r); got != 30 {
		t.Errorf("estimate: got %d, want 30", got)
	}
}
