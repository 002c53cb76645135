package embedding

import (
	"testing"

	"github.com/membootio/memboot/internal/gate"
)

func TestNewDefaultsToTFIDF(t *testing.T) {
	for _, backend := range []string{"", "tfidf"} {
		emb, err := New(backend, 128, gate.Disabled{})
		if err != nil {
			t.Fatalf("backend %q: %v", backend, err)
		}
		if emb.Name() != "tfidf" {
			t.Errorf("backend %q: got %s", backend, emb.Name())
		}
	}
}

func TestNewDenseBackendsGated(t *testing.T) {
	for _, backend := range []string{"openai", "ollama"} {
		if _, err := New(backend, 0, gate.Disabled{}); err == nil {
			t.Errorf("backend %q should be gated", backend)
		}
		if _, err := New(backend, 0, gate.Static{gate.FeatureDenseEmbeddings: true}); err != nil {
			t.Errorf("backend %q with feature enabled: %v", backend, err)
		}
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("word2vec", 0, gate.Disabled{}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
