// Package embedding provides a pluggable interface for text embedding
// backends and the persistence codec for the shared vocabulary state.
package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/membootio/memboot/internal/gate"
	"github.com/membootio/memboot/internal/model"
)

var (
	// ErrEmptyCorpus is returned when fitting over zero documents.
	ErrEmptyCorpus = errors.New("cannot fit on empty corpus")

	// ErrNotFitted is returned when embedding without a vocabulary state.
	ErrNotFitted = errors.New("embedder not fitted")
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder converts text to fixed-length vectors under a vocabulary state.
// Both the statistical and the dense variants satisfy this contract, so the
// rest of the pipeline is embedder-agnostic. Embed must return L2-normalized
// vectors of exactly state.Dimension length.
type Embedder interface {
	Name() string
	Fit(corpus []string) (*model.VocabularyState, error)
	Embed(ctx context.Context, text string, state *model.VocabularyState) (Vector, error)
}

// EncodeState serializes a vocabulary state to a self-describing byte form.
func EncodeState(state *model.VocabularyState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("encode state: %w", ErrNotFitted)
	}
	return json.Marshal(state)
}

// DecodeState restores a vocabulary state. Restoration is deterministic:
// Go's shortest-representation float encoding round-trips float32 exactly.
func DecodeState(blob []byte) (*model.VocabularyState, error) {
	var state model.VocabularyState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decode vocabulary state: %w", err)
	}
	if state.Dimension <= 0 {
		return nil, fmt.Errorf("decode vocabulary state: non-positive dimension %d", state.Dimension)
	}
	for term, idx := range state.Terms {
		if idx < 0 || idx >= state.Dimension {
			return nil, fmt.Errorf("decode vocabulary state: term %q index %d out of range", term, idx)
		}
	}
	return &state, nil
}

// Dot computes the dot product of two pre-normalized vectors, which equals
// their cosine similarity.
func Dot(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// CosineSimilarity computes cosine similarity between two vectors that are
// not assumed to be normalized.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func normalize(v Vector) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// New creates an embedder for the named backend. Dense backends are gated;
// the engine is fully functional with gating disabled, in which case only
// the statistical backend is available.
func New(backend string, maxFeatures int, g gate.Gate) (Embedder, error) {
	switch backend {
	case "", "tfidf":
		return NewTFIDF(maxFeatures), nil
	case "openai", "ollama":
		if g == nil || !g.Enabled(gate.FeatureDenseEmbeddings) {
			return nil, fmt.Errorf("backend %q requires the %s feature", backend, gate.FeatureDenseEmbeddings)
		}
		if backend == "openai" {
			return NewOpenAIEmbedderFromEnv(), nil
		}
		return NewOllamaEmbedder(""), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend: %s", backend)
	}
}
