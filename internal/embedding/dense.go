package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/membootio/memboot/internal/model"
)

// Dense backends have no corpus statistics to fit: Fit returns a termless
// state that only carries the model dimension, and Embed ignores the term
// table. The state still versions so the query-side consistency check works
// the same way for every backend.

// --- OpenAI-compatible provider ---

// OpenAIEmbedder uses any OpenAI-compatible embedding API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbedder creates an embedder against an OpenAI-compatible API.
func NewOpenAIEmbedder(baseURL, apiKey, modelName string, dims int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = string(openai.SmallEmbedding3)
	}
	if dims == 0 {
		dims = 1536
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  modelName,
		dims:   dims,
	}
}

// NewOpenAIEmbedderFromEnv reads MEMBOOT_EMBED_URL, MEMBOOT_EMBED_MODEL,
// and OPENAI_API_KEY.
func NewOpenAIEmbedderFromEnv() *OpenAIEmbedder {
	return NewOpenAIEmbedder(
		os.Getenv("MEMBOOT_EMBED_URL"),
		os.Getenv("OPENAI_API_KEY"),
		os.Getenv("MEMBOOT_EMBED_MODEL"),
		0,
	)
}

func (e *OpenAIEmbedder) Name() string { return "openai" }

func (e *OpenAIEmbedder) Fit(_ []string) (*model.VocabularyState, error) {
	return &model.VocabularyState{Dimension: e.dims}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, state *model.VocabularyState) (Vector, error) {
	if state == nil {
		return nil, ErrNotFitted
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: no embedding returned")
	}
	vec := resp.Data[0].Embedding
	normalize(vec)
	return vec, nil
}

// --- Ollama provider ---

// OllamaEmbedder uses a local Ollama instance for embeddings.
type OllamaEmbedder struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaEmbedder creates an embedder using Ollama's API.
// Default model: nomic-embed-text (768 dims), all-minilm (384 dims).
func NewOllamaEmbedder(modelName string) *OllamaEmbedder {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		if env := os.Getenv("MEMBOOT_EMBED_MODEL"); env != "" {
			modelName = env
		} else {
			modelName = "nomic-embed-text"
		}
	}
	dims := 768
	if modelName == "all-minilm" {
		dims = 384
	}
	return &OllamaEmbedder{
		baseURL: baseURL,
		model:   modelName,
		dims:    dims,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OllamaEmbedder) Name() string { return "ollama" }

func (e *OllamaEmbedder) Fit(_ []string) (*model.VocabularyState, error) {
	return &model.VocabularyState{Dimension: e.dims}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string, state *model.VocabularyState) (Vector, error) {
	if state == nil {
		return nil, ErrNotFitted
	}
	body, _ := json.Marshal(ollamaRequest{Model: e.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(b))
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	normalize(result.Embedding)
	return result.Embedding, nil
}
