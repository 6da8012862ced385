package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qtext/internal/domain"
)

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingServer(t *testing.T, vec []float32, tokens int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
		if vec != nil {
			resp.Data = append(resp.Data, embeddingData{Object: "embedding", Embedding: vec})
		}
		resp.Usage.PromptTokens = tokens
		resp.Usage.TotalTokens = tokens

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newEmbedder(url string, dims int) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "test-model",
		Dimensions: dims,
		Logger:     zap.NewNop(),
	})
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}
	server := embeddingServer(t, expectedVec, 10)

	result, err := newEmbedder(server.URL, 4).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
}

func TestEmbedder_EmbedReturnsUsage(t *testing.T) {
	server := embeddingServer(t, []float32{0.1, 0.2}, 42)

	result, err := newEmbedder(server.URL, 0).Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if result.PromptTokens != 42 || result.TotalTokens != 42 {
		t.Errorf("unexpected usage: %+v", result)
	}
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	server := embeddingServer(t, nil, 0)

	_, err := newEmbedder(server.URL, 0).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator, got %v", err)
	}
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	server := embeddingServer(t, []float32{0.1, 0.2}, 1)

	_, err := newEmbedder(server.URL, 768).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	_, err := newEmbedder(server.URL, 0).Embed(context.Background(), "hello")

	var collErr *domain.CollaboratorError
	if !errors.As(err, &collErr) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if collErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", collErr.StatusCode)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"model not found"}`)); got != "model not found" {
		t.Errorf("unexpected detail: %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("expected empty detail, got %q", got)
	}
}
