package highlight

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/qtext/internal/domain"
)

type mockScorer struct {
	scoreFn func(ctx context.Context, query string, docs []string) ([][]domain.TokenScore, error)
	calls   int
}

func (m *mockScorer) ScoreTokens(ctx context.Context, query string, docs []string) ([][]domain.TokenScore, error) {
	m.calls++
	return m.scoreFn(ctx, query, docs)
}

func tokens(pairs ...any) []domain.TokenScore {
	out := make([]domain.TokenScore, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, domain.TokenScore{Text: pairs[i].(string), Score: pairs[i+1].(float64)})
	}
	return out
}

func defaultRequest(t *testing.T, docs ...string) Request {
	t.Helper()
	req, err := NewRequest("Python", docs, nil, nil, "")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func TestHighlight_LifeIsShort(t *testing.T) {
	scorer := &mockScorer{scoreFn: func(_ context.Context, query string, docs []string) ([][]domain.TokenScore, error) {
		if query != "Python" || len(docs) != 1 {
			t.Errorf("unexpected call: %q %v", query, docs)
		}
		return [][]domain.TokenScore{tokens(
			"Life", 0.1, "is", 0.9, "short", 0.2, ",", 0.0,
			"I", 0.85, "use", 0.3, "Py", 0.5, "##thon", 0.95,
		)}, nil
	}}

	out, err := New(scorer).Highlight(context.Background(), defaultRequest(t, "Life is short, I use Python"))
	if err != nil {
		t.Fatalf("Highlight failed: %v", err)
	}
	want := []string{"Life is short , I use <mark>Python</mark>"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestHighlight_StopwordsMarkedWhenNotIgnored(t *testing.T) {
	scorer := &mockScorer{scoreFn: func(context.Context, string, []string) ([][]domain.TokenScore, error) {
		return [][]domain.TokenScore{tokens("is", 0.9, "fast", 0.9)}, nil
	}}
	ignore := false
	threshold := 0.5
	req, err := NewRequest("q", []string{"is fast"}, &threshold, &ignore, "[{}]")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	out, err := New(scorer).Highlight(context.Background(), req)
	if err != nil {
		t.Fatalf("Highlight failed: %v", err)
	}
	if out[0] != "[is] [fast]" {
		t.Errorf("unexpected output: %q", out[0])
	}
}

func TestRender_ContinuationRules(t *testing.T) {
	req := Request{Threshold: 0.8, IgnoreStopwords: true, Template: "*{}*"}
	tests := []struct {
		name   string
		tokens []domain.TokenScore
		want   string
	}{
		{"leading continuation starts a word", tokens("##ing", 0.9, "go", 0.1), "*##ing* go"},
		{"continuation marks the word", tokens("run", 0.1, "##ning", 0.9), "*running*"},
		{"continuation marks a stopword", tokens("the", 0.95, "##e", 0.9), "*thee*"},
		{"stopword lead not marked", tokens("The", 0.99), "The"},
		{"template repeated", tokens("go", 0.9), "*go*"},
		{"empty doc", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(tt.tokens, req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	double := Request{Threshold: 0.5, Template: "{}:{}"}
	if got := render(tokens("go", 0.9), double); got != "go:go" {
		t.Errorf("every placeholder must be filled, got %q", got)
	}
}

func TestHighlight_NoDocsSkipsScorer(t *testing.T) {
	scorer := &mockScorer{}
	out, err := New(scorer).Highlight(context.Background(), defaultRequest(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 || scorer.calls != 0 {
		t.Errorf("expected no call, got %d", scorer.calls)
	}
}

func TestHighlight_ScorerError(t *testing.T) {
	scorer := &mockScorer{scoreFn: func(context.Context, string, []string) ([][]domain.TokenScore, error) {
		return nil, &domain.CollaboratorError{Service: "highlight", StatusCode: 500}
	}}
	_, err := New(scorer).Highlight(context.Background(), defaultRequest(t, "x"))
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator, got %v", err)
	}
}

func TestNewRequest(t *testing.T) {
	if _, err := NewRequest(" ", nil, nil, nil, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	req, err := NewRequest("q", []string{"a"}, nil, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Threshold != DefaultThreshold || !req.IgnoreStopwords || req.Template != DefaultTemplate {
		t.Errorf("defaults not applied: %+v", req)
	}
}
