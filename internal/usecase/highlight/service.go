// Package highlight marks the words of each doc that are semantically close
// to the query.
package highlight

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/qtext/internal/domain"
)

// Defaults.
const (
	DefaultThreshold = 0.8
	DefaultTemplate  = "<mark>{}</mark>"
)

const continuation = "##"

// Request is a highlight call.
type Request struct {
	Query           string
	Docs            []string
	Threshold       float64
	IgnoreStopwords bool
	Template        string
}

// NewRequest fills defaults. A nil threshold means DefaultThreshold, a nil
// ignoreStopwords means true, an empty template means DefaultTemplate.
func NewRequest(query string, docs []string, threshold *float64, ignoreStopwords *bool, template string) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, domain.NewValidationError("query", "must not be empty")
	}
	req := Request{
		Query:           query,
		Docs:            docs,
		Threshold:       DefaultThreshold,
		IgnoreStopwords: true,
		Template:        template,
	}
	if threshold != nil {
		req.Threshold = *threshold
	}
	if ignoreStopwords != nil {
		req.IgnoreStopwords = *ignoreStopwords
	}
	if req.Template == "" {
		req.Template = DefaultTemplate
	}
	return req, nil
}

// Service highlights docs with a token scorer.
type Service struct {
	scorer TokenScorer
}

// New creates a highlight service.
func New(scorer TokenScorer) *Service {
	return &Service{scorer: scorer}
}

// Highlight returns one highlighted string per doc.
func (s *Service) Highlight(ctx context.Context, req Request) ([]string, error) {
	if len(req.Docs) == 0 {
		return []string{}, nil
	}
	scored, err := s.scorer.ScoreTokens(ctx, req.Query, req.Docs)
	if err != nil {
		return nil, fmt.Errorf("score tokens: %w", err)
	}

	out := make([]string, len(scored))
	for i, tokens := range scored {
		out[i] = render(tokens, req)
	}
	return out, nil
}

// render glues word pieces back into words and wraps the marked ones.
func render(tokens []domain.TokenScore, req Request) string {
	var (
		words  []string
		marked []bool
	)
	for _, tok := range tokens {
		if rest, ok := strings.CutPrefix(tok.Text, continuation); ok && len(words) > 0 {
			last := len(words) - 1
			words[last] += rest
			if tok.Score >= req.Threshold {
				marked[last] = true
			}
			continue
		}

		words = append(words, tok.Text)
		marked = append(marked, false)
		if req.IgnoreStopwords && isStopword(tok.Text) {
			continue
		}
		if tok.Score >= req.Threshold {
			marked[len(marked)-1] = true
		}
	}

	for i, w := range words {
		if marked[i] {
			words[i] = strings.ReplaceAll(req.Template, "{}", w)
		}
	}
	return strings.Join(words, " ")
}

func isStopword(word string) bool {
	_, ok := englishStopwords[strings.ToLower(word)]
	return ok
}
