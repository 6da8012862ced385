package rank

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/record"
)

// Pipeline applies rankers in order; each step sees the previous step's output.
type Pipeline struct {
	steps []Ranker
}

// NewPipeline creates a pipeline. At least one step is required.
func NewPipeline(steps ...Ranker) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: ranking pipeline has no steps", domain.ErrConfiguration)
	}
	return &Pipeline{steps: append([]Ranker(nil), steps...)}, nil
}

// RankRecords runs every step over docs.
func (p *Pipeline) RankRecords(ctx context.Context, query record.Record, docs []record.Record) ([]record.Record, error) {
	out := docs
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("rank step %d: %w", i, err)
		}
		ranked, err := step.Rank(ctx, query, out)
		if err != nil {
			return nil, fmt.Errorf("rank step %d: %w", i, err)
		}
		out = ranked
	}
	return out, nil
}

// RankTexts ranks plain texts. Documents carry their input index as ID,
// so only text-based strategies make sense here.
func (p *Pipeline) RankTexts(ctx context.Context, query string, texts []string) ([]string, error) {
	docs := make([]record.Record, len(texts))
	for i, t := range texts {
		docs[i] = record.New(strconv.Itoa(i), t)
	}
	ranked, err := p.RankRecords(ctx, record.New("", query), docs)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		idx, err := strconv.Atoi(r.ID)
		if err != nil || idx < 0 || idx >= len(texts) {
			return nil, fmt.Errorf("rank texts: unexpected id %q", r.ID)
		}
		out[i] = texts[idx]
	}
	return out, nil
}
