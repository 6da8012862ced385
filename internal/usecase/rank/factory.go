package rank

import (
	"fmt"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/ranking"
)

// Deps are the remote scorers the delegate strategies need. Either may be nil
// when no configured step uses it.
type Deps struct {
	CrossEncoder TextScorer
	Cohere       TextScorer
}

// Build assembles a pipeline from configured steps. No steps means the
// default Hybrid strategy.
func Build(steps []ranking.Step, deps Deps) (*Pipeline, error) {
	if len(steps) == 0 {
		steps = ranking.DefaultSteps()
	}
	rankers := make([]Ranker, 0, len(steps))
	for i, s := range steps {
		r, err := buildStep(s, deps)
		if err != nil {
			return nil, fmt.Errorf("ranker step %d: %w", i, err)
		}
		rankers = append(rankers, r)
	}
	return NewPipeline(rankers...)
}

func buildStep(s ranking.Step, deps Deps) (Ranker, error) {
	if err := s.Validate(); err != nil {
		return nil, err //nolint:wrapcheck // already carries the step name
	}
	switch s.Strategy {
	case ranking.Hybrid:
		return NewHybrid(s.DecayRate, s.TitleRatio), nil
	case ranking.TimeDecay:
		return NewTimeDecay(s.DecayRate), nil
	case ranking.KeywordBoost:
		return NewKeywordBoost(s.TitleRatio), nil
	case ranking.VectorBoost:
		return NewVectorBoost(s.TitleRatio), nil
	case ranking.Diverse:
		lambda, threshold := DefaultLambda, DefaultThreshold
		if s.Lambda != nil {
			lambda = *s.Lambda
		}
		if s.Threshold != nil {
			threshold = *s.Threshold
		}
		return NewDiverse(lambda, threshold, Distance(s.Distance)), nil
	case ranking.CrossEncoder:
		if deps.CrossEncoder == nil {
			return nil, fmt.Errorf("%w: cross_encoder step without a cross-encoder client", domain.ErrConfiguration)
		}
		return NewDelegate("cross_encoder", deps.CrossEncoder, s.TopK), nil
	case ranking.Cohere:
		if deps.Cohere == nil {
			return nil, fmt.Errorf("%w: cohere step without a cohere client", domain.ErrConfiguration)
		}
		return NewDelegate("cohere", deps.Cohere, s.TopK), nil
	}
	return nil, fmt.Errorf("%w: unknown ranking strategy %q", domain.ErrConfiguration, s.Strategy)
}
