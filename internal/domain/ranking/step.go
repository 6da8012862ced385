// Package ranking describes configured ranking pipeline steps.
package ranking

import (
	"fmt"

	"github.com/kailas-cloud/qtext/internal/domain"
)

// Strategy names a ranking step kind.
type Strategy string

// Strategy constants.
const (
	Hybrid       Strategy = "hybrid"
	TimeDecay    Strategy = "time_decay"
	KeywordBoost Strategy = "keyword_boost"
	VectorBoost  Strategy = "vector_boost"
	Diverse      Strategy = "diverse"
	CrossEncoder Strategy = "cross_encoder"
	Cohere       Strategy = "cohere"
)

// Strategies returns every known strategy.
func Strategies() []Strategy {
	return []Strategy{Hybrid, TimeDecay, KeywordBoost, VectorBoost, Diverse, CrossEncoder, Cohere}
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	for _, known := range Strategies() {
		if s == known {
			return true
		}
	}
	return false
}

// Step is one pipeline stage with its named parameters. Zero values mean
// the strategy default; parameters a strategy does not use are ignored.
type Step struct {
	Strategy   Strategy `yaml:"strategy"`
	DecayRate  float64  `yaml:"decay_rate"`
	TitleRatio float64  `yaml:"title_ratio"`
	// Lambda and Threshold are pointers: 0 is a meaningful MMR value.
	Lambda    *float64 `yaml:"lambda"`
	Threshold *float64 `yaml:"threshold"`
	Distance  string   `yaml:"distance"`
	TopK      int      `yaml:"top_k"`
}

// Validate checks the strategy and parameter ranges.
func (s Step) Validate() error {
	if !s.Strategy.Valid() {
		return fmt.Errorf("%w: unknown ranking strategy %q", domain.ErrConfiguration, s.Strategy)
	}
	if s.TitleRatio < 0 || s.TitleRatio > 1 {
		return fmt.Errorf("%w: %s: title_ratio must be in [0, 1], got %v", domain.ErrConfiguration, s.Strategy, s.TitleRatio)
	}
	if s.Lambda != nil && (*s.Lambda < 0 || *s.Lambda > 1) {
		return fmt.Errorf("%w: %s: lambda must be in [0, 1], got %v", domain.ErrConfiguration, s.Strategy, *s.Lambda)
	}
	if s.DecayRate < 0 {
		return fmt.Errorf("%w: %s: decay_rate must not be negative", domain.ErrConfiguration, s.Strategy)
	}
	if s.TopK < 0 {
		return fmt.Errorf("%w: %s: top_k must not be negative", domain.ErrConfiguration, s.Strategy)
	}
	switch s.Distance {
	case "", "cosine", "euclidean", "dot":
	default:
		return fmt.Errorf("%w: %s: unknown distance %q", domain.ErrConfiguration, s.Strategy, s.Distance)
	}
	return nil
}

// DefaultSteps is the pipeline used when none is configured.
func DefaultSteps() []Step {
	return []Step{{Strategy: Hybrid}}
}
