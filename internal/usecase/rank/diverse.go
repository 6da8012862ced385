package rank

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/gonum"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/record"
)

// Distance names a vector metric for Diverse.
type Distance string

// Distance constants.
const (
	Cosine     Distance = "cosine"
	Euclidean  Distance = "euclidean"
	DotProduct Distance = "dot"
)

// Diverse defaults.
const (
	DefaultLambda    = 0.3
	DefaultThreshold = 0.0
)

var blas = gonum.Implementation{}

// similarity returns a "higher is closer" value for two vectors.
func (d Distance) similarity(x, y []float32) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%w: vector length %d != %d", domain.ErrConfiguration, len(x), len(y))
	}
	n := len(x)
	switch d {
	case DotProduct:
		return float64(blas.Sdot(n, x, 1, y, 1)), nil
	case Euclidean:
		diff := make([]float32, n)
		copy(diff, x)
		blas.Saxpy(n, -1, y, 1, diff, 1)
		return 1 / (1 + float64(blas.Snrm2(n, diff, 1))), nil
	case Cosine, "":
		nx, ny := blas.Snrm2(n, x, 1), blas.Snrm2(n, y, 1)
		if nx == 0 || ny == 0 {
			return 0, nil
		}
		return float64(blas.Sdot(n, x, 1, y, 1)) / (float64(nx) * float64(ny)), nil
	default:
		return 0, fmt.Errorf("%w: unknown distance %q", domain.ErrConfiguration, d)
	}
}

// Diverse reorders documents by maximal marginal relevance:
// lambda*sim(query, c) - (1-lambda)*max sim(c, selected).
// Documents whose best marginal score drops below threshold are dropped.
type Diverse struct {
	lambda    float64
	threshold float64
	distance  Distance
}

// NewDiverse creates an MMR strategy. An empty distance means Cosine.
func NewDiverse(lambda, threshold float64, distance Distance) *Diverse {
	if distance == "" {
		distance = Cosine
	}
	return &Diverse{lambda: lambda, threshold: threshold, distance: distance}
}

// Score returns the marginal score each document was selected with, or -Inf
// for documents that fell below the threshold.
func (m *Diverse) Score(_ context.Context, query record.Record, docs []record.Record) ([]float64, error) {
	order, marginal, err := m.selectOrder(query, docs)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(docs))
	for i := range out {
		out[i] = math.Inf(-1)
	}
	for k, i := range order {
		out[i] = marginal[k]
	}
	return out, nil
}

// Rank returns the selected documents in selection order.
func (m *Diverse) Rank(_ context.Context, query record.Record, docs []record.Record) ([]record.Record, error) {
	order, _, err := m.selectOrder(query, docs)
	if err != nil {
		return nil, err
	}
	out := make([]record.Record, len(order))
	for k, i := range order {
		out[k] = docs[i]
	}
	return out, nil
}

func (m *Diverse) selectOrder(query record.Record, docs []record.Record) ([]int, []float64, error) {
	if len(docs) == 0 {
		return nil, nil, nil
	}
	if !query.HasVector() {
		return nil, nil, fmt.Errorf("%w: diverse: query has no vector", domain.ErrConfiguration)
	}
	for _, doc := range docs {
		if !doc.HasVector() {
			return nil, nil, fmt.Errorf("%w: diverse: document %q has no vector", domain.ErrConfiguration, doc.ID)
		}
	}

	n := len(docs)
	toQuery := make([]float64, n)
	pair := make([][]float64, n)
	for i := range pair {
		pair[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		s, err := m.distance.similarity(query.Vector, docs[i].Vector)
		if err != nil {
			return nil, nil, fmt.Errorf("diverse: %w", err)
		}
		toQuery[i] = s
		for j := i + 1; j < n; j++ {
			s, err := m.distance.similarity(docs[i].Vector, docs[j].Vector)
			if err != nil {
				return nil, nil, fmt.Errorf("diverse: %w", err)
			}
			pair[i][j], pair[j][i] = s, s
		}
	}

	candidates := make([]int, n)
	for i := range candidates {
		candidates[i] = i
	}
	var (
		selected []int
		marginal []float64
	)
	for len(candidates) > 0 {
		best, bestScore := 0, math.Inf(-1)
		for k, c := range candidates {
			redundancy := 0.0
			if len(selected) > 0 {
				redundancy = math.Inf(-1)
				for _, s := range selected {
					redundancy = math.Max(redundancy, pair[c][s])
				}
			}
			score := m.lambda*toQuery[c] - (1-m.lambda)*redundancy
			if score > bestScore {
				best, bestScore = k, score
			}
		}
		if bestScore < m.threshold {
			break
		}
		selected = append(selected, candidates[best])
		marginal = append(marginal, bestScore)
		candidates = append(candidates[:best], candidates[best+1:]...)
	}
	return selected, marginal, nil
}
