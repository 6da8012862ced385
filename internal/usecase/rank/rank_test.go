package rank

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/record"
)

const eps = 1e-6

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestTimeDecay_StrictlyDecreasingInAge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := fixedNow(NewTimeDecay(0), now)

	docs := []record.Record{aged("old", now, 48), aged("new", now, 0), aged("mid", now, 24)}
	scores, err := d.Score(context.Background(), record.Record{}, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(scores[1] > scores[2] && scores[2] > scores[0]) {
		t.Errorf("scores must decrease with age: %v", scores)
	}
	if want := 1 / math.Pow(2, DefaultDecayRate); !near(scores[1], want) {
		t.Errorf("fresh score: got %v, want %v", scores[1], want)
	}

	ranked, err := d.Rank(context.Background(), record.Record{}, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(ranked); !reflect.DeepEqual(got, []string{"new", "mid", "old"}) {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestTimeDecay_FutureClampedToZeroHours(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := fixedNow(NewTimeDecay(2), now)

	scores, err := d.Score(context.Background(), record.Record{}, []record.Record{aged("x", now, -5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(scores[0], 0.25) {
		t.Errorf("expected 1/2^2, got %v", scores[0])
	}
}

func TestTimeDecay_UsesStoredScore(t *testing.T) {
	now := time.Now()
	d := fixedNow(NewTimeDecay(1), now)
	doc := aged("x", now, 0)
	doc.Score = 4

	scores, err := d.Score(context.Background(), record.Record{}, []record.Record{doc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(scores[0], 2) {
		t.Errorf("expected 4/2, got %v", scores[0])
	}
}

func TestTimeDecay_MissingUpdatedAt(t *testing.T) {
	_, err := NewTimeDecay(0).Rank(context.Background(), record.Record{}, []record.Record{rec("a")})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestKeywordBoost_Score(t *testing.T) {
	withTitle := rec("t")
	withTitle.TitleBM25, withTitle.HasTitleBM25 = 2, true
	withTitle.ContentBM25 = 1
	withTitle.Boost = 2

	contentOnly := rec("c")
	contentOnly.ContentBM25 = 1.5
	contentOnly.Boost = 2

	scores, err := NewKeywordBoost(0).Score(context.Background(), record.Record{}, []record.Record{withTitle, contentOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(scores[0], (2*0.7+1*0.3)*2) {
		t.Errorf("title score: got %v", scores[0])
	}
	if !near(scores[1], 3) {
		t.Errorf("content score: got %v", scores[1])
	}
}

func TestVectorBoost_Score(t *testing.T) {
	sparseHit := rec("s")
	sparseHit.Sources = record.FromVector | record.FromSparse
	sparseHit.TitleSim = 0.5
	sparseHit.VectorSim = 1

	denseHit := rec("d")
	denseHit.Sources = record.FromVector
	denseHit.VectorSim = 0.25

	exact := rec("e")
	exact.VectorSim = 0

	scores, err := NewVectorBoost(0).Score(context.Background(), record.Record{},
		[]record.Record{sparseHit, denseHit, exact})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(scores[0], 1/0.65) {
		t.Errorf("sparse score: got %v", scores[0])
	}
	if !near(scores[1], 4) {
		t.Errorf("dense score: got %v", scores[1])
	}
	if math.IsInf(scores[2], 0) || scores[2] <= scores[1] {
		t.Errorf("zero distance must be finite and best, got %v", scores[2])
	}
}

func TestVectorBoost_SparseLargeInnerProductKeepsOrder(t *testing.T) {
	// sparse distances for inner products 40 and 3
	strong := rec("strong")
	strong.Sources = record.FromSparse
	strong.TitleSim = 1.0 / 41
	weak := rec("weak")
	weak.Sources = record.FromSparse
	weak.TitleSim = 1.0 / 4

	ranked, err := NewVectorBoost(0).Rank(context.Background(), record.Record{},
		[]record.Record{weak, strong})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ranked[0].ID != "strong" {
		t.Errorf("expected closer doc first, got %s", ranked[0].ID)
	}

	scores, _ := NewVectorBoost(0).Score(context.Background(), record.Record{},
		[]record.Record{strong, weak})
	if scores[0] <= scores[1] {
		t.Errorf("closer doc must score higher: %v <= %v", scores[0], scores[1])
	}
}

func hybridDocs(now time.Time) []record.Record {
	a := aged("a", now, 1)
	a.VectorSim, a.ContentBM25, a.Sources = 0.2, 0.1, record.FromVector|record.FromText
	b := aged("b", now, 30)
	b.VectorSim, b.ContentBM25, b.Sources = 0.1, 0.9, record.FromVector|record.FromText
	c := aged("c", now, 5)
	c.ContentBM25, c.Sources = 0.5, record.FromText
	c.Boost = 3
	return []record.Record{a, b, c}
}

func TestHybrid_ProductOfParts(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	h := NewHybrid(0, 0)
	fixedNow(h.decay, now)
	docs := hybridDocs(now)

	got, err := h.Score(context.Background(), record.Record{}, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, _ := h.decay.Score(context.Background(), record.Record{}, docs)
	v, _ := h.vector.Score(context.Background(), record.Record{}, docs)
	k, _ := h.keyword.Score(context.Background(), record.Record{}, docs)
	for i := range docs {
		if !near(got[i], d[i]*v[i]*k[i]) {
			t.Errorf("doc %d: got %v, want %v", i, got[i], d[i]*v[i]*k[i])
		}
	}
}

func TestHybrid_InvariantUnderBoostScaling(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	h := NewHybrid(0, 0)
	fixedNow(h.decay, now)

	docs := hybridDocs(now)
	base, err := h.Rank(context.Background(), record.Record{}, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scaled := hybridDocs(now)
	for i := range scaled {
		scaled[i].Boost *= 7.5
	}
	got, err := h.Rank(context.Background(), record.Record{}, scaled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids(base), ids(got)) {
		t.Errorf("order changed under boost scaling: %v vs %v", ids(base), ids(got))
	}
}

func TestHybrid_DoesNotMutateInput(t *testing.T) {
	now := time.Now()
	docs := hybridDocs(now)
	before := ids(docs)
	if _, err := NewHybrid(0, 0).Rank(context.Background(), record.Record{}, docs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(before, ids(docs)) {
		t.Error("input slice reordered")
	}
	if docs[2].Score != record.Neutral {
		t.Errorf("stored score overwritten: %v", docs[2].Score)
	}
}

func TestDiverse_EmptyInput(t *testing.T) {
	out, err := NewDiverse(DefaultLambda, DefaultThreshold, "").Rank(context.Background(), record.Record{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %v", ids(out))
	}
}

func TestDiverse_MissingVector(t *testing.T) {
	q := withVector("q", 1, 0)
	docs := []record.Record{withVector("a", 1, 0), rec("b")}

	_, err := NewDiverse(DefaultLambda, DefaultThreshold, Cosine).Rank(context.Background(), q, docs)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for doc, got %v", err)
	}

	_, err = NewDiverse(DefaultLambda, DefaultThreshold, Cosine).Rank(context.Background(), rec("q"), docs[:1])
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for query, got %v", err)
	}
}

func TestDiverse_PrefersDissimilar(t *testing.T) {
	q := withVector("q", 1, 0)
	docs := []record.Record{
		withVector("a", 1, 0),
		withVector("b", 0.99, 0.14),
		withVector("c", 0.7, 0.7),
	}

	out, err := NewDiverse(DefaultLambda, -1, Cosine).Rank(context.Background(), q, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(out); !reflect.DeepEqual(got, []string{"a", "c", "b"}) {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestDiverse_ThresholdDrops(t *testing.T) {
	q := withVector("q", 1, 0)
	docs := []record.Record{
		withVector("a", 1, 0),
		withVector("b", 0.99, 0.14),
		withVector("c", 0.7, 0.7),
	}
	m := NewDiverse(DefaultLambda, DefaultThreshold, Cosine)

	out, err := m.Rank(context.Background(), q, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(out); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("expected only the most relevant doc, got %v", got)
	}

	scores, err := m.Score(context.Background(), q, docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !near(scores[0], DefaultLambda) || !math.IsInf(scores[1], -1) || !math.IsInf(scores[2], -1) {
		t.Errorf("unexpected scores: %v", scores)
	}
}

func TestDistance_Similarity(t *testing.T) {
	tests := []struct {
		d    Distance
		x, y []float32
		want float64
	}{
		{DotProduct, []float32{1, 2}, []float32{3, 4}, 11},
		{Euclidean, []float32{0, 0}, []float32{3, 4}, 1.0 / 6},
		{Euclidean, []float32{1, 1}, []float32{1, 1}, 1},
		{Cosine, []float32{1, 0}, []float32{0, 1}, 0},
		{Cosine, []float32{2, 0}, []float32{5, 0}, 1},
	}
	for _, tt := range tests {
		got, err := tt.d.similarity(tt.x, tt.y)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.d, err)
		}
		if !near(got, tt.want) {
			t.Errorf("%s(%v, %v): got %v, want %v", tt.d, tt.x, tt.y, got, tt.want)
		}
	}

	if _, err := Cosine.similarity([]float32{1}, []float32{1, 2}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration on length mismatch, got %v", err)
	}
	if _, err := Distance("manhattan").similarity([]float32{1}, []float32{1}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration on unknown distance, got %v", err)
	}
}

func TestDelegate_RankAndTopK(t *testing.T) {
	client := &mockScorer{scoreFn: func(_ context.Context, query string, docs []string) ([]float64, error) {
		if query != "who" {
			t.Errorf("unexpected query %q", query)
		}
		return []float64{0.1, 0.9, 0.5}, nil
	}}
	docs := seq(3)

	out, err := NewDelegate("cross_encoder", client, 2).Rank(context.Background(), record.New("", "who"), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(out); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("unexpected order: %v", got)
	}

	all, err := NewDelegate("cross_encoder", client, 0).Rank(context.Background(), record.New("", "who"), docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("top_k 0 must keep all, got %d", len(all))
	}
}

func TestDelegate_EmptySkipsClient(t *testing.T) {
	client := &mockScorer{}
	out, err := NewDelegate("cohere", client, 0).Rank(context.Background(), record.Record{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 || client.calls != 0 {
		t.Errorf("expected no call, got %d calls", client.calls)
	}
}

func TestDelegate_Errors(t *testing.T) {
	short := &mockScorer{scoreFn: func(context.Context, string, []string) ([]float64, error) {
		return []float64{1}, nil
	}}
	_, err := NewDelegate("cohere", short, 0).Rank(context.Background(), record.Record{}, seq(2))
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected ErrCollaborator on count mismatch, got %v", err)
	}

	boom := errors.New("boom")
	failing := &mockScorer{scoreFn: func(context.Context, string, []string) ([]float64, error) {
		return nil, boom
	}}
	_, err = NewDelegate("cohere", failing, 0).Rank(context.Background(), record.Record{}, seq(2))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestNewPipeline_Empty(t *testing.T) {
	if _, err := NewPipeline(); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestPipeline_RankRecordsSequential(t *testing.T) {
	p, err := NewPipeline(reverse{}, reverse{}, reverse{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := p.RankRecords(context.Background(), record.Record{}, seq(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(out); !reflect.DeepEqual(got, []string{"2", "1", "0"}) {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestPipeline_RankTexts(t *testing.T) {
	p, err := NewPipeline(NewDelegate("cross_encoder", &mockScorer{}, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := p.RankTexts(context.Background(), "q", []string{"bb", "a", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out, []string{"ccc", "bb", "a"}) {
		t.Errorf("unexpected order: %v", out)
	}
}

func TestPipeline_StepError(t *testing.T) {
	p, err := NewPipeline(reverse{}, NewTimeDecay(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.RankRecords(context.Background(), record.Record{}, seq(2)); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestPipeline_CanceledContext(t *testing.T) {
	p, _ := NewPipeline(reverse{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.RankRecords(ctx, record.Record{}, seq(2)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
