package search

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/query"
	"github.com/kailas-cloud/qtext/internal/domain/record"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
	"github.com/kailas-cloud/qtext/internal/metrics"
)

// Service runs hybrid queries: resolve query vectors, retrieve per modality,
// combine, rank.
type Service struct {
	repo   Repository
	ranker Ranker
	embed  Embedder
	sparse SparseEmbedder
}

// New creates a search service. sparse may be nil: the sparse modality then
// runs only when the request carries its own sparse vector.
func New(repo Repository, ranker Ranker, embed Embedder, sparse SparseEmbedder) *Service {
	return &Service{repo: repo, ranker: ranker, embed: embed, sparse: sparse}
}

// modalityHits holds the raw per-modality results of one query.
type modalityHits struct {
	vector, sparse, text []record.Hit
}

// timings holds per-modality elapsed seconds.
type timings struct {
	vector, sparse, text float64
}

// Query returns the ranked documents for req.
func (s *Service) Query(ctx context.Context, req query.Request) ([]record.Record, error) {
	req, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	h, err := s.retrieve(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	return s.rank(ctx, req, Combine(h.vector, h.sparse, h.text))
}

// resolve fills the missing dense and sparse query vectors concurrently.
func (s *Service) resolve(ctx context.Context, req query.Request) (query.Request, error) {
	needVector := s.repo.HasVectorIndex() && req.Vector() == nil
	needSparse := s.repo.HasSparseIndex() && req.Sparse() == nil && s.sparse != nil
	if !needVector && !needSparse {
		return req, nil
	}

	var (
		vec []float32
		sv  sparse.Embedding
	)
	g, gctx := errgroup.WithContext(ctx)
	if needVector {
		g.Go(func() error {
			res, err := s.embed.Embed(gctx, req.Text())
			if err != nil {
				return fmt.Errorf("vectorize query: %w", err)
			}
			vec = res.Embedding
			return nil
		})
	}
	if needSparse {
		g.Go(func() error {
			emb, err := domain.SparseOne(gctx, s.sparse, req.Text())
			if err != nil {
				return fmt.Errorf("sparse vectorize query: %w", err)
			}
			sv = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return query.Request{}, err //nolint:wrapcheck // wrapped per goroutine
	}

	if needVector {
		req = req.WithVector(vec)
	}
	if needSparse {
		req = req.WithSparse(sv)
	}
	return req, nil
}

// retrieve runs the candidate queries concurrently. The first failure
// cancels the others and no partial result is returned. When t is non-nil
// each modality's elapsed time is recorded.
func (s *Service) retrieve(ctx context.Context, req query.Request, t *timings) (modalityHits, error) {
	var h modalityHits
	g, gctx := errgroup.WithContext(ctx)

	if vec := req.Vector(); vec != nil {
		g.Go(func() error {
			start := time.Now()
			res, err := s.repo.Vector(gctx, req.Namespace(), vec, req.Limit())
			if err != nil {
				return fmt.Errorf("vector retrieval: %w", err)
			}
			h.vector = res
			if t != nil {
				t.vector = time.Since(start).Seconds()
			}
			return nil
		})
	}
	if sv := req.Sparse(); sv != nil {
		g.Go(func() error {
			start := time.Now()
			res, err := s.repo.Sparse(gctx, req.Namespace(), *sv, req.Limit())
			if err != nil {
				return fmt.Errorf("sparse retrieval: %w", err)
			}
			h.sparse = res
			if t != nil {
				t.sparse = time.Since(start).Seconds()
			}
			return nil
		})
	}
	g.Go(func() error {
		start := time.Now()
		res, err := s.repo.Text(gctx, req.Namespace(), req.Text(), req.Limit())
		if err != nil {
			return fmt.Errorf("text retrieval: %w", err)
		}
		h.text = res
		if t != nil {
			t.text = time.Since(start).Seconds()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return modalityHits{}, err //nolint:wrapcheck // wrapped per goroutine
	}
	return h, nil
}

func (s *Service) rank(ctx context.Context, req query.Request, docs []record.Record) ([]record.Record, error) {
	start := time.Now()
	defer func() {
		metrics.RankDuration.WithLabelValues(req.Namespace()).Observe(time.Since(start).Seconds())
	}()

	ranked, err := s.ranker.RankRecords(ctx, queryRecord(req), docs)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	return ranked, nil
}

// queryRecord is the query in record form, as the ranking strategies see it.
func queryRecord(req query.Request) record.Record {
	q := record.New("", req.Text())
	q.Vector = req.Vector()
	q.SparseVector = req.Sparse()
	return q
}
