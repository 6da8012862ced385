package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/qtext/internal/domain"
	domdoc "github.com/kailas-cloud/qtext/internal/domain/document"
	"github.com/kailas-cloud/qtext/internal/domain/schema"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
	"github.com/kailas-cloud/qtext/internal/metrics"
)

// Service ingests documents, computing missing vectors on the way.
type Service struct {
	repo   Repository
	schema schema.Schema
	embed  Embedder
	sparse SparseEmbedder
}

// New creates a document service. sparse may be nil: documents must then
// carry their own sparse vector when the schema has one.
func New(repo Repository, s schema.Schema, embed Embedder, sparse SparseEmbedder) *Service {
	return &Service{repo: repo, schema: s, embed: embed, sparse: sparse}
}

// Add validates raw against the schema, fills the dense and sparse vectors
// it lacks (concurrently) and inserts it in one transaction.
func (s *Service) Add(ctx context.Context, namespace string, raw map[string]any) error {
	if strings.TrimSpace(namespace) == "" {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrNamespaceRequired)
	}
	start := time.Now()

	doc, err := domdoc.New(s.schema, raw)
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}

	doc, err = s.vectorize(ctx, doc)
	if err != nil {
		return err
	}
	if missing := doc.Missing(); len(missing) > 0 {
		return domain.NewValidationError(missing[0], "is required")
	}

	if err := s.repo.Insert(ctx, namespace, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	metrics.DocsAddedTotal.WithLabelValues(namespace).Inc()
	metrics.AddDocDuration.WithLabelValues(namespace).Observe(time.Since(start).Seconds())
	return nil
}

func (s *Service) vectorize(ctx context.Context, doc domdoc.Document) (domdoc.Document, error) {
	needVector := doc.NeedsVector()
	needSparse := doc.NeedsSparse() && s.sparse != nil
	if !needVector && !needSparse {
		return doc, nil
	}

	text, err := doc.EmbedText()
	if err != nil {
		return domdoc.Document{}, err //nolint:wrapcheck // validation error names the field
	}

	var (
		vec []float32
		sv  sparse.Embedding
	)
	g, gctx := errgroup.WithContext(ctx)
	if needVector {
		g.Go(func() error {
			res, err := s.embed.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("vectorize document: %w", err)
			}
			if len(res.Embedding) == 0 {
				return &domain.CollaboratorError{Service: "embedding", Detail: "empty embedding"}
			}
			vec = res.Embedding
			return nil
		})
	}
	if needSparse {
		g.Go(func() error {
			emb, err := domain.SparseOne(gctx, s.sparse, text)
			if err != nil {
				return fmt.Errorf("sparse vectorize document: %w", err)
			}
			sv = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domdoc.Document{}, err //nolint:wrapcheck // wrapped per goroutine
	}

	if needVector {
		doc = doc.WithVector(vec)
	}
	if needSparse {
		doc = doc.WithSparse(sv)
	}
	return doc, nil
}
