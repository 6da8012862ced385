package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qtext/internal/domain/explain"
	"github.com/kailas-cloud/qtext/internal/domain/query"
	"github.com/kailas-cloud/qtext/internal/domain/record"
	"github.com/kailas-cloud/qtext/internal/domain/schema"
	healthuc "github.com/kailas-cloud/qtext/internal/usecase/health"
	highlightuc "github.com/kailas-cloud/qtext/internal/usecase/highlight"
)

type mockSearch struct {
	queryFn   func(ctx context.Context, req query.Request) ([]record.Record, error)
	explainFn func(ctx context.Context, req query.Request) (explain.Result, error)
}

func (m *mockSearch) Query(ctx context.Context, req query.Request) ([]record.Record, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, req)
	}
	return nil, nil
}

func (m *mockSearch) Explain(ctx context.Context, req query.Request) (explain.Result, error) {
	if m.explainFn != nil {
		return m.explainFn(ctx, req)
	}
	return explain.Result{}, nil
}

type mockNamespaces struct {
	createFn func(ctx context.Context, name string, vectorDim, sparseDim int) error
}

func (m *mockNamespaces) Create(ctx context.Context, name string, vectorDim, sparseDim int) error {
	if m.createFn != nil {
		return m.createFn(ctx, name, vectorDim, sparseDim)
	}
	return nil
}

type mockDocuments struct {
	addFn func(ctx context.Context, namespace string, raw map[string]any) error
}

func (m *mockDocuments) Add(ctx context.Context, namespace string, raw map[string]any) error {
	if m.addFn != nil {
		return m.addFn(ctx, namespace, raw)
	}
	return nil
}

type mockHighlight struct {
	highlightFn func(ctx context.Context, req highlightuc.Request) ([]string, error)
}

func (m *mockHighlight) Highlight(ctx context.Context, req highlightuc.Request) ([]string, error) {
	if m.highlightFn != nil {
		return m.highlightFn(ctx, req)
	}
	return req.Docs, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func defaultServices() Services {
	return Services{
		Search:     &mockSearch{},
		Namespaces: &mockNamespaces{},
		Documents:  &mockDocuments{},
		Highlight:  &mockHighlight{},
		Health:     &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
}

func newTestRouter(t *testing.T, svc Services, apiKeys ...string) http.Handler {
	t.Helper()
	s := NewServer(svc, schema.Default(), zap.NewNop())
	return NewRouter(s, apiKeys, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}
