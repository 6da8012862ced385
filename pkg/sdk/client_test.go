package qtext

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://bad"} {
		if _, err := New(u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}

func TestAddNamespace(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/namespace" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("authorization: got %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}, WithAPIKey("secret"))

	if err := c.AddNamespace(context.Background(), Namespace{Name: "document", VectorDim: 768}); err != nil {
		t.Fatalf("add namespace: %v", err)
	}
	if got["name"] != "document" || got["vector_dim"] != float64(768) {
		t.Errorf("body: got %v", got)
	}
	if _, ok := got["sparse_vector_dim"]; ok {
		t.Error("zero sparse dim must be omitted")
	}
}

func TestAddDoc_InjectsNamespace(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	})

	doc := Document{"id": 1, "text": "Python is fast"}
	if err := c.AddDoc(context.Background(), "document", doc); err != nil {
		t.Fatalf("add doc: %v", err)
	}
	if got["namespace"] != "document" || got["text"] != "Python is fast" {
		t.Errorf("body: got %v", got)
	}
	if _, ok := doc["namespace"]; ok {
		t.Error("caller document must not be mutated")
	}
}

func TestQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var q Query
		_ = json.NewDecoder(r.Body).Decode(&q)
		if q.Query != "Who creates faster Python?" || q.Limit != 5 {
			t.Errorf("query: got %+v", q)
		}
		_, _ = io.WriteString(w, `[{"id":1,"text":"a"},{"id":2,"text":"b"}]`)
	})

	docs, err := c.Query(context.Background(), Query{Namespace: "document", Query: "Who creates faster Python?", Limit: 5})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[1]["text"] != "b" {
		t.Errorf("docs: got %v", docs)
	}
}

func TestQueryExplain(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"vector":{"docs":[],"elapsed":0.01},
			"sparse":{"docs":[],"elapsed":0},
			"text":{"docs":[{"id":"1","text":"t","title":""}],"elapsed":0.002},
			"ranked":{"docs":[{"id":"1","text":"t","title":""}],"elapsed":0.001,
				"from_vector":[null],"from_sparse":[null],"from_text":[0]}
		}`)
	})

	res, err := c.QueryExplain(context.Background(), Query{Namespace: "document", Query: "t"})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if len(res.Ranked.Docs) != 1 || res.Ranked.Docs[0].ID != "1" {
		t.Errorf("ranked: got %+v", res.Ranked)
	}
	if res.Ranked.FromVector[0] != nil || res.Ranked.FromText[0] == nil || *res.Ranked.FromText[0] != 0 {
		t.Errorf("provenance: got %v / %v", res.Ranked.FromVector, res.Ranked.FromText)
	}
}

func TestHighlight(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["threshold"]; ok {
			t.Error("nil threshold must be omitted")
		}
		_, _ = io.WriteString(w, `{"highlighted":["I use <mark>Python</mark>"]}`)
	})

	out, err := c.Highlight(context.Background(), HighlightRequest{Query: "language", Docs: []string{"I use Python"}})
	if err != nil {
		t.Fatalf("highlight: %v", err)
	}
	if len(out) != 1 || out[0] != "I use <mark>Python</mark>" {
		t.Errorf("got %v", out)
	}
}

func TestAPIError_Mapping(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		target  error
		notWant error
	}{
		{http.StatusUnprocessableEntity, `{"code":"validation_failed","message":"Validation error: query: is required"}`,
			ErrValidation, ErrServer},
		{http.StatusUnauthorized, `{"code":"unauthorized","message":"invalid api key"}`, ErrUnauthorized, ErrServer},
		{http.StatusInternalServerError, `{"code":"internal_error","message":"internal error"}`, ErrServer, ErrValidation},
		{http.StatusServiceUnavailable, `{"code":"collaborator_unavailable","message":"x"}`, ErrUnavailable, ErrValidation},
		{http.StatusBadGateway, `upstream broke`, ErrServer, ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Query(context.Background(), Query{Namespace: "d", Query: "q"})
			if !errors.Is(err, tt.target) {
				t.Fatalf("errors.Is(%v, %v) = false", err, tt.target)
			}
			if errors.Is(err, tt.notWant) {
				t.Errorf("errors.Is(%v, %v) = true", err, tt.notWant)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
				t.Fatalf("expected *APIError with status %d, got %v", tt.status, err)
			}
			if apiErr.Message == "" {
				t.Error("expected message")
			}
		})
	}
}

func TestHealth_UnhealthyStillReports(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"status":"error","checks":{"postgres":"error"}}`)
	})
	hs, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if hs.Status != "error" || hs.Checks["postgres"] != "error" {
		t.Errorf("got %+v", hs)
	}
}

func TestWithPrometheus_CountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, WithPrometheus(reg))

	_ = c.AddNamespace(context.Background(), Namespace{Name: "a"})
	_ = c.AddNamespace(context.Background(), Namespace{Name: "a"})
	_ = c.AddNamespace(context.Background(), Namespace{Name: "b"})

	if got := testutil.ToFloat64(c.obs.metrics.requests.WithLabelValues("add_namespace", "a", "ok")); got != 2 {
		t.Errorf("requests_total{namespace=a}: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.obs.metrics.requests.WithLabelValues("add_namespace", "b", "ok")); got != 1 {
		t.Errorf("requests_total{namespace=b}: got %v, want 1", got)
	}

	// a second client on the same registry reuses the collectors
	if _, err := New("http://localhost:8080", WithPrometheus(reg)); err != nil {
		t.Fatalf("second client: %v", err)
	}
}

func TestWithPrometheus_OutcomePerStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnprocessableEntity, outcomeValidation},
		{http.StatusUnauthorized, outcomeUnauthorized},
		{http.StatusServiceUnavailable, outcomeUnavailable},
		{http.StatusInternalServerError, outcomeServer},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}, WithPrometheus(reg))

			_, _ = c.Query(context.Background(), Query{Namespace: "document", Query: "q"})

			if got := testutil.ToFloat64(c.obs.metrics.requests.WithLabelValues("query", "document", tt.want)); got != 1 {
				t.Errorf("requests_total{outcome=%s}: got %v, want 1", tt.want, got)
			}
		})
	}
}

func TestOutcome_TransportError(t *testing.T) {
	c, err := New("http://127.0.0.1:1", WithPrometheus(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, qerr := c.Query(context.Background(), Query{Namespace: "document", Query: "q"})
	if qerr == nil {
		t.Fatal("expected dial error")
	}
	if got := outcome(qerr); got != outcomeTransport {
		t.Errorf("outcome = %q, want %q", got, outcomeTransport)
	}
	if outcome(nil) != outcomeOK {
		t.Error("nil error must be ok")
	}
}
