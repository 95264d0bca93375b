package match

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/training"
)

type staticDoc struct{ path string }

func (d staticDoc) Path() string   { return d.path }
func (d staticDoc) PageCount() int { return 1 }
func (d staticDoc) Close() error   { return nil }

type staticEmbedder struct {
	image []float64
	text  []float64
	err   error
}

func (e staticEmbedder) EmbedPage(ctx context.Context, path string, page int) ([]float64, []float64, error) {
	return e.image, e.text, e.err
}

func writeIndex(t *testing.T, entries map[string]training.Entry) *training.Index {
	t.Helper()
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal index: %v", err)
	}
	path := filepath.Join(t.TempDir(), "training_index.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	return training.NewIndex(path, zap.NewNop())
}

func TestEmbeddingMatcher_MatchesAboveThreshold(t *testing.T) {
	index := writeIndex(t, map[string]training.Entry{
		"invoice.pdf": {ImageEmbedding: []float64{1, 0, 0}, TextEmbedding: []float64{0, 1, 0}},
	})
	// Identical vectors: image and text similarity are both 1.
	m := NewEmbeddingMatcher(staticEmbedder{image: []float64{1, 0, 0}, text: []float64{0, 1, 0}}, index, zap.NewNop())

	got, err := m.Match(context.Background(), staticDoc{path: "/tmp/a.pdf"}, 0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !got.Matched || got.Document != "invoice.pdf" {
		t.Errorf("unexpected match: %+v", got)
	}
	if got.Score < 0.99 {
		t.Errorf("expected score near 1, got %f", got.Score)
	}
}

func TestEmbeddingMatcher_BelowThresholdDoesNotMatch(t *testing.T) {
	index := writeIndex(t, map[string]training.Entry{
		"invoice.pdf": {ImageEmbedding: []float64{1, 0, 0}, TextEmbedding: []float64{0, 1, 0}},
	})
	// Orthogonal image vector: similarity 0, filtered before scoring.
	m := NewEmbeddingMatcher(staticEmbedder{image: []float64{0, 0, 1}, text: []float64{0, 1, 0}}, index, zap.NewNop())

	got, err := m.Match(context.Background(), staticDoc{path: "/tmp/a.pdf"}, 0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Matched {
		t.Errorf("expected no match, got %+v", got)
	}
}

func TestEmbeddingMatcher_TextDisambiguates(t *testing.T) {
	// Two trained documents with identical images; text picks one.
	index := writeIndex(t, map[string]training.Entry{
		"form_a.pdf": {ImageEmbedding: []float64{1, 0}, TextEmbedding: []float64{1, 0}},
		"form_b.pdf": {ImageEmbedding: []float64{1, 0}, TextEmbedding: []float64{0, 1}},
	})
	m := NewEmbeddingMatcher(staticEmbedder{image: []float64{1, 0}, text: []float64{0, 1}}, index, zap.NewNop())

	got, err := m.Match(context.Background(), staticDoc{path: "/tmp/a.pdf"}, 0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Document != "form_b.pdf" {
		t.Errorf("expected form_b.pdf, got %+v", got)
	}
}

func TestEmbeddingMatcher_UntrainedIndex(t *testing.T) {
	index := writeIndex(t, map[string]training.Entry{})
	m := NewEmbeddingMatcher(staticEmbedder{}, index, zap.NewNop())

	_, err := m.Match(context.Background(), staticDoc{path: "/tmp/a.pdf"}, 0)
	if !errors.Is(err, domain.ErrNotTrained) {
		t.Errorf("expected ErrNotTrained, got %v", err)
	}
}

func TestEmbeddingMatcher_EmbedderError(t *testing.T) {
	index := writeIndex(t, map[string]training.Entry{
		"invoice.pdf": {ImageEmbedding: []float64{1}, TextEmbedding: []float64{1}},
	})
	m := NewEmbeddingMatcher(staticEmbedder{err: errors.New("sidecar down")}, index, zap.NewNop())

	if _, err := m.Match(context.Background(), staticDoc{path: "/tmp/a.pdf"}, 0); err == nil {
		t.Error("expected error from embedder")
	}
}

func TestHTTPEmbedder_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings/page" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Path != "/tmp/a.pdf" || req.Page != 3 {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(embedResponse{
			ImageEmbedding: []float64{0.1, 0.2},
			TextEmbedding:  []float64{0.3},
		})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL)
	image, text, err := e.EmbedPage(context.Background(), "/tmp/a.pdf", 3)
	if err != nil {
		t.Fatalf("EmbedPage: %v", err)
	}
	if len(image) != 2 || len(text) != 1 {
		t.Errorf("unexpected vectors: image=%v text=%v", image, text)
	}
}

func TestHTTPEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL)
	if _, _, err := e.EmbedPage(context.Background(), "/tmp/a.pdf", 0); err == nil {
		t.Error("expected error on 500")
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"empty", nil, nil, 0},
		{"length mismatch", []float64{1}, []float64{1, 2}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tc.want)
			}
		})
	}
}
