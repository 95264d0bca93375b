// Package match scores pages against the trained first-page
// embeddings.
package match

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/splitter"
	"github.com/FaryzK/filesplittingservice/internal/training"
)

const (
	// similarityThreshold gates both the image pre-filter and the
	// combined score.
	similarityThreshold = 0.85

	imageWeight = 0.7
	textWeight  = 0.3
)

// Embedder produces the image and text embedding vectors for one page
// of a document. The vectors must come from the same model the
// training pipeline used.
type Embedder interface {
	EmbedPage(ctx context.Context, path string, page int) (image, text []float64, err error)
}

// EmbeddingMatcher implements first-page detection: a page matches a
// trained document when its image similarity clears the threshold and
// the weighted image/text score does too.
type EmbeddingMatcher struct {
	embedder Embedder
	index    *training.Index
	logger   *zap.Logger

	mu      sync.Mutex
	forPath string
	entries map[string]training.Entry
}

var _ splitter.Matcher = (*EmbeddingMatcher)(nil)

// NewEmbeddingMatcher creates a matcher over the training index.
func NewEmbeddingMatcher(embedder Embedder, index *training.Index, logger *zap.Logger) *EmbeddingMatcher {
	return &EmbeddingMatcher{
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

func (m *EmbeddingMatcher) Match(ctx context.Context, doc splitter.Document, page int) (splitter.Match, error) {
	entries, err := m.trainedFor(doc.Path())
	if err != nil {
		return splitter.Match{}, err
	}
	if len(entries) == 0 {
		return splitter.Match{}, domain.ErrNotTrained
	}

	imageEmb, textEmb, err := m.embedder.EmbedPage(ctx, doc.Path(), page)
	if err != nil {
		return splitter.Match{}, fmt.Errorf("match: embed page %d: %w", page+1, err)
	}

	best := splitter.Match{}
	for filename, entry := range entries {
		imageSim := cosineSimilarity(imageEmb, entry.ImageEmbedding)
		if imageSim <= similarityThreshold {
			continue
		}
		// Text similarity disambiguates visually similar forms.
		textSim := cosineSimilarity(textEmb, entry.TextEmbedding)
		score := imageSim*imageWeight + textSim*textWeight
		if score > best.Score {
			best = splitter.Match{Document: filename, Score: score}
		}
	}

	best.Matched = best.Score > similarityThreshold
	if best.Matched {
		m.logger.Debug("First page identified",
			zap.Int("page", page+1),
			zap.String("document", best.Document),
			zap.Float64("score", best.Score),
		)
	}
	return best, nil
}

// trainedFor caches the index entries for the duration of one
// document's analysis so a large PDF does not reload the index per
// page.
func (m *EmbeddingMatcher) trainedFor(path string) (map[string]training.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.forPath == path && m.entries != nil {
		return m.entries, nil
	}
	entries, err := m.index.Embeddings()
	if err != nil {
		return nil, err
	}
	m.forPath = path
	m.entries = entries
	return entries, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
