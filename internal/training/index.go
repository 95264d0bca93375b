// Package training reads the trained-document index maintained by the
// training pipeline. The index is a single JSON file mapping document
// filenames to their stored metadata; this service consumes it
// read-only.
package training

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/domain"
)

// Entry is the stored metadata for one trained document.
type Entry struct {
	BBox           []int     `json:"bbox,omitempty"`
	OriginalImage  string    `json:"original_image_path,omitempty"`
	CroppedImage   string    `json:"cropped_image_path,omitempty"`
	ImageEmbedding []float64 `json:"image_embedding,omitempty"`
	TextEmbedding  []float64 `json:"text_embedding,omitempty"`
}

// Preview holds the stored preview image paths for a trained document.
type Preview struct {
	Filename      string
	BBox          []int
	OriginalImage string
	CroppedImage  string
}

// Index is a read-only view over the training index file. Every call
// reloads the file so the listing reflects training runs that happened
// after the service started.
type Index struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// NewIndex creates an Index over the given file path. The file may not
// exist yet; that is treated as an empty index.
func NewIndex(path string, logger *zap.Logger) *Index {
	return &Index{path: path, logger: logger}
}

// Documents returns the trained-document listing, sorted by filename.
func (ix *Index) Documents() ([]domain.TrainedDocument, error) {
	entries, err := ix.load()
	if err != nil {
		return nil, err
	}

	docs := make([]domain.TrainedDocument, 0, len(entries))
	for name, e := range entries {
		docs = append(docs, domain.TrainedDocument{
			Filename:   name,
			HasPreview: e.OriginalImage != "" && e.CroppedImage != "",
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

// PreviewFor returns the stored preview for one trained document.
func (ix *Index) PreviewFor(filename string) (*Preview, error) {
	entries, err := ix.load()
	if err != nil {
		return nil, err
	}

	e, ok := entries[filename]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	if e.OriginalImage == "" || e.CroppedImage == "" {
		return nil, domain.ErrPreviewUnavailable
	}
	if !fileExists(e.OriginalImage) || !fileExists(e.CroppedImage) {
		return nil, domain.ErrPreviewUnavailable
	}
	return &Preview{
		Filename:      filename,
		BBox:          e.BBox,
		OriginalImage: e.OriginalImage,
		CroppedImage:  e.CroppedImage,
	}, nil
}

// Embeddings returns the stored embedding vectors per trained document.
// Documents without a complete pair of vectors are omitted.
func (ix *Index) Embeddings() (map[string]Entry, error) {
	entries, err := ix.load()
	if err != nil {
		return nil, err
	}

	out := make(map[string]Entry, len(entries))
	for name, e := range entries {
		if len(e.ImageEmbedding) == 0 || len(e.TextEmbedding) == 0 {
			continue
		}
		out[name] = e
	}
	return out, nil
}

// Empty reports whether the index has no trained documents.
func (ix *Index) Empty() (bool, error) {
	entries, err := ix.load()
	if err != nil {
		return true, err
	}
	return len(entries) == 0, nil
}

// load reads and parses the index file. A missing, empty or corrupt
// file yields an empty index rather than an error: the training
// pipeline rewrites the file non-atomically and the listing must keep
// working through that.
func (ix *Index) load() (map[string]Entry, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	raw, err := os.ReadFile(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Entry{}, nil
		}
		return nil, fmt.Errorf("training: read index: %w", err)
	}
	if len(raw) == 0 {
		return map[string]Entry{}, nil
	}

	entries := map[string]Entry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		ix.logger.Warn("Training index is not valid JSON, treating as empty",
			zap.String("path", ix.path),
			zap.Error(err),
		)
		return map[string]Entry{}, nil
	}
	return entries, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
