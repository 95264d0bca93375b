// Package pdf implements the splitter's document access on top of
// pdfcpu.
package pdf

import (
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/FaryzK/filesplittingservice/internal/artifacts"
	"github.com/FaryzK/filesplittingservice/internal/splitter"
)

var (
	_ splitter.PageSource = (*Source)(nil)
	_ splitter.Writer     = (*SegmentWriter)(nil)
)

type document struct {
	path  string
	pages int
}

func (d *document) Path() string   { return d.path }
func (d *document) PageCount() int { return d.pages }
func (d *document) Close() error   { return nil }

// Source opens composite PDFs from the local filesystem.
type Source struct{}

// NewSource creates a pdfcpu-backed page source.
func NewSource() *Source { return &Source{} }

func (s *Source) Open(ctx context.Context, path string) (splitter.Document, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: page count of %s: %w", path, err)
	}
	return &document{path: path, pages: n}, nil
}

// SegmentWriter cuts page ranges out of a composite PDF into the
// artifact store's output directory.
type SegmentWriter struct {
	store *artifacts.Store
}

// NewSegmentWriter creates a writer that persists segments as output
// artifacts.
func NewSegmentWriter(store *artifacts.Store) *SegmentWriter {
	return &SegmentWriter{store: store}
}

func (w *SegmentWriter) WriteSegment(ctx context.Context, doc splitter.Document, startPage, endPage int, filename string) error {
	// pdfcpu selects 1-indexed inclusive ranges.
	pages := []string{fmt.Sprintf("%d-%d", startPage+1, endPage)}
	out := w.store.OutputPathFor(filename)
	if err := api.TrimFile(doc.Path(), out, pages, nil); err != nil {
		return fmt.Errorf("pdf: trim %s to %s: %w", doc.Path(), filename, err)
	}
	return nil
}
