// Package splitter turns a composite PDF into individual documents by
// locating trained first pages and cutting at those boundaries.
package splitter

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/domain"
)

// Document is an open composite PDF under analysis.
type Document interface {
	Path() string
	PageCount() int
	io.Closer
}

// PageSource opens composite documents for page-wise analysis.
type PageSource interface {
	Open(ctx context.Context, path string) (Document, error)
}

// Match is the outcome of scoring one page against the trained first
// pages.
type Match struct {
	Matched  bool
	Document string
	Score    float64
}

// Matcher decides whether a page of an open document is the first page
// of a trained document.
type Matcher interface {
	Match(ctx context.Context, doc Document, page int) (Match, error)
}

// Writer persists one segment of the composite document as its own
// artifact. Pages are 0-indexed and the range is half-open.
type Writer interface {
	WriteSegment(ctx context.Context, doc Document, startPage, endPage int, filename string) error
}

// Reporter receives progress callbacks while a split runs. Calls arrive
// from a single goroutine.
type Reporter interface {
	Total(totalPages int)
	Page(outcome domain.PageOutcome)
	Segment(seg domain.IdentifiedSegment)
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) Total(int) {}

func (NopReporter) Page(domain.PageOutcome) {}

func (NopReporter) Segment(domain.IdentifiedSegment) {}

// Engine orchestrates a split: walk pages, collect first-page
// boundaries, cut segments, write artifacts.
type Engine struct {
	source  PageSource
	matcher Matcher
	writer  Writer
	logger  *zap.Logger
}

// NewEngine creates a split engine from its collaborators.
func NewEngine(source PageSource, matcher Matcher, writer Writer, logger *zap.Logger) *Engine {
	return &Engine{
		source:  source,
		matcher: matcher,
		writer:  writer,
		logger:  logger,
	}
}

// Split analyzes the composite document at path and writes one artifact
// per identified document. baseName (without extension) prefixes the
// artifact filenames. Pages before the first identified boundary are
// not part of any output, matching how segment starts are defined.
func (e *Engine) Split(ctx context.Context, path, baseName string, rep Reporter) (*domain.SplitResult, error) {
	if rep == nil {
		rep = NopReporter{}
	}

	doc, err := e.source.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("splitter: open document: %w", err)
	}
	defer doc.Close()

	total := doc.PageCount()
	rep.Total(total)

	// First pass: score every page, collect 0-indexed boundaries.
	boundaries := make([]int, 0, total)
	for page := 0; page < total; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := e.matcher.Match(ctx, doc, page)
		if err != nil {
			return nil, fmt.Errorf("splitter: match page %d: %w", page+1, err)
		}

		rep.Page(domain.PageOutcome{
			Page:            page + 1,
			Matched:         m.Matched,
			MatchedDocument: m.Document,
			Score:           m.Score,
		})
		if m.Matched {
			boundaries = append(boundaries, page)
		}
	}

	if len(boundaries) == 0 {
		return nil, domain.ErrNoFirstPages
	}

	// End marker simplifies the cut loop: segment i spans
	// [boundaries[i], boundaries[i+1]).
	boundaries = append(boundaries, total)

	result := &domain.SplitResult{Items: make([]domain.ResultItem, 0, len(boundaries)-1)}
	for i := 0; i < len(boundaries)-1; i++ {
		start, end := boundaries[i], boundaries[i+1]
		filename := fmt.Sprintf("%s_document_%d.pdf", baseName, i+1)

		if err := e.writer.WriteSegment(ctx, doc, start, end, filename); err != nil {
			return nil, fmt.Errorf("splitter: write segment %s: %w", filename, err)
		}

		rep.Segment(domain.IdentifiedSegment{
			Filename:  filename,
			StartPage: start + 1,
			EndPage:   end,
		})
		result.Items = append(result.Items, domain.ResultItem{
			ID:        i + 1,
			Filename:  filename,
			StartPage: start + 1,
			EndPage:   end,
		})
	}

	e.logger.Info("Split complete",
		zap.String("document", baseName),
		zap.Int("pages", total),
		zap.Int("segments", len(result.Items)),
	)
	return result, nil
}
