// Package presenter exposes per-item preview and download actions over
// a completed job's result.
package presenter

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/domain"
)

// Artifacts is what the presenter needs from the job client.
type Artifacts interface {
	Download(ctx context.Context, item domain.ResultItem) (io.ReadCloser, error)
	PreviewURL(item domain.ResultItem) string
}

// Presenter holds the ordered result items of one completed job. Its
// only internal state beyond the items is which item, if any, is
// currently open for preview: at most one preview is open at a time,
// and opening a second closes the first.
type Presenter struct {
	artifacts Artifacts
	logger    *zap.Logger

	mu    sync.Mutex
	items []domain.ResultItem
	open  int // index of the open preview, -1 when none
}

// New creates a Presenter over a completed result.
func New(result *domain.SplitResult, artifacts Artifacts, logger *zap.Logger) *Presenter {
	var items []domain.ResultItem
	if result != nil {
		items = result.Items
	}
	return &Presenter{
		artifacts: artifacts,
		logger:    logger,
		items:     items,
		open:      -1,
	}
}

// Items returns the ordered result items.
func (p *Presenter) Items() []domain.ResultItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items
}

// Preview opens the preview for item i and returns its renderable
// URL. A previously open preview is closed first.
func (p *Presenter) Preview(i int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.items) {
		return "", fmt.Errorf("preview: item %d out of range", i)
	}
	if p.open >= 0 && p.open != i {
		p.logger.Debug("Closing previous preview",
			zap.String("filename", p.items[p.open].Filename),
		)
	}
	p.open = i
	return p.artifacts.PreviewURL(p.items[i]), nil
}

// OpenPreview returns the currently previewed item, or false when no
// preview is open.
func (p *Presenter) OpenPreview() (domain.ResultItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open < 0 {
		return domain.ResultItem{}, false
	}
	return p.items[p.open], true
}

// ClosePreview closes the open preview, if any.
func (p *Presenter) ClosePreview() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = -1
}

// Download streams the artifact for item i. The caller owns the
// returned ReadCloser.
func (p *Presenter) Download(ctx context.Context, i int) (io.ReadCloser, error) {
	p.mu.Lock()
	if i < 0 || i >= len(p.items) {
		p.mu.Unlock()
		return nil, fmt.Errorf("download: item %d out of range", i)
	}
	item := p.items[i]
	p.mu.Unlock()

	return p.artifacts.Download(ctx, item)
}
