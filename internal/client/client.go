// Package client implements the HTTP client for the splitting service.
// All operations are stateless request/response calls; no state is
// retained between them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/domain"
)

const defaultTimeout = 30 * time.Second

// JobHandle identifies a job created by Submit.
type JobHandle struct {
	ID uuid.UUID
}

// UploadPayload is the document to submit for splitting.
type UploadPayload struct {
	Filename string
	Content  io.Reader
}

// Client talks to the splitting service. Safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit uploads a document and returns the handle of the created job.
// Submit is NOT idempotent: each call creates a new job, so callers must
// invoke it at most once per user-initiated submission.
func (c *Client) Submit(ctx context.Context, payload UploadPayload) (JobHandle, error) {
	// Build the multipart body eagerly; uploads are bounded by the
	// service body limit so buffering is acceptable.
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", payload.Filename)
	if err != nil {
		return JobHandle{}, &SubmissionError{Reason: genericSubmitReason, Err: err}
	}
	if _, err := io.Copy(part, payload.Content); err != nil {
		return JobHandle{}, &SubmissionError{Reason: genericSubmitReason, Err: err}
	}
	if err := writer.Close(); err != nil {
		return JobHandle{}, &SubmissionError{Reason: genericSubmitReason, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/jobs", body)
	if err != nil {
		return JobHandle{}, &SubmissionError{Reason: genericSubmitReason, Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Debug("Submit request failed", zap.Error(err))
		return JobHandle{}, &SubmissionError{Reason: genericSubmitReason, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		reason := extractErrorReason(resp.Body)
		if reason == "" {
			reason = genericSubmitReason
		}
		return JobHandle{}, &SubmissionError{Reason: reason, StatusCode: resp.StatusCode}
	}

	var submitResp domain.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return JobHandle{}, &SubmissionError{Reason: genericSubmitReason, Err: err}
	}

	c.logger.Debug("Job submitted", zap.String("job_id", submitResp.JobID.String()))
	return JobHandle{ID: submitResp.JobID}, nil
}

// Snapshot fetches the current progress snapshot for a job. It has no
// side effects beyond the read and is always safe to retry.
func (c *Client) Snapshot(ctx context.Context, id uuid.UUID) (*domain.ProgressSnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v1/jobs/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{JobID: id.String(), Err: err}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &FetchError{JobID: id.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{JobID: id.String(), StatusCode: resp.StatusCode}
	}

	var snap domain.ProgressSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, &FetchError{JobID: id.String(), Err: err}
	}
	snap.Status = domain.ParseStatus(string(snap.Status))
	return &snap, nil
}

// Download streams the artifact for a result item. The caller owns the
// returned ReadCloser.
func (c *Client) Download(ctx context.Context, item domain.ResultItem) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/api/v1/artifacts/%s", c.baseURL, url.PathEscape(item.Filename))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.Filename, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.Filename, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: unexpected status %d", item.Filename, resp.StatusCode)
	}
	return resp.Body, nil
}

// PreviewURL returns the renderable-document URL for a result item.
// The viewer treats it as an opaque capability.
func (c *Client) PreviewURL(item domain.ResultItem) string {
	return fmt.Sprintf("%s/api/v1/artifacts/%s", c.baseURL, url.PathEscape(item.Filename))
}

// TrainedDocuments returns the read-only trained-document listing.
func (c *Client) TrainedDocuments(ctx context.Context) ([]domain.TrainedDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/training/documents", nil)
	if err != nil {
		return nil, fmt.Errorf("trained documents: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trained documents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trained documents: unexpected status %d", resp.StatusCode)
	}

	var listing struct {
		TrainedDocuments []domain.TrainedDocument `json:"trained_documents"`
		Count            int                      `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("trained documents: %w", err)
	}
	return listing.TrainedDocuments, nil
}

// extractErrorReason pulls the "error" field out of a service error
// body. Returns "" when the body is not in the expected shape.
func extractErrorReason(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Error)
}
