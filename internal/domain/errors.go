package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrNotPDF is returned when the uploaded file is not a PDF.
	ErrNotPDF = errors.New("file must be a PDF")

	// ErrEmptyUpload is returned when the uploaded file is empty.
	ErrEmptyUpload = errors.New("uploaded file is empty")

	// ErrPayloadTooLarge is returned when the upload exceeds the size limit.
	ErrPayloadTooLarge = errors.New("uploaded file exceeds maximum size")

	// ErrPublishFailed is returned when the message broker publish fails.
	ErrPublishFailed = errors.New("failed to publish job to message queue")

	// ErrNoFirstPages is returned when no document boundaries could be
	// identified in a composite PDF.
	ErrNoFirstPages = errors.New("no first pages identified")

	// ErrNotTrained is returned when a split is requested before any
	// training documents exist.
	ErrNotTrained = errors.New("no trained documents available")

	// ErrDocumentNotFound is returned when a requested document is not in
	// the training index.
	ErrDocumentNotFound = errors.New("document not found in training data")

	// ErrPreviewUnavailable is returned when a trained document has no
	// stored preview images.
	ErrPreviewUnavailable = errors.New("preview not available for this document")
)
