package services

import (
	"errors"
	"fmt"
)

// Validation and configuration errors. These are the only errors the triage
// operations return; upstream failures are folded into the result instead.
var (
	ErrEmptyLog                = errors.New("log text input must not be empty")
	ErrMissingFile             = errors.New("log file not found in request")
	ErrEmptyImage              = errors.New("image file not found in request")
	ErrUnsupportedImage        = errors.New("uploaded file is not an image")
	ErrMissingIP               = errors.New("IP address is required")
	ErrInvalidIP               = errors.New("IP address is not valid")
	ErrNotConfigured           = errors.New("triage backend is not fully configured")
	ErrReputationNotConfigured = errors.New("VIRUSTOTAL_API_KEY is not configured")
	ErrEmptyCompletion         = errors.New("completion response contained no content")

	ErrInvalidKnowledge  = errors.New("knowledge input and output must not be empty")
	ErrKnowledgeNotFound = errors.New("knowledge example not found")
)

// UpstreamError describes a non-2xx answer from an external service.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s returned status %d, body: %s", e.Service, e.Status, e.Body)
}

// IsValidationError reports whether err should be answered with a 400.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyLog),
		errors.Is(err, ErrMissingFile),
		errors.Is(err, ErrEmptyImage),
		errors.Is(err, ErrUnsupportedImage),
		errors.Is(err, ErrMissingIP),
		errors.Is(err, ErrInvalidIP),
		errors.Is(err, ErrInvalidKnowledge):
		return true
	}
	return false
}
