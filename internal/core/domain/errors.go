package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Ingestion Errors.

	// ErrUnsupportedKind indicates a source kind outside the supported set.
	ErrUnsupportedKind = errors.New("unsupported source kind")

	// ErrParse indicates content could not be decoded as its declared kind.
	// Not retryable.
	ErrParse = errors.New("parse error")

	// ErrExtraction indicates the LLM output violated the extraction schema
	// after one corrective retry. Degrades the chunk to embedding-only.
	ErrExtraction = errors.New("extraction failed")

	// ErrDimensionMismatch indicates a vector length disagrees with the
	// store's configured dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// QA Errors.

	// ErrSynthesisUnavailable indicates the LLM was unreachable, declined, or
	// returned empty content after one retry.
	ErrSynthesisUnavailable = errors.New("synthesis unavailable")

	// ErrDeclined indicates the model refused the prompt or its output was
	// withheld by a content filter.
	ErrDeclined = errors.New("model declined")

	// Capability Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates a graph or vector store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRateLimited indicates a capability's rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ErrorKind is the machine-readable class of a user-visible failure.
type ErrorKind string

// Error kinds surfaced to callers.
const (
	KindUnsupportedKind      ErrorKind = "unsupported_kind"
	KindParseError           ErrorKind = "parse_error"
	KindExtractionError      ErrorKind = "extraction_error"
	KindDimensionMismatch    ErrorKind = "dimension_mismatch"
	KindSynthesisUnavailable ErrorKind = "synthesis_unavailable"
	KindIngestionFailed      ErrorKind = "ingestion_failed"
	KindInvalidInput         ErrorKind = "invalid_input"
	KindNotFound             ErrorKind = "not_found"
	KindUnavailable          ErrorKind = "unavailable"
	KindInternal             ErrorKind = "internal"
)

// Error is the structured form of every user-visible failure.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewError creates a structured error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// kindBySentinel is checked in order; the first match wins.
var kindBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnsupportedKind, KindUnsupportedKind},
	{ErrParse, KindParseError},
	{ErrExtraction, KindExtractionError},
	{ErrDimensionMismatch, KindDimensionMismatch},
	{ErrSynthesisUnavailable, KindSynthesisUnavailable},
	{ErrInvalidInput, KindInvalidInput},
	{ErrNotFound, KindNotFound},
	{ErrLLMUnavailable, KindUnavailable},
	{ErrEmbeddingUnavailable, KindUnavailable},
	{ErrStoreUnavailable, KindUnavailable},
	{ErrRateLimited, KindUnavailable},
	{ErrDeclined, KindUnavailable},
}

// KindOf classifies err. Unrecognised errors are KindInternal.
func KindOf(err error) ErrorKind {
	var structured *Error
	if errors.As(err, &structured) {
		return structured.Kind
	}
	for _, s := range kindBySentinel {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindInternal
}

// AsError converts any error into its structured form. Nil stays nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}
	return &Error{Kind: KindOf(err), Message: err.Error()}
}
