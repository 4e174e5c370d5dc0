package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// Error is the JSON body of every failed request.
type Error struct {
	Code    int              `json:"code"`
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"error"`
}

// Error implements the error interface.
func (e Error) Error() string {
	return e.Message
}

// NewError creates an API error with an explicit status.
func NewError(code int, kind domain.ErrorKind, msg string) Error {
	return Error{Code: code, Kind: kind, Message: msg}
}

// ErrBadRequest is returned when the body cannot be decoded.
func ErrBadRequest(msg string) Error {
	return NewError(fiber.StatusBadRequest, domain.KindInvalidInput, msg)
}

// ValidationError reports per-field validation failures.
type ValidationError struct {
	Status int               `json:"status"`
	Kind   domain.ErrorKind  `json:"kind"`
	Errors map[string]string `json:"errors"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return "validation failed"
}

// NewValidationError wraps field errors into a 422 response.
func NewValidationError(errs map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Kind:   domain.KindInvalidInput,
		Errors: errs,
	}
}

// statusByKind maps structured error kinds to HTTP status codes.
var statusByKind = map[domain.ErrorKind]int{
	domain.KindInvalidInput:         fiber.StatusBadRequest,
	domain.KindUnsupportedKind:      fiber.StatusUnsupportedMediaType,
	domain.KindParseError:           fiber.StatusUnprocessableEntity,
	domain.KindNotFound:             fiber.StatusNotFound,
	domain.KindDimensionMismatch:    fiber.StatusConflict,
	domain.KindSynthesisUnavailable: fiber.StatusServiceUnavailable,
	domain.KindUnavailable:          fiber.StatusServiceUnavailable,
	domain.KindExtractionError:      fiber.StatusBadGateway,
	domain.KindIngestionFailed:      fiber.StatusInternalServerError,
	domain.KindInternal:             fiber.StatusInternalServerError,
}

// ErrorHandler renders every error as a structured JSON body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}

	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := domain.KindInternal
		switch {
		case fiberErr.Code == fiber.StatusNotFound:
			kind = domain.KindNotFound
		case fiberErr.Code < fiber.StatusInternalServerError:
			kind = domain.KindInvalidInput
		}
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, kind, fiberErr.Message))
	}

	structured := domain.AsError(err)
	code, ok := statusByKind[structured.Kind]
	if !ok {
		code = fiber.StatusInternalServerError
	}
	if code >= fiber.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(NewError(code, structured.Kind, structured.Message))
}
