package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// DefaultCallTimeout bounds a single LLM call.
const DefaultCallTimeout = 60 * time.Second

// LLMCaller wraps an LLMService with a per-call timeout and a single retry
// for timeouts and transient failures.
type LLMCaller struct {
	llm     driven.LLMService
	timeout time.Duration
	backoff time.Duration
}

// CallerOption configures an LLMCaller.
type CallerOption func(*LLMCaller)

// WithCallTimeout sets the per-attempt timeout.
func WithCallTimeout(d time.Duration) CallerOption {
	return func(c *LLMCaller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryBackoff sets the pause before the retry.
func WithRetryBackoff(d time.Duration) CallerOption {
	return func(c *LLMCaller) {
		c.backoff = d
	}
}

// NewLLMCaller creates a caller around llm. A nil llm makes every call fail
// with domain.ErrLLMUnavailable.
func NewLLMCaller(llm driven.LLMService, opts ...CallerOption) *LLMCaller {
	c := &LLMCaller{
		llm:     llm,
		timeout: DefaultCallTimeout,
		backoff: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether an LLM is configured.
func (c *LLMCaller) Available() bool {
	return c != nil && c.llm != nil
}

// Generate runs the prompt. An empty completion and a declined prompt count
// as failures; a decline is not retried.
// Errors wrap domain.ErrLLMUnavailable unless the parent context ended.
func (c *LLMCaller) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("%w: no LLM configured", domain.ErrLLMUnavailable)
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := c.attempt(ctx, prompt, opts)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			break
		}
		logger.Debug("LLM call attempt %d failed, retrying: %v", attempt, err)

		if attempt == 1 && c.backoff > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff):
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if errors.Is(lastErr, domain.ErrLLMUnavailable) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, lastErr)
}

func (c *LLMCaller) attempt(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.llm.Generate(callCtx, prompt, opts)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("llm call timed out after %s: %w", c.timeout, context.DeadlineExceeded)
		}
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errEmptyCompletion
	}
	return out, nil
}

var errEmptyCompletion = errors.New("empty completion")

// retryable reports whether a failed attempt is worth repeating.
// Invalid input and declines are permanent; everything else is treated as
// transient.
func retryable(err error) bool {
	return !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrDeclined)
}
