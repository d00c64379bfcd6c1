// Package ai wraps a text-completion provider with bounded retry and backoff.
// Everything above it treats a completion as "call(prompt) -> text, fails
// after N attempts".
package ai

import (
	"context"
	crand "crypto/rand"
	"log/slog"
	"strings"
	"time"

	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

const (
	maxAttempts        = 3
	defaultBackoffBase = 2 * time.Second
	defaultBackoffCap  = 10 * time.Second
)

// Client retries transient provider failures with exponential backoff.
// Any provider error is treated as retryable; after exhausting attempts the
// call fails with a single *ServiceError carrying the last error's message.
type Client struct {
	provider    models.CompletionProvider
	maxTokens   int
	backoffBase time.Duration
	backoffCap  time.Duration
}

type Option func(*Client)

// WithBackoff overrides the retry delays. Used by tests to avoid real sleeps.
func WithBackoff(base, cap time.Duration) Option {
	return func(c *Client) {
		c.backoffBase = base
		c.backoffCap = cap
	}
}

// NewClient creates a retrying completion client.
func NewClient(provider models.CompletionProvider, maxTokens int, opts ...Option) *Client {
	c := &Client{
		provider:    provider,
		maxTokens:   maxTokens,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the name of the wrapped provider.
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Call sends one prompt and returns the trimmed text reply.
// No partial output: either a full reply or an error.
func (c *Client) Call(ctx context.Context, prompt string, temperature float64) (string, error) {
	var lastErr error
	delay := c.backoffBase

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if !sleepCtx(ctx, withJitter(delay)) {
				return "", ctx.Err()
			}
			delay *= 2
			if delay > c.backoffCap {
				delay = c.backoffCap
			}
		}

		reply, err := c.provider.Complete(ctx, models.CompletionRequest{
			Prompt:      prompt,
			Temperature: temperature,
			MaxTokens:   c.maxTokens,
		})
		if err != nil {
			lastErr = err
			slog.Warn("completion call failed",
				"provider", c.provider.Name(),
				"attempt", attempt,
				"error", err,
			)
			continue
		}
		return strings.TrimSpace(reply), nil
	}

	return "", &ServiceError{Provider: c.provider.Name(), Message: lastErr.Error()}
}

// sleepCtx waits for d or returns false if ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// withJitter adds up to +50% random jitter so concurrent retries spread out.
func withJitter(d time.Duration) time.Duration {
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return d
	}
	f := float64(b[0]) / 255.0
	return d + time.Duration(0.5*f*float64(d))
}
