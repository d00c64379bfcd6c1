// Package models contains shared data models used across the feedback-backend codebase.
package models

import "context"

// CompletionProvider is the core interface that all text-completion integrations
// must implement. Never call a specific provider directly — always inject this
// interface.
type CompletionProvider interface {
	// Complete sends a single prompt and returns the model's text reply.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Name returns the provider identifier (e.g., "groq", "openai").
	Name() string
}

// CompletionRequest is the input to a single text-completion call.
type CompletionRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// TenantContext carries the company profile fields injected into every prompt
// so analyses stay domain-specific rather than generic.
type TenantContext struct {
	Name        string
	Description string
	Industry    string
	Products    []string
}
