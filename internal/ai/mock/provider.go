// Package mock provides a canned completion provider for tests and local runs.
package mock

import (
	"context"

	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// MockProvider satisfies models.CompletionProvider for testing.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, req models.CompletionRequest) (string, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", nil
}

// NewProvider returns a MockProvider with a sensible default response.
func NewProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return "Mock completion reply for testing", nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (string, error) {
			return "", err
		},
	}
}

// Compile-time check that MockProvider implements CompletionProvider.
var _ models.CompletionProvider = (*MockProvider)(nil)
