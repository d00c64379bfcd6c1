package ai

import (
	"fmt"

	"github.com/Nachikxt91/feedback-backend/internal/ai/groq"
	"github.com/Nachikxt91/feedback-backend/internal/ai/mock"
	"github.com/Nachikxt91/feedback-backend/internal/ai/openai"
	"github.com/Nachikxt91/feedback-backend/internal/config"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// NewProvider constructs the appropriate completion provider based on config.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.CompletionProvider, error) {
	switch cfg.Provider {
	case "groq":
		return groq.NewProvider(cfg.Groq), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of groq, openai, mock", cfg.Provider)
	}
}
