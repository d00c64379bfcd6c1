// Package openai implements models.CompletionProvider against the OpenAI
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Nachikxt91/feedback-backend/internal/config"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// Provider implements models.CompletionProvider using OpenAI.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Provider) Name() string { return "openai" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       p.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	u := p.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding openai response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

var _ models.CompletionProvider = (*Provider)(nil)
