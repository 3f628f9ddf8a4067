package narrative

import (
	"context"
	"fmt"
	"strings"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	domsvc "FxCockpit/internal/domain/service"
	"FxCockpit/pkg/config"
	xhttp "FxCockpit/pkg/http"
)

const anthropicVersion = "2023-06-01"

// ClaudeGenerator calls the Anthropic Messages REST API.
type ClaudeGenerator struct {
	base        *httpBase
	model       string
	maxTokens   int
	temperature float64
}

func NewClaudeGenerator(cfg *config.Config, opts ...xhttp.ClientOption) *ClaudeGenerator {
	n := cfg.Narrative
	return &ClaudeGenerator{
		base: newHTTPBase(n.ClaudeURL, n.Timeout, map[string]string{
			"x-api-key":         n.ClaudeAPIKey,
			"anthropic-version": anthropicVersion,
		}, opts...),
		model:       n.ClaudeModel,
		maxTokens:   n.MaxTokens,
		temperature: n.Temperature,
	}
}

func (g *ClaudeGenerator) Provider() string { return ProviderClaude }

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	System      string          `json:"system"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (g *ClaudeGenerator) Generate(ctx context.Context, in models.NarrativeContext) (string, error) {
	user, err := UserPrompt(in)
	if err != nil {
		return "", err
	}
	req := claudeRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		System:      SystemPrompt(in.Symbol),
		Messages:    []claudeMessage{{Role: "user", Content: user}},
	}

	var resp claudeResponse
	if err := g.base.PostJSONWithRetry(ctx, req, &resp, 2); err != nil {
		return "", fmt.Errorf("claude messages: %v: %w", err, domain.ErrExternalService)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "" || c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("claude returned no text: %w", domain.ErrExternalService)
	}
	return text, nil
}

var _ domsvc.NarrativeGenerator = (*ClaudeGenerator)(nil)
