package narrative

import (
	"context"
	"fmt"
	"strings"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	domsvc "FxCockpit/internal/domain/service"
	"FxCockpit/pkg/config"

	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models the generator uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator produces narratives with the Gemini API.
type GeminiGenerator struct {
	models      contentGenerator
	model       string
	maxTokens   int32
	temperature float32
}

// NewGeminiGenerator builds a Gemini API client authenticated with the configured key.
func NewGeminiGenerator(ctx context.Context, cfg *config.Config) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Narrative.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiGenerator(client.Models, cfg), nil
}

func newGeminiGenerator(m contentGenerator, cfg *config.Config) *GeminiGenerator {
	return &GeminiGenerator{
		models:      m,
		model:       cfg.Narrative.GeminiModel,
		maxTokens:   int32(cfg.Narrative.MaxTokens),
		temperature: float32(cfg.Narrative.Temperature),
	}
}

func (g *GeminiGenerator) Provider() string { return ProviderGemini }

func (g *GeminiGenerator) Generate(ctx context.Context, in models.NarrativeContext) (string, error) {
	user, err := UserPrompt(in)
	if err != nil {
		return "", err
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt(in.Symbol), genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %v: %w", err, domain.ErrExternalService)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text: %w", domain.ErrExternalService)
	}
	return text, nil
}

var _ domsvc.NarrativeGenerator = (*GeminiGenerator)(nil)
