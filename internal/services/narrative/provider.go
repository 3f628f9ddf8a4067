package narrative

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	domsvc "FxCockpit/internal/domain/service"
	"FxCockpit/pkg/config"
	"FxCockpit/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Switcher selects the active narrative provider at runtime.
// Generators are built lazily so a missing key only fails the provider that needs it.
type Switcher struct {
	cfg *config.Config
	log *logger.Logger

	mu         sync.Mutex
	current    string
	generators map[string]domsvc.NarrativeGenerator

	newGemini func(ctx context.Context, cfg *config.Config) (domsvc.NarrativeGenerator, error)
	newClaude func(cfg *config.Config) domsvc.NarrativeGenerator
}

func NewSwitcher(cfg *config.Config, log *logger.Logger) *Switcher {
	return &Switcher{
		cfg:        cfg,
		log:        log.With("narrative"),
		current:    strings.ToLower(cfg.Narrative.Provider),
		generators: make(map[string]domsvc.NarrativeGenerator),
		newGemini: func(ctx context.Context, cfg *config.Config) (domsvc.NarrativeGenerator, error) {
			return NewGeminiGenerator(ctx, cfg)
		},
		newClaude: func(cfg *config.Config) domsvc.NarrativeGenerator {
			return NewClaudeGenerator(cfg)
		},
	}
}

// Provider returns the name of the active provider.
func (s *Switcher) Provider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set switches the active provider after checking that its API key is configured.
func (s *Switcher) Set(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if err := s.checkKey(provider); err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.current
	s.current = provider
	s.mu.Unlock()
	if prev != provider {
		s.log.Info("narrative provider switched", logger.String("from", prev), logger.String("to", provider))
	}
	return nil
}

func (s *Switcher) checkKey(provider string) error {
	switch provider {
	case ProviderGemini:
		if s.cfg.Narrative.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is not configured: %w", domain.ErrValidation)
		}
	case ProviderClaude:
		if s.cfg.Narrative.ClaudeAPIKey == "" {
			return fmt.Errorf("CLAUDE_API_KEY is not configured: %w", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("unknown narrative provider %q, expected gemini or claude: %w", provider, domain.ErrValidation)
	}
	return nil
}

func (s *Switcher) generator(ctx context.Context) (domsvc.NarrativeGenerator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.generators[s.current]; ok {
		return g, nil
	}
	if err := s.checkKey(s.current); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrExternalService)
	}

	var g domsvc.NarrativeGenerator
	switch s.current {
	case ProviderGemini:
		gen, err := s.newGemini(ctx, s.cfg)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, domain.ErrExternalService)
		}
		g = gen
	case ProviderClaude:
		g = s.newClaude(s.cfg)
	}
	s.generators[s.current] = g
	return g, nil
}

// Generate runs the active provider.
func (s *Switcher) Generate(ctx context.Context, in models.NarrativeContext) (string, error) {
	g, err := s.generator(ctx)
	if err != nil {
		return "", err
	}
	return g.Generate(ctx, in)
}

var _ domsvc.NarrativeGenerator = (*Switcher)(nil)
