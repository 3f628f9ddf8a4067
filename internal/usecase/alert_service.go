package usecase

import (
	"context"
	"fmt"
	"strings"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	"FxCockpit/internal/services/alerts"
)

// AlertInput is a create request after transport decoding.
type AlertInput struct {
	Symbol    string
	Condition string
	Price     float64
	Message   string
}

// AlertService validates alert requests against the tracked symbols before handing them to the engine.
type AlertService struct {
	engine  *alerts.Engine
	symbols map[string]string // lower-case -> canonical
}

func NewAlertService(engine *alerts.Engine, instrument string, assets []models.Asset) *AlertService {
	symbols := map[string]string{strings.ToLower(instrument): instrument}
	for _, a := range assets {
		symbols[strings.ToLower(a.Name)] = a.Name
	}
	return &AlertService{engine: engine, symbols: symbols}
}

func (s *AlertService) Create(ctx context.Context, in AlertInput) (models.AlertRule, error) {
	symbol, ok := s.symbols[strings.ToLower(strings.TrimSpace(in.Symbol))]
	if !ok {
		return models.AlertRule{}, fmt.Errorf("symbol %q is not tracked: %w", in.Symbol, domain.ErrValidation)
	}
	cond, err := models.ParseCondition(in.Condition)
	if err != nil {
		return models.AlertRule{}, fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}
	if in.Price <= 0 {
		return models.AlertRule{}, fmt.Errorf("alert price must be positive: %w", domain.ErrValidation)
	}
	return s.engine.Create(ctx, symbol, cond, in.Price, strings.TrimSpace(in.Message))
}

func (s *AlertService) List() []models.AlertRule { return s.engine.List() }

func (s *AlertService) Delete(ctx context.Context, id string) error {
	return s.engine.Delete(ctx, id)
}

func (s *AlertService) Reset(ctx context.Context, id string) (models.AlertRule, error) {
	return s.engine.Reset(ctx, id)
}
