package alerts

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	"FxCockpit/internal/domain/repository"
	"FxCockpit/pkg/logger"

	"github.com/google/uuid"
)

type entry struct {
	mu      sync.Mutex
	rule    models.AlertRule
	deleted bool // set under mu once the rule is removed; no further writes
}

// Engine keeps alert rules in memory and evaluates them edge-triggered against prices.
// Each rule is mutated under its own lock; every change is persisted through the repository.
type Engine struct {
	repo repository.AlertRepository
	log  *logger.Logger
	now  func() time.Time

	mu    sync.RWMutex
	rules map[string]*entry
}

func NewEngine(repo repository.AlertRepository, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		repo:  repo,
		log:   log,
		now:   time.Now,
		rules: make(map[string]*entry),
	}
}

// Load replaces the in-memory rules with the persisted ones.
func (e *Engine) Load(ctx context.Context) error {
	rules, err := e.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load alert rules: %w", err)
	}
	m := make(map[string]*entry, len(rules))
	for _, r := range rules {
		m[r.ID] = &entry{rule: r}
	}
	e.mu.Lock()
	e.rules = m
	e.mu.Unlock()
	return nil
}

// Create validates and stores a new active rule.
func (e *Engine) Create(ctx context.Context, symbol string, cond models.Condition, price float64, message string) (models.AlertRule, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return models.AlertRule{}, fmt.Errorf("alert symbol is required: %w", domain.ErrValidation)
	}
	if cond != models.ConditionAbove && cond != models.ConditionBelow {
		return models.AlertRule{}, fmt.Errorf("alert condition %s: %w", cond, domain.ErrValidation)
	}
	if price <= 0 {
		return models.AlertRule{}, fmt.Errorf("alert price must be positive: %w", domain.ErrValidation)
	}
	if message == "" {
		message = DefaultMessage(symbol, cond, price)
	}

	notYet := false
	rule := models.AlertRule{
		ID:             uuid.NewString(),
		Symbol:         symbol,
		Condition:      cond,
		ThresholdPrice: price,
		Active:         true,
		LastSatisfied:  &notYet,
		Message:        message,
		CreatedAt:      e.now().UTC(),
	}
	if err := e.repo.Save(ctx, rule); err != nil {
		return models.AlertRule{}, fmt.Errorf("save alert rule: %w", err)
	}

	e.mu.Lock()
	e.rules[rule.ID] = &entry{rule: rule}
	e.mu.Unlock()

	e.log.Info("alert rule created",
		logger.String("id", rule.ID),
		logger.String("symbol", symbol),
		logger.String("condition", cond.String()),
		logger.Float64("price", price))
	return rule, nil
}

// List returns copies of all rules ordered by creation time.
func (e *Engine) List() []models.AlertRule {
	e.mu.RLock()
	entries := make([]*entry, 0, len(e.rules))
	for _, en := range e.rules {
		entries = append(entries, en)
	}
	e.mu.RUnlock()

	out := make([]models.AlertRule, 0, len(entries))
	for _, en := range entries {
		en.mu.Lock()
		out = append(out, en.rule)
		en.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete removes a rule. Unknown ids return ErrNotFound.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	en, ok := e.rules[id]
	if ok {
		delete(e.rules, id)
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}

	// An evaluation already holding the entry finishes its write first;
	// anything after sees deleted and leaves storage alone.
	en.mu.Lock()
	defer en.mu.Unlock()
	en.deleted = true
	if err := e.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete alert rule: %w", err)
	}
	return nil
}

// Reset re-arms a rule. The next evaluation only records a baseline, so a price that is
// still beyond the threshold does not fire immediately.
func (e *Engine) Reset(ctx context.Context, id string) (models.AlertRule, error) {
	en, ok := e.lookup(id)
	if !ok {
		return models.AlertRule{}, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}

	en.mu.Lock()
	defer en.mu.Unlock()
	if en.deleted {
		return models.AlertRule{}, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	en.rule.Active = true
	en.rule.Triggered = false
	en.rule.TriggeredAt = nil
	en.rule.LastSatisfied = nil
	if err := e.repo.Save(ctx, en.rule); err != nil {
		return models.AlertRule{}, fmt.Errorf("save alert rule: %w", err)
	}
	return en.rule, nil
}

// Evaluate checks every active rule against the latest prices keyed by symbol.
// It returns one event per rule that crossed its threshold on this tick.
func (e *Engine) Evaluate(ctx context.Context, prices map[string]float64, at time.Time) []models.AlertEvent {
	e.mu.RLock()
	entries := make([]*entry, 0, len(e.rules))
	for _, en := range e.rules {
		entries = append(entries, en)
	}
	e.mu.RUnlock()

	var events []models.AlertEvent
	for _, en := range entries {
		if ev, ok := e.evaluateOne(ctx, en, prices, at); ok {
			events = append(events, ev)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].RuleID < events[j].RuleID })
	return events
}

func (e *Engine) evaluateOne(ctx context.Context, en *entry, prices map[string]float64, at time.Time) (models.AlertEvent, bool) {
	en.mu.Lock()
	defer en.mu.Unlock()

	r := &en.rule
	if en.deleted || !r.Active {
		return models.AlertEvent{}, false
	}
	price, ok := prices[r.Symbol]
	if !ok {
		return models.AlertEvent{}, false
	}
	sat, err := r.Condition.Satisfied(price, r.ThresholdPrice)
	if err != nil {
		e.log.Warn("alert rule has invalid condition", logger.String("id", r.ID), logger.Error(err))
		return models.AlertEvent{}, false
	}

	fired := r.LastSatisfied != nil && !*r.LastSatisfied && sat
	changed := fired || r.LastSatisfied == nil || *r.LastSatisfied != sat
	r.LastSatisfied = &sat

	var ev models.AlertEvent
	if fired {
		t := at
		r.Triggered = true
		r.Active = false
		r.TriggeredAt = &t
		ev = models.AlertEvent{
			RuleID:    r.ID,
			Symbol:    r.Symbol,
			Condition: r.Condition,
			Threshold: r.ThresholdPrice,
			Price:     price,
			Message:   r.Message,
			At:        at,
		}
	}
	if changed {
		if err := e.repo.Save(ctx, *r); err != nil {
			e.log.Error("failed to persist alert rule", logger.String("id", r.ID), logger.Error(err))
		}
	}
	return ev, fired
}

func (e *Engine) lookup(id string) (*entry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	en, ok := e.rules[id]
	return en, ok
}

// DefaultMessage renders "<symbol> is <condition> <price>".
func DefaultMessage(symbol string, cond models.Condition, price float64) string {
	return fmt.Sprintf("%s is %s %s", symbol, cond, strconv.FormatFloat(price, 'f', -1, 64))
}
