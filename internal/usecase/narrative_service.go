package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	drepo "FxCockpit/internal/domain/repository"
	domsvc "FxCockpit/internal/domain/service"
	"FxCockpit/internal/service/ratelimit"
	"FxCockpit/internal/services/scenario"
	"FxCockpit/internal/snapshot"
	"FxCockpit/pkg/logger"

	"github.com/google/uuid"
)

// ErrRateLimited is returned when on-demand generation exceeds the configured rate.
var ErrRateLimited = errors.New("narrative generation rate limited")

const rateKey = "narrative"

// ProviderSwitcher is a narrative generator whose backing provider can be changed at runtime.
type ProviderSwitcher interface {
	domsvc.NarrativeGenerator
	Set(provider string) error
}

// NarrativeService builds the narrative context from the snapshot, calls the provider
// and keeps the history.
type NarrativeService struct {
	symbol      string
	gen         ProviderSwitcher
	repo        drepo.NarrativeRepository
	store       *snapshot.Store
	quotes      drepo.QuoteSource
	mirror      drepo.SnapshotCache
	events      drepo.EventPublisher
	metrics     drepo.Metrics
	limiter     *ratelimit.Limiter
	perMinute   float64
	maxDistance float64
	log         *logger.Logger
	now         func() time.Time
}

func NewNarrativeService(symbol string, gen ProviderSwitcher, repo drepo.NarrativeRepository, store *snapshot.Store,
	quotes drepo.QuoteSource, mirror drepo.SnapshotCache, events drepo.EventPublisher, metrics drepo.Metrics,
	limiter *ratelimit.Limiter, perMinute, maxDistance float64, log *logger.Logger) *NarrativeService {
	if perMinute <= 0 {
		perMinute = 2
	}
	if maxDistance <= 0 {
		maxDistance = scenario.DefaultMaxDistance
	}
	return &NarrativeService{
		symbol:      symbol,
		gen:         gen,
		repo:        repo,
		store:       store,
		quotes:      quotes,
		mirror:      mirror,
		events:      events,
		metrics:     metrics,
		limiter:     limiter,
		perMinute:   perMinute,
		maxDistance: maxDistance,
		log:         log.With("narrative"),
		now:         time.Now,
	}
}

func (s *NarrativeService) Provider() string { return s.gen.Provider() }

func (s *NarrativeService) SetProvider(provider string) error { return s.gen.Set(provider) }

// Generate produces a narrative on demand. Provider failures surface as domain.ErrExternalService.
func (s *NarrativeService) Generate(ctx context.Context) (*models.Narrative, error) {
	if ok, wait := s.limiter.Reserve(rateKey, s.perMinute, s.perMinute/60); !ok {
		return nil, fmt.Errorf("retry in %s: %w", wait.Round(time.Second), ErrRateLimited)
	}
	return s.generate(ctx)
}

// RunScheduled is the daily narrative job. Provider failures are logged and skipped.
func (s *NarrativeService) RunScheduled(ctx context.Context) error {
	n, err := s.generate(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrExternalService) || errors.Is(err, domain.ErrDataUnavailable) {
			s.metrics.RecordError("narrative")
			s.log.Warn("scheduled narrative skipped", logger.Error(err))
			return nil
		}
		return err
	}
	s.log.Info("scheduled narrative generated", logger.String("id", n.ID), logger.String("provider", n.Provider))
	return nil
}

func (s *NarrativeService) Latest(ctx context.Context) (*models.Narrative, error) {
	return s.repo.Latest(ctx)
}

func (s *NarrativeService) History(ctx context.Context, limit int) ([]models.Narrative, error) {
	return s.repo.List(ctx, limit)
}

func (s *NarrativeService) generate(ctx context.Context) (*models.Narrative, error) {
	now := s.now()
	snap := s.store.Load()
	in, err := s.BuildContext(snap, now)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	content, err := s.gen.Generate(ctx, in)
	s.metrics.RecordLatency("narrative_generate_seconds", time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, domain.ErrExternalService) {
			err = fmt.Errorf("%v: %w", err, domain.ErrExternalService)
		}
		return nil, err
	}

	n := &models.Narrative{
		ID:          uuid.NewString(),
		GeneratedAt: now.UTC(),
		Session:     sessionLabel(in.ActiveSessions),
		Provider:    s.gen.Provider(),
		Content:     content,
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode narrative context: %w", err)
	}
	if err := s.repo.Append(ctx, *n, raw); err != nil {
		return nil, fmt.Errorf("store narrative: %w", err)
	}

	commitSnapshot(ctx, s.store, s.mirror, s.events, s.metrics, s.log, func(next *models.Snapshot) {
		next.Narrative = snapshot.Apply(next.Narrative, n, nil, now)
	})
	return n, nil
}

// BuildContext assembles the provider payload from the latest snapshot.
func (s *NarrativeService) BuildContext(snap *models.Snapshot, now time.Time) (models.NarrativeContext, error) {
	in := models.NarrativeContext{
		Timestamp:      now,
		Symbol:         s.symbol,
		ActiveSessions: []string{},
	}

	if q, ok := s.quotes.Latest(s.symbol); ok {
		in.CurrentPrice = q.Price
	} else if snap.Price.Data != nil {
		in.CurrentPrice = snap.Price.Data.Price
	}
	if in.CurrentPrice <= 0 {
		return in, fmt.Errorf("narrative: no current price: %w", domain.ErrDataUnavailable)
	}

	if ids := snap.Sessions.Data.ActiveIDs(); len(ids) > 0 {
		in.ActiveSessions = ids
	}
	if st := snap.Statistics.Data; st != nil {
		in.Bias = st.Bias
	}
	if corr := snap.Correlations.Data; corr != nil {
		in.Correlations = corr.Results
		in.MarketPrices = corr.MarketStatus
	}
	in.NearbyLevels = scenario.Nearby(in.CurrentPrice, snap.KeyLevels.Data, s.maxDistance)
	in.Scenarios = snap.Scenarios.Data
	return in, nil
}

func sessionLabel(active []string) string {
	if len(active) == 0 {
		return "off_hours"
	}
	return strings.Join(active, "+")
}
