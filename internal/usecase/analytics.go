package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	drepo "FxCockpit/internal/domain/repository"
	"FxCockpit/internal/services/alerts"
	"FxCockpit/internal/services/correlation"
	"FxCockpit/internal/services/features"
	"FxCockpit/internal/services/keylevels"
	"FxCockpit/internal/services/scenario"
	"FxCockpit/internal/services/session"
	"FxCockpit/internal/services/statistics"
	"FxCockpit/internal/snapshot"
	"FxCockpit/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Job names shared by the scheduler, the metrics labels and the status endpoint.
const (
	JobSessions     = "sessions"
	JobStatistics   = "statistics"
	JobCorrelations = "correlations"
	JobKeyLevels    = "keylevels"
	JobScenarios    = "scenarios"
	JobAlerts       = "alerts"
	JobNarrative    = "narrative"
)

// intraday bars used for swings and touch counting
const keyLevelIntradayBars = 120

// AnalyticsEngines bundles the pure computation services.
type AnalyticsEngines struct {
	Clock       *session.Clock
	Statistics  *statistics.Engine
	Correlation *correlation.Analyzer
	KeyLevels   *keylevels.Detector
	Scenarios   *scenario.Generator
	Alerts      *alerts.Engine
}

// AnalyticsSources is where the jobs read raw inputs from.
type AnalyticsSources struct {
	Bars       drepo.BarSource
	Assets     drepo.AssetSource
	Quotes     drepo.QuoteSource
	AssetList  []models.Asset
	HourlyBars int
	DailyBars  int
	AssetDays  int
}

// Analytics runs each periodic job: read inputs, compute, swap the result into the snapshot.
type Analytics struct {
	symbol  string
	eng     AnalyticsEngines
	src     AnalyticsSources
	store   *snapshot.Store
	mirror  drepo.SnapshotCache
	events  drepo.EventPublisher
	metrics drepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewAnalytics(symbol string, eng AnalyticsEngines, src AnalyticsSources, store *snapshot.Store,
	mirror drepo.SnapshotCache, events drepo.EventPublisher, metrics drepo.Metrics, log *logger.Logger) *Analytics {
	if src.HourlyBars <= 0 {
		src.HourlyBars = 720
	}
	if src.DailyBars <= 0 {
		src.DailyBars = 60
	}
	if src.AssetDays <= 0 {
		src.AssetDays = 45
	}
	return &Analytics{
		symbol:  symbol,
		eng:     eng,
		src:     src,
		store:   store,
		mirror:  mirror,
		events:  events,
		metrics: metrics,
		log:     log.With("analytics"),
		now:     time.Now,
	}
}

// Restore seeds the snapshot store from the external mirror after a restart.
func (a *Analytics) Restore(ctx context.Context) bool {
	if a.mirror == nil {
		return false
	}
	snap, err := a.mirror.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.log.Warn("snapshot mirror load failed", logger.Error(err))
		}
		return false
	}
	if !a.store.Restore(snap) {
		return false
	}
	a.log.Info("snapshot restored", logger.Int64("version", int64(snap.Version)))
	return true
}

func (a *Analytics) RunSessions(ctx context.Context) error {
	now := a.now()
	board := a.eng.Clock.Evaluate(now)
	a.commit(ctx, func(s *models.Snapshot) {
		s.Sessions = snapshot.Apply(s.Sessions, &board, nil, now)
	})
	return nil
}

func (a *Analytics) RunStatistics(ctx context.Context) error {
	now := a.now()
	report, err := a.computeStatistics(ctx, now)
	a.commit(ctx, func(s *models.Snapshot) {
		s.Statistics = snapshot.Apply(s.Statistics, report, err, now)
	})
	return err
}

func (a *Analytics) computeStatistics(ctx context.Context, now time.Time) (*models.StatisticsReport, error) {
	hourly, err := a.hourly(ctx, a.src.HourlyBars)
	if err != nil {
		return nil, err
	}
	return a.eng.Statistics.Compute(hourly, now)
}

func (a *Analytics) RunCorrelations(ctx context.Context) error {
	now := a.now()
	report, err := a.computeCorrelations(ctx)
	a.commit(ctx, func(s *models.Snapshot) {
		s.Correlations = snapshot.Apply(s.Correlations, report, err, now)
	})
	return err
}

func (a *Analytics) computeCorrelations(ctx context.Context) (*models.CorrelationReport, error) {
	daily, err := a.daily(ctx)
	if err != nil {
		return nil, err
	}
	base := features.DailyCloses(daily)

	series := make([]correlation.AssetSeries, len(a.src.AssetList))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, asset := range a.src.AssetList {
		i, asset := i, asset
		g.Go(func() error {
			closes, err := a.src.Assets.DailyCloses(gctx, asset, a.src.AssetDays)
			if err != nil {
				a.metrics.RecordError("asset_quotes")
				a.log.Warn("asset closes unavailable", logger.String("asset", asset.Name), logger.Error(err))
			}
			series[i] = correlation.AssetSeries{Asset: asset, Closes: closes, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return a.eng.Correlation.Analyze(base, series), nil
}

func (a *Analytics) RunKeyLevels(ctx context.Context) error {
	now := a.now()
	levels, err := a.computeKeyLevels(ctx, now)
	a.commit(ctx, func(s *models.Snapshot) {
		s.KeyLevels = snapshot.Apply(s.KeyLevels, levels, err, now)
	})
	return err
}

func (a *Analytics) computeKeyLevels(ctx context.Context, now time.Time) ([]models.KeyLevel, error) {
	daily, err := a.daily(ctx)
	if err != nil {
		return nil, err
	}
	intraday, err := a.hourly(ctx, keyLevelIntradayBars)
	if err != nil {
		return nil, err
	}
	var price float64
	if q, ok := a.src.Quotes.Latest(a.symbol); ok {
		price = q.Price
	}
	return a.eng.KeyLevels.Detect(keylevels.Input{Daily: daily, Intraday: intraday, Price: price, Now: now})
}

// RunScenarios derives scenarios from the bias and key levels already in the snapshot.
func (a *Analytics) RunScenarios(ctx context.Context) error {
	now := a.now()
	scenarios, err := a.computeScenarios(a.store.Load())
	a.commit(ctx, func(s *models.Snapshot) {
		s.Scenarios = snapshot.Apply(s.Scenarios, scenarios, err, now)
	})
	return err
}

func (a *Analytics) computeScenarios(snap *models.Snapshot) ([]models.Scenario, error) {
	if snap.Statistics.Data == nil {
		return nil, fmt.Errorf("scenarios: statistics not computed yet: %w", domain.ErrDataUnavailable)
	}
	if len(snap.KeyLevels.Data) == 0 {
		return nil, fmt.Errorf("scenarios: key levels not computed yet: %w", domain.ErrDataUnavailable)
	}
	price, ok := a.currentPrice(snap)
	if !ok {
		return nil, fmt.Errorf("scenarios: no current price: %w", domain.ErrDataUnavailable)
	}
	return a.eng.Scenarios.Generate(price, snap.Statistics.Data.Bias, snap.KeyLevels.Data), nil
}

// RunAlerts refreshes the price section and evaluates every alert rule against the latest prices.
func (a *Analytics) RunAlerts(ctx context.Context) error {
	now := a.now()
	q, ok := a.src.Quotes.Latest(a.symbol)
	var err error
	if !ok {
		err = fmt.Errorf("no live quote for %s: %w", a.symbol, domain.ErrDataUnavailable)
	}
	quote := &q
	snap := a.commit(ctx, func(s *models.Snapshot) {
		s.Price = snapshot.Apply(s.Price, quote, err, now)
	})
	if err != nil {
		return err
	}

	prices := map[string]float64{a.symbol: q.Price}
	if corr := snap.Correlations.Data; corr != nil {
		for name, mv := range corr.MarketStatus {
			prices[name] = mv.Price
		}
	}

	for _, ev := range a.eng.Alerts.Evaluate(ctx, prices, now) {
		a.metrics.RecordAlertTriggered(ev.Symbol)
		a.log.Info("alert triggered",
			logger.String("rule_id", ev.RuleID),
			logger.String("symbol", ev.Symbol),
			logger.Float64("price", ev.Price),
			logger.String("message", ev.Message))
		if a.events == nil {
			continue
		}
		if perr := a.events.PublishAlert(ctx, ev); perr != nil {
			a.metrics.RecordError("event_publish")
			a.log.Warn("alert event publish failed", logger.Error(perr))
		}
	}
	return nil
}

// currentPrice prefers the live quote and falls back to the last weekly close.
func (a *Analytics) currentPrice(snap *models.Snapshot) (float64, bool) {
	if q, ok := a.src.Quotes.Latest(a.symbol); ok {
		return q.Price, true
	}
	if st := snap.Statistics.Data; st != nil && st.Weekly != nil && st.Weekly.Current > 0 {
		return st.Weekly.Current, true
	}
	return 0, false
}

func (a *Analytics) hourly(ctx context.Context, n int) ([]models.PriceBar, error) {
	bars, err := a.src.Bars.GetLatestNBars(ctx, a.symbol, n, drepo.TF1h)
	if err != nil {
		return nil, fmt.Errorf("hourly bars: %v: %w", err, domain.ErrDataUnavailable)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no hourly bars for %s: %w", a.symbol, domain.ErrDataUnavailable)
	}
	return bars, nil
}

// daily reads stored daily bars, or resamples hourly history when the feed does not publish them.
func (a *Analytics) daily(ctx context.Context) ([]models.PriceBar, error) {
	bars, err := a.src.Bars.GetLatestNBars(ctx, a.symbol, a.src.DailyBars, drepo.TF1d)
	if err != nil {
		return nil, fmt.Errorf("daily bars: %v: %w", err, domain.ErrDataUnavailable)
	}
	if len(bars) > 0 {
		return bars, nil
	}
	hourly, err := a.hourly(ctx, a.src.HourlyBars)
	if err != nil {
		return nil, err
	}
	return features.ResampleDaily(hourly, a.eng.Clock.Location()), nil
}

// commit swaps a new snapshot version in and mirrors it outward. Mirror failures are logged only.
func (a *Analytics) commit(ctx context.Context, mutate func(*models.Snapshot)) *models.Snapshot {
	return commitSnapshot(ctx, a.store, a.mirror, a.events, a.metrics, a.log, mutate)
}

func commitSnapshot(ctx context.Context, store *snapshot.Store, mirror drepo.SnapshotCache, events drepo.EventPublisher,
	metrics drepo.Metrics, log *logger.Logger, mutate func(*models.Snapshot)) *models.Snapshot {
	next := store.Update(mutate)
	metrics.RecordSnapshotVersion(next.Version)
	emitSnapshot(ctx, store, mirror, events, metrics, log, next)
	return next
}

// emitSnapshot writes next to the mirror and event stream. A writer that lost the
// race to a newer version skips, so the mirror never moves backwards.
func emitSnapshot(ctx context.Context, store *snapshot.Store, mirror drepo.SnapshotCache, events drepo.EventPublisher,
	metrics drepo.Metrics, log *logger.Logger, next *models.Snapshot) bool {
	sent := store.Emit(next, func() {
		if mirror != nil {
			if err := mirror.Save(ctx, next); err != nil {
				metrics.RecordError("snapshot_mirror")
				log.Warn("snapshot mirror save failed", logger.Error(err))
			}
		}
		if events != nil {
			if err := events.PublishSnapshot(ctx, next); err != nil {
				metrics.RecordError("event_publish")
				log.Warn("snapshot event publish failed", logger.Error(err))
			}
		}
	})
	if !sent {
		log.Debug("stale snapshot not mirrored", logger.Int64("version", int64(next.Version)))
	}
	return sent
}
