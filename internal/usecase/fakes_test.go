package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	"FxCockpit/internal/services/alerts"
	"FxCockpit/internal/services/correlation"
	"FxCockpit/internal/services/keylevels"
	"FxCockpit/internal/services/scenario"
	"FxCockpit/internal/services/session"
	"FxCockpit/internal/services/statistics"

	"github.com/stretchr/testify/require"
)

type nopMetrics struct {
	mu       sync.Mutex
	alerts   int
	errors   map[string]int
	versions []uint64
}

func newNopMetrics() *nopMetrics { return &nopMetrics{errors: map[string]int{}} }

func (m *nopMetrics) RecordJobRun(string, string, float64) {}
func (m *nopMetrics) RecordJobSkipped(string)              {}
func (m *nopMetrics) RecordLastPrice(string, float64)      {}
func (m *nopMetrics) RecordLatency(string, float64)        {}

func (m *nopMetrics) RecordSnapshotVersion(v uint64) {
	m.mu.Lock()
	m.versions = append(m.versions, v)
	m.mu.Unlock()
}

func (m *nopMetrics) RecordAlertTriggered(string) {
	m.mu.Lock()
	m.alerts++
	m.mu.Unlock()
}

func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

type capturePublisher struct {
	mu        sync.Mutex
	snapshots []uint64
	alerts    []models.AlertEvent
}

func (p *capturePublisher) PublishSnapshot(_ context.Context, s *models.Snapshot) error {
	p.mu.Lock()
	p.snapshots = append(p.snapshots, s.Version)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) PublishAlert(_ context.Context, e models.AlertEvent) error {
	p.mu.Lock()
	p.alerts = append(p.alerts, e)
	p.mu.Unlock()
	return nil
}

type memMirror struct {
	mu   sync.Mutex
	snap *models.Snapshot
}

func (m *memMirror) Save(_ context.Context, s *models.Snapshot) error {
	m.mu.Lock()
	m.snap = s
	m.mu.Unlock()
	return nil
}

func (m *memMirror) Load(context.Context) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, domain.ErrNotFound
	}
	return m.snap, nil
}

type memAlertRepo struct {
	mu    sync.Mutex
	rules map[string]models.AlertRule
}

func newMemAlertRepo() *memAlertRepo { return &memAlertRepo{rules: map[string]models.AlertRule{}} }

func (r *memAlertRepo) List(context.Context) ([]models.AlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AlertRule, 0, len(r.rules))
	for _, v := range r.rules {
		out = append(out, v)
	}
	return out, nil
}

func (r *memAlertRepo) Save(_ context.Context, rule models.AlertRule) error {
	r.mu.Lock()
	r.rules[rule.ID] = rule
	r.mu.Unlock()
	return nil
}

func (r *memAlertRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rules, id)
	return nil
}

type assetFunc func(ctx context.Context, a models.Asset, days int) ([]models.DailyClose, error)

func (f assetFunc) DailyCloses(ctx context.Context, a models.Asset, days int) ([]models.DailyClose, error) {
	return f(ctx, a, days)
}

var errNoAssets = errors.New("asset service down")

func failingAssets() assetFunc {
	return func(context.Context, models.Asset, int) ([]models.DailyClose, error) {
		return nil, errNoAssets
	}
}

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func testEngines(t *testing.T, repo *memAlertRepo) AnalyticsEngines {
	t.Helper()
	loc := tokyo(t)
	clock := session.NewClock(loc, session.DefaultDefinitions(loc))
	return AnalyticsEngines{
		Clock:       clock,
		Statistics:  statistics.NewEngine(clock, statistics.Options{PipSize: 0.01}),
		Correlation: correlation.NewAnalyzer("USDJPY", 20),
		KeyLevels:   keylevels.NewDetector(keylevels.Options{}),
		Scenarios:   scenario.NewGenerator(1.5),
		Alerts:      alerts.NewEngine(repo, nil),
	}
}

// trendBars builds n hourly bars ending just before end, rising 0.01 per bar from start.
func trendBars(end time.Time, n int, start float64) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	first := end.Truncate(time.Hour).Add(-time.Duration(n) * time.Hour)
	for i := range bars {
		open := start + float64(i)*0.01
		bars[i] = models.PriceBar{
			Symbol:    "USDJPY",
			Timeframe: "1h",
			Open:      open,
			High:      open + 0.08,
			Low:       open - 0.05,
			Close:     open + 0.01,
			Timestamp: first.Add(time.Duration(i) * time.Hour).UTC(),
		}
	}
	return bars
}
