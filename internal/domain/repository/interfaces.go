package repository

import (
	"context"
	"time"

	"FxCockpit/internal/domain/models"
)

// BarSource provides read-only access to the instrument's bar history.
type BarSource interface {
	GetBars(ctx context.Context, symbol string, tf Timeframe, from, to time.Time) ([]models.PriceBar, error)
	GetLatestNBars(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.PriceBar, error)
}

// BarSink persists bars delivered by the upstream feed.
type BarSink interface {
	StoreBars(ctx context.Context, bars []models.PriceBar) error
	Health(ctx context.Context) error
}

// AssetSource fetches correlated asset daily closes.
type AssetSource interface {
	DailyCloses(ctx context.Context, asset models.Asset, days int) ([]models.DailyClose, error)
}

// QuoteSource exposes the most recent live quote.
type QuoteSource interface {
	Latest(symbol string) (models.Quote, bool)
}

// QuoteStream is a live tick feed.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Quote, <-chan error)
	Close() error
	IsConnected() bool
}

type AlertRepository interface {
	List(ctx context.Context) ([]models.AlertRule, error)
	Save(ctx context.Context, rule models.AlertRule) error
	Delete(ctx context.Context, id string) error
}

type NarrativeRepository interface {
	Append(ctx context.Context, n models.Narrative, narrativeContext []byte) error
	Latest(ctx context.Context) (*models.Narrative, error)
	List(ctx context.Context, limit int) ([]models.Narrative, error)
}

// SnapshotCache mirrors the latest snapshot outside the process.
type SnapshotCache interface {
	Save(ctx context.Context, s *models.Snapshot) error
	Load(ctx context.Context) (*models.Snapshot, error)
}

// EventPublisher emits domain events to downstream consumers.
type EventPublisher interface {
	PublishSnapshot(ctx context.Context, s *models.Snapshot) error
	PublishAlert(ctx context.Context, e models.AlertEvent) error
}

type Metrics interface {
	RecordJobRun(job, result string, seconds float64)
	RecordJobSkipped(job string)
	RecordSnapshotVersion(version uint64)
	RecordLastPrice(symbol string, price float64)
	RecordAlertTriggered(symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
