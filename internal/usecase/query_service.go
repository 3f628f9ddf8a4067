package usecase

import (
	"fmt"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	"FxCockpit/internal/services/session"
	"FxCockpit/internal/snapshot"
)

// QueryService serves read-only views of the latest snapshot.
type QueryService struct {
	store *snapshot.Store
	clock *session.Clock
}

func NewQueryService(store *snapshot.Store, clock *session.Clock) *QueryService {
	return &QueryService{store: store, clock: clock}
}

func (q *QueryService) Snapshot() *models.Snapshot { return q.store.Load() }

// SessionsAt evaluates the calendar at an arbitrary instant without touching the snapshot.
func (q *QueryService) SessionsAt(at time.Time) models.Section[*models.SessionBoard] {
	board := q.clock.Evaluate(at)
	return models.Section[*models.SessionBoard]{Data: &board, UpdatedAt: at}
}

// Sessions returns the scheduled board, or a live evaluation before the first run.
func (q *QueryService) Sessions() models.Section[*models.SessionBoard] {
	sec := q.store.Load().Sessions
	if sec.Data == nil {
		return q.SessionsAt(time.Now())
	}
	return sec
}

func (q *QueryService) Statistics() (models.Section[*models.StatisticsReport], error) {
	return ready("statistics", q.store.Load().Statistics)
}

func (q *QueryService) Correlations() (models.Section[*models.CorrelationReport], error) {
	return ready("correlations", q.store.Load().Correlations)
}

func (q *QueryService) KeyLevels() (models.Section[[]models.KeyLevel], error) {
	return ready("key levels", q.store.Load().KeyLevels)
}

func (q *QueryService) Scenarios() (models.Section[[]models.Scenario], error) {
	return ready("scenarios", q.store.Load().Scenarios)
}

// ready reports ErrDataUnavailable for a section that has never been computed.
// A stale section with earlier data is still served.
func ready[T any](name string, sec models.Section[T]) (models.Section[T], error) {
	if !sec.UpdatedAt.IsZero() {
		return sec, nil
	}
	if sec.Error != "" {
		return sec, fmt.Errorf("%s: %s: %w", name, sec.Error, domain.ErrDataUnavailable)
	}
	return sec, fmt.Errorf("%s not computed yet: %w", name, domain.ErrDataUnavailable)
}
