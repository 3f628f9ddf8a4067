package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"FxCockpit/internal/domain/models"
	domrepo "FxCockpit/internal/domain/repository"
	"FxCockpit/internal/services/features"
)

// MemoryBarStore keeps a bounded bar history per (symbol, timeframe) in process.
// It is used when ClickHouse is disabled.
type MemoryBarStore struct {
	mu    sync.RWMutex
	limit int
	bars  map[string][]models.PriceBar
}

func NewMemoryBarStore(limit int) *MemoryBarStore {
	if limit <= 0 {
		limit = 5000
	}
	return &MemoryBarStore{limit: limit, bars: make(map[string][]models.PriceBar)}
}

func barKey(symbol string, tf domrepo.Timeframe) string { return symbol + "|" + string(tf) }

// StoreBars upserts by timestamp and keeps each series sorted.
func (s *MemoryBarStore) StoreBars(_ context.Context, bars []models.PriceBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	for _, b := range bars {
		if ValidateBar(b) != nil {
			continue
		}
		b.Timestamp = b.Timestamp.UTC()
		k := barKey(b.Symbol, domrepo.Timeframe(b.Timeframe))
		series := s.bars[k]
		i := sort.Search(len(series), func(i int) bool { return !series[i].Timestamp.Before(b.Timestamp) })
		if i < len(series) && series[i].Timestamp.Equal(b.Timestamp) {
			series[i] = b
		} else {
			series = append(series, models.PriceBar{})
			copy(series[i+1:], series[i:])
			series[i] = b
		}
		s.bars[k] = series
		touched[k] = struct{}{}
	}
	for k := range touched {
		if n := len(s.bars[k]); n > s.limit {
			s.bars[k] = append([]models.PriceBar(nil), s.bars[k][n-s.limit:]...)
		}
	}
	return nil
}

func (s *MemoryBarStore) GetBars(_ context.Context, symbol string, tf domrepo.Timeframe, from, to time.Time) ([]models.PriceBar, error) {
	from, to = features.AlignFromTo(from, to, tf)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.PriceBar
	for _, b := range s.bars[barKey(symbol, tf)] {
		if b.Timestamp.Before(from) || b.Timestamp.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *MemoryBarStore) GetLatestNBars(_ context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.bars[barKey(symbol, tf)]
	if n <= 0 {
		return nil, nil
	}
	if n > len(series) {
		n = len(series)
	}
	return append([]models.PriceBar(nil), series[len(series)-n:]...), nil
}

func (s *MemoryBarStore) Health(context.Context) error { return nil }

var (
	_ domrepo.BarSource = (*MemoryBarStore)(nil)
	_ domrepo.BarSink   = (*MemoryBarStore)(nil)
)
