package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	domrepo "FxCockpit/internal/domain/repository"
	"FxCockpit/pkg/cache"
)

// SnapshotCache mirrors the latest snapshot into a cache.Service under snapshot:<symbol>.
type SnapshotCache struct {
	cache  cache.Service
	symbol string
	ttl    time.Duration
}

var _ domrepo.SnapshotCache = (*SnapshotCache)(nil)

func NewSnapshotCache(c cache.Service, symbol string, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{cache: c, symbol: symbol, ttl: ttl}
}

func (s *SnapshotCache) key() string { return cache.Key("snapshot", s.symbol) }

func (s *SnapshotCache) Save(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return nil
	}
	if err := s.cache.Set(ctx, s.key(), snap, s.ttl); err != nil {
		return fmt.Errorf("cache snapshot v%d: %w", snap.Version, err)
	}
	return nil
}

// Load returns domain.ErrNotFound when nothing is cached.
func (s *SnapshotCache) Load(ctx context.Context) (*models.Snapshot, error) {
	snap, err := cache.GetTyped[models.Snapshot](ctx, s.cache, s.key())
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("snapshot %s: %w", s.symbol, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &snap, nil
}
