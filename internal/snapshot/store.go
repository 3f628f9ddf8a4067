package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"FxCockpit/internal/domain/models"
)

// Store holds the latest immutable snapshot. Writers build a modified copy and
// swap it in with compare-and-swap, so readers never observe a partial update.
type Store struct {
	ptr atomic.Pointer[models.Snapshot]
	now func() time.Time

	emitMu  sync.Mutex
	emitted uint64
}

func NewStore(symbol string) *Store {
	s := &Store{now: time.Now}
	s.ptr.Store(&models.Snapshot{Symbol: symbol})
	return s
}

// Load returns the current snapshot. Callers must not mutate it.
func (s *Store) Load() *models.Snapshot {
	return s.ptr.Load()
}

// Update applies mutate to a copy of the current snapshot and publishes it with a new version.
// mutate may run more than once under contention and must only touch its own section.
func (s *Store) Update(mutate func(next *models.Snapshot)) *models.Snapshot {
	for {
		cur := s.ptr.Load()
		next := *cur
		mutate(&next)
		next.Version = cur.Version + 1
		next.UpdatedAt = s.now()
		if s.ptr.CompareAndSwap(cur, &next) {
			return &next
		}
	}
}

// Restore seeds the store from a cached snapshot if nothing has been computed yet.
func (s *Store) Restore(snap *models.Snapshot) bool {
	if snap == nil {
		return false
	}
	cur := s.ptr.Load()
	if cur.Version != 0 || cur.Symbol != snap.Symbol {
		return false
	}
	restored := *snap
	if !s.ptr.CompareAndSwap(cur, &restored) {
		return false
	}
	s.emitMu.Lock()
	if restored.Version > s.emitted {
		s.emitted = restored.Version
	}
	s.emitMu.Unlock()
	return true
}

// Emit runs fn for snap unless the same or a newer version was already emitted.
// Calls are serialised, so outbound copies leave in version order. Reports whether fn ran.
func (s *Store) Emit(snap *models.Snapshot, fn func()) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if snap.Version <= s.emitted {
		return false
	}
	s.emitted = snap.Version
	fn()
	return true
}

// Apply sets a section from a job result. On error the previous data is kept and marked stale.
func Apply[T any](sec models.Section[T], data T, err error, at time.Time) models.Section[T] {
	if err != nil {
		sec.Stale = true
		sec.Error = err.Error()
		return sec
	}
	return models.Section[T]{Data: data, UpdatedAt: at}
}
