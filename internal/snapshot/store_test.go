package snapshot

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate_IncrementsVersionAndKeepsOldSnapshotIntact(t *testing.T) {
	t.Parallel()
	s := NewStore("USDJPY")
	before := s.Load()

	after := s.Update(func(next *models.Snapshot) {
		next.KeyLevels = Apply(next.KeyLevels, []models.KeyLevel{{Price: 150}}, nil, time.Now())
	})

	assert.Equal(t, uint64(0), before.Version)
	assert.Nil(t, before.KeyLevels.Data)
	assert.Equal(t, uint64(1), after.Version)
	assert.Same(t, after, s.Load())
	assert.Len(t, s.Load().KeyLevels.Data, 1)
}

func TestUpdate_ConcurrentWritersDoNotLoseSections(t *testing.T) {
	t.Parallel()
	s := NewStore("USDJPY")
	const rounds = 200

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			s.Update(func(next *models.Snapshot) {
				next.Scenarios = Apply(next.Scenarios, []models.Scenario{{Description: fmt.Sprint(i)}}, nil, time.Now())
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			s.Update(func(next *models.Snapshot) {
				next.KeyLevels = Apply(next.KeyLevels, []models.KeyLevel{{Price: float64(i)}}, nil, time.Now())
			})
		}
	}()
	wg.Wait()

	final := s.Load()
	assert.Equal(t, uint64(2*rounds), final.Version)
	assert.Equal(t, fmt.Sprint(rounds-1), final.Scenarios.Data[0].Description)
	assert.Equal(t, float64(rounds-1), final.KeyLevels.Data[0].Price)
}

func TestApply_ErrorKeepsPreviousDataStale(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	prev := Apply(models.Section[[]models.KeyLevel]{}, []models.KeyLevel{{Price: 151}}, nil, at)

	next := Apply(prev, nil, fmt.Errorf("bars: %w", domain.ErrDataUnavailable), at.Add(time.Minute))
	assert.True(t, next.Stale)
	assert.Equal(t, "bars: data unavailable", next.Error)
	assert.Equal(t, at, next.UpdatedAt)
	require.Len(t, next.Data, 1)
	assert.Equal(t, 151.0, next.Data[0].Price)

	fresh := Apply(next, []models.KeyLevel{{Price: 152}}, nil, at.Add(2*time.Minute))
	assert.False(t, fresh.Stale)
	assert.Empty(t, fresh.Error)
}

func TestRestore(t *testing.T) {
	t.Parallel()
	s := NewStore("USDJPY")

	assert.False(t, s.Restore(nil))
	assert.False(t, s.Restore(&models.Snapshot{Symbol: "EURUSD", Version: 9}))
	assert.True(t, s.Restore(&models.Snapshot{Symbol: "USDJPY", Version: 9}))
	assert.Equal(t, uint64(9), s.Load().Version)

	s.Update(func(*models.Snapshot) {})
	assert.False(t, s.Restore(&models.Snapshot{Symbol: "USDJPY", Version: 3}))
	assert.Equal(t, uint64(10), s.Load().Version)
}

func TestEmit_SkipsVersionsOlderThanEmitted(t *testing.T) {
	t.Parallel()
	s := NewStore("USDJPY")
	v1 := s.Update(func(*models.Snapshot) {})
	v2 := s.Update(func(*models.Snapshot) {})

	var sent []uint64
	record := func(snap *models.Snapshot) func() {
		return func() { sent = append(sent, snap.Version) }
	}

	assert.True(t, s.Emit(v2, record(v2)))
	assert.False(t, s.Emit(v1, record(v1)))
	assert.False(t, s.Emit(v2, record(v2)))
	assert.Equal(t, []uint64{2}, sent)
}

func TestRestore_MarksRestoredVersionEmitted(t *testing.T) {
	t.Parallel()
	s := NewStore("USDJPY")
	require.True(t, s.Restore(&models.Snapshot{Symbol: "USDJPY", Version: 7}))

	assert.False(t, s.Emit(&models.Snapshot{Version: 7}, func() {}))
	next := s.Update(func(*models.Snapshot) {})
	assert.Equal(t, uint64(8), next.Version)
	assert.True(t, s.Emit(next, func() {}))
}
