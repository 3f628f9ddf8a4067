package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	mu      sync.Mutex
	results map[string][]string
	skipped map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{results: map[string][]string{}, skipped: map[string]int{}}
}

func (m *recordingMetrics) RecordJobRun(job, result string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[job] = append(m.results[job], result)
}

func (m *recordingMetrics) RecordJobSkipped(job string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped[job]++
}

func (m *recordingMetrics) skips(job string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skipped[job]
}

func (m *recordingMetrics) RecordSnapshotVersion(uint64)    {}
func (m *recordingMetrics) RecordLastPrice(string, float64) {}
func (m *recordingMetrics) RecordAlertTriggered(string)     {}
func (m *recordingMetrics) RecordError(string)              {}
func (m *recordingMetrics) RecordLatency(string, float64)   {}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) Unlock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

func TestScheduler_SkipsTicksWhileJobIsSlow(t *testing.T) {
	t.Parallel()
	metrics := newRecordingMetrics()
	s := New(time.UTC, nil, WithMetrics(metrics))

	release := make(chan struct{})
	var started atomic.Int32
	require.NoError(t, s.Register(Job{
		Name:     "statistics",
		Interval: 5 * time.Millisecond,
		Timeout:  5 * time.Second,
		Run: func(ctx context.Context) error {
			started.Add(1)
			<-release
			return nil
		},
	}))

	s.Start(context.Background())
	require.Eventually(t, func() bool { return metrics.skips("statistics") >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), started.Load())

	close(release)
	s.Stop()
	st := s.Status()[0]
	assert.GreaterOrEqual(t, st.Skipped, int64(3))
	assert.False(t, st.Running)
}

func TestRunNow_GuardRejectsConcurrentRun(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, nil)
	release := make(chan struct{})
	entered := make(chan struct{})
	require.NoError(t, s.Register(Job{Name: "narrative", Run: func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}}))

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "narrative") }()
	<-entered

	assert.ErrorIs(t, s.RunNow(context.Background(), "narrative"), ErrJobRunning)
	close(release)
	assert.NoError(t, <-done)
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrUnknownJob)
}

func TestRunNow_RecoversPanicAndKeepsWorking(t *testing.T) {
	t.Parallel()
	metrics := newRecordingMetrics()
	s := New(time.UTC, nil, WithMetrics(metrics))
	var calls atomic.Int32
	require.NoError(t, s.Register(Job{Name: "keylevels", Run: func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return nil
	}}))

	err := s.RunNow(context.Background(), "keylevels")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.NoError(t, s.RunNow(context.Background(), "keylevels"))
	assert.Equal(t, []string{"panic", "success"}, metrics.results["keylevels"])
	assert.Equal(t, int64(1), s.Status()[0].Failures)
}

func TestRunNow_Timeout(t *testing.T) {
	t.Parallel()
	metrics := newRecordingMetrics()
	s := New(time.UTC, nil, WithMetrics(metrics))
	require.NoError(t, s.Register(Job{Name: "correlations", Timeout: 10 * time.Millisecond, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	err := s.RunNow(context.Background(), "correlations")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, []string{"timeout"}, metrics.results["correlations"])
}

func TestRunNow_LockHeldElsewhere(t *testing.T) {
	t.Parallel()
	locker := &fakeLocker{held: map[string]bool{"fxc:job:alerts": true}}
	s := New(time.UTC, nil, WithLocker(locker, "fxc"))
	var ran atomic.Bool
	require.NoError(t, s.Register(Job{Name: "alerts", Run: func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}}))

	assert.ErrorIs(t, s.RunNow(context.Background(), "alerts"), ErrLockHeld)
	assert.False(t, ran.Load())

	require.NoError(t, locker.Unlock(context.Background(), "fxc:job:alerts"))
	assert.NoError(t, s.RunNow(context.Background(), "alerts"))
	assert.True(t, ran.Load())
	assert.Empty(t, locker.held)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	s := New(time.UTC, nil)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register(Job{Name: "sessions", Interval: time.Minute, Run: noop}))
	assert.Error(t, s.Register(Job{Name: "sessions", Run: noop}))
	assert.Error(t, s.Register(Job{Name: "", Run: noop}))
	assert.Error(t, s.Register(Job{Name: "x"}))

	s.Start(context.Background())
	defer s.Stop()
	assert.Error(t, s.Register(Job{Name: "late", Run: noop}))
}

func TestNextDaily(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	triggers := []int{21*60 + 30, 8*60 + 30, 15*60 + 30}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before first", time.Date(2024, 3, 5, 7, 0, 0, 0, loc), time.Date(2024, 3, 5, 8, 30, 0, 0, loc)},
		{"exactly on trigger", time.Date(2024, 3, 5, 8, 30, 0, 0, loc), time.Date(2024, 3, 5, 15, 30, 0, 0, loc)},
		{"between", time.Date(2024, 3, 5, 16, 0, 0, 0, loc), time.Date(2024, 3, 5, 21, 30, 0, 0, loc)},
		{"after last", time.Date(2024, 3, 5, 22, 0, 0, 0, loc), time.Date(2024, 3, 6, 8, 30, 0, 0, loc)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.want.Equal(NextDaily(tt.now, triggers, loc)))
		})
	}
}
