package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"FxCockpit/internal/domain/repository"
	"FxCockpit/pkg/logger"
	"FxCockpit/pkg/util"
)

var (
	// ErrJobRunning is returned by RunNow when the job is already in flight.
	ErrJobRunning = errors.New("job already running")
	ErrUnknownJob = errors.New("unknown job")
	// ErrLockHeld means another replica holds the job lock.
	ErrLockHeld = errors.New("job lock held elsewhere")
)

const defaultTimeout = 30 * time.Second

// JobFunc is one unit of scheduled work.
type JobFunc func(ctx context.Context) error

// Job is one row of the cadence table. Interval and At may be combined; a job with
// neither only runs on demand.
type Job struct {
	Name     string
	Interval time.Duration
	At       []int // local minutes-of-day
	Timeout  time.Duration
	// RunOnStart fires the job once as soon as the scheduler starts.
	RunOnStart bool
	Run        JobFunc
}

// Locker is the cross-replica guard. pkg/cache.Service satisfies it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// JobStatus is a point-in-time view of a job for diagnostics.
type JobStatus struct {
	Name      string    `json:"name"`
	Interval  string    `json:"interval,omitempty"`
	At        []string  `json:"at,omitempty"`
	Running   bool      `json:"running"`
	Runs      int64     `json:"runs"`
	Skipped   int64     `json:"skipped"`
	Failures  int64     `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

type jobState struct {
	Job
	running  atomic.Bool
	runs     atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64

	mu      sync.Mutex
	lastRun time.Time
	lastErr string
}

type Option func(*Scheduler)

func WithMetrics(m repository.Metrics) Option { return func(s *Scheduler) { s.metrics = m } }

// WithLocker enables the distributed lock; keys are prefix + ":job:" + name.
func WithLocker(l Locker, prefix string) Option {
	return func(s *Scheduler) {
		s.locker = l
		s.lockPrefix = prefix
	}
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Scheduler runs named jobs on fixed cadences. Each job has an in-flight guard: a tick that
// finds the previous run still going is skipped and logged, never queued.
type Scheduler struct {
	loc        *time.Location
	log        *logger.Logger
	metrics    repository.Metrics
	locker     Locker
	lockPrefix string
	timeout    time.Duration
	now        func() time.Time

	mu      sync.Mutex
	jobs    map[string]*jobState
	order   []string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(loc *time.Location, log *logger.Logger, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Scheduler{
		loc:     loc,
		log:     log,
		timeout: defaultTimeout,
		now:     time.Now,
		jobs:    make(map[string]*jobState),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds a job. It must be called before Start.
func (s *Scheduler) Register(j Job) error {
	if j.Name == "" || j.Run == nil {
		return fmt.Errorf("scheduler: job needs a name and a run function")
	}
	if j.Interval < 0 {
		return fmt.Errorf("scheduler: job %s has a negative interval", j.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler: cannot register %s after start", j.Name)
	}
	if _, dup := s.jobs[j.Name]; dup {
		return fmt.Errorf("scheduler: job %s already registered", j.Name)
	}
	if j.Timeout <= 0 {
		j.Timeout = s.timeout
	}
	s.jobs[j.Name] = &jobState{Job: j}
	s.order = append(s.order, j.Name)
	return nil
}

// Start launches one loop per job. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.order {
		js := s.jobs[name]
		if js.RunOnStart {
			s.spawn(ctx, js)
		}
		if js.Interval > 0 {
			s.wg.Add(1)
			go s.tickLoop(ctx, js)
		}
		if len(js.At) > 0 {
			s.wg.Add(1)
			go s.dailyLoop(ctx, js)
		}
		s.log.Info("job scheduled",
			logger.String("job", js.Name),
			logger.Duration("interval_ms", js.Interval),
			logger.Int("daily_triggers", len(js.At)))
	}
}

// Stop cancels all loops and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// RunNow executes a job synchronously, honouring its in-flight guard.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	js, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, js)
}

// Status lists every job in registration order.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		js := s.jobs[name]
		st := JobStatus{
			Name:     name,
			Running:  js.running.Load(),
			Runs:     js.runs.Load(),
			Skipped:  js.skipped.Load(),
			Failures: js.failures.Load(),
		}
		if js.Interval > 0 {
			st.Interval = js.Interval.String()
		}
		for _, m := range js.At {
			st.At = append(st.At, util.FormatClock(m))
		}
		js.mu.Lock()
		st.LastRun, st.LastError = js.lastRun, js.lastErr
		js.mu.Unlock()
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) tickLoop(ctx context.Context, js *jobState) {
	defer s.wg.Done()
	t := time.NewTicker(js.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.spawn(ctx, js)
		}
	}
}

func (s *Scheduler) dailyLoop(ctx context.Context, js *jobState) {
	defer s.wg.Done()
	for {
		now := s.now()
		next := NextDaily(now, js.At, s.loc)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.spawn(ctx, js)
		}
	}
}

// spawn runs the job in its own goroutine so the loop keeps ticking while it works.
func (s *Scheduler) spawn(ctx context.Context, js *jobState) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.execute(ctx, js)
	}()
}

func (s *Scheduler) execute(ctx context.Context, js *jobState) error {
	if !js.running.CompareAndSwap(false, true) {
		js.skipped.Add(1)
		s.log.Warn("job still running, skipping tick", logger.String("job", js.Name))
		if s.metrics != nil {
			s.metrics.RecordJobSkipped(js.Name)
		}
		return ErrJobRunning
	}
	defer js.running.Store(false)

	if s.locker != nil {
		key := s.lockPrefix + ":job:" + js.Name
		ok, err := s.locker.TryLock(ctx, key, js.Timeout)
		if err != nil {
			s.log.Warn("job lock unavailable, running locally", logger.String("job", js.Name), logger.Error(err))
		} else if !ok {
			js.skipped.Add(1)
			s.log.Debug("job lock held by another replica", logger.String("job", js.Name))
			if s.metrics != nil {
				s.metrics.RecordJobSkipped(js.Name)
			}
			return ErrLockHeld
		} else {
			defer func() {
				if err := s.locker.Unlock(context.Background(), key); err != nil {
					s.log.Warn("job unlock failed", logger.String("job", js.Name), logger.Error(err))
				}
			}()
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, js.Timeout)
	defer cancel()

	start := s.now()
	err := safeRun(runCtx, js.Run)
	elapsed := time.Since(start)

	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, errPanic):
		result = "panic"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "error"
	}

	js.runs.Add(1)
	js.mu.Lock()
	js.lastRun = start
	js.lastErr = ""
	if err != nil {
		js.lastErr = err.Error()
	}
	js.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordJobRun(js.Name, result, elapsed.Seconds())
	}
	if err != nil {
		js.failures.Add(1)
		s.log.Error("job failed",
			logger.String("job", js.Name),
			logger.String("result", result),
			logger.Duration("elapsed_ms", elapsed),
			logger.Error(err))
		return err
	}
	s.log.Debug("job completed", logger.String("job", js.Name), logger.Duration("elapsed_ms", elapsed))
	return nil
}

var errPanic = errors.New("job panicked")

func safeRun(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", errPanic, r, debug.Stack())
		}
	}()
	return fn(ctx)
}

// NextDaily returns the first trigger strictly after now.
func NextDaily(now time.Time, minutes []int, loc *time.Location) time.Time {
	local := now.In(loc)
	sorted := append([]int(nil), minutes...)
	sort.Ints(sorted)
	for dayOffset := 0; dayOffset < 2; dayOffset++ {
		for _, m := range sorted {
			t := time.Date(local.Year(), local.Month(), local.Day()+dayOffset, 0, m, 0, 0, loc)
			if t.After(local) {
				return t
			}
		}
	}
	// empty trigger list: park for a day
	return local.Add(24 * time.Hour)
}
