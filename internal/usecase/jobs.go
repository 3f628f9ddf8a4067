package usecase

import (
	"fmt"

	"FxCockpit/internal/scheduler"
	"FxCockpit/pkg/config"
	"FxCockpit/pkg/util"
)

// RegisterJobs installs the cadence table on s.
func RegisterJobs(s *scheduler.Scheduler, cfg *config.Config, a *Analytics, n *NarrativeService) error {
	sc := cfg.Scheduler
	jobs := []scheduler.Job{
		{Name: JobSessions, Interval: sc.Sessions, RunOnStart: true, Run: a.RunSessions},
		{Name: JobStatistics, Interval: sc.Statistics, RunOnStart: true, Run: a.RunStatistics},
		{Name: JobCorrelations, Interval: sc.Correlations, RunOnStart: true, Run: a.RunCorrelations},
		{Name: JobKeyLevels, Interval: sc.KeyLevels, RunOnStart: true, Run: a.RunKeyLevels},
		// scenarios read the statistics and key level sections, so the first run waits a cycle
		{Name: JobScenarios, Interval: sc.Scenarios, Run: a.RunScenarios},
		{Name: JobAlerts, Interval: sc.Alerts, RunOnStart: true, Run: a.RunAlerts},
	}

	if n != nil {
		at, err := narrativeMinutes(sc.NarrativeTimes)
		if err != nil {
			return err
		}
		timeout := cfg.Narrative.Timeout * 2
		if timeout < sc.JobTimeout {
			timeout = sc.JobTimeout
		}
		jobs = append(jobs, scheduler.Job{Name: JobNarrative, At: at, Timeout: timeout, Run: n.RunScheduled})
	}

	for _, j := range jobs {
		if j.Timeout == 0 {
			j.Timeout = sc.JobTimeout
		}
		if err := s.Register(j); err != nil {
			return err
		}
	}
	return nil
}

// DefaultNarrativeTimes are the local wall-clock triggers used when none are configured.
var DefaultNarrativeTimes = []string{"08:30", "15:30", "21:30"}

func narrativeMinutes(times []string) ([]int, error) {
	if len(times) == 0 {
		times = DefaultNarrativeTimes
	}
	out := make([]int, 0, len(times))
	for _, t := range times {
		m, err := util.ParseClock(t)
		if err != nil {
			return nil, fmt.Errorf("narrative time %q: %w", t, err)
		}
		out = append(out, m)
	}
	return out, nil
}
