package statistics

import (
	"fmt"
	"math"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	"FxCockpit/internal/services/features"
	"FxCockpit/internal/services/session"
)

// DefaultDeadBand is the relative SMA gap below which bias stays neutral.
const DefaultDeadBand = 0.0002

type Options struct {
	PipSize          float64
	LookbackWeeks    int
	SessionRangeDays int
	BiasFast         int
	BiasSlow         int
	DeadBand         float64
}

// Engine derives rolling statistics from hourly bars.
type Engine struct {
	clock *session.Clock
	opts  Options
}

func NewEngine(clock *session.Clock, opts Options) *Engine {
	if opts.LookbackWeeks <= 0 {
		opts.LookbackWeeks = 4
	}
	if opts.SessionRangeDays <= 0 {
		opts.SessionRangeDays = 20
	}
	if opts.BiasFast <= 0 {
		opts.BiasFast = 5
	}
	if opts.BiasSlow <= 0 {
		opts.BiasSlow = 20
	}
	if opts.DeadBand <= 0 {
		opts.DeadBand = DefaultDeadBand
	}
	return &Engine{clock: clock, opts: opts}
}

// Compute builds the full report. A failing value is recorded in Errors without aborting the rest.
func (e *Engine) Compute(hourly []models.PriceBar, now time.Time) (*models.StatisticsReport, error) {
	if len(hourly) == 0 {
		return nil, fmt.Errorf("statistics: no hourly bars: %w", domain.ErrDataUnavailable)
	}

	report := &models.StatisticsReport{Errors: map[string]string{}}
	if w, err := e.WeeklySummary(hourly, now); err != nil {
		report.Errors["weekly"] = err.Error()
	} else {
		report.Weekly = w
	}
	hv := e.HistoricalVolatility(hourly, now)
	report.Volatility = &hv
	report.SessionRanges = e.SessionRanges(hourly, now)
	if d, err := e.DailyStats(hourly, now); err != nil {
		report.Errors["daily"] = err.Error()
	} else {
		report.Daily = d
	}
	report.Bias = e.Bias(features.Closes(hourly))

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	return report, nil
}

// WeeklySummary aggregates bars since the start of the current trading week.
func (e *Engine) WeeklySummary(bars []models.PriceBar, now time.Time) (*models.WeeklySummary, error) {
	start := e.clock.WeekStart(now)
	var week []models.PriceBar
	for _, b := range bars {
		if !b.Timestamp.Before(start) && !b.Timestamp.After(now) {
			week = append(week, b)
		}
	}
	if len(week) == 0 {
		return nil, fmt.Errorf("weekly summary since %s: %w", start.Format(time.RFC3339), domain.ErrDataUnavailable)
	}

	high, low := extremes(week)
	return &models.WeeklySummary{
		WeekStart: start,
		WeekOpen:  week[0].Open,
		Current:   week[len(week)-1].Close,
		High:      high,
		Low:       low,
		RangePips: features.Pips(high-low, e.opts.PipSize),
	}, nil
}

// HistoricalVolatility measures bar ranges in now's weekday+hour bucket over the previous weeks.
// The current bucket is excluded.
func (e *Engine) HistoricalVolatility(bars []models.PriceBar, now time.Time) models.HistoricalVolatility {
	loc := e.clock.Location()
	local := now.In(loc)
	bucket := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
	earliest := bucket.AddDate(0, 0, -7*e.opts.LookbackWeeks)

	var ranges []float64
	for _, b := range bars {
		ts := b.Timestamp.In(loc)
		if ts.Weekday() != local.Weekday() || ts.Hour() != local.Hour() {
			continue
		}
		if !ts.Before(bucket) || ts.Before(earliest) {
			continue
		}
		ranges = append(ranges, features.Pips(b.Range(), e.opts.PipSize))
	}

	hv := models.HistoricalVolatility{
		Weekday:       local.Weekday(),
		Hour:          local.Hour(),
		Weeks:         e.opts.LookbackWeeks,
		Samples:       len(ranges),
		LowConfidence: len(ranges) < e.opts.LookbackWeeks,
	}
	if len(ranges) > 0 {
		mean, std := features.MeanStdDev(ranges)
		hv.MeanRangePips = round1(mean)
		hv.StdDevPips = round1(std)
	}
	return hv
}

// SessionRanges averages each session's range over the last completed business days.
func (e *Engine) SessionRanges(bars []models.PriceBar, now time.Time) []models.SessionRange {
	loc := e.clock.Location()
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	want := e.opts.SessionRangeDays

	defs := e.clock.Definitions()
	out := make([]models.SessionRange, 0, len(defs))
	for _, d := range defs {
		var ranges []float64
		counted := 0
		// bounded walk back over calendar days
		for back := 0; counted < want && back < want*2+14; back++ {
			day := today.AddDate(0, 0, -back)
			if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			from, to := e.clock.Occurrence(d, day)
			if to.After(now) {
				continue
			}
			counted++
			if r, ok := windowRange(bars, from, to); ok {
				ranges = append(ranges, features.Pips(r, e.opts.PipSize))
			}
		}
		sr := models.SessionRange{SessionID: d.ID, Days: len(ranges), LowConfidence: len(ranges) < want}
		if len(ranges) > 0 {
			mean, _ := features.MeanStdDev(ranges)
			sr.AvgRangePips = round1(mean)
		}
		out = append(out, sr)
	}
	return out
}

// DailyStats summarizes the bars of now's local date.
func (e *Engine) DailyStats(bars []models.PriceBar, now time.Time) (*models.DailyStats, error) {
	loc := e.clock.Location()
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	next := day.AddDate(0, 0, 1)

	var today []models.PriceBar
	for _, b := range bars {
		if !b.Timestamp.Before(day) && b.Timestamp.Before(next) && !b.Timestamp.After(now) {
			today = append(today, b)
		}
	}
	if len(today) == 0 {
		return nil, fmt.Errorf("daily stats for %s: no bars: %w", day.Format("2006-01-02"), domain.ErrComputation)
	}

	high, low := extremes(today)
	sum := 0.0
	for _, b := range today {
		sum += b.Range()
	}
	return &models.DailyStats{
		Date:            day,
		Open:            today[0].Open,
		High:            high,
		Low:             low,
		Close:           today[len(today)-1].Close,
		RangePips:       features.Pips(high-low, e.opts.PipSize),
		MeanHourlyRange: features.Pips(sum/float64(len(today)), e.opts.PipSize),
	}, nil
}

// Bias compares a fast and a slow SMA of closes. Insufficient data yields neutral.
func (e *Engine) Bias(closes []float64) models.Bias {
	fast, ok := features.SMA(closes, e.opts.BiasFast)
	if !ok {
		return models.BiasNeutral
	}
	slow, ok := features.SMA(closes, e.opts.BiasSlow)
	if !ok || slow == 0 {
		return models.BiasNeutral
	}
	rel := (fast - slow) / slow
	switch {
	case rel > e.opts.DeadBand:
		return models.BiasBullish
	case rel < -e.opts.DeadBand:
		return models.BiasBearish
	default:
		return models.BiasNeutral
	}
}

func windowRange(bars []models.PriceBar, from, to time.Time) (float64, bool) {
	high, low := math.Inf(-1), math.Inf(1)
	found := false
	for _, b := range bars {
		if b.Timestamp.Before(from) || !b.Timestamp.Before(to) {
			continue
		}
		found = true
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	if !found {
		return 0, false
	}
	return high - low, true
}

func extremes(bars []models.PriceBar) (high, low float64) {
	high, low = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low
}

func round1(v float64) float64 { return features.RoundPrice(v, 1) }
