package session

import (
	"fmt"
	"sort"
	"time"

	"FxCockpit/internal/domain/models"
	"FxCockpit/pkg/config"
	"FxCockpit/pkg/util"
)

const dateLayout = "2006-01-02"

// Clock evaluates the session calendar against wall-clock time.
type Clock struct {
	loc  *time.Location
	defs []models.SessionDefinition
}

// NewClock builds a clock for the given calendar. Definitions keep their input order.
func NewClock(loc *time.Location, defs []models.SessionDefinition) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]models.SessionDefinition, len(defs))
	for i, d := range defs {
		d.Start = wrap(d.Start)
		d.End = wrap(d.End)
		if d.Location == nil {
			d.Location = loc
		}
		out[i] = d
	}
	return &Clock{loc: loc, defs: out}
}

// DefaultDefinitions is the Tokyo/London/New York calendar expressed in Asia/Tokyo time.
func DefaultDefinitions(loc *time.Location) []models.SessionDefinition {
	return []models.SessionDefinition{
		{ID: "tokyo", Name: "Tokyo", Start: 9 * 60, End: 15 * 60, Location: loc},
		{ID: "london", Name: "London", Start: 16 * 60, End: 1 * 60, Location: loc},
		{ID: "newyork", Name: "New York", Start: 21 * 60, End: 6 * 60, Location: loc},
	}
}

// FromConfig builds the clock from validated configuration.
func FromConfig(cfg *config.Config) (*Clock, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("session timezone: %w", err)
	}
	defs := make([]models.SessionDefinition, 0, len(cfg.Sessions))
	for _, s := range cfg.Sessions {
		start, err := util.ParseClock(s.Start)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		end, err := util.ParseClock(s.End)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		name := s.Name
		if name == "" {
			name = s.ID
		}
		var holidays map[string]struct{}
		if len(s.Holidays) > 0 {
			holidays = make(map[string]struct{}, len(s.Holidays))
			for _, h := range s.Holidays {
				holidays[h] = struct{}{}
			}
		}
		defs = append(defs, models.SessionDefinition{
			ID: s.ID, Name: name, Start: start, End: end, Location: loc, Holidays: holidays,
		})
	}
	return NewClock(loc, defs), nil
}

func (c *Clock) Location() *time.Location { return c.loc }

// Definitions returns a copy of the calendar.
func (c *Clock) Definitions() []models.SessionDefinition {
	out := make([]models.SessionDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Evaluate computes the state of every session at now.
func (c *Clock) Evaluate(now time.Time) models.SessionBoard {
	local := now.In(c.loc)
	m := util.MinuteOfDay(local)

	board := models.SessionBoard{
		EvaluatedAt:      now,
		LocalTime:        util.FormatClock(m),
		TimelineProgress: TimelineProgress(local),
		Sessions:         make([]models.SessionState, 0, len(c.defs)),
	}
	for _, d := range c.defs {
		board.Sessions = append(board.Sessions, c.state(d, local, m))
	}
	return board
}

func (c *Clock) state(d models.SessionDefinition, local time.Time, m int) models.SessionState {
	st := models.SessionState{
		SessionID: d.ID,
		Name:      d.Name,
		Start:     util.FormatClock(d.Start),
		End:       util.FormatClock(d.End),
		Segments:  Segments(d),
	}

	switch {
	case isHoliday(d, local):
		st.Status = models.SessionClosed
		st.RemainingMinutes = untilStart(d, m)
	case Contains(d, m):
		st.Status = models.SessionActive
		st.IsActive = true
		st.RemainingMinutes = untilEnd(d, m)
	default:
		st.Status = models.SessionUpcoming
		st.RemainingMinutes = untilStart(d, m)
	}
	st.RemainingLabel = util.DurationLabel(st.RemainingMinutes)
	return st
}

// Contains reports whether minute-of-day m lies inside the session window.
func Contains(d models.SessionDefinition, m int) bool {
	m = wrap(m)
	if d.Start < d.End {
		return d.Start <= m && m < d.End
	}
	// window crosses midnight
	return m >= d.Start || m < d.End
}

// Segments splits the window into one or two [from, to) slices of a single day.
func Segments(d models.SessionDefinition) []models.Segment {
	if d.Start < d.End {
		return []models.Segment{{From: d.Start, To: d.End}}
	}
	segs := []models.Segment{{From: d.Start, To: util.MinutesPerDay}}
	if d.End > 0 {
		segs = append(segs, models.Segment{From: 0, To: d.End})
	}
	return segs
}

// TimelineProgress is the elapsed share of the local day in percent, in [0, 100).
func TimelineProgress(local time.Time) float64 {
	minutes := float64(util.MinuteOfDay(local)) + float64(local.Second())/60
	return minutes / util.MinutesPerDay * 100
}

func untilEnd(d models.SessionDefinition, m int) int {
	if d.Start < d.End || m < d.End {
		return d.End - m
	}
	return util.MinutesPerDay - m + d.End
}

func untilStart(d models.SessionDefinition, m int) int {
	return wrap(d.Start - m)
}

func isHoliday(d models.SessionDefinition, local time.Time) bool {
	if len(d.Holidays) == 0 {
		return false
	}
	_, ok := d.Holidays[local.Format(dateLayout)]
	return ok
}

// Occurrence returns the absolute window of the session that starts on the local date of day.
func (c *Clock) Occurrence(d models.SessionDefinition, day time.Time) (time.Time, time.Time) {
	local := day.In(c.loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, d.Start, 0, 0, c.loc)
	return from, from.Add(time.Duration(d.Duration()) * time.Minute)
}

// WeekStart is the earliest session start on the local Monday of now's trading week.
func (c *Clock) WeekStart(now time.Time) time.Time {
	local := now.In(c.loc)
	offset := (int(local.Weekday()) + 6) % 7 // days since Monday
	monday := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, c.loc)

	start := c.earliestStart()
	ws := monday.Add(time.Duration(start) * time.Minute)
	if local.Before(ws) {
		ws = ws.AddDate(0, 0, -7)
	}
	return ws
}

func (c *Clock) earliestStart() int {
	if len(c.defs) == 0 {
		return 0
	}
	starts := make([]int, len(c.defs))
	for i, d := range c.defs {
		starts[i] = d.Start
	}
	sort.Ints(starts)
	return starts[0]
}

func wrap(m int) int {
	return ((m % util.MinutesPerDay) + util.MinutesPerDay) % util.MinutesPerDay
}
