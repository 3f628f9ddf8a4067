package session

import (
	"testing"
	"time"

	"FxCockpit/internal/domain/models"
	"FxCockpit/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func stateOf(b models.SessionBoard, id string) models.SessionState {
	for _, s := range b.Sessions {
		if s.SessionID == id {
			return s
		}
	}
	return models.SessionState{}
}

func TestEvaluate_DefaultCalendar(t *testing.T) {
	t.Parallel()
	loc := tokyo(t)
	clock := NewClock(loc, DefaultDefinitions(loc))

	tests := []struct {
		name   string
		clock  string
		active []string
		london string
		remain string
		sessID string
	}{
		{"tokyo morning", "10:30", []string{"tokyo"}, "upcoming", "4h 30m", "tokyo"},
		{"london and ny overlap", "22:00", []string{"london", "newyork"}, "active", "3h 0m", "london"},
		{"after midnight", "00:30", []string{"london", "newyork"}, "active", "0h 30m", "london"},
		{"ny tail", "05:59", []string{"newyork"}, "upcoming", "0h 1m", "newyork"},
		{"quiet gap", "15:30", nil, "upcoming", "0h 30m", "london"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := util.ParseClock(tt.clock)
			require.NoError(t, err)
			now := time.Date(2024, 3, 5, m/60, m%60, 0, 0, loc)

			board := clock.Evaluate(now)
			assert.Equal(t, tt.active, board.ActiveIDs())
			assert.Equal(t, tt.clock, board.LocalTime)
			assert.Equal(t, models.SessionStatus(tt.london), stateOf(board, "london").Status)
			assert.Equal(t, tt.remain, stateOf(board, tt.sessID).RemainingLabel)
		})
	}
}

func TestContains_EveryMinute(t *testing.T) {
	t.Parallel()
	plain := models.SessionDefinition{Start: 9 * 60, End: 15 * 60}
	wrapped := models.SessionDefinition{Start: 16 * 60, End: 1 * 60}

	for m := 0; m < util.MinutesPerDay; m++ {
		assert.Equal(t, m >= 540 && m < 900, Contains(plain, m), "plain minute %d", m)
		assert.Equal(t, m >= 960 || m < 60, Contains(wrapped, m), "wrapped minute %d", m)
	}
}

func TestSegments(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []models.Segment{{From: 540, To: 900}}, Segments(models.SessionDefinition{Start: 540, End: 900}))
	assert.Equal(t, []models.Segment{{From: 960, To: 1440}, {From: 0, To: 60}}, Segments(models.SessionDefinition{Start: 960, End: 60}))
	assert.Equal(t, []models.Segment{{From: 1260, To: 1440}}, Segments(models.SessionDefinition{Start: 1260, End: 0}))
}

func TestTimelineProgress_MonotoneWithinDay(t *testing.T) {
	t.Parallel()
	loc := tokyo(t)
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, loc)

	prev := -1.0
	for s := 0; s < 24*3600; s += 37 {
		p := TimelineProgress(day.Add(time.Duration(s) * time.Second))
		require.GreaterOrEqual(t, p, 0.0)
		require.Less(t, p, 100.0)
		require.GreaterOrEqual(t, p, prev)
		prev = p
	}
	assert.InDelta(t, 50.0, TimelineProgress(day.Add(12*time.Hour)), 1e-9)
}

func TestEvaluate_HolidayClosesSession(t *testing.T) {
	t.Parallel()
	loc := tokyo(t)
	defs := DefaultDefinitions(loc)
	defs[0].Holidays = map[string]struct{}{"2024-01-01": {}}
	clock := NewClock(loc, defs)

	board := clock.Evaluate(time.Date(2024, 1, 1, 10, 0, 0, 0, loc))
	st := stateOf(board, "tokyo")
	assert.Equal(t, models.SessionClosed, st.Status)
	assert.False(t, st.IsActive)

	board = clock.Evaluate(time.Date(2024, 1, 2, 10, 0, 0, 0, loc))
	assert.Equal(t, models.SessionActive, stateOf(board, "tokyo").Status)
}

func TestWeekStart(t *testing.T) {
	t.Parallel()
	loc := tokyo(t)
	clock := NewClock(loc, DefaultDefinitions(loc))

	monday := time.Date(2024, 3, 4, 9, 0, 0, 0, loc)
	assert.True(t, monday.Equal(clock.WeekStart(time.Date(2024, 3, 6, 12, 0, 0, 0, loc))))
	assert.True(t, monday.Equal(clock.WeekStart(time.Date(2024, 3, 10, 23, 0, 0, 0, loc))))
	// before the Monday open the previous week still applies
	assert.True(t, monday.AddDate(0, 0, -7).Equal(clock.WeekStart(time.Date(2024, 3, 4, 8, 0, 0, 0, loc))))
}

func TestOccurrence_WrapsIntoNextDay(t *testing.T) {
	t.Parallel()
	loc := tokyo(t)
	clock := NewClock(loc, DefaultDefinitions(loc))
	london := clock.Definitions()[1]

	from, to := clock.Occurrence(london, time.Date(2024, 3, 5, 3, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 5, 16, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2024, 3, 6, 1, 0, 0, 0, loc), to)
}
