package models

import "time"

type SessionStatus string

const (
	SessionUpcoming SessionStatus = "upcoming"
	SessionActive   SessionStatus = "active"
	SessionClosed   SessionStatus = "closed"
)

// SessionDefinition is a recurring window in local minutes-of-day. Start >= End wraps past midnight.
type SessionDefinition struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Start    int                 `json:"start_minute"`
	End      int                 `json:"end_minute"`
	Location *time.Location      `json:"-"`
	Holidays map[string]struct{} `json:"-"` // local dates, 2006-01-02
}

// Wraps reports whether the window crosses local midnight.
func (d SessionDefinition) Wraps() bool { return d.Start >= d.End }

// Duration is the window length in minutes.
func (d SessionDefinition) Duration() int {
	if d.Wraps() {
		return 1440 - d.Start + d.End
	}
	return d.End - d.Start
}

// Segment is a [From, To) slice of one day used for timeline rendering.
type Segment struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type SessionState struct {
	SessionID        string        `json:"session_id"`
	Name             string        `json:"name"`
	Status           SessionStatus `json:"status"`
	IsActive         bool          `json:"is_active"`
	RemainingMinutes int           `json:"remaining_minutes"`
	RemainingLabel   string        `json:"remaining"`
	Start            string        `json:"start"`
	End              string        `json:"end"`
	Segments         []Segment     `json:"segments"`
}

// SessionBoard is the evaluated state of every session at one instant.
type SessionBoard struct {
	EvaluatedAt      time.Time      `json:"evaluated_at"`
	LocalTime        string         `json:"current_time"`
	TimelineProgress float64        `json:"timeline_progress"`
	Sessions         []SessionState `json:"sessions"`
}

// ActiveIDs lists the ids of the sessions active on the board.
func (b *SessionBoard) ActiveIDs() []string {
	if b == nil {
		return nil
	}
	var out []string
	for _, s := range b.Sessions {
		if s.IsActive {
			out = append(out, s.SessionID)
		}
	}
	return out
}
