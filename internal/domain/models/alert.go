package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Condition is the closed set of alert comparisons.
type Condition uint8

const (
	ConditionAbove Condition = iota + 1
	ConditionBelow
)

// ParseCondition accepts "above" or "below" (case-insensitive).
func ParseCondition(s string) (Condition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above":
		return ConditionAbove, nil
	case "below":
		return ConditionBelow, nil
	default:
		return 0, fmt.Errorf("unknown alert condition %q", s)
	}
}

func (c Condition) String() string {
	switch c {
	case ConditionAbove:
		return "above"
	case ConditionBelow:
		return "below"
	default:
		return fmt.Sprintf("condition(%d)", uint8(c))
	}
}

// Satisfied compares price to threshold. Comparisons are strict.
func (c Condition) Satisfied(price, threshold float64) (bool, error) {
	switch c {
	case ConditionAbove:
		return price > threshold, nil
	case ConditionBelow:
		return price < threshold, nil
	default:
		return false, fmt.Errorf("unknown alert condition %d", uint8(c))
	}
}

func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Condition) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseCondition(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// AlertRule is a user-defined price threshold monitor.
type AlertRule struct {
	ID             string     `json:"id"`
	Symbol         string     `json:"symbol"`
	Condition      Condition  `json:"condition"`
	ThresholdPrice float64    `json:"price"`
	Active         bool       `json:"active"`
	Triggered      bool       `json:"triggered"`
	TriggeredAt    *time.Time `json:"triggered_at,omitempty"`
	LastSatisfied  *bool      `json:"-"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AlertEvent is emitted when a rule fires.
type AlertEvent struct {
	RuleID    string    `json:"rule_id"`
	Symbol    string    `json:"symbol"`
	Condition Condition `json:"condition"`
	Threshold float64   `json:"threshold"`
	Price     float64   `json:"price"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}
