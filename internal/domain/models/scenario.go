package models

type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// Scenario is an if-then hypothesis linking a direction to nearby levels.
type Scenario struct {
	Direction       Direction  `json:"direction"`
	Description     string     `json:"description"`
	LinkedLevels    []KeyLevel `json:"active_levels"`
	Entry           float64    `json:"entry"`
	Target          *float64   `json:"target,omitempty"`
	Stop            *float64   `json:"stop,omitempty"`
	RiskRewardRatio float64    `json:"risk_reward_ratio"`
}
