package models

type LevelType string

const (
	LevelSwingHigh  LevelType = "swing_high"
	LevelSwingLow   LevelType = "swing_low"
	LevelPivot      LevelType = "pivot"
	LevelResistance LevelType = "resistance"
	LevelSupport    LevelType = "support"
	LevelRound      LevelType = "round"
)

type KeyLevel struct {
	Price        float64     `json:"price"`
	Type         LevelType   `json:"type"`
	Label        string      `json:"label"`
	Strength     float64     `json:"strength"`
	Touches      int         `json:"touches"`
	SourcePeriod string      `json:"source_period"`
	MergedTypes  []LevelType `json:"merged_types,omitempty"`
}
