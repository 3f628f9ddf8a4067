package models

import "time"

type Narrative struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"timestamp"`
	Session     string    `json:"session"`
	Provider    string    `json:"provider"`
	Content     string    `json:"content"`
}

// NarrativeContext is the structured payload handed to the narrative provider.
type NarrativeContext struct {
	Timestamp      time.Time            `json:"timestamp"`
	Symbol         string               `json:"symbol"`
	CurrentPrice   float64              `json:"current_price"`
	ActiveSessions []string             `json:"active_sessions"`
	Bias           Bias                 `json:"bias,omitempty"`
	Correlations   []CorrelationResult  `json:"correlations,omitempty"`
	MarketPrices   map[string]AssetMove `json:"market_prices,omitempty"`
	NearbyLevels   []KeyLevel           `json:"nearby_levels,omitempty"`
	Scenarios      []Scenario           `json:"scenarios,omitempty"`
}
