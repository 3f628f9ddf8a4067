package models

import "time"

// Section is one job's slice of the snapshot.
type Section[T any] struct {
	Data      T         `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
	Stale     bool      `json:"stale"`
	Error     string    `json:"error,omitempty"`
}

// Snapshot is an immutable, versioned bundle of derived analytics.
// Instances published through the snapshot store must never be mutated.
type Snapshot struct {
	Version      uint64                        `json:"version"`
	UpdatedAt    time.Time                     `json:"updated_at"`
	Symbol       string                        `json:"symbol"`
	Price        Section[*Quote]               `json:"price"`
	Sessions     Section[*SessionBoard]        `json:"sessions"`
	Statistics   Section[*StatisticsReport]    `json:"statistics"`
	Correlations Section[*CorrelationReport]   `json:"correlations"`
	KeyLevels    Section[[]KeyLevel]           `json:"key_levels"`
	Scenarios    Section[[]Scenario]           `json:"scenarios"`
	Narrative    Section[*Narrative]           `json:"narrative"`
}
