package models

import "time"

type WeeklySummary struct {
	WeekStart time.Time `json:"week_start"`
	WeekOpen  float64   `json:"week_open"`
	Current   float64   `json:"current"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	RangePips float64   `json:"range_pips"`
}

// HistoricalVolatility summarizes ranges of bars in the same weekday+hour bucket over past weeks.
type HistoricalVolatility struct {
	Weekday       time.Weekday `json:"weekday"`
	Hour          int          `json:"hour"`
	Weeks         int          `json:"weeks"`
	Samples       int          `json:"samples"`
	MeanRangePips float64      `json:"mean_range_pips"`
	StdDevPips    float64      `json:"stddev_pips"`
	LowConfidence bool         `json:"low_confidence"`
}

type SessionRange struct {
	SessionID     string  `json:"session_id"`
	Days          int     `json:"days"`
	AvgRangePips  float64 `json:"avg_range_pips"`
	LowConfidence bool    `json:"low_confidence"`
}

// DailyStats is today's OHLC plus the mean hourly range.
type DailyStats struct {
	Date            time.Time `json:"date"`
	Open            float64   `json:"open"`
	High            float64   `json:"high"`
	Low             float64   `json:"low"`
	Close           float64   `json:"close"`
	RangePips       float64   `json:"range_pips"`
	MeanHourlyRange float64   `json:"mean_hourly_range_pips"`
}

type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// StatisticsReport groups every statistics output. Errors holds per-value failures.
type StatisticsReport struct {
	Weekly        *WeeklySummary        `json:"weekly,omitempty"`
	Volatility    *HistoricalVolatility `json:"volatility,omitempty"`
	SessionRanges []SessionRange        `json:"session_ranges,omitempty"`
	Daily         *DailyStats           `json:"daily,omitempty"`
	Bias          Bias                  `json:"bias"`
	Errors        map[string]string     `json:"errors,omitempty"`
}
