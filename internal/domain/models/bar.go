package models

import "time"

// PriceBar is an OHLC bar owned by the upstream feed.
type PriceBar struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Timestamp time.Time `json:"timestamp"`
}

// Range is high minus low in price units.
func (b PriceBar) Range() float64 { return b.High - b.Low }

// Quote is the latest traded/bid price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Asset is a correlated instrument tracked against the main symbol.
type Asset struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// DailyClose is one calendar-date close of an asset.
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// AssetMove is the latest price and day change of a correlated asset.
type AssetMove struct {
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
}
