package models

type StrengthTier string

const (
	TierWeak     StrengthTier = "weak"
	TierModerate StrengthTier = "moderate"
	TierStrong   StrengthTier = "strong"
)

type CorrelationResult struct {
	AssetSymbol  string       `json:"asset_symbol"`
	Coefficient  float64      `json:"coefficient"`
	WindowSize   int          `json:"window_size"`
	Samples      int          `json:"samples"`
	StrengthTier StrengthTier `json:"strength"`
	Sign         string       `json:"relationship"` // positive, negative, none
	LastReturn   float64      `json:"last_return"`
}

type CorrelationReport struct {
	Results      []CorrelationResult  `json:"correlations"`
	MarketStatus map[string]AssetMove `json:"market_status,omitempty"`
	Insights     []string             `json:"insights"`
	Errors       map[string]string    `json:"errors,omitempty"`
}

// ByAsset indexes results by asset symbol.
func (r *CorrelationReport) ByAsset() map[string]CorrelationResult {
	out := make(map[string]CorrelationResult)
	if r == nil {
		return out
	}
	for _, c := range r.Results {
		out[c.AssetSymbol] = c
	}
	return out
}
