package correlation

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	"FxCockpit/internal/services/features"
)

const (
	DefaultWindow = 20
	// MinReturns is the smallest number of aligned returns a coefficient is computed from.
	MinReturns = 5

	moderateThreshold = 0.4
	strongThreshold   = 0.7

	dateKey = "2006-01-02"
)

// AssetSeries is one correlated asset's daily history. Err carries a fetch failure.
type AssetSeries struct {
	Asset  models.Asset
	Closes []models.DailyClose
	Err    error
}

// Analyzer computes rolling correlations and remembers the previous cycle for change insights.
type Analyzer struct {
	baseSymbol string
	window     int

	mu       sync.Mutex
	previous map[string]models.CorrelationResult
}

func NewAnalyzer(baseSymbol string, window int) *Analyzer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Analyzer{
		baseSymbol: baseSymbol,
		window:     window,
		previous:   make(map[string]models.CorrelationResult),
	}
}

// Analyze correlates every asset against the base series. A failing asset is reported in Errors only.
func (a *Analyzer) Analyze(base []models.DailyClose, assets []AssetSeries) *models.CorrelationReport {
	report := &models.CorrelationReport{
		MarketStatus: make(map[string]models.AssetMove),
		Insights:     []string{},
		Errors:       make(map[string]string),
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range assets {
		name := s.Asset.Name
		if move, ok := lastMove(s.Closes); ok {
			report.MarketStatus[name] = move
		}
		if s.Err != nil {
			report.Errors[name] = s.Err.Error()
			continue
		}

		res, baseLast, err := Correlate(base, s.Closes, a.window)
		if err != nil {
			report.Errors[name] = err.Error()
			continue
		}
		res.AssetSymbol = name
		report.Results = append(report.Results, res)

		prev, hadPrev := a.previous[name]
		report.Insights = append(report.Insights, insightsFor(a.baseSymbol, res, prev, hadPrev, baseLast)...)
		a.previous[name] = res
	}

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	return report
}

// Correlate is the pure coefficient computation. It also returns the base series' last aligned return.
func Correlate(base, asset []models.DailyClose, window int) (models.CorrelationResult, float64, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	xs, ys := align(base, asset, window)
	bx := features.PercentReturns(xs)
	ay := features.PercentReturns(ys)
	if len(bx) < MinReturns {
		return models.CorrelationResult{}, 0, fmt.Errorf("correlation needs %d aligned returns, have %d: %w",
			MinReturns, len(bx), domain.ErrComputation)
	}

	c := features.Pearson(bx, ay)
	return models.CorrelationResult{
		Coefficient:  c,
		WindowSize:   window,
		Samples:      len(bx),
		StrengthTier: Tier(c),
		Sign:         signLabel(c),
		LastReturn:   ay[len(ay)-1],
	}, bx[len(bx)-1], nil
}

// Tier classifies |c|.
func Tier(c float64) models.StrengthTier {
	switch abs := math.Abs(c); {
	case abs >= strongThreshold:
		return models.TierStrong
	case abs >= moderateThreshold:
		return models.TierModerate
	default:
		return models.TierWeak
	}
}

// align keeps the most recent window dates present in both series, ascending.
func align(base, asset []models.DailyClose, window int) ([]float64, []float64) {
	other := make(map[string]float64, len(asset))
	for _, c := range asset {
		other[c.Date.Format(dateKey)] = c.Close
	}

	type pair struct {
		key  string
		x, y float64
	}
	seen := make(map[string]struct{}, len(base))
	pairs := make([]pair, 0, len(base))
	for _, c := range base {
		k := c.Date.Format(dateKey)
		if _, dup := seen[k]; dup {
			continue
		}
		y, ok := other[k]
		if !ok {
			continue
		}
		seen[k] = struct{}{}
		pairs = append(pairs, pair{key: k, x: c.Close, y: y})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	if len(pairs) > window {
		pairs = pairs[len(pairs)-window:]
	}

	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	for i, p := range pairs {
		xs[i], ys[i] = p.x, p.y
	}
	return xs, ys
}

func insightsFor(baseSymbol string, cur, prev models.CorrelationResult, hadPrev bool, baseLast float64) []string {
	var out []string
	name := cur.AssetSymbol

	if hadPrev && prev.StrengthTier != cur.StrengthTier {
		out = append(out, fmt.Sprintf("%s correlation changed from %s to %s (%.2f)",
			name, prev.StrengthTier, cur.StrengthTier, cur.Coefficient))
	}

	if diverging(cur.Coefficient, cur.LastReturn, baseLast) || (hadPrev && diverging(prev.Coefficient, cur.LastReturn, baseLast)) {
		out = append(out, fmt.Sprintf("%s is diverging from %s despite a strong %s correlation",
			name, baseSymbol, signLabel(strongest(cur.Coefficient, prev.Coefficient, hadPrev))))
	}

	if math.Abs(cur.Coefficient) >= moderateThreshold && cur.LastReturn != 0 {
		pressure := "yen strength"
		if (cur.Coefficient > 0) == (cur.LastReturn > 0) {
			pressure = "yen weakness"
		}
		strong := ""
		if cur.StrengthTier == models.TierStrong {
			strong = "strong "
		}
		out = append(out, fmt.Sprintf("%s move suggests %s%s pressure", name, strong, pressure))
	}
	return out
}

// diverging: strong positive with opposite return signs, or strong negative with matching signs.
func diverging(c, assetLast, baseLast float64) bool {
	if Tier(c) != models.TierStrong || assetLast == 0 || baseLast == 0 {
		return false
	}
	same := (assetLast > 0) == (baseLast > 0)
	if c > 0 {
		return !same
	}
	return same
}

func strongest(cur, prev float64, hadPrev bool) float64 {
	if Tier(cur) == models.TierStrong || !hadPrev {
		return cur
	}
	return prev
}

func signLabel(c float64) string {
	switch {
	case c > 0:
		return "positive"
	case c < 0:
		return "negative"
	default:
		return "none"
	}
}

func lastMove(closes []models.DailyClose) (models.AssetMove, bool) {
	n := len(closes)
	if n == 0 {
		return models.AssetMove{}, false
	}
	sorted := make([]models.DailyClose, n)
	copy(sorted, closes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	move := models.AssetMove{Price: sorted[n-1].Close}
	if n > 1 && sorted[n-2].Close > 0 {
		move.ChangePct = features.RoundPrice((sorted[n-1].Close/sorted[n-2].Close-1)*100, 2)
	}
	return move, true
}
