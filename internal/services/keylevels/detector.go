package keylevels

import (
	"fmt"
	"math"
	"sort"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	"FxCockpit/internal/services/features"
)

// Strength weights.
const (
	weightType    = 0.6
	weightRecency = 0.2
	weightTouch   = 0.2
	maxTouches    = 5

	pricePlaces = 4
	floatSlack  = 1e-9
)

var baseWeight = map[string]float64{
	"pivot":       1.0,
	"r1s1":        0.9,
	"r2s2":        0.7,
	"swing":       0.8,
	"round_whole": 0.6,
	"round_half":  0.4,
}

type Options struct {
	SwingWidth     int
	RoundStep      float64
	RoundDistance  float64
	TouchTolerance float64
	DedupEpsilon   float64
}

// Input is everything one detection pass reads.
type Input struct {
	Daily    []models.PriceBar // ascending
	Intraday []models.PriceBar // ascending, used for swings and touches
	Price    float64
	Now      time.Time
}

type Detector struct {
	opts Options
}

// candidate is a level before scoring.
type candidate struct {
	models.KeyLevel
	base    float64
	recency float64
}

func NewDetector(opts Options) *Detector {
	if opts.SwingWidth <= 0 {
		opts.SwingWidth = 3
	}
	if opts.RoundStep <= 0 {
		opts.RoundStep = 0.5
	}
	if opts.RoundDistance <= 0 {
		opts.RoundDistance = 1.0
	}
	if opts.TouchTolerance <= 0 {
		opts.TouchTolerance = 0.03
	}
	if opts.DedupEpsilon <= 0 {
		opts.DedupEpsilon = 0.05
	}
	return &Detector{opts: opts}
}

// Detect returns the deduplicated level set sorted by price.
func (d *Detector) Detect(in Input) ([]models.KeyLevel, error) {
	if len(in.Daily) == 0 && len(in.Intraday) == 0 {
		return nil, fmt.Errorf("key levels: no bars: %w", domain.ErrDataUnavailable)
	}
	price := in.Price
	if price <= 0 && len(in.Intraday) > 0 {
		price = in.Intraday[len(in.Intraday)-1].Close
	}

	var cands []candidate
	if prev, ok := lastCompletedDay(in.Daily, in.Now); ok {
		cands = append(cands, pivots(prev)...)
	}
	cands = append(cands, d.swings(in.Intraday)...)
	if price > 0 {
		cands = append(cands, d.roundNumbers(price)...)
	}

	levels := make([]models.KeyLevel, len(cands))
	for i, c := range cands {
		c.Touches = d.Touches(c.Price, in.Intraday)
		c.Strength = strength(c.base, c.recency, c.Touches)
		levels[i] = c.KeyLevel
	}
	out := Dedup(levels, d.opts.DedupEpsilon)
	for i := range out {
		out[i].Price = features.RoundPrice(out[i].Price, pricePlaces)
		out[i].Strength = features.RoundPrice(out[i].Strength, 3)
	}
	return out, nil
}

// pivots computes classic floor pivots from one completed daily bar.
func pivots(prev models.PriceBar) []candidate {
	h, l, c := prev.High, prev.Low, prev.Close
	p := (h + l + c) / 3
	level := func(price float64, t models.LevelType, label, weight string) candidate {
		return candidate{
			KeyLevel: models.KeyLevel{Price: price, Type: t, Label: label, SourcePeriod: "prior_day"},
			base:     baseWeight[weight],
			recency:  1,
		}
	}
	return []candidate{
		level(p, models.LevelPivot, "Pivot", "pivot"),
		level(2*p-l, models.LevelResistance, "R1", "r1s1"),
		level(2*p-h, models.LevelSupport, "S1", "r1s1"),
		level(p+(h-l), models.LevelResistance, "R2", "r2s2"),
		level(p-(h-l), models.LevelSupport, "S2", "r2s2"),
	}
}

// swings finds strict local extremes with SwingWidth bars on both sides.
func (d *Detector) swings(bars []models.PriceBar) []candidate {
	w := d.opts.SwingWidth
	n := len(bars)
	var out []candidate
	for i := w; i < n-w; i++ {
		isHigh, isLow := true, true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if bars[j].High >= bars[i].High {
				isHigh = false
			}
			if bars[j].Low <= bars[i].Low {
				isLow = false
			}
		}
		recency := 1 - float64(n-1-i)/float64(n)
		src := bars[i].Timeframe
		if isHigh {
			out = append(out, candidate{
				KeyLevel: models.KeyLevel{Price: bars[i].High, Type: models.LevelSwingHigh, Label: "Swing High", SourcePeriod: src},
				base:     baseWeight["swing"],
				recency:  recency,
			})
		}
		if isLow {
			out = append(out, candidate{
				KeyLevel: models.KeyLevel{Price: bars[i].Low, Type: models.LevelSwingLow, Label: "Swing Low", SourcePeriod: src},
				base:     baseWeight["swing"],
				recency:  recency,
			})
		}
	}
	return out
}

// roundNumbers lists multiples of RoundStep within RoundDistance of price.
func (d *Detector) roundNumbers(price float64) []candidate {
	step := d.opts.RoundStep
	lo := int64(math.Ceil((price-d.opts.RoundDistance)/step - floatSlack))
	hi := int64(math.Floor((price+d.opts.RoundDistance)/step + floatSlack))

	var out []candidate
	for k := lo; k <= hi; k++ {
		level := features.RoundPrice(float64(k)*step, pricePlaces)
		if math.Abs(level-price) > d.opts.RoundDistance+floatSlack {
			continue
		}
		base := baseWeight["round_half"]
		if math.Abs(level-math.Round(level)) < floatSlack {
			base = baseWeight["round_whole"]
		}
		out = append(out, candidate{
			KeyLevel: models.KeyLevel{Price: level, Type: models.LevelRound, Label: fmt.Sprintf("%.2f", level), SourcePeriod: "round"},
			base:     base,
			recency:  1,
		})
	}
	return out
}

// Touches counts bars whose range reaches within TouchTolerance of level.
func (d *Detector) Touches(level float64, bars []models.PriceBar) int {
	tol := d.opts.TouchTolerance
	n := 0
	for _, b := range bars {
		if b.Low-tol <= level && level <= b.High+tol {
			n++
		}
	}
	return n
}

// Dedup merges levels closer than eps into the stronger one, recording absorbed types.
func Dedup(levels []models.KeyLevel, eps float64) []models.KeyLevel {
	if len(levels) == 0 {
		return nil
	}
	sorted := make([]models.KeyLevel, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	out := []models.KeyLevel{sorted[0]}
	for _, lv := range sorted[1:] {
		last := &out[len(out)-1]
		if lv.Price-last.Price >= eps {
			out = append(out, lv)
			continue
		}
		winner, loser := *last, lv
		if lv.Strength > last.Strength {
			winner, loser = lv, *last
		}
		winner.MergedTypes = mergeTypes(winner.MergedTypes, loser.MergedTypes, loser.Type)
		*last = winner
	}
	return out
}

func mergeTypes(have, more []models.LevelType, t models.LevelType) []models.LevelType {
	all := append(append([]models.LevelType{}, more...), t)
	for _, x := range all {
		dup := false
		for _, h := range have {
			if h == x {
				dup = true
				break
			}
		}
		if !dup {
			have = append(have, x)
		}
	}
	return have
}

func strength(base, recency float64, touches int) float64 {
	t := math.Min(float64(touches), maxTouches) / maxTouches
	s := weightType*base + weightRecency*recency + weightTouch*t
	return math.Max(0, math.Min(1, s))
}

// lastCompletedDay is the latest daily bar that closed before now.
func lastCompletedDay(daily []models.PriceBar, now time.Time) (models.PriceBar, bool) {
	for i := len(daily) - 1; i >= 0; i-- {
		if !daily[i].Timestamp.Add(24 * time.Hour).After(now) {
			return daily[i], true
		}
	}
	return models.PriceBar{}, false
}
