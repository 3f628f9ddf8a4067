package scenario

import (
	"fmt"
	"math"
	"sort"

	"FxCockpit/internal/domain/models"
	"FxCockpit/internal/services/features"
)

// DefaultMaxDistance is the price distance within which levels take part in scenarios.
const DefaultMaxDistance = 1.5

type Generator struct {
	maxDistance float64
}

func NewGenerator(maxDistance float64) *Generator {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}
	return &Generator{maxDistance: maxDistance}
}

// Generate turns bias and nearby levels into if-then scenarios. The bias direction is listed first.
func (g *Generator) Generate(price float64, bias models.Bias, levels []models.KeyLevel) []models.Scenario {
	near := Nearby(price, levels, g.maxDistance)

	var above, below []models.KeyLevel
	for _, l := range near {
		switch {
		case l.Price > price:
			above = append(above, l)
		case l.Price < price:
			below = append(below, l)
		}
	}

	if len(above) == 0 && len(below) == 0 {
		return []models.Scenario{{
			Direction:    models.DirectionNeutral,
			Description:  fmt.Sprintf("No key levels within %.2f of %.3f; no directional scenario", g.maxDistance, price),
			LinkedLevels: []models.KeyLevel{},
			Entry:        price,
		}}
	}

	byDir := make(map[models.Direction]models.Scenario, 3)
	if len(above) > 0 {
		byDir[models.DirectionBullish] = directional(models.DirectionBullish, price, above[0], first(below))
	}
	if len(below) > 0 {
		byDir[models.DirectionBearish] = directional(models.DirectionBearish, price, below[0], first(above))
	}
	if len(above) > 0 && len(below) > 0 {
		byDir[models.DirectionNeutral] = models.Scenario{
			Direction: models.DirectionNeutral,
			Description: fmt.Sprintf("If price holds between %s (%.3f) and %s (%.3f), expect range trading",
				below[0].Label, below[0].Price, above[0].Label, above[0].Price),
			LinkedLevels: byProximity(price, below[0], above[0]),
			Entry:        price,
		}
	}

	out := make([]models.Scenario, 0, len(byDir))
	for _, d := range order(bias) {
		if s, ok := byDir[d]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Nearby keeps levels within maxDistance of price, ordered by proximity.
func Nearby(price float64, levels []models.KeyLevel, maxDistance float64) []models.KeyLevel {
	var out []models.KeyLevel
	for _, l := range levels {
		if math.Abs(l.Price-price) <= maxDistance {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Price-price) < math.Abs(out[j].Price-price)
	})
	return out
}

// RiskReward is |target-entry| / |entry-stop|. A missing or zero-width stop yields 0.
func RiskReward(entry float64, target, stop *float64) float64 {
	if target == nil || stop == nil {
		return 0
	}
	risk := math.Abs(entry - *stop)
	if risk == 0 {
		return 0
	}
	return features.RoundPrice(math.Abs(*target-entry)/risk, 2)
}

func directional(dir models.Direction, price float64, target models.KeyLevel, stop *models.KeyLevel) models.Scenario {
	tp := target.Price
	s := models.Scenario{
		Direction: dir,
		Entry:     price,
		Target:    &tp,
	}

	verb := "higher"
	side := "above"
	if dir == models.DirectionBearish {
		verb = "lower"
		side = "below"
	}

	if stop != nil {
		sp := stop.Price
		s.Stop = &sp
		s.LinkedLevels = byProximity(price, target, *stop)
		s.Description = fmt.Sprintf("If price holds %s %s (%.3f), expect move toward %s (%.3f)",
			side, stop.Label, stop.Price, target.Label, target.Price)
	} else {
		s.LinkedLevels = []models.KeyLevel{target}
		s.Description = fmt.Sprintf("If price breaks %s, expect move toward %s (%.3f)", verb, target.Label, target.Price)
	}
	s.RiskRewardRatio = RiskReward(price, s.Target, s.Stop)
	return s
}

func order(bias models.Bias) []models.Direction {
	switch bias {
	case models.BiasBullish:
		return []models.Direction{models.DirectionBullish, models.DirectionBearish, models.DirectionNeutral}
	case models.BiasBearish:
		return []models.Direction{models.DirectionBearish, models.DirectionBullish, models.DirectionNeutral}
	default:
		return []models.Direction{models.DirectionNeutral, models.DirectionBullish, models.DirectionBearish}
	}
}

func byProximity(price float64, a, b models.KeyLevel) []models.KeyLevel {
	if math.Abs(b.Price-price) < math.Abs(a.Price-price) {
		return []models.KeyLevel{b, a}
	}
	return []models.KeyLevel{a, b}
}

func first(levels []models.KeyLevel) *models.KeyLevel {
	if len(levels) == 0 {
		return nil
	}
	l := levels[0]
	return &l
}
