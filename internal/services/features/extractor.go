package features

import (
    "math"
    "time"

    "FxCockpit/internal/domain/models"
    "FxCockpit/internal/domain/repository"

    "github.com/shopspring/decimal"
)

// Closes extracts close prices in bar order.
func Closes(bars []models.PriceBar) []float64 {
    out := make([]float64, len(bars))
    for i, b := range bars {
        out[i] = b.Close
    }
    return out
}

// PercentReturns computes r_t = C_t / C_{t-1} - 1.
// It returns a slice of length len(closes)-1, or nil if insufficient data.
// A non-positive previous close yields a zero return.
func PercentReturns(closes []float64) []float64 {
    if len(closes) < 2 {
        return nil
    }
    out := make([]float64, 0, len(closes)-1)
    for i := 1; i < len(closes); i++ {
        prev := closes[i-1]
        if prev <= 0 {
            out = append(out, 0)
            continue
        }
        out = append(out, closes[i]/prev-1)
    }
    return out
}

// SMA is the simple moving average of the last n values. ok is false if fewer than n values exist.
func SMA(values []float64, n int) (float64, bool) {
    if n <= 0 || len(values) < n {
        return 0, false
    }
    sum := 0.0
    for _, v := range values[len(values)-n:] {
        sum += v
    }
    return sum / float64(n), true
}

// MeanStdDev returns the mean and population standard deviation.
func MeanStdDev(values []float64) (mean, std float64) {
    if len(values) == 0 {
        return 0, 0
    }
    n := float64(len(values))
    for _, v := range values {
        mean += v
    }
    mean /= n
    ss := 0.0
    for _, v := range values {
        d := v - mean
        ss += d * d
    }
    return mean, math.Sqrt(ss / n)
}

// Pearson computes the population correlation of two equal-length series.
// A zero-variance input yields 0. The result is clamped to [-1, 1].
func Pearson(x, y []float64) float64 {
    n := len(x)
    if n == 0 || n != len(y) {
        return 0
    }
    mx, _ := MeanStdDev(x)
    my, _ := MeanStdDev(y)
    var cov, vx, vy float64
    for i := 0; i < n; i++ {
        dx := x[i] - mx
        dy := y[i] - my
        cov += dx * dy
        vx += dx * dx
        vy += dy * dy
    }
    if vx == 0 || vy == 0 {
        return 0
    }
    r := cov / math.Sqrt(vx*vy)
    if r > 1 {
        return 1
    }
    if r < -1 {
        return -1
    }
    return r
}

// AlignFromTo floors both ends of a query range to bar opens. With an inclusive upper
// bound the bar containing to is still returned. Daily bars use each end's calendar day.
func AlignFromTo(from, to time.Time, tf repository.Timeframe) (time.Time, time.Time) {
    switch tf {
    case repository.TF1m:
        return from.Truncate(time.Minute), to.Truncate(time.Minute)
    case repository.TF1h:
        return from.Truncate(time.Hour), to.Truncate(time.Hour)
    case repository.TF1d:
        return time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location()),
            time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
    default:
        return from.Truncate(time.Minute), to.Truncate(time.Minute)
    }
}

// Pips converts a price distance into pips, rounded to one decimal.
func Pips(delta, pipSize float64) float64 {
    if pipSize <= 0 {
        return 0
    }
    v, _ := decimal.NewFromFloat(delta).Div(decimal.NewFromFloat(pipSize)).Round(1).Float64()
    return v
}

// RoundPrice rounds a price to the given number of decimals.
func RoundPrice(p float64, places int32) float64 {
    v, _ := decimal.NewFromFloat(p).Round(places).Float64()
    return v
}

// ResampleDaily folds ascending intraday bars into one bar per calendar day in loc.
// Each daily bar is stamped with local midnight, the same day boundary DailyStats uses.
func ResampleDaily(bars []models.PriceBar, loc *time.Location) []models.PriceBar {
    if loc == nil {
        loc = time.UTC
    }
    var out []models.PriceBar
    for _, b := range bars {
        local := b.Timestamp.In(loc)
        day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
        if n := len(out); n > 0 && out[n-1].Timestamp.Equal(day) {
            last := &out[n-1]
            if b.High > last.High {
                last.High = b.High
            }
            if b.Low < last.Low {
                last.Low = b.Low
            }
            last.Close = b.Close
            continue
        }
        out = append(out, models.PriceBar{
            Symbol:    b.Symbol,
            Timeframe: string(repository.TF1d),
            Open:      b.Open,
            High:      b.High,
            Low:       b.Low,
            Close:     b.Close,
            Timestamp: day,
        })
    }
    return out
}

// DailyCloses converts daily bars into date-keyed closes. The key is the bar's own
// calendar date, so local-midnight bars line up with the asset quote dates.
func DailyCloses(daily []models.PriceBar) []models.DailyClose {
    out := make([]models.DailyClose, 0, len(daily))
    for _, b := range daily {
        ts := b.Timestamp
        out = append(out, models.DailyClose{Date: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), Close: b.Close})
    }
    return out
}
