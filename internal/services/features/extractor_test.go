package features

import (
    "math"
    "testing"
    "time"

    "FxCockpit/internal/domain/models"
    "FxCockpit/internal/domain/repository"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestPercentReturns(t *testing.T) {
    t.Parallel()
    got := PercentReturns([]float64{100, 110, 99})
    assert.Len(t, got, 2)
    assert.InDelta(t, 0.10, got[0], 1e-12)
    assert.InDelta(t, -0.10, got[1], 1e-12)
    assert.Nil(t, PercentReturns([]float64{1}))
}

func TestSMA(t *testing.T) {
    t.Parallel()
    v, ok := SMA([]float64{1, 2, 3, 4}, 2)
    assert.True(t, ok)
    assert.InDelta(t, 3.5, v, 1e-12)

    _, ok = SMA([]float64{1}, 2)
    assert.False(t, ok)
}

func TestMeanStdDev_Population(t *testing.T) {
    t.Parallel()
    m, s := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
    assert.InDelta(t, 5, m, 1e-12)
    assert.InDelta(t, 2, s, 1e-12)
}

func TestPearson(t *testing.T) {
    t.Parallel()
    tests := []struct {
        name string
        x, y []float64
        want float64
    }{
        {"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
        {"perfect negative", []float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, -1},
        {"zero variance", []float64{1, 1, 1, 1}, []float64{1, 2, 3, 4}, 0},
        {"length mismatch", []float64{1, 2}, []float64{1}, 0},
    }
    for _, tt := range tests {
        tt := tt
        t.Run(tt.name, func(t *testing.T) {
            t.Parallel()
            assert.InDelta(t, tt.want, Pearson(tt.x, tt.y), 1e-12)
        })
    }
}

func TestPearson_Deterministic(t *testing.T) {
    t.Parallel()
    x := []float64{0.01, -0.02, 0.015, 0.003, -0.007, 0.011}
    y := []float64{0.004, -0.01, 0.02, -0.001, -0.003, 0.009}
    a := Pearson(x, y)
    b := Pearson(x, y)
    assert.Equal(t, math.Float64bits(a), math.Float64bits(b))
    assert.LessOrEqual(t, math.Abs(a), 1.0)
}

func TestAlignFromTo_Hour(t *testing.T) {
    t.Parallel()
    from := time.Date(2024, 3, 4, 10, 37, 0, 0, time.UTC)
    to := time.Date(2024, 3, 4, 12, 5, 0, 0, time.UTC)
    f, tt := AlignFromTo(from, to, repository.TF1h)
    assert.Equal(t, 10, f.Hour())
    assert.Equal(t, 0, f.Minute())
    assert.Equal(t, 12, tt.Hour())
}

func TestPipsAndRounding(t *testing.T) {
    t.Parallel()
    assert.Equal(t, 70.0, Pips(155.50-154.80, 0.01))
    assert.Equal(t, 0.0, Pips(1, 0))
    assert.Equal(t, 155.1333, RoundPrice(155.13333333, 4))
    assert.Equal(t, 154.7667, RoundPrice(154.76666666, 4))
}

func TestResampleDaily(t *testing.T) {
    t.Parallel()
    d0 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
    bars := []models.PriceBar{
        {Symbol: "USDJPY", Timestamp: d0.Add(1 * time.Hour), Open: 150.0, High: 150.3, Low: 149.9, Close: 150.2},
        {Symbol: "USDJPY", Timestamp: d0.Add(2 * time.Hour), Open: 150.2, High: 150.6, Low: 150.1, Close: 150.5},
        {Symbol: "USDJPY", Timestamp: d0.Add(25 * time.Hour), Open: 150.5, High: 150.7, Low: 149.8, Close: 149.9},
    }

    daily := ResampleDaily(bars, time.UTC)
    assert.Len(t, daily, 2)
    assert.Equal(t, d0, daily[0].Timestamp)
    assert.Equal(t, "1d", daily[0].Timeframe)
    assert.Equal(t, 150.0, daily[0].Open)
    assert.Equal(t, 150.6, daily[0].High)
    assert.Equal(t, 149.9, daily[0].Low)
    assert.Equal(t, 150.5, daily[0].Close)

    closes := DailyCloses(daily)
    assert.Equal(t, d0.Add(24*time.Hour), closes[1].Date)
    assert.Equal(t, 149.9, closes[1].Close)
}

func TestResampleDaily_LocalDayBoundary(t *testing.T) {
    t.Parallel()
    tokyo := time.FixedZone("JST", 9*3600)
    // 14:00 and 16:00 UTC on Mar 4 fall either side of Tokyo midnight
    bars := []models.PriceBar{
        {Symbol: "USDJPY", Timestamp: time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC), Open: 150.0, High: 150.2, Low: 149.9, Close: 150.1},
        {Symbol: "USDJPY", Timestamp: time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC), Open: 150.1, High: 150.4, Low: 150.0, Close: 150.3},
    }

    daily := ResampleDaily(bars, tokyo)
    require.Len(t, daily, 2)
    assert.True(t, daily[0].Timestamp.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, tokyo)))
    assert.True(t, daily[1].Timestamp.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, tokyo)))

    assert.Len(t, ResampleDaily(bars, time.UTC), 1)

    closes := DailyCloses(daily)
    assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), closes[0].Date)
    assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), closes[1].Date)
}
