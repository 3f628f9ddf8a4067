package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"FxCockpit/internal/domain/models"
	domrepo "FxCockpit/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourBar(ts time.Time, close float64) models.PriceBar {
	return models.PriceBar{
		Symbol: "USDJPY", Timeframe: "1h", Timestamp: ts,
		Open: close - 0.05, High: close + 0.1, Low: close - 0.1, Close: close,
	}
}

func TestValidateBar(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		mutate  func(*models.PriceBar)
		wantErr bool
	}{
		{name: "valid", mutate: func(*models.PriceBar) {}},
		{name: "missing symbol", mutate: func(b *models.PriceBar) { b.Symbol = "" }, wantErr: true},
		{name: "bad timeframe", mutate: func(b *models.PriceBar) { b.Timeframe = "4h" }, wantErr: true},
		{name: "zero timestamp", mutate: func(b *models.PriceBar) { b.Timestamp = time.Time{} }, wantErr: true},
		{name: "negative price", mutate: func(b *models.PriceBar) { b.Low = -1 }, wantErr: true},
		{name: "high below close", mutate: func(b *models.PriceBar) { b.High = b.Close - 0.01 }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := hourBar(ts, 150)
			tt.mutate(&b)
			err := ValidateBar(b)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildBarInsert(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	bad := hourBar(ts, 150)
	bad.Symbol = ""

	q, args := buildBarInsert("fxcockpit.price_bars", []models.PriceBar{hourBar(ts, 150), bad, hourBar(ts.Add(time.Hour), 150.2)})

	assert.True(t, strings.HasPrefix(q, "INSERT INTO fxcockpit.price_bars (symbol, timeframe, ts, open, high, low, close) VALUES "))
	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?, ?, ?)"))
	require.Len(t, args, 14)
	assert.Equal(t, "USDJPY", args[0])
	assert.Equal(t, 150.2, args[13])

	q, args = buildBarInsert("t", []models.PriceBar{bad})
	assert.Empty(t, q)
	assert.Nil(t, args)
}

func TestBarSchema(t *testing.T) {
	stmts := BarSchema("fxcockpit")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "fxcockpit.price_bars")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
}

func TestMemoryBarStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBarStore(3)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.StoreBars(ctx, []models.PriceBar{
		hourBar(base.Add(2*time.Hour), 150.2),
		hourBar(base, 150.0),
		hourBar(base.Add(time.Hour), 150.1),
	}))
	// redelivery replaces the existing bar
	require.NoError(t, s.StoreBars(ctx, []models.PriceBar{hourBar(base.Add(time.Hour), 150.15)}))

	bars, err := s.GetLatestNBars(ctx, "USDJPY", 10, domrepo.TF1h)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, base, bars[0].Timestamp)
	assert.Equal(t, 150.15, bars[1].Close)

	require.NoError(t, s.StoreBars(ctx, []models.PriceBar{hourBar(base.Add(3*time.Hour), 150.3)}))
	bars, err = s.GetBars(ctx, "USDJPY", domrepo.TF1h, base, base.Add(10*time.Hour))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, base.Add(time.Hour), bars[0].Timestamp)

	bars, err = s.GetLatestNBars(ctx, "USDJPY", 5, domrepo.TF1d)
	require.NoError(t, err)
	assert.Empty(t, bars)

	// a range starting mid-bar still returns the bar that was open at from
	bars, err = s.GetBars(ctx, "USDJPY", domrepo.TF1h, base.Add(2*time.Hour+25*time.Minute), base.Add(3*time.Hour+10*time.Minute))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, base.Add(2*time.Hour), bars[0].Timestamp)
	assert.Equal(t, base.Add(3*time.Hour), bars[1].Timestamp)
}
