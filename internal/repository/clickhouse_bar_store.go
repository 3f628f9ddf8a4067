package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FxCockpit/internal/domain/models"
	domrepo "FxCockpit/internal/domain/repository"
	"FxCockpit/internal/services/features"
	pkgch "FxCockpit/pkg/clickhouse"
	applogger "FxCockpit/pkg/logger"
)

const barsTable = "price_bars"

// insertChunk bounds the VALUES list of one INSERT.
const insertChunk = 2000

// BarSchema returns the idempotent DDL for the bar table in database.
// ReplacingMergeTree keyed on (symbol, timeframe, ts) makes redelivered bars overwrite earlier copies.
func BarSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            symbol      LowCardinality(String),
            timeframe   LowCardinality(String),
            ts          DateTime64(3, 'UTC'),
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            ingested_at DateTime64(3, 'UTC') DEFAULT now64(3)
        ) ENGINE = ReplacingMergeTree(ingested_at)
        PARTITION BY toYYYYMM(ts)
        ORDER BY (symbol, timeframe, ts)`, database, barsTable),
	}
}

// CHBarStore implements BarSource and BarSink backed by ClickHouse.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger) *CHBarStore {
	return &CHBarStore{
		db:    ch.DB(),
		table: ch.Database() + "." + barsTable,
		l:     l.With("clickhouse-bars"),
	}
}

func (s *CHBarStore) GetBars(ctx context.Context, symbol string, tf domrepo.Timeframe, from, to time.Time) ([]models.PriceBar, error) {
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	q := fmt.Sprintf(`
        SELECT symbol, timeframe, ts, open, high, low, close
        FROM %s FINAL
        WHERE symbol = ? AND timeframe = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC`, s.table)

	from, to = features.AlignFromTo(from, to, tf)
	out, err := s.query(ctx, "get_bars", q, symbol, string(tf), from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CHBarStore) GetLatestNBars(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.PriceBar, error) {
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	if n <= 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`
        SELECT symbol, timeframe, ts, open, high, low, close
        FROM %s FINAL
        WHERE symbol = ? AND timeframe = ?
        ORDER BY ts DESC
        LIMIT ?`, s.table)

	out, err := s.query(ctx, "latest_bars", q, symbol, string(tf), n)
	if err != nil {
		return nil, err
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHBarStore) query(ctx context.Context, op, q string, args ...interface{}) ([]models.PriceBar, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse query error", applogger.String("op", op), applogger.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 256)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Timeframe, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			s.l.Error("clickhouse scan error", applogger.String("op", op), applogger.Error(err))
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse query ok",
		applogger.String("op", op),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreBars inserts bars in chunks. Invalid bars are skipped.
func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.PriceBar) error {
	for start := 0; start < len(bars); start += insertChunk {
		end := start + insertChunk
		if end > len(bars) {
			end = len(bars)
		}
		q, args := buildBarInsert(s.table, bars[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert error", applogger.Int("rows", end-start), applogger.Error(err))
			return fmt.Errorf("insert bars: %w", err)
		}
	}
	return nil
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// buildBarInsert renders one multi-row INSERT. It returns "" when no bar is valid.
func buildBarInsert(table string, bars []models.PriceBar) (string, []interface{}) {
	values := make([]string, 0, len(bars))
	args := make([]interface{}, 0, len(bars)*7)
	for _, b := range bars {
		if ValidateBar(b) != nil {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, b.Symbol, b.Timeframe, b.Timestamp.UTC(), b.Open, b.High, b.Low, b.Close)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, ts, open, high, low, close) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}

// ValidateBar rejects bars that would corrupt downstream statistics.
func ValidateBar(b models.PriceBar) error {
	switch {
	case b.Symbol == "":
		return fmt.Errorf("bar without symbol")
	case !domrepo.IsValidTimeframe(domrepo.Timeframe(b.Timeframe)):
		return fmt.Errorf("bar timeframe %q unsupported", b.Timeframe)
	case b.Timestamp.IsZero():
		return fmt.Errorf("bar without timestamp")
	case b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0:
		return fmt.Errorf("bar prices must be positive")
	case b.High < b.Low || b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close:
		return fmt.Errorf("bar high/low inconsistent with open/close")
	}
	return nil
}

var (
	_ domrepo.BarSource = (*CHBarStore)(nil)
	_ domrepo.BarSink   = (*CHBarStore)(nil)
)
