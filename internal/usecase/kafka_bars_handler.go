package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	domrepo "FxCockpit/internal/domain/repository"
	"FxCockpit/internal/repository"
	pkgkafka "FxCockpit/pkg/kafka"
)

// KafkaBarsHandler consumes PriceBar messages and writes them to the bar store.
type KafkaBarsHandler struct {
	topic   string
	symbol  string
	sink    domrepo.BarSink
	book    *QuoteBook
	metrics domrepo.Metrics
}

func NewKafkaBarsHandler(topic, symbol string, sink domrepo.BarSink, book *QuoteBook, metrics domrepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, symbol: symbol, sink: sink, book: book, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// Handle accepts a single bar object or an array of bars. Invalid bars reject the whole message.
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	bars, err := decodeBars(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(err)
	}
	if len(bars) == 0 {
		return nil
	}
	for i := range bars {
		bars[i].Timestamp = bars[i].Timestamp.UTC()
		if err := repository.ValidateBar(bars[i]); err != nil {
			h.metrics.RecordError("consumer_invalid")
			return pkgkafka.Permanent(fmt.Errorf("bar %d: %v: %w", i, err, domain.ErrValidation))
		}
	}

	last := bars[len(bars)-1]
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(last.Timestamp).Seconds())

	start := time.Now()
	err = h.sink.StoreBars(ctx, bars)
	h.metrics.RecordLatency("bar_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}

	// Bar closes keep the quote warm while the tick stream is down.
	if h.book != nil {
		for _, bar := range bars {
			if bar.Symbol != h.symbol {
				continue
			}
			h.book.Update(models.Quote{Symbol: bar.Symbol, Price: bar.Close, Timestamp: bar.Timestamp})
		}
	}
	return nil
}

func decodeBars(b []byte) ([]models.PriceBar, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("empty bar message: %w", domain.ErrValidation)
	}
	if b[0] == '[' {
		var bars []models.PriceBar
		if err := json.Unmarshal(b, &bars); err != nil {
			return nil, fmt.Errorf("decode bars: %w", err)
		}
		return bars, nil
	}
	var bar models.PriceBar
	if err := json.Unmarshal(b, &bar); err != nil {
		return nil, fmt.Errorf("decode bar: %w", err)
	}
	return []models.PriceBar{bar}, nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
