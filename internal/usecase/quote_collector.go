package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FxCockpit/internal/domain/models"
	drepo "FxCockpit/internal/domain/repository"
	"FxCockpit/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

// QuoteCollector keeps the live tick stream connected and feeds the quote book.
type QuoteCollector struct {
	stream  drepo.QuoteStream
	book    *QuoteBook
	metrics drepo.Metrics
	log     *logger.Logger

	minBackoff time.Duration
	maxBackoff time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQuoteCollector(stream drepo.QuoteStream, book *QuoteBook, metrics drepo.Metrics, log *logger.Logger, minBackoff, maxBackoff time.Duration) *QuoteCollector {
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff < minBackoff {
		maxBackoff = minBackoff
	}
	return &QuoteCollector{
		stream:     stream,
		book:       book,
		metrics:    metrics,
		log:        log.With("quote_collector"),
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
	}
}

// IsConnected returns true if the tick stream is connected.
func (c *QuoteCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start runs the connect/read loop in the background until Stop or ctx is done.
func (c *QuoteCollector) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

func (c *QuoteCollector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.stream.Close()
	c.wg.Wait()
	return err
}

func (c *QuoteCollector) run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := c.connect(ctx); err != nil {
			return
		}
		err := c.consume(ctx)
		_ = c.stream.Close()
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("quote_stream")
		c.log.Warn("quote stream dropped, reconnecting", logger.Error(err))
	}
}

// connect retries with exponential backoff until the stream is subscribed or ctx ends.
func (c *QuoteCollector) connect(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.minBackoff
	b.MaxInterval = c.maxBackoff
	b.MaxElapsedTime = 0

	op := func() error {
		if err := c.stream.Connect(ctx); err != nil {
			return err
		}
		if err := c.stream.Subscribe(ctx); err != nil {
			_ = c.stream.Close()
			return err
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.RecordError("quote_connect")
		c.log.Warn("quote stream connect failed", logger.Error(err), logger.Duration("retry_in_ms", wait))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return err
	}
	c.log.Info("quote stream connected")
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context) error {
	quotes, errs := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return errors.New("quote stream closed")
			}
			if err != nil {
				return err
			}
		case q, ok := <-quotes:
			if !ok {
				return errors.New("quote stream closed")
			}
			c.handle(q)
		}
	}
}

func (c *QuoteCollector) handle(q models.Quote) {
	if c.book.Update(q) {
		c.metrics.RecordLastPrice(q.Symbol, q.Price)
	}
}
