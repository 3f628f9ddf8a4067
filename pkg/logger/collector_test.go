package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *recordingPublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *recordingPublisher) snapshot() [][]AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]AggregatedLogEntry(nil), p.batches...)
}

func TestLogCollector_DeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: pub})

	fields := map[string]interface{}{"job": "correlations"}
	c.AddLog("error", "job failed", fields, "a.go:1")
	c.AddLog("error", "job failed", fields, "a.go:1")
	c.AddLog("error", "other", nil, "b.go:2")
	assert.Equal(t, 2, c.Pending())

	c.Close()

	batches := pub.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, "job failed", batches[0][0].Message)
	assert.Equal(t, 2, batches[0][0].Count)
	assert.Equal(t, []string{"logs"}, pub.topics)
}

func TestLogCollector_ThresholdFlush(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x")
	c.AddLog("error", "b", nil, "x")

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, c.Pending())
}

func TestLogger_ErrorFeedsCollector(t *testing.T) {
	pub := &recordingPublisher{}
	l := Nop()
	// created before the collector is attached
	child := l.With("scheduler")
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	child.Error("boom", Error(errors.New("x")), String("job", "alerts"))
	child.Warn("not collected")

	collector := l.slot.get()
	require.NotNil(t, collector)
	assert.Equal(t, 1, collector.Pending())
	l.RemoveCollector()
	assert.Len(t, pub.snapshot(), 1)
}
