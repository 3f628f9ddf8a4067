package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
instrument:
  symbol: USDJPY
  pip_size: 0.01
  timezone: Asia/Tokyo
sessions:
  - {id: tokyo, name: Tokyo, start: "09:00", end: "15:00"}
  - {id: london, name: London, start: "16:00", end: "01:00"}
`

func TestParse_AppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8000, c.Server.Port)
	assert.Equal(t, time.Minute, c.Scheduler.Sessions)
	assert.Equal(t, 10*time.Minute, c.Scheduler.Statistics)
	assert.Equal(t, 20, c.Analytics.CorrelationWindow)
	assert.InDelta(t, 0.05, c.Analytics.DedupEpsilon, 1e-12)
	assert.Equal(t, "gemini", c.Narrative.Provider)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
}

func TestParse_FatalConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"missing symbol", `
instrument: {pip_size: 0.01, timezone: Asia/Tokyo}
sessions: [{id: tokyo, start: "09:00", end: "15:00"}]`},
		{"non-positive pip size", `
instrument: {symbol: USDJPY, pip_size: 0, timezone: Asia/Tokyo}
sessions: [{id: tokyo, start: "09:00", end: "15:00"}]`},
		{"unknown timezone", `
instrument: {symbol: USDJPY, pip_size: 0.01, timezone: Mars/Base}
sessions: [{id: tokyo, start: "09:00", end: "15:00"}]`},
		{"no sessions", `
instrument: {symbol: USDJPY, pip_size: 0.01, timezone: Asia/Tokyo}`},
		{"empty window", `
instrument: {symbol: USDJPY, pip_size: 0.01, timezone: Asia/Tokyo}
sessions: [{id: tokyo, start: "09:00", end: "09:00"}]`},
		{"bad clock", `
instrument: {symbol: USDJPY, pip_size: 0.01, timezone: Asia/Tokyo}
sessions: [{id: tokyo, start: "9am", end: "15:00"}]`},
		{"duplicate id", `
instrument: {symbol: USDJPY, pip_size: 0.01, timezone: Asia/Tokyo}
sessions: [{id: tokyo, start: "09:00", end: "15:00"}, {id: tokyo, start: "16:00", end: "01:00"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidateNarrative(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	c.Narrative.Provider = "gemini"
	assert.Error(t, c.ValidateNarrative())
	c.Narrative.GeminiAPIKey = "k"
	assert.NoError(t, c.ValidateNarrative())

	c.Narrative.Provider = "claude"
	assert.Error(t, c.ValidateNarrative())

	c.Narrative.Provider = "other"
	assert.Error(t, c.ValidateNarrative())
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	c.applyEnv(envOverrides{
		Environment:       "production",
		NarrativeProvider: "CLAUDE",
		ClaudeAPIKey:      "secret",
		KafkaBrokers:      []string{"k1:9092", "k2:9092"},
	})

	assert.True(t, c.IsProduction())
	assert.Equal(t, "claude", c.Narrative.Provider)
	assert.Equal(t, "secret", c.Narrative.ClaudeAPIKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}
