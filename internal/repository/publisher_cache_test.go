package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"FxCockpit/internal/domain"
	"FxCockpit/internal/domain/models"
	"FxCockpit/pkg/cache"
	pkgkafka "FxCockpit/pkg/kafka"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCache_RedisRoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sc := NewSnapshotCache(cache.NewRedisCacheFromClient(db, "fxcockpit"), "USDJPY", 30*time.Minute)
	ctx := context.Background()

	snap := &models.Snapshot{Version: 7, Symbol: "USDJPY", UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectSet("fxcockpit:snapshot:USDJPY", raw, 30*time.Minute).SetVal("OK")
	require.NoError(t, sc.Save(ctx, snap))

	mock.ExpectGet("fxcockpit:snapshot:USDJPY").SetVal(string(raw))
	got, err := sc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Version)
	assert.Equal(t, "USDJPY", got.Symbol)

	mock.ExpectGet("fxcockpit:snapshot:USDJPY").RedisNil()
	_, err = sc.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotCache_Memory(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	sc := NewSnapshotCache(mc, "USDJPY", time.Minute)

	require.NoError(t, sc.Save(context.Background(), &models.Snapshot{Version: 3, Symbol: "USDJPY"}))
	got, err := sc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Version)
}

type capturePublisher struct {
	topic string
	msgs  []pkgkafka.Message
}

func (c *capturePublisher) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	c.topic = topic
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestKafkaEventPublisher(t *testing.T) {
	cp := &capturePublisher{}
	p := &KafkaEventPublisher{producer: cp, topic: "fxcockpit.events"}
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, p.PublishAlert(context.Background(), models.AlertEvent{
		RuleID: "r1", Symbol: "USDJPY", Condition: models.ConditionAbove, Threshold: 150, Price: 150.2, At: at,
	}))
	require.Len(t, cp.msgs, 1)
	assert.Equal(t, "fxcockpit.events", cp.topic)
	assert.Equal(t, []byte("USDJPY"), cp.msgs[0].Key)
	assert.Equal(t, EventAlertTriggered, cp.msgs[0].Headers["type"])
	ev := cp.msgs[0].Value.(Event)
	assert.Equal(t, EventAlertTriggered, ev.Type)
	assert.Equal(t, at, ev.At)

	require.NoError(t, p.PublishSnapshot(context.Background(), &models.Snapshot{Version: 2, Symbol: "USDJPY", UpdatedAt: at}))
	require.Len(t, cp.msgs, 2)
	assert.Equal(t, EventSnapshotUpdated, cp.msgs[1].Value.(Event).Type)

	require.NoError(t, p.PublishSnapshot(context.Background(), nil))
	assert.Len(t, cp.msgs, 2)

	require.NoError(t, p.PublishMessage(context.Background(), "fxcockpit.logs", map[string]int{"errors": 3}))
	assert.Equal(t, "fxcockpit.logs", cp.topic)
}
