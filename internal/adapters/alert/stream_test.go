package alert_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/cognitrend/internal/adapters/alert"
	"github.com/okian/cognitrend/internal/domain/model"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleAlert() model.Alert {
	return model.Alert{
		ID:        "alert-1",
		ElderID:   "elder-1",
		Type:      model.AlertTypeCognitiveDecline,
		Severity:  model.SeverityHigh,
		Message:   "Rapid cognitive decline detected. Overall score: 41%",
		Metadata:  map[string]any{"overall_score": 0.41},
		CreatedAt: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}
}

func TestStreamSink_EmitAlert(t *testing.T) {
	_, client := setupTestRedis(t)
	sink := alert.NewStreamSink(client, alert.WithStream("test:alerts"))
	ctx := context.Background()

	require.NoError(t, sink.Ping(ctx))
	require.NoError(t, sink.EmitAlert(ctx, sampleAlert()))

	msgs, err := client.XRange(ctx, "test:alerts", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	values := msgs[0].Values
	assert.Equal(t, "elder-1", values["elder_id"])
	assert.Equal(t, "high", values["severity"])

	var decoded model.Alert
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &decoded))
	assert.Equal(t, "alert-1", decoded.ID)
	assert.Equal(t, model.AlertTypeCognitiveDecline, decoded.Type)
}

func TestStreamSink_DefaultStream(t *testing.T) {
	_, client := setupTestRedis(t)
	sink := alert.NewStreamSink(client, alert.WithMaxLen(100))
	ctx := context.Background()

	require.NoError(t, sink.EmitAlert(ctx, sampleAlert()))

	n, err := client.XLen(ctx, alert.DefaultStream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStreamSink_ServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	sink := alert.NewStreamSink(client)
	mr.Close()

	err := sink.EmitAlert(context.Background(), sampleAlert())
	assert.Error(t, err)
}

type recordingSink struct {
	got []model.Alert
	err error
}

func (r *recordingSink) EmitAlert(_ context.Context, a model.Alert) error {
	r.got = append(r.got, a)
	return r.err
}

func TestFanout(t *testing.T) {
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("sink down")}
	f := alert.Fanout{ok, nil, failing}

	err := f.EmitAlert(context.Background(), sampleAlert())

	assert.ErrorContains(t, err, "sink down")
	assert.Len(t, ok.got, 1)
	assert.Len(t, failing.got, 1)

	assert.NoError(t, alert.Fanout{ok}.EmitAlert(context.Background(), sampleAlert()))
}
