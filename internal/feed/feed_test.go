package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelsim/internal/config"
	"labelsim/internal/game"
)

type fakeWriter struct {
	failures int
	msgs     []kafka.Message
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.failures > 0 {
		w.failures--
		return errors.New("leader not available")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var summary = game.TurnSummary{GameID: "g1", Turn: 3, BalanceVersion: "2025.3", Revenue: 1200, Changes: []game.ChangeEvent{}}

func TestKafkaPublishesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	k := newKafka(w, 3, time.Second)

	require.NoError(t, k.Publish(context.Background(), summary))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "g1", string(msg.Key))
	assert.Equal(t, "2025.3", string(msg.Headers[0].Value))

	var got game.TurnSummary
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, summary, got)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaRetriesThenGivesUp(t *testing.T) {
	w := &fakeWriter{failures: 1}
	require.NoError(t, newKafka(w, 3, time.Second).Publish(context.Background(), summary))
	assert.Len(t, w.msgs, 1)

	w = &fakeWriter{failures: 5}
	err := newKafka(w, 2, time.Second).Publish(context.Background(), summary)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Empty(t, w.msgs)
}

func TestNewKafkaValidates(t *testing.T) {
	_, err := NewKafka(KafkaConfig{Topic: "t"})
	require.Error(t, err)
	_, err = NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)
}

type sinkFunc func(context.Context, game.TurnSummary) error

func (f sinkFunc) Publish(ctx context.Context, s game.TurnSummary) error { return f(ctx, s) }

func TestFanoutReachesEverySink(t *testing.T) {
	var logs bytes.Buffer
	var delivered []string
	failing := sinkFunc(func(context.Context, game.TurnSummary) error { return errors.New("bucket gone") })
	ok := sinkFunc(func(_ context.Context, s game.TurnSummary) error {
		delivered = append(delivered, s.GameID)
		return nil
	})

	f := NewFanout(slog.New(slog.NewTextHandler(&logs, nil)), failing, ok)
	err := f.Publish(context.Background(), summary)
	require.Error(t, err)
	assert.Equal(t, []string{"g1"}, delivered)
	assert.Contains(t, logs.String(), "bucket gone")
	assert.Equal(t, 2, f.Len())
}

func TestEmptyFanout(t *testing.T) {
	assert.NoError(t, NewFanout(nil).Publish(context.Background(), summary))
}

func TestFromConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	f, closeFn, err := FromConfig(context.Background(), logger, config.Sinks{})
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.NoError(t, f.Publish(context.Background(), summary))
	assert.NoError(t, closeFn())

	f, closeFn, err = FromConfig(context.Background(), logger, config.Sinks{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "turns"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
	assert.NoError(t, closeFn())

	_, _, err = FromConfig(context.Background(), logger, config.Sinks{KafkaBrokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}
