// Package feed publishes committed turn summaries to downstream consumers.
// Publishing happens after the turn's transaction commits and is best
// effort: a failed sink never undoes a turn.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"labelsim/internal/game"
)

// Sink receives one committed turn summary.
type Sink interface {
	Publish(ctx context.Context, s game.TurnSummary) error
}

// Fanout delivers to every sink and logs the ones that fail.
type Fanout struct {
	sinks []Sink
	log   *slog.Logger
}

func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, log: logger}
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Publish tries every sink even when an earlier one fails and returns the
// joined errors.
func (f *Fanout) Publish(ctx context.Context, s game.TurnSummary) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, s); err != nil {
			f.log.Warn("turn summary publish failed", "game_id", s.GameID, "turn", s.Turn, "sink", fmt.Sprintf("%T", sink), "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	WriteTimeout time.Duration
}

// Kafka writes each summary as JSON keyed by game id, so one game's turns
// land on one partition in order.
type Kafka struct {
	w           messageWriter
	maxAttempts int
	timeout     time.Duration
	now         func() time.Time
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafka(w, cfg.MaxAttempts, cfg.WriteTimeout), nil
}

func newKafka(w messageWriter, maxAttempts int, timeout time.Duration) *Kafka {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Kafka{w: w, maxAttempts: maxAttempts, timeout: timeout, now: time.Now}
}

func (k *Kafka) Publish(ctx context.Context, s game.TurnSummary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(s.GameID),
		Value: body,
		Time:  k.now().UTC(),
		Headers: []kafka.Header{
			{Key: "balance_version", Value: []byte(s.BalanceVersion)},
		},
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= k.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, k.timeout)
		err := k.w.WriteMessages(attemptCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == k.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("kafka publish failed after %d attempts: %w", k.maxAttempts, lastErr)
}

func (k *Kafka) Close() error {
	if k == nil || k.w == nil {
		return nil
	}
	return k.w.Close()
}
