package feed

import (
	"context"
	"fmt"
	"log/slog"

	"labelsim/internal/archive"
	"labelsim/internal/config"
)

// FromConfig builds the fanout for the configured sinks. The returned close
// func flushes the Kafka writer when one was built.
func FromConfig(ctx context.Context, logger *slog.Logger, cfg config.Sinks) (*Fanout, func() error, error) {
	var sinks []Sink
	closeFn := func() error { return nil }

	if len(cfg.KafkaBrokers) > 0 {
		k, err := NewKafka(KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, k)
		closeFn = k.Close
		logger.Info("kafka sink enabled", "topic", cfg.KafkaTopic, "brokers", len(cfg.KafkaBrokers))
	}
	if cfg.ArchiveBucket != "" {
		a, err := archive.NewS3(ctx, cfg.ArchiveBucket, cfg.ArchivePrefix)
		if err != nil {
			_ = closeFn()
			return nil, nil, fmt.Errorf("archive sink: %w", err)
		}
		sinks = append(sinks, a)
		logger.Info("s3 archive sink enabled", "bucket", cfg.ArchiveBucket, "prefix", cfg.ArchivePrefix)
	}
	return NewFanout(logger, sinks...), closeFn, nil
}
