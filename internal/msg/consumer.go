package msg

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Handler processes one consumed record
type Handler func(context.Context, Record) error

// Consumer wraps a Kafka consumer
type Consumer struct {
	client     *kgo.Client
	logger     *zap.Logger
	topics     []string
	group      string
	maxRetries int
	running    int32
	pollCount  int64
	errorCount int64
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *Config, group string, topics []string, maxRetries int, logger *zap.Logger) (*Consumer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(), // Manual commit after handler success
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	if maxRetries < 1 {
		maxRetries = 1
	}

	c := &Consumer{
		client:     client,
		logger:     logger,
		topics:     topics,
		group:      group,
		maxRetries: maxRetries,
	}

	logger.Info("consumer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("group", group),
		zap.Strings("topics", topics),
	)

	return c, nil
}

// Run starts consuming messages and calls handler for each record.
// Stats are logged every 30 seconds until ctx is done.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	c.logger.Info("starting consumer",
		zap.String("group", c.group),
		zap.Strings("topics", c.topics),
	)

	atomic.StoreInt32(&c.running, 1)
	defer atomic.StoreInt32(&c.running, 0)

	go c.logStats(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", zap.String("group", c.group))
			return ctx.Err()
		default:
			fetches := c.client.PollFetches(ctx)
			if fetches.IsClientClosed() {
				return fmt.Errorf("kafka client closed")
			}
			fetches.EachError(func(topic string, partition int32, err error) {
				if ctx.Err() == nil {
					c.logger.Warn("fetch error",
						zap.String("topic", topic),
						zap.Int32("partition", partition),
						zap.Error(err),
					)
				}
			})

			iter := fetches.RecordIter()
			for !iter.Done() {
				record := iter.Next()

				rec := Record{
					Topic:     record.Topic,
					Key:       string(record.Key),
					Value:     record.Value,
					Partition: record.Partition,
					Offset:    record.Offset,
					Timestamp: record.Timestamp.UnixMilli(),
				}

				err := c.handleWithRetry(ctx, rec, handler)
				if err != nil {
					c.logger.Error("handler failed, skipping record",
						zap.String("topic", rec.Topic),
						zap.String("key", rec.Key),
						zap.Int64("offset", rec.Offset),
						zap.Error(err),
					)
					atomic.AddInt64(&c.errorCount, 1)
					// Continue processing other records
					continue
				}

				// Commit offset after successful handling
				if err := c.client.CommitRecords(ctx, record); err != nil {
					c.logger.Warn("failed to commit record",
						zap.String("topic", rec.Topic),
						zap.Int64("offset", rec.Offset),
						zap.Error(err),
					)
				}
				atomic.AddInt64(&c.pollCount, 1)
			}
		}
	}
}

// handleWithRetry calls handler with bounded retries. Permanent errors are
// returned after the first attempt.
func (c *Consumer) handleWithRetry(ctx context.Context, rec Record, handler Handler) error {
	return retry(ctx, c.maxRetries, 100*time.Millisecond, func() error {
		return handler(ctx, rec)
	}, func(attempt int, err error) {
		c.logger.Warn("handler failed, retrying",
			zap.String("topic", rec.Topic),
			zap.String("key", rec.Key),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	})
}

func retry(ctx context.Context, maxRetries int, backoff time.Duration, fn func() error, onRetry func(int, error)) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}

		if attempt < maxRetries-1 {
			onRetry(attempt+1, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("handler failed after %d attempts: %w", maxRetries, err)
}

// Close closes the consumer
func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// IsRunning returns whether the consumer is running
func (c *Consumer) IsRunning() bool {
	return atomic.LoadInt32(&c.running) == 1
}

// logStats logs consumer statistics periodically
func (c *Consumer) logStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.logger.Info("consumer stats",
				zap.String("group", c.group),
				zap.Int64("processed", atomic.LoadInt64(&c.pollCount)),
				zap.Int64("errors", atomic.LoadInt64(&c.errorCount)),
			)
		}
	}
}
