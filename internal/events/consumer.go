package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads comment events and commits each one after handling it.
// Failed messages are logged and committed; they are not retried.
type Consumer struct {
	reader  messageReader
	handle  Handler
	logger  *slog.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, groupID, topic string, h Handler, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
	return newConsumer(reader, h, logger)
}

func newConsumer(reader messageReader, h Handler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{reader: reader, handle: h, logger: logger, backoff: time.Second}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("close kafka reader", "error", err)
		}
	}()

	c.logger.Info("comment event consumer started")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("comment event consumer stopped")
				return nil
			}
			c.logger.Error("fetch comment event", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		var ev CommentCreated
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.logger.Error("decode comment event", "offset", m.Offset, "error", err)
		} else if err := c.handle(ctx, ev); err != nil {
			c.logger.Error("handle comment event", "post_id", ev.PostID, "error", err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit comment event", "offset", m.Offset, "error", err)
		}
	}
}
