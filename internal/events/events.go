// Package events carries comment-created events from the post service to
// the notification service, over Kafka or in process.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type CommentCreated struct {
	PostID      string    `json:"post_id"`
	PostOwner   string    `json:"post_owner"`
	PostContent string    `json:"post_content"`
	CommenterID string    `json:"commenter_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Handler func(ctx context.Context, ev CommentCreated) error

type Publisher interface {
	PublishCommentCreated(ctx context.Context, ev CommentCreated) error
	Close() error
}

// Direct hands events straight to a handler in the calling goroutine.
type Direct struct {
	handle Handler
}

func NewDirect(h Handler) *Direct {
	return &Direct{handle: h}
}

func (d *Direct) PublishCommentCreated(ctx context.Context, ev CommentCreated) error {
	if d.handle == nil {
		return nil
	}
	return d.handle(ctx, ev)
}

func (d *Direct) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// PublishCommentCreated keys the message by post so events for one post
// stay ordered.
func (p *KafkaPublisher) PublishCommentCreated(ctx context.Context, ev CommentCreated) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.PostID), Value: payload}); err != nil {
		p.logger.Error("publish comment event failed", "post_id", ev.PostID, "error", err)
		return fmt.Errorf("publish comment event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
