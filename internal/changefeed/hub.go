// Package changefeed fans change notices out to subscribers by topic.
// Without Redis, delivery is in-process; with Redis, every instance publishes
// to and receives from a shared pattern subscription.
package changefeed

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "docstore:"
	channelPattern = channelPrefix + "*"
)

type Hub struct {
	redis   *redis.Client
	logger  *slog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	ready   chan struct{}
}

// Client receives notices for one topic. Send holds at most one pending
// notice: subscribers re-read current state on wake-up, so a queued notice
// already covers any that arrive before it is consumed.
type Client struct {
	Topic string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		redis:   redisClient,
		logger:  logger,
		clients: map[string]map[*Client]struct{}{},
		ready:   make(chan struct{}),
	}

	if redisClient != nil {
		go h.subscribeRedis()
	} else {
		close(h.ready)
	}
	return h
}

// Ready is closed once the hub can deliver published notices.
func (h *Hub) Ready() <-chan struct{} { return h.ready }

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, 1),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topicClients, ok := h.clients[client.Topic]
	if !ok {
		return
	}
	if _, registered := topicClients[client]; !registered {
		return
	}
	delete(topicClients, client)
	if len(topicClients) == 0 {
		delete(h.clients, client.Topic)
	}
	close(client.Send)
}

// Broadcast delivers payload to every client of topic, through Redis when configured.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.mu.RLock()
	rdb := h.redis
	h.mu.RUnlock()
	if rdb == nil {
		h.deliver(topic, payload)
		return
	}
	if err := rdb.Publish(context.Background(), redisChannel(topic), payload).Err(); err != nil {
		h.logger.Warn("changefeed publish failed, delivering locally", "topic", topic, "error", err)
		h.deliver(topic, payload)
	}
}

func (h *Hub) deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// subscribeRedis relays the shared pattern subscription to local clients.
// If the subscription cannot be established the hub switches to local
// delivery, since notices published to Redis would reach no one.
func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error("changefeed subscribe failed, delivering locally", "error", err)
		h.mu.Lock()
		h.redis = nil
		h.mu.Unlock()
		close(h.ready)
		return
	}
	close(h.ready)

	for msg := range pubsub.Channel() {
		topic := topicFromChannel(msg.Channel)
		if topic == "" {
			continue
		}
		h.deliver(topic, []byte(msg.Payload))
	}
}

func redisChannel(topic string) string {
	return channelPrefix + topic
}

func topicFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) {
		return ""
	}
	return strings.TrimPrefix(ch, channelPrefix)
}
