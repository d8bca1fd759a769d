package docstore

import (
	"context"
	"errors"
	"sync"

	"backend-twitter/internal/changefeed"
	"backend-twitter/internal/shared/apperr"
	"backend-twitter/internal/telemetry"
)

// Subscription delivers snapshots until Close is called or its context ends.
// Updates holds at most one pending snapshot; a newer one replaces it.
type Subscription struct {
	updates chan Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func (s *Subscription) Updates() <-chan Snapshot { return s.updates }

// Close stops delivery and waits for the subscription to release its
// change-feed registration. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// SubscribeDoc emits the current state of one document, then a fresh
// snapshot after every change to it. A missing document yields an empty
// snapshot.
func (s *Store) SubscribeDoc(ctx context.Context, collection, id string) *Subscription {
	return s.subscribe(ctx, collection, docTopic(collection, id), func(ctx context.Context) (Snapshot, error) {
		doc, err := s.Get(ctx, collection, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return Snapshot{Collection: collection}, nil
		}
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Collection: collection, Docs: []Document{doc}}, nil
	})
}

// SubscribeQuery emits the full result set of q, then again after any write
// to q's collection.
func (s *Store) SubscribeQuery(ctx context.Context, q Query) *Subscription {
	return s.subscribe(ctx, q.Collection, q.Collection, func(ctx context.Context) (Snapshot, error) {
		docs, err := s.Query(ctx, q)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Collection: q.Collection, Docs: docs}, nil
	})
}

func (s *Store) subscribe(ctx context.Context, collection, topic string, fetch func(context.Context) (Snapshot, error)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		updates: make(chan Snapshot, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	var (
		client  *changefeed.Client
		notices <-chan []byte
	)
	if s.feed != nil {
		client = s.feed.Register(topic)
		notices = client.Send
	}
	telemetry.ActiveSubscriptions.Inc()

	go func() {
		defer close(sub.done)
		defer close(sub.updates)
		defer telemetry.ActiveSubscriptions.Dec()
		if client != nil {
			defer s.feed.Unregister(client)
		}

		s.emit(ctx, sub, collection, topic, fetch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notices:
				if !ok {
					return
				}
				s.emit(ctx, sub, collection, topic, fetch)
			}
		}
	}()
	return sub
}

func (s *Store) emit(ctx context.Context, sub *Subscription, collection, topic string, fetch func(context.Context) (Snapshot, error)) {
	snap, err := fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("snapshot fetch failed", "topic", topic, "error", err)
		}
		return
	}
	select {
	case <-sub.updates:
	default:
	}
	sub.updates <- snap
	telemetry.SnapshotsEmitted.WithLabelValues(collection).Inc()
}
