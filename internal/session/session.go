// Package session holds the signed-in user's session explicitly instead of
// through process-wide state. A session is started at sign-in, looked up on
// every authenticated request and ended at sign-out.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"backend-twitter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LocalsKey is the request locals key holding the Session.
const LocalsKey = "session"

type Session struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	StartedAt time.Time `json:"started_at"`
}

var ErrNoSession = fmt.Errorf("%w: no active session", apperr.ErrUnauthenticated)

type Store interface {
	Start(ctx context.Context, uid, email string) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	End(ctx context.Context, id string) error
}

// NewStore returns a Redis-backed store, or an in-memory one when client is nil.
func NewStore(client *redis.Client, ttl time.Duration) Store {
	if client == nil {
		return NewMemoryStore(ttl)
	}
	return &RedisStore{client: client, ttl: ttl}
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *RedisStore) Start(ctx context.Context, uid, email string) (Session, error) {
	sess := newSession(uid, email)
	payload, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.client.Set(ctx, redisKey(sess.ID), payload, s.ttl).Err(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	raw, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *RedisStore) End(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKey(id)).Err()
}

type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: map[string]Session{}}
}

func (s *MemoryStore) Start(_ context.Context, uid, email string) (Session, error) {
	sess := newSession(uid, email)
	sess.StartedAt = s.now()
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNoSession
	}
	if s.ttl > 0 && s.now().Sub(sess.StartedAt) > s.ttl {
		delete(s.sessions, id)
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *MemoryStore) End(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Attach stores the session on the request for downstream handlers.
func Attach(c *fiber.Ctx, sess Session) {
	c.Locals(LocalsKey, sess)
}

// From returns the session attached by the auth middleware, if any.
func From(c *fiber.Ctx) (Session, bool) {
	sess, ok := c.Locals(LocalsKey).(Session)
	return sess, ok
}

func newSession(uid, email string) Session {
	return Session{
		ID:        uuid.NewString(),
		UID:       uid,
		Email:     email,
		StartedAt: time.Now().UTC(),
	}
}

func redisKey(id string) string {
	return "session:" + id
}
