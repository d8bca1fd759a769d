// Package liveview keeps the latest decoded snapshot of a subscription and
// releases the subscription whenever the view stops.
package liveview

import (
	"context"
	"fmt"
	"sync"

	"backend-twitter/internal/docstore"
)

// Source is a live subscription; docstore.Subscription satisfies it.
type Source interface {
	Updates() <-chan docstore.Snapshot
	Close()
}

type Decoder[T any] func(docstore.Snapshot) (T, error)

// View replaces its state wholesale with each snapshot it is given.
type View[T any] struct {
	mu      sync.RWMutex
	decode  Decoder[T]
	current T
	loaded  bool
}

func New[T any](decode Decoder[T]) *View[T] {
	return &View[T]{decode: decode}
}

func (v *View[T]) Apply(snap docstore.Snapshot) (T, error) {
	next, err := v.decode(snap)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("decode snapshot: %w", err)
	}
	v.mu.Lock()
	v.current = next
	v.loaded = true
	v.mu.Unlock()
	return next, nil
}

// Current returns the latest state and whether any snapshot has arrived.
func (v *View[T]) Current() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current, v.loaded
}

// Run applies every snapshot from src and calls render with the new state.
// It returns when ctx ends, src closes, decoding fails or render fails, and
// closes src on every one of those paths.
func (v *View[T]) Run(ctx context.Context, src Source, render func(T) error) error {
	defer src.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-src.Updates():
			if !ok {
				return nil
			}
			state, err := v.Apply(snap)
			if err != nil {
				return err
			}
			if render != nil {
				if err := render(state); err != nil {
					return err
				}
			}
		}
	}
}
