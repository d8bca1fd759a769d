package liveview

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-twitter/internal/docstore"
)

type fakeSource struct {
	ch     chan docstore.Snapshot
	closed int
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan docstore.Snapshot, 4)}
}

func (f *fakeSource) Updates() <-chan docstore.Snapshot { return f.ch }
func (f *fakeSource) Close()                            { f.closed++ }

func contentOf(s docstore.Snapshot) (string, error) {
	doc, ok := s.Doc()
	if !ok {
		return "", nil
	}
	content, ok := doc.Data["content"].(string)
	if !ok {
		return "", errors.New("content missing")
	}
	return content, nil
}

func snapshot(content string) docstore.Snapshot {
	return docstore.Snapshot{Docs: []docstore.Document{{ID: "p1", Data: map[string]any{"content": content}}}}
}

func TestSecondSnapshotReplacesFirst(t *testing.T) {
	src := newFakeSource()
	src.ch <- snapshot("first")
	src.ch <- snapshot("second")
	close(src.ch)

	view := New(contentOf)
	var rendered []string
	if err := view.Run(context.Background(), src, func(s string) error {
		rendered = append(rendered, s)
		return nil
	}); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, ok := view.Current()
	if !ok || got != "second" {
		t.Fatalf("expected second snapshot only, got %q", got)
	}
	if len(rendered) != 2 || rendered[1] != "second" {
		t.Fatalf("unexpected renders %v", rendered)
	}
	if src.closed != 1 {
		t.Fatalf("expected source closed once, got %d", src.closed)
	}
}

func TestRunClosesOnCancel(t *testing.T) {
	src := newFakeSource()
	view := New(contentOf)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- view.Run(ctx, src, nil) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop on cancel")
	}
	if src.closed != 1 {
		t.Fatalf("expected source closed on cancel")
	}
	if _, ok := view.Current(); ok {
		t.Fatalf("expected no state before first snapshot")
	}
}

func TestRunClosesOnDecodeError(t *testing.T) {
	src := newFakeSource()
	src.ch <- docstore.Snapshot{Docs: []docstore.Document{{ID: "p1", Data: map[string]any{}}}}

	err := New(contentOf).Run(context.Background(), src, nil)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if src.closed != 1 {
		t.Fatalf("expected source closed on error")
	}
}

func TestRunClosesOnRenderError(t *testing.T) {
	src := newFakeSource()
	src.ch <- snapshot("x")
	boom := errors.New("write failed")

	err := New(contentOf).Run(context.Background(), src, func(string) error { return boom })
	if !errors.Is(err, boom) || src.closed != 1 {
		t.Fatalf("expected render error and closed source, got %v closed=%d", err, src.closed)
	}
}
