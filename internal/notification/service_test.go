package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-twitter/internal/docstore"
	"backend-twitter/internal/docstore/docstoretest"
	"backend-twitter/internal/events"
	"backend-twitter/internal/i18n"
	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func newTestService() (*Service, *docstoretest.Store) {
	docs := docstoretest.New()
	svc := NewService(docs, i18n.New("ko"), nil)
	svc.now = func() time.Time { return time.Date(2023, 10, 9, 9, 0, 0, 0, time.UTC) }
	return svc, docs
}

func TestCommentEventCreatesNotification(t *testing.T) {
	svc, docs := newTestService()

	err := svc.HandleCommentEvent(context.Background(), events.CommentCreated{
		PostID:      "p1",
		PostOwner:   "alice",
		PostContent: "오늘 날씨가 정말 좋네요 산책 가요",
		CommenterID: "bob",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	list, err := svc.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one notification, got %d", len(list))
	}
	n := list[0]
	if n.URL != "/posts/p1" || n.IsRead || n.CreatedAt != "2023. 10. 9. 오전 09:00:00" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.Content != "\"오늘 날씨가 정말 ...\" 글에 댓글이 작성되었습니다." {
		t.Fatalf("unexpected content %q", n.Content)
	}
	if stored := docs.Doc(Collection, n.ID); stored["uid"] != "alice" {
		t.Fatalf("unexpected stored doc %v", stored)
	}
}

func TestSelfCommentIgnored(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.HandleCommentEvent(context.Background(), events.CommentCreated{PostID: "p1", PostOwner: "alice", CommenterID: "alice"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if list, _ := svc.List(context.Background(), "alice"); len(list) != 0 {
		t.Fatalf("expected no notification")
	}
}

func TestListNewestFirstForRecipientOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, n := range []Notification{
		{UID: "alice", Content: "first"},
		{UID: "bob", Content: "other"},
		{UID: "alice", Content: "second"},
	} {
		if _, err := svc.Create(ctx, n); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, _ := svc.List(ctx, "alice")
	if len(list) != 2 || list[0].Content != "second" || list[1].Content != "first" {
		t.Fatalf("unexpected order %+v", list)
	}

	if _, err := svc.Create(ctx, Notification{Content: "no recipient"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	svc, docs := newTestService()
	ctx := context.Background()
	n, _ := svc.Create(ctx, Notification{UID: "alice", URL: "/posts/p1"})

	if _, err := svc.MarkRead(ctx, session.Session{UID: "bob"}, n.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	read, err := svc.MarkRead(ctx, session.Session{UID: "alice"}, n.ID)
	if err != nil || !read.IsRead {
		t.Fatalf("mark read: %+v %v", read, err)
	}
	if docs.Doc(Collection, n.ID)["isRead"] != true {
		t.Fatalf("expected isRead persisted")
	}

	if _, err := svc.MarkRead(ctx, session.Session{UID: "alice"}, n.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if len(docs.Updates) != 1 {
		t.Fatalf("expected a single write, got %d", len(docs.Updates))
	}
}

func TestListQueryAndDecode(t *testing.T) {
	q := ListQuery("alice")
	if q.Collection != Collection || q.OrderBy == nil || !q.OrderBy.Desc || q.OrderBy.Field != docstore.FieldCreateTime {
		t.Fatalf("unexpected query %+v", q)
	}
	list, err := DecodeList(docstore.Snapshot{Docs: []docstore.Document{{ID: "n1", Data: map[string]any{"uid": "alice", "isRead": true}}}})
	if err != nil || len(list) != 1 || list[0].ID != "n1" || !list[0].IsRead {
		t.Fatalf("unexpected decode %+v %v", list, err)
	}
}

func TestNotificationHandlers(t *testing.T) {
	svc, _ := newTestService()
	n, _ := svc.Create(context.Background(), Notification{UID: "alice", URL: "/posts/p1", Content: "hi"})

	app := fiber.New()
	RegisterRoutes(app.Group("/notifications"), svc, func(c *fiber.Ctx) error {
		session.Attach(c, session.Session{ID: "s1", UID: "alice"})
		return c.Next()
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/notifications", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %v", err)
	}
	var list []Notification
	_ = json.NewDecoder(resp.Body).Decode(&list)
	if len(list) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodPost, "/notifications/"+n.ID+"/read", nil))
	var out struct {
		Notification Notification `json:"notification"`
		Redirect     string       `json:"redirect"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK || !out.Notification.IsRead || out.Redirect != "/posts/p1" {
		t.Fatalf("unexpected read response %d %+v", resp.StatusCode, out)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodPost, "/notifications/missing/read", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", resp.StatusCode)
	}
}
