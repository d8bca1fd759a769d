// Package notification stores per-user notifications, turns comment events
// into them and marks them read.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backend-twitter/internal/docstore"
	"backend-twitter/internal/events"
	"backend-twitter/internal/i18n"
	"backend-twitter/internal/routes"
	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"
)

const (
	Collection = "notifications"

	previewLength = 10
)

type Notification struct {
	ID        string `json:"id"`
	UID       string `json:"uid"`
	URL       string `json:"url"`
	IsRead    bool   `json:"isRead"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type Documents interface {
	Add(ctx context.Context, collection string, data any) (string, error)
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error)
}

type Service struct {
	docs   Documents
	tr     *i18n.Translator
	logger *slog.Logger
	now    func() time.Time
}

// NewService renders generated notification text with tr.
func NewService(docs Documents, tr *i18n.Translator, logger *slog.Logger) *Service {
	if tr == nil {
		tr = i18n.New("ko")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, tr: tr, logger: logger, now: time.Now}
}

func (s *Service) Create(ctx context.Context, n Notification) (Notification, error) {
	if n.UID == "" {
		return Notification{}, apperr.Invalid("uid", "recipient required")
	}
	if n.CreatedAt == "" {
		n.CreatedAt = s.tr.FormatTimestamp(s.now())
	}
	id, err := s.docs.Add(ctx, Collection, map[string]any{
		"uid":       n.UID,
		"url":       n.URL,
		"isRead":    n.IsRead,
		"content":   n.Content,
		"createdAt": n.CreatedAt,
	})
	if err != nil {
		s.logger.Error("create notification failed", "uid", n.UID, "error", err)
		return Notification{}, err
	}
	n.ID = id
	return n, nil
}

// ListQuery selects uid's notifications, newest first.
func ListQuery(uid string) docstore.Query {
	return docstore.Query{
		Collection: Collection,
		Filters:    []docstore.Filter{docstore.Where("uid", uid)},
		OrderBy:    &docstore.Order{Field: docstore.FieldCreateTime, Desc: true},
	}
}

func (s *Service) List(ctx context.Context, uid string) ([]Notification, error) {
	docs, err := s.docs.Query(ctx, ListQuery(uid))
	if err != nil {
		s.logger.Error("list notifications failed", "uid", uid, "error", err)
		return nil, err
	}
	return decodeAll(docs)
}

// MarkRead flags one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, sess session.Session, id string) (Notification, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		return Notification{}, err
	}
	n, err := fromDoc(doc)
	if err != nil {
		return Notification{}, err
	}
	if n.UID != sess.UID {
		return Notification{}, fmt.Errorf("%w: not the recipient", apperr.ErrForbidden)
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.docs.Update(ctx, Collection, id, map[string]any{"isRead": true}); err != nil {
		s.logger.Error("mark notification read failed", "notification_id", id, "error", err)
		return Notification{}, err
	}
	n.IsRead = true
	return n, nil
}

// HandleCommentEvent notifies the post owner about a new comment.
func (s *Service) HandleCommentEvent(ctx context.Context, ev events.CommentCreated) error {
	if ev.PostOwner == "" || ev.PostOwner == ev.CommenterID {
		return nil
	}
	at := ev.CreatedAt
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.Create(ctx, Notification{
		UID:       ev.PostOwner,
		URL:       routes.PostDetailPath(ev.PostID),
		Content:   s.tr.T(i18n.NotificationComment, i18n.Truncate(ev.PostContent, previewLength)),
		CreatedAt: s.tr.FormatTimestamp(at),
	})
	return err
}

// DecodeList turns a query snapshot into notifications in snapshot order.
func DecodeList(snap docstore.Snapshot) ([]Notification, error) {
	return decodeAll(snap.Docs)
}

func decodeAll(docs []docstore.Document) ([]Notification, error) {
	out := make([]Notification, 0, len(docs))
	for _, doc := range docs {
		n, err := fromDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func fromDoc(doc docstore.Document) (Notification, error) {
	var n Notification
	if err := doc.DataTo(&n); err != nil {
		return Notification{}, err
	}
	n.ID = doc.ID
	return n, nil
}
