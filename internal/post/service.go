// Package post implements creating, editing, deleting and commenting on
// posts, including their hashtags and optional image.
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"backend-twitter/internal/docstore"
	"backend-twitter/internal/events"
	"backend-twitter/internal/i18n"
	"backend-twitter/internal/routes"
	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"
	"backend-twitter/internal/storage"
	"backend-twitter/internal/tags"
)

// Documents is the slice of the document store posts need.
type Documents interface {
	Add(ctx context.Context, collection string, data any) (string, error)
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	ArrayUnion(ctx context.Context, collection, id, field string, values ...any) error
	ArrayRemove(ctx context.Context, collection, id, field string, values ...any) error
	Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error)
}

type Images interface {
	UploadDataURL(ctx context.Context, key, dataURL string) (string, error)
	DeleteByURL(ctx context.Context, url string) error
}

type Service struct {
	docs   Documents
	images Images
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(docs Documents, images Images, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NewDirect(nil)
	}
	return &Service{docs: docs, images: images, events: publisher, logger: logger, now: time.Now}
}

func (s *Service) Create(ctx context.Context, tr *i18n.Translator, sess session.Session, in CreateInput) (Result, error) {
	content, hashTags, err := validate(tr, in.Content, in.HashTags)
	if err != nil {
		return Result{}, err
	}

	p := Post{
		Content:   content,
		UID:       sess.UID,
		Email:     sess.Email,
		CreatedAt: tr.FormatTimestamp(s.now()),
		HashTags:  hashTags,
	}
	if in.ImageDataURL != "" {
		url, err := s.images.UploadDataURL(ctx, storage.NewKey(sess.UID), in.ImageDataURL)
		if err != nil {
			s.logger.Error("upload post image failed", "uid", sess.UID, "error", err)
			return Result{}, err
		}
		p.ImageURL = url
	}

	id, err := s.docs.Add(ctx, Collection, p.fields())
	if err != nil {
		s.logger.Error("create post failed", "uid", sess.UID, "error", err)
		return Result{}, err
	}
	p.ID = id
	return Result{Post: p, Message: tr.T(i18n.PostCreated), Redirect: routes.Home}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		return Post{}, err
	}
	return fromDoc(doc)
}

// List returns posts newest first, optionally by one author or hashtag.
func (s *Service) List(ctx context.Context, in ListInput) ([]Post, error) {
	q := docstore.Query{
		Collection: Collection,
		OrderBy:    &docstore.Order{Field: docstore.FieldCreateTime, Desc: true},
		Limit:      in.Limit,
	}
	if in.AuthorID != "" {
		q.Filters = append(q.Filters, docstore.Where("uid", in.AuthorID))
	}
	if in.HashTag != "" {
		q.Filters = append(q.Filters, docstore.ArrayContains("hashTags", in.HashTag))
	}

	docs, err := s.docs.Query(ctx, q)
	if err != nil {
		s.logger.Error("list posts failed", "error", err)
		return nil, err
	}
	posts := make([]Post, 0, len(docs))
	for _, doc := range docs {
		p, err := fromDoc(doc)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Edit updates content and hashtags. The image fields are written only when
// the image changes: a new image is uploaded, RemoveImage clears it. The old
// blob is deleted once the post no longer references it; a failed delete is
// logged and does not fail the edit.
func (s *Service) Edit(ctx context.Context, tr *i18n.Translator, sess session.Session, in EditInput) (Result, error) {
	p, err := s.owned(ctx, sess, in.ID)
	if err != nil {
		return Result{}, err
	}
	content, hashTags, err := validate(tr, in.Content, in.HashTags)
	if err != nil {
		return Result{}, err
	}

	fields := map[string]any{
		"content":  content,
		"hashTags": hashTags,
	}
	previous := p
	switch {
	case in.NewImageDataURL != "":
		url, err := s.images.UploadDataURL(ctx, storage.NewKey(sess.UID), in.NewImageDataURL)
		if err != nil {
			s.logger.Error("upload post image failed", "post_id", p.ID, "error", err)
			return Result{}, err
		}
		fields["imageUrl"] = url
		p.ImageURL = url
	case in.RemoveImage && p.ImageURL != "":
		fields["imageUrl"] = ""
		p.ImageURL = ""
	}

	if err := s.docs.Update(ctx, Collection, p.ID, fields); err != nil {
		s.logger.Error("update post failed", "post_id", p.ID, "error", err)
		if p.ImageURL != previous.ImageURL {
			s.deleteImage(ctx, p)
		}
		return Result{}, err
	}
	if p.ImageURL != previous.ImageURL {
		s.deleteImage(ctx, previous)
	}
	p.Content = content
	p.HashTags = hashTags
	return Result{Post: p, Message: tr.T(i18n.PostUpdated), Redirect: routes.PostDetailPath(p.ID)}, nil
}

func (s *Service) Delete(ctx context.Context, tr *i18n.Translator, sess session.Session, id string) (Result, error) {
	p, err := s.owned(ctx, sess, id)
	if err != nil {
		return Result{}, err
	}
	s.deleteImage(ctx, p)
	if err := s.docs.Delete(ctx, Collection, id); err != nil {
		s.logger.Error("delete post failed", "post_id", id, "error", err)
		return Result{}, err
	}
	return Result{Post: p, Message: tr.T(i18n.PostDeleted), Redirect: routes.Home}, nil
}

// AddComment appends a comment. Commenting on someone else's post emits a
// comment event; a failed publish is logged and the comment stays.
func (s *Service) AddComment(ctx context.Context, tr *i18n.Translator, sess session.Session, in CommentInput) (Result, error) {
	text := strings.TrimSpace(in.Comment)
	if text == "" {
		return Result{}, apperr.Invalid("comment", tr.T(i18n.CommentRequired))
	}
	p, err := s.Get(ctx, in.PostID)
	if err != nil {
		return Result{}, err
	}

	c := Comment{Comment: text, UID: sess.UID, Email: sess.Email, CreatedAt: tr.FormatTimestamp(s.now())}
	if err := s.docs.ArrayUnion(ctx, Collection, p.ID, "comments", c); err != nil {
		s.logger.Error("add comment failed", "post_id", p.ID, "error", err)
		return Result{}, err
	}
	p.Comments = append(p.Comments, c)

	if p.UID != sess.UID {
		ev := events.CommentCreated{
			PostID:      p.ID,
			PostOwner:   p.UID,
			PostContent: p.Content,
			CommenterID: sess.UID,
			CreatedAt:   s.now(),
		}
		if err := s.events.PublishCommentCreated(ctx, ev); err != nil {
			s.logger.Error("publish comment event failed", "post_id", p.ID, "error", err)
		}
	}
	return Result{Post: p, Message: tr.T(i18n.CommentCreated)}, nil
}

// DeleteComment removes one of the caller's own comments.
func (s *Service) DeleteComment(ctx context.Context, tr *i18n.Translator, sess session.Session, postID string, c Comment) (Result, error) {
	p, err := s.Get(ctx, postID)
	if err != nil {
		return Result{}, err
	}
	found := -1
	for i, existing := range p.Comments {
		if existing == c {
			found = i
			break
		}
	}
	if found < 0 {
		return Result{}, fmt.Errorf("%w: comment", apperr.ErrNotFound)
	}
	if c.UID != sess.UID {
		return Result{}, fmt.Errorf("%w: not the comment author", apperr.ErrForbidden)
	}

	if err := s.docs.ArrayRemove(ctx, Collection, p.ID, "comments", c); err != nil {
		s.logger.Error("delete comment failed", "post_id", p.ID, "error", err)
		return Result{}, err
	}
	p.Comments = append(p.Comments[:found], p.Comments[found+1:]...)
	return Result{Post: p, Message: tr.T(i18n.CommentDeleted)}, nil
}

func (s *Service) owned(ctx context.Context, sess session.Session, id string) (Post, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if p.UID != sess.UID {
		return Post{}, fmt.Errorf("%w: not the post author", apperr.ErrForbidden)
	}
	return p, nil
}

func (s *Service) deleteImage(ctx context.Context, p Post) {
	if p.ImageURL == "" {
		return
	}
	if err := s.images.DeleteByURL(ctx, p.ImageURL); err != nil {
		s.logger.Warn("delete post image failed", "post_id", p.ID, "url", p.ImageURL, "error", err)
	}
}

func validate(tr *i18n.Translator, content string, hashTags []string) (string, []string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil, apperr.Invalid("content", tr.T(i18n.PostContentRequired))
	}
	editor, err := tags.FromList(hashTags)
	if err != nil {
		return "", nil, apperr.Invalid("hashTags", tr.T(i18n.TagDuplicate))
	}
	return content, editor.Tags(), nil
}
