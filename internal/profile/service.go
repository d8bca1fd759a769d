// Package profile shows a user's profile with their posts and edits the
// display name and photo.
package profile

import (
	"context"
	"log/slog"
	"strings"

	"backend-twitter/internal/auth"
	"backend-twitter/internal/i18n"
	"backend-twitter/internal/post"
	"backend-twitter/internal/routes"
	"backend-twitter/internal/session"
	"backend-twitter/internal/storage"
)

type Users interface {
	GetUser(ctx context.Context, id string) (auth.User, error)
	UpdateProfile(ctx context.Context, uid string, update auth.ProfileUpdate) (auth.User, error)
}

type Images interface {
	UploadDataURL(ctx context.Context, key, dataURL string) (string, error)
	DeleteByURL(ctx context.Context, url string) error
	IsHosted(url string) bool
}

type Posts interface {
	List(ctx context.Context, in post.ListInput) ([]post.Post, error)
}

type EditInput struct {
	DisplayName     string `json:"displayName"`
	NewImageDataURL string `json:"newImageDataUrl"`
	RemoveImage     bool   `json:"removeImage"`
}

type Result struct {
	User     auth.User `json:"user"`
	Message  string    `json:"message"`
	Redirect string    `json:"redirect"`
}

type View struct {
	User  auth.User   `json:"user"`
	Posts []post.Post `json:"posts"`
}

type Service struct {
	users  Users
	images Images
	posts  Posts
	logger *slog.Logger
}

func NewService(users Users, images Images, posts Posts, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, images: images, posts: posts, logger: logger}
}

func (s *Service) View(ctx context.Context, uid string) (View, error) {
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return View{}, err
	}
	posts, err := s.posts.List(ctx, post.ListInput{AuthorID: uid})
	if err != nil {
		return View{}, err
	}
	return View{User: user, Posts: posts}, nil
}

// Edit updates the display name. The photo changes only on a new image or
// RemoveImage. Once the profile is updated the previous photo is deleted,
// only when our storage hosts it; a failed delete is logged and ignored.
func (s *Service) Edit(ctx context.Context, tr *i18n.Translator, sess session.Session, in EditInput) (Result, error) {
	current, err := s.users.GetUser(ctx, sess.UID)
	if err != nil {
		return Result{}, err
	}

	name := strings.TrimSpace(in.DisplayName)
	update := auth.ProfileUpdate{DisplayName: &name}

	switch {
	case in.NewImageDataURL != "":
		url, err := s.images.UploadDataURL(ctx, storage.NewKey(sess.UID), in.NewImageDataURL)
		if err != nil {
			s.logger.Error("upload profile photo failed", "uid", sess.UID, "error", err)
			return Result{}, err
		}
		update.PhotoURL = &url
	case in.RemoveImage && current.PhotoURL != "":
		empty := ""
		update.PhotoURL = &empty
	}

	user, err := s.users.UpdateProfile(ctx, sess.UID, update)
	if err != nil {
		s.logger.Error("update profile failed", "uid", sess.UID, "error", err)
		if in.NewImageDataURL != "" {
			s.deletePhoto(ctx, auth.User{ID: sess.UID, PhotoURL: *update.PhotoURL})
		}
		return Result{}, err
	}
	if update.PhotoURL != nil {
		s.deletePhoto(ctx, current)
	}
	return Result{User: user, Message: tr.T(i18n.ProfileUpdated), Redirect: routes.Profile}, nil
}

func (s *Service) deletePhoto(ctx context.Context, user auth.User) {
	if user.PhotoURL == "" || !s.images.IsHosted(user.PhotoURL) {
		return
	}
	if err := s.images.DeleteByURL(ctx, user.PhotoURL); err != nil {
		s.logger.Warn("delete profile photo failed", "uid", user.ID, "url", user.PhotoURL, "error", err)
	}
}
