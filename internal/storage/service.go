// Package storage uploads data-URL images to blob storage and keeps a
// registry of the objects it hosts.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"backend-twitter/internal/db"
	"backend-twitter/internal/shared/apperr"
	"backend-twitter/internal/telemetry"

	"github.com/google/uuid"
	"github.com/vincent-petithory/dataurl"
)

type Service struct {
	db     db.Querier
	blob   Blob
	logger *slog.Logger
}

func NewService(db db.Querier, blob Blob, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, blob: blob, logger: logger}
}

// NewKey returns a fresh object key scoped to uid.
func NewKey(uid string) string {
	return uid + "/" + uuid.NewString()
}

// UploadDataURL decodes a data URL, stores it under key and returns its
// download URL.
func (s *Service) UploadDataURL(ctx context.Context, key, raw string) (string, error) {
	decoded, err := dataurl.DecodeString(raw)
	if err != nil {
		return "", apperr.Invalid("image", "invalid data url")
	}
	if len(decoded.Data) == 0 {
		return "", apperr.Invalid("image", "empty image")
	}

	err = s.blob.Put(ctx, key, decoded.MediaType.ContentType(), decoded.Data)
	telemetry.BlobOperations.WithLabelValues("upload", telemetry.Outcome(err)).Inc()
	if err != nil {
		s.logger.Error("blob upload failed", "key", key, "error", err)
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	url := s.blob.URL(key)
	if _, err := s.SaveObject(ctx, ownerOf(key), key, url, decoded.MediaType.ContentType()); err != nil {
		s.logger.Error("record blob failed", "key", key, "error", err)
		return "", err
	}
	return url, nil
}

// DeleteByURL removes a hosted object by its download URL.
func (s *Service) DeleteByURL(ctx context.Context, url string) error {
	key, ok := s.blob.KeyFromURL(url)
	if !ok {
		return apperr.Invalid("image", "not a hosted object")
	}

	err := s.blob.Remove(ctx, key)
	telemetry.BlobOperations.WithLabelValues("delete", telemetry.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM storage_objects WHERE object_key = $1`, key); err != nil {
		return err
	}
	return nil
}

// IsHosted reports whether url points into our blob storage.
func (s *Service) IsHosted(url string) bool {
	_, ok := s.blob.KeyFromURL(url)
	return ok
}

func (s *Service) SaveObject(ctx context.Context, userID, key, url, kind string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, object_key, url, kind)
		VALUES ($1,$2,$3,$4,$5)
	`, id, userID, key, url, kind)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ownerOf(key string) string {
	owner, _, _ := strings.Cut(key, "/")
	return owner
}
