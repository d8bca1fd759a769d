package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/option"
)

const gcsPublicBase = "https://storage.googleapis.com/"

type GCS struct {
	baseURL
	client *gcs.Client
	bucket string
	logger *slog.Logger
}

// NewGCS connects to Cloud Storage. A non-empty endpoint points the client
// at an emulator without credentials.
func NewGCS(ctx context.Context, bucket, endpoint string, logger *slog.Logger) (*GCS, error) {
	var opts []option.ClientOption
	base := gcsPublicBase + bucket
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
		base = endpoint + "/" + bucket
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCS{baseURL: baseURL(base), client: client, bucket: bucket, logger: logger}, nil
}

func (g *GCS) Put(ctx context.Context, key, contentType string, data []byte) error {
	return g.do(ctx, "put", key, func() error {
		w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
		w.ContentType = contentType
		if _, err := w.Write(data); err != nil {
			if closeErr := w.Close(); closeErr != nil {
				g.logger.Warn("close writer after error", "key", key, "error", closeErr)
			}
			return fmt.Errorf("write object: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close object writer: %w", err)
		}
		return nil
	})
}

func (g *GCS) Remove(ctx context.Context, key string) error {
	return g.do(ctx, "remove", key, func() error {
		err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return retry.Unrecoverable(err)
		}
		return err
	})
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) do(ctx context.Context, op, key string, fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Info("retrying blob operation", "op", op, "attempt", n, "key", key, "error", err)
		}),
	)
}
