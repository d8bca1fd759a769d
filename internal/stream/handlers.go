// Package stream pushes live views to websocket clients: a post detail page
// and the signed-in user's notification list.
package stream

import (
	"context"
	"log/slog"

	"backend-twitter/internal/docstore"
	"backend-twitter/internal/liveview"
	"backend-twitter/internal/notification"
	"backend-twitter/internal/post"
	"backend-twitter/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type Subscriber interface {
	SubscribeDoc(ctx context.Context, collection, id string) *docstore.Subscription
	SubscribeQuery(ctx context.Context, q docstore.Query) *docstore.Subscription
}

func RegisterRoutes(r fiber.Router, subs Subscriber, authMiddleware fiber.Handler, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	r.Get("/posts/:id", websocket.New(func(c *websocket.Conn) {
		id := c.Params("id")
		serve(c, logger, func(ctx context.Context) *docstore.Subscription {
			return subs.SubscribeDoc(ctx, post.Collection, id)
		}, post.DecodeDetail)
	}))

	r.Get("/notifications", authMiddleware, websocket.New(func(c *websocket.Conn) {
		sess, ok := c.Locals(session.LocalsKey).(session.Session)
		if !ok {
			return
		}
		serve(c, logger, func(ctx context.Context) *docstore.Subscription {
			return subs.SubscribeQuery(ctx, notification.ListQuery(sess.UID))
		}, notification.DecodeList)
	}))
}

// serve renders every snapshot to the client until either side stops. The
// subscription is released when the client disconnects or a write fails.
func serve[T any](c *websocket.Conn, logger *slog.Logger, subscribe func(context.Context) *docstore.Subscription, decode liveview.Decoder[T]) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	view := liveview.New(decode)
	err := view.Run(ctx, subscribe(ctx), func(state T) error {
		return c.WriteJSON(state)
	})
	if err != nil {
		logger.Debug("live view stopped", "error", err)
	}
}
