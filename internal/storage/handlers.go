package storage

import (
	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

type UploadRequest struct {
	DataURL string `json:"data_url"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		sess, ok := session.From(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		var body UploadRequest
		if err := c.BodyParser(&body); err != nil || body.DataURL == "" {
			return fiber.NewError(fiber.StatusBadRequest, "data_url required")
		}
		key := NewKey(sess.UID)
		url, err := svc.UploadDataURL(c.UserContext(), key, body.DataURL)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"key": key,
			"url": url,
		})
	})

	// Objects held in process are served directly.
	if mem, ok := svc.blob.(*Memory); ok {
		r.Get("/objects/*", func(c *fiber.Ctx) error {
			data, contentType, found := mem.Get(c.Params("*"))
			if !found {
				return fiber.ErrNotFound
			}
			c.Set(fiber.HeaderContentType, contentType)
			return c.Send(data)
		})
	}
}
