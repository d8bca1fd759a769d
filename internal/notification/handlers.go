package notification

import (
	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		sess, _ := session.From(c)
		list, err := svc.List(c.UserContext(), sess.UID)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(list)
	})

	r.Post("/:id/read", authMiddleware, func(c *fiber.Ctx) error {
		sess, _ := session.From(c)
		n, err := svc.MarkRead(c.UserContext(), sess, c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"notification": n, "redirect": n.URL})
	})
}
