package profile

import (
	"backend-twitter/internal/i18n"
	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		sess, _ := session.From(c)
		view, err := svc.View(c.UserContext(), sess.UID)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(view)
	})

	r.Put("/", authMiddleware, func(c *fiber.Ctx) error {
		var in EditInput
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		sess, _ := session.From(c)
		res, err := svc.Edit(c.UserContext(), i18n.From(c), sess, in)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(res)
	})

	r.Get("/:uid", func(c *fiber.Ctx) error {
		view, err := svc.View(c.UserContext(), c.Params("uid"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(view)
	})
}
