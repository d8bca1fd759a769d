package auth

import (
	"backend-twitter/internal/form"
	"backend-twitter/internal/i18n"
	"backend-twitter/internal/routes"
	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/register", func(c *fiber.Ctx) error {
		tr := i18n.From(c)
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if err := form.LoginFrom(tr, req.Email, req.Password).Validate(); err != nil {
			return apperr.Fiber(err)
		}
		user, tokens, err := svc.Register(c.UserContext(), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"user":     user,
			"tokens":   tokens,
			"message":  tr.T(i18n.SignupSuccess),
			"redirect": routes.Home,
		})
	})

	r.Post("/login", func(c *fiber.Ctx) error {
		tr := i18n.From(c)
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, tr.T(i18n.LoginRequired))
		}
		if err := form.LoginFrom(tr, req.Email, req.Password).Validate(); err != nil {
			return apperr.Fiber(err)
		}
		user, tokens, err := svc.SignIn(c.UserContext(), req)
		if err != nil {
			if apperr.Status(err) == fiber.StatusInternalServerError {
				svc.logger.Error("sign in failed", "error", err)
			}
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{
			"user":     user,
			"tokens":   tokens,
			"message":  tr.T(i18n.LoginSuccess),
			"redirect": routes.Home,
		})
	})

	r.Post("/refresh", func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "refresh_token required")
		}

		resp, err := svc.Refresh(c.UserContext(), req.RefreshToken)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(resp)
	})

	r.Post("/logout", authMiddleware, func(c *fiber.Ctx) error {
		sess, _ := session.From(c)
		if err := svc.SignOut(c.UserContext(), sess); err != nil {
			svc.logger.Error("sign out failed", "session_id", sess.ID, "error", err)
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{
			"message":  i18n.From(c).T(i18n.LogoutSuccess),
			"redirect": routes.Login,
		})
	})

	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		sess, _ := session.From(c)
		user, err := svc.GetUser(c.UserContext(), sess.UID)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(user)
	})

	r.Get("/jwt/verify", func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		sess, err := svc.Authenticate(c.UserContext(), token)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"user_id": sess.UID, "session_id": sess.ID})
	})
}
