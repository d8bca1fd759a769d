package i18n

import "github.com/gofiber/fiber/v2"

const localsKey = "translator"

// Middleware picks a translator from Accept-Language for each request.
func Middleware(fallback string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localsKey, Match(c.Get(fiber.HeaderAcceptLanguage), fallback))
		return c.Next()
	}
}

// From returns the request translator, or the Korean default when the
// middleware did not run.
func From(c *fiber.Ctx) *Translator {
	if tr, ok := c.Locals(localsKey).(*Translator); ok {
		return tr
	}
	return New("ko")
}
