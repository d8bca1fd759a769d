package auth

import (
	"context"
	"strings"

	"backend-twitter/internal/session"
	"backend-twitter/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTMiddleware validates bearer tokens, resolves their session and attaches
// it to the request. Websocket upgrades may pass the token as access_token.
func JWTMiddleware(secret string, sessions session.Store) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := requestToken(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		sess, err := authenticate(c.UserContext(), secretBytes, sessions, token)
		if err != nil {
			return apperr.Fiber(err)
		}
		session.Attach(c, sess)
		return c.Next()
	}
}

// OptionalMiddleware attaches a session when a valid token is present and
// otherwise lets the request through signed out.
func OptionalMiddleware(secret string, sessions session.Store) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		if token := requestToken(c); token != "" {
			if sess, err := authenticate(c.UserContext(), secretBytes, sessions, token); err == nil {
				session.Attach(c, sess)
			}
		}
		return c.Next()
	}
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

func authenticate(ctx context.Context, secret []byte, sessions session.Store, token string) (session.Session, error) {
	claims, err := parseClaims(secret, token)
	if err != nil {
		return session.Session{}, err
	}
	sess, err := sessions.Get(ctx, claims.ID)
	if err != nil {
		return session.Session{}, err
	}
	if sess.UID != claims.UserID {
		return session.Session{}, errTokenInvalid
	}
	return sess, nil
}

func parseClaims(secret []byte, token string) (*Claims, error) {
	parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, errTokenInvalid
	}
	return claims, nil
}

func requestToken(c *fiber.Ctx) string {
	if token := bearerFromHeader(c.Get(fiber.HeaderAuthorization)); token != "" {
		return token
	}
	return c.Query("access_token")
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
