package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-twitter/internal/i18n"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func newTestApp(svc *Service) *fiber.App {
	app := fiber.New()
	app.Use(i18n.Middleware("ko"))
	RegisterRoutes(app.Group("/auth"), svc, JWTMiddleware("secret", svc.Sessions()))
	return app
}

func jsonRequest(method, path string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func TestAuthHandlersRegisterLoginVerify(t *testing.T) {
	mock, svc := newTestService(t)
	app := newTestApp(svc)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "user@example.com", pgxmock.AnyArg(), "Alice").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	expectRefreshInsert(mock)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/register", RegisterRequest{Email: "user@example.com", Password: "password1", DisplayName: "Alice"}))
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %v %d", err, resp.StatusCode)
	}

	mock.ExpectQuery(`FROM users WHERE email`).
		WithArgs("user@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("u1", "user@example.com", "Alice", "", hashOf(t, "password1"), now, now))
	expectRefreshInsert(mock)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/auth/login", LoginRequest{Email: "user@example.com", Password: "password1"}))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %v", err)
	}
	var out struct {
		Tokens   TokenResponse `json:"tokens"`
		Message  string        `json:"message"`
		Redirect string        `json:"redirect"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Message != "성공적으로 로그인 되었습니다!" || out.Redirect != "/" {
		t.Fatalf("unexpected login response %+v", out)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/jwt/verify", nil)
	req.Header.Set("Authorization", "Bearer "+out.Tokens.AccessToken)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status: %v", err)
	}
}

func TestAuthLoginInlineValidation(t *testing.T) {
	_, svc := newTestService(t)
	app := newTestApp(svc)

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/login", LoginRequest{Email: "bad", Password: "password1"}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", resp.StatusCode)
	}
	if got := readBody(t, resp); got != "이메일 형식이 올바르지 않습니다." {
		t.Fatalf("unexpected message %q", got)
	}

	req := jsonRequest(http.MethodPost, "/auth/login", LoginRequest{Email: "user@example.com", Password: "short"})
	req.Header.Set("Accept-Language", "en")
	resp, _ = app.Test(req)
	if got := readBody(t, resp); resp.StatusCode != http.StatusBadRequest || got != "Please enter a password of at least 8 characters." {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, got)
	}
}

func TestAuthLoginUnauthorized(t *testing.T) {
	mock, svc := newTestService(t)
	app := newTestApp(svc)

	mock.ExpectQuery(`FROM users WHERE email`).
		WithArgs("user@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns))

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/login", LoginRequest{Email: "user@example.com", Password: "password1"}))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", resp.StatusCode)
	}
}

func TestAuthLogoutAndMe(t *testing.T) {
	mock, svc := newTestService(t)
	app := newTestApp(svc)
	ctx := context.Background()
	now := time.Now()

	sess, _ := svc.Sessions().Start(ctx, "u1", "user@example.com")
	token, _ := svc.signToken(sess, accessTokenTTL)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("u1", "user@example.com", "Alice", "", "hash", now, now))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status %d", resp.StatusCode)
	}
	if body := readBody(t, resp); bytes.Contains([]byte(body), []byte("hash")) {
		t.Fatalf("password hash leaked: %s", body)
	}

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at`).
		WithArgs(sess.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status %d", resp.StatusCode)
	}
	if _, err := svc.Sessions().Get(ctx, sess.ID); err == nil {
		t.Fatalf("expected session ended")
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized after logout, got %d", resp.StatusCode)
	}
}

func TestAuthRegisterBadPayload(t *testing.T) {
	_, svc := newTestService(t)
	app := newTestApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestAuthRefreshBadRequest(t *testing.T) {
	_, svc := newTestService(t)
	app := newTestApp(svc)

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/refresh", RefreshRequest{}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}

	resp, _ = app.Test(jsonRequest(http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: "bad"}))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized")
	}
}

func TestAuthVerifyMissingBearer(t *testing.T) {
	_, svc := newTestService(t)
	app := newTestApp(svc)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/auth/jwt/verify", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized")
	}
}
