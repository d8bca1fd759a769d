package i18n

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestKoreanIsDefault(t *testing.T) {
	tr := New("")
	if tr.Locale() != "ko" {
		t.Fatalf("expected ko, got %s", tr.Locale())
	}
	if got := tr.T(TagDuplicate); got != "같은 태그가 있습니다." {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestMatchAcceptLanguage(t *testing.T) {
	tr := Match("en-US,en;q=0.9,ko;q=0.5", "ko")
	if tr.Locale() != "en" {
		t.Fatalf("expected en, got %s", tr.Locale())
	}
	if got := tr.T(PostCreated); got != "Post created!" {
		t.Fatalf("unexpected message: %q", got)
	}

	if Match("", "en").Locale() != "en" {
		t.Fatalf("expected fallback locale")
	}
	if Match("fr-FR", "ko").Locale() != "ko" {
		t.Fatalf("unsupported language should fall back to ko")
	}
	if Match("de-DE,de;q=0.9", "en").Locale() != "en" {
		t.Fatalf("unsupported language should use the configured fallback")
	}
}

func TestNewUnsupportedLocale(t *testing.T) {
	for _, locale := range []string{"fr", "de-DE", "ja", "not a tag"} {
		if got := New(locale).Locale(); got != "ko" {
			t.Fatalf("New(%q) = %s, want ko", locale, got)
		}
	}
	if got := New("en-GB").Locale(); got != "en" {
		t.Fatalf("New(en-GB) = %s, want en", got)
	}
}

func TestMessageArguments(t *testing.T) {
	got := New("ko").T(NotificationComment, "hello")
	if got != "\"hello\" 글에 댓글이 작성되었습니다." {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2023, time.October, 9, 15, 4, 5, 0, time.UTC)
	if got := New("ko").FormatTimestamp(ts); got != "2023. 10. 9. 오후 03:04:05" {
		t.Fatalf("unexpected ko timestamp: %q", got)
	}
	if got := New("en").FormatTimestamp(ts); got != "10/9/2023, 03:04:05 PM" {
		t.Fatalf("unexpected en timestamp: %q", got)
	}
	midnight := time.Date(2024, time.January, 1, 0, 30, 0, 0, time.UTC)
	if got := New("ko").FormatTimestamp(midnight); got != "2024. 1. 1. 오전 12:30:00" {
		t.Fatalf("unexpected midnight timestamp: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if Truncate("짧은글", 10) != "짧은글" {
		t.Fatalf("short string should be unchanged")
	}
	if got := Truncate("가나다라마바사아자차카", 10); got != "가나다라마바사아자차..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware("ko"))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(From(c).Locale())
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "en" {
		t.Fatalf("expected en, got %s", body)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/", nil))
	body, _ = io.ReadAll(resp.Body)
	if string(body) != "ko" {
		t.Fatalf("expected ko fallback, got %s", body)
	}
}
