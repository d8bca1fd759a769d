// Package i18n resolves user-visible text (toasts, inline errors, notification
// bodies) and the locale-formatted timestamps stored on documents.
package i18n

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	LoginSuccess        = "login.success"
	LoginInvalidEmail   = "login.invalid_email"
	LoginShortPassword  = "login.short_password"
	LoginRequired       = "login.required"
	SignupSuccess       = "signup.success"
	LogoutSuccess       = "logout.success"
	PostCreated         = "post.created"
	PostUpdated         = "post.updated"
	PostDeleted         = "post.deleted"
	PostContentRequired = "post.content_required"
	TagDuplicate        = "tag.duplicate"
	CommentCreated      = "comment.created"
	CommentDeleted      = "comment.deleted"
	CommentRequired     = "comment.required"
	ProfileUpdated      = "profile.updated"
	NotificationComment = "notification.comment"
	NotificationsEmpty  = "notification.empty"
)

var supported = []language.Tag{language.Korean, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.Korean: {
		LoginSuccess:        "성공적으로 로그인 되었습니다!",
		LoginInvalidEmail:   "이메일 형식이 올바르지 않습니다.",
		LoginShortPassword:  "비밀번호는 8자리 이상 입력해주세요.",
		LoginRequired:       "이메일과 비밀번호를 입력해주세요.",
		SignupSuccess:       "회원가입에 성공했습니다!",
		LogoutSuccess:       "로그아웃 되었습니다.",
		PostCreated:         "게시글을 생성했습니다!",
		PostUpdated:         "게시글을 수정했습니다!",
		PostDeleted:         "게시글을 삭제했습니다.",
		PostContentRequired: "내용을 입력해주세요.",
		TagDuplicate:        "같은 태그가 있습니다.",
		CommentCreated:      "댓글을 생성했습니다.",
		CommentDeleted:      "댓글을 삭제했습니다.",
		CommentRequired:     "댓글을 입력해주세요.",
		ProfileUpdated:      "프로필이 업데이트 되었습니다.",
		NotificationComment: "\"%s\" 글에 댓글이 작성되었습니다.",
		NotificationsEmpty:  "알림이 없습니다.",
	},
	language.English: {
		LoginSuccess:        "Signed in successfully!",
		LoginInvalidEmail:   "The email format is invalid.",
		LoginShortPassword:  "Please enter a password of at least 8 characters.",
		LoginRequired:       "Email and password are required.",
		SignupSuccess:       "Signed up successfully!",
		LogoutSuccess:       "Signed out.",
		PostCreated:         "Post created!",
		PostUpdated:         "Post updated!",
		PostDeleted:         "Post deleted.",
		PostContentRequired: "Please enter some content.",
		TagDuplicate:        "That tag already exists.",
		CommentCreated:      "Comment added.",
		CommentDeleted:      "Comment deleted.",
		CommentRequired:     "Please enter a comment.",
		ProfileUpdated:      "Profile updated.",
		NotificationComment: "A comment was added to \"%s\".",
		NotificationsEmpty:  "No notifications.",
	},
}

var builder = mustBuild()

func mustBuild() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Korean))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("i18n: register %s/%s: %v", tag, key, err))
			}
		}
	}
	return b
}

// Translator renders messages and timestamps for one locale.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a translator for locale, falling back to Korean.
func New(locale string) *Translator {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.Korean
	}
	matched, _, conf := matcher.Match(tag)
	if conf == language.No {
		matched = language.Korean
	}
	return newTranslator(matched)
}

// Match picks the best supported locale from an Accept-Language header,
// using fallback when the header is empty or unparseable.
func Match(acceptLanguage, fallback string) *Translator {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return New(fallback)
	}
	matched, _, conf := matcher.Match(tags...)
	if conf == language.No {
		return New(fallback)
	}
	return newTranslator(matched)
}

func newTranslator(tag language.Tag) *Translator {
	base, _ := tag.Base()
	canonical := language.Korean
	if base.String() == "en" {
		canonical = language.English
	}
	return &Translator{
		tag:     canonical,
		printer: message.NewPrinter(canonical, message.Catalog(builder)),
	}
}

func (t *Translator) Locale() string { return t.tag.String() }

func (t *Translator) T(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// FormatTimestamp renders t the way a browser's toLocaleDateString does with
// hour, minute and second fields enabled.
func (t *Translator) FormatTimestamp(ts time.Time) string {
	hour := ts.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	if t.tag == language.English {
		period := "AM"
		if ts.Hour() >= 12 {
			period = "PM"
		}
		return fmt.Sprintf("%d/%d/%d, %02d:%02d:%02d %s",
			int(ts.Month()), ts.Day(), ts.Year(), hour, ts.Minute(), ts.Second(), period)
	}
	period := "오전"
	if ts.Hour() >= 12 {
		period = "오후"
	}
	return fmt.Sprintf("%d. %d. %d. %s %02d:%02d:%02d",
		ts.Year(), int(ts.Month()), ts.Day(), period, hour, ts.Minute(), ts.Second())
}

// Truncate shortens s to n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
