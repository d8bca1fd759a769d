// Package form validates the login form field by field.
package form

import (
	"fmt"
	"regexp"
	"unicode/utf16"

	"backend-twitter/internal/i18n"
	"backend-twitter/internal/shared/apperr"
)

const (
	FieldEmail    = "email"
	FieldPassword = "password"

	MinPasswordLength = 8
)

var emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)*$")

// FieldChange is one edit to a named form field.
type FieldChange struct {
	Name  string
	Value string
}

type LoginForm struct {
	Email    string
	Password string

	tr     *i18n.Translator
	errors map[string]string
}

func NewLoginForm(tr *i18n.Translator) *LoginForm {
	if tr == nil {
		tr = i18n.New("ko")
	}
	return &LoginForm{tr: tr, errors: map[string]string{}}
}

// Change applies one field edit and re-validates that field only.
func (f *LoginForm) Change(ch FieldChange) error {
	switch ch.Name {
	case FieldEmail:
		f.Email = ch.Value
		f.setError(FieldEmail, validEmail(f.Email), i18n.LoginInvalidEmail)
	case FieldPassword:
		f.Password = ch.Value
		f.setError(FieldPassword, validPassword(f.Password), i18n.LoginShortPassword)
	default:
		return fmt.Errorf("%w: unknown field %q", apperr.ErrInvalid, ch.Name)
	}
	return nil
}

// Error returns the inline message for field, or "" when it is valid.
func (f *LoginForm) Error(field string) string {
	return f.errors[field]
}

func (f *LoginForm) Errors() map[string]string {
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// CanSubmit is false while any field is empty or invalid.
func (f *LoginForm) CanSubmit() bool {
	return len(f.errors) == 0 && f.Email != "" && f.Password != ""
}

// Validate returns the first blocking problem as a validation error.
func (f *LoginForm) Validate() error {
	if f.Email == "" || f.Password == "" {
		return apperr.Invalid("", f.tr.T(i18n.LoginRequired))
	}
	for _, field := range []string{FieldEmail, FieldPassword} {
		if msg := f.errors[field]; msg != "" {
			return apperr.Invalid(field, msg)
		}
	}
	return nil
}

// LoginFrom builds a form from a complete submission.
func LoginFrom(tr *i18n.Translator, email, password string) *LoginForm {
	f := NewLoginForm(tr)
	_ = f.Change(FieldChange{Name: FieldEmail, Value: email})
	_ = f.Change(FieldChange{Name: FieldPassword, Value: password})
	return f
}

func (f *LoginForm) setError(field string, ok bool, key string) {
	if ok {
		delete(f.errors, field)
		return
	}
	f.errors[field] = f.tr.T(key)
}

func validEmail(v string) bool {
	return emailPattern.MatchString(v)
}

// validPassword measures length in UTF-16 code units, as browsers report
// a string's length, so a character outside the BMP counts twice.
func validPassword(v string) bool {
	return len(utf16.Encode([]rune(v))) >= MinPasswordLength
}
