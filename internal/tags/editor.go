// Package tags implements the hashtag editor used by the post forms.
package tags

import (
	"errors"
	"fmt"
	"strings"

	"backend-twitter/internal/shared/apperr"
)

// KeySpace is the key code that commits the pending tag.
const KeySpace = 32

var ErrDuplicateTag = fmt.Errorf("%w: duplicate tag", apperr.ErrInvalid)

type KeyEvent struct {
	Code int
}

// Editor holds an ordered tag list and the text being typed.
type Editor struct {
	tags  []string
	input string
}

func NewEditor() *Editor {
	return &Editor{tags: []string{}}
}

// FromList builds an editor from submitted tags, trimming each and dropping
// blanks. A repeated tag is rejected.
func FromList(list []string) (*Editor, error) {
	e := NewEditor()
	for _, raw := range list {
		e.SetInput(raw)
		if e.input == "" {
			continue
		}
		if err := e.commit(); err != nil {
			return nil, fmt.Errorf("%w: %q", err, e.input)
		}
	}
	return e, nil
}

func (e *Editor) SetInput(v string) {
	e.input = strings.TrimSpace(v)
}

func (e *Editor) Input() string { return e.input }

// KeyUp commits the pending input when the space key is released. Other
// keys and empty input are ignored. On a duplicate the list and input are
// left unchanged.
func (e *Editor) KeyUp(ev KeyEvent) error {
	if ev.Code != KeySpace || e.input == "" {
		return nil
	}
	return e.commit()
}

// Remove deletes the first entry equal to tag.
func (e *Editor) Remove(tag string) {
	for i, t := range e.tags {
		if t == tag {
			e.tags = append(e.tags[:i], e.tags[i+1:]...)
			return
		}
	}
}

// Tags returns a copy of the list in insertion order.
func (e *Editor) Tags() []string {
	return append([]string{}, e.tags...)
}

func (e *Editor) Contains(tag string) bool {
	for _, t := range e.tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (e *Editor) commit() error {
	if e.Contains(e.input) {
		return ErrDuplicateTag
	}
	e.tags = append(e.tags, e.input)
	e.input = ""
	return nil
}

// IsDuplicate reports whether err came from a repeated tag.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateTag)
}
