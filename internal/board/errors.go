package board

import (
	"errors"
	"fmt"
)

// Kind classifies store failures so callers can branch without
// matching on messages.
type Kind int

const (
	KindEmptyContent Kind = iota + 1
	KindContentTooLong
	KindInvalidColumn
	KindNotFound
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindEmptyContent:
		return "EmptyContent"
	case KindContentTooLong:
		return "ContentTooLong"
	case KindInvalidColumn:
		return "InvalidColumn"
	case KindNotFound:
		return "NotFound"
	case KindPersistence:
		return "PersistenceError"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsValidation reports whether k is caller input that can be corrected
// and resubmitted.
func (k Kind) IsValidation() bool {
	return k == KindEmptyContent || k == KindContentTooLong || k == KindInvalidColumn
}

// Error is returned by every failing Store operation.
type Error struct {
	Kind    Kind
	Message string
	// CardID is set for NotFound errors.
	CardID string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrAlreadyInitialized is returned by a second call to Initialize.
var ErrAlreadyInitialized = errors.New("board: store already initialized")

// KindOf extracts the Kind from err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func errEmptyContent() error {
	return &Error{Kind: KindEmptyContent, Message: "card content is empty"}
}

func errContentTooLong(n int) error {
	return &Error{
		Kind:    KindContentTooLong,
		Message: fmt.Sprintf("card content is %d characters, maximum is %d", n, MaxContentLength),
	}
}

func errInvalidColumn(columnID string) error {
	return &Error{Kind: KindInvalidColumn, Message: fmt.Sprintf("invalid column %q", columnID)}
}

func errNotFound(cardID string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("card %s not found", cardID), CardID: cardID}
}

func errPersistence(err error) error {
	return &Error{Kind: KindPersistence, Message: "failed to save board", Err: err}
}
