// ABOUTME: Operation errors returned by the store and repository.
// ABOUTME: Each error carries an operation code, a kind, and the note it concerns.

package db

import (
	"errors"
	"fmt"
)

var ErrPrefixTooShort = errors.New("prefix must be at least 6 characters")
var ErrAmbiguousPrefix = errors.New("prefix matches multiple notes")

// Kind classifies an OpError so callers can branch without string matching.
type Kind int

const (
	KindInitialization Kind = iota + 1
	KindNotFound
	KindCreate
	KindWrite
	KindRead
)

func (k Kind) String() string {
	switch k {
	case KindInitialization:
		return "store initialization failed"
	case KindNotFound:
		return "note not found"
	case KindCreate:
		return "create failed"
	case KindWrite:
		return "write failed"
	case KindRead:
		return "read failed"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is. They match any OpError of the same kind.
var (
	ErrInitialization = &OpError{Kind: KindInitialization}
	ErrNoteNotFound   = &OpError{Kind: KindNotFound}
	ErrCreate         = &OpError{Kind: KindCreate}
	ErrWrite          = &OpError{Kind: KindWrite}
)

type OpError struct {
	Op     string
	Kind   Kind
	NoteID string
	Err    error
}

func (e *OpError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.NoteID != "" {
		msg = fmt.Sprintf("%s (note %s)", msg, e.NoteID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *OpError) Is(target error) bool {
	t, ok := target.(*OpError)
	if !ok {
		return false
	}
	return t.Op == "" && t.NoteID == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first OpError in err's chain, or 0.
func KindOf(err error) Kind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return 0
}

func opErr(op string, kind Kind, noteID string, err error) error {
	return &OpError{Op: op, Kind: kind, NoteID: noteID, Err: err}
}
