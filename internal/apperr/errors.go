// Package apperr defines the error taxonomy shared by the parser, store
// and query packages and the HTTP layer's status-code mapping.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for HTTP status mapping and log grouping.
type Kind string

const (
	KindIO                Kind = "io"
	KindParseJSON         Kind = "parse_json"
	KindParseCSV          Kind = "parse_csv"
	KindInvalidTimestamp  Kind = "invalid_timestamp"
	KindInvalidDirection  Kind = "invalid_direction"
	KindMissingBodyJSON   Kind = "missing_body_json"
	KindUnknownFormat     Kind = "unknown_format"
	KindSessionNotFound   Kind = "session_not_found"
	KindRowNotFound       Kind = "row_not_found"
	KindBadRequest        Kind = "bad_request"
)

// Sentinels for errors.Is comparisons that don't need location context.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRowNotFound     = errors.New("row not found")
	ErrUnknownFormat   = errors.New("unable to detect input format")
)

// locKind tracks which of Line/Row/Element, if any, was actually attached
// to an Error. Row and Element are 0-based, so their zero value is a
// legitimate index and can't double as "unset".
type locKind uint8

const (
	locNone locKind = iota
	locLine
	locRow
	locElement
)

// Error is the taxonomy's carrier type. Line is 1-based; Row and Element
// are 0-based. Only one of them is meaningful per Error, tracked by loc.
type Error struct {
	Kind    Kind
	Message string
	Line    int
	Row     int64
	Element int
	loc     locKind

	Err error // underlying cause, if any
}

func (e *Error) Error() string {
	loc := ""
	switch e.loc {
	case locLine:
		loc = fmt.Sprintf(" (line %d)", e.Line)
	case locElement:
		loc = fmt.Sprintf(" (element %d)", e.Element)
	case locRow:
		loc = fmt.Sprintf(" (row %d)", e.Row)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %v", e.Message, loc, e.Err)
	}
	return fmt.Sprintf("%s%s", e.Message, loc)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a bare Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithLine attaches a 1-based input line number and returns the receiver.
func (e *Error) WithLine(line int) *Error {
	e.Line = line
	e.loc = locLine
	return e
}

// WithRow attaches a 0-based row_id and returns the receiver.
func (e *Error) WithRow(row int64) *Error {
	e.Row = row
	e.loc = locRow
	return e
}

// WithElement attaches a 0-based JSON-array element index and returns the receiver.
func (e *Error) WithElement(idx int) *Error {
	e.Element = idx
	e.loc = locElement
	return e
}

// SessionNotFound reports a lookup against a session ID with no meta.json.
func SessionNotFound(sessionID string) *Error {
	return Wrap(KindSessionNotFound, fmt.Sprintf("session %q not found", sessionID), ErrSessionNotFound)
}

// RowNotFound reports a lookup against a row_id with no cold payload.
func RowNotFound(rowID int64) *Error {
	return (&Error{Kind: KindRowNotFound, Message: "payload not found", Err: ErrRowNotFound}).WithRow(rowID)
}

// BadRequest reports a malformed or semantically invalid request.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}
