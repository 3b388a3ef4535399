package aggregator

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failures AddDataSource and RemoveDataSource report.
type ErrorKind int

const (
	KindBadURI ErrorKind = iota + 1
	KindAlreadyConnected
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadURI:
		return "bad uri"
	case KindAlreadyConnected:
		return "already connected"
	case KindNotFound:
		return "not found"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	ErrBadURI           = &Error{Kind: KindBadURI}
	ErrAlreadyConnected = &Error{Kind: KindAlreadyConnected}
	ErrNotFound         = &Error{Kind: KindNotFound}
)

type Error struct {
	Kind ErrorKind
	URI  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.URI != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.URI)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrBadURI) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
