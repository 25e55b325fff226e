package rqst

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the client and response readers.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport is a network failure while issuing the request or reading the body.
	KindTransport
	// KindContentType is a JSON read against a response whose Content-Type is not application/json.
	KindContentType
	// KindParse is a body that is not well-formed JSON.
	KindParse
	// KindValidation is a failure reported by a schema validator.
	KindValidation
	// KindConsumed is a second read of a response body.
	KindConsumed
	// KindRequest is a request that could not be built (bad method or header value).
	KindRequest
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindContentType:
		return "content_type"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindConsumed:
		return "consumed"
	case KindRequest:
		return "request"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

var (
	ErrContentTypeMismatch = errors.New("content type is not application/json")
	ErrBodyConsumed        = errors.New("response body already consumed")
	ErrNoValidator         = errors.New("no validator supplied")
	ErrInvalidMethod       = errors.New("invalid http method")
)

// Error is the error type returned by Client and Response operations.
// Err holds the underlying cause unchanged; use errors.As to reach it.
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + " " + msg
	}
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op, url string, err error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: err}
}
