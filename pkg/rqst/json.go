package rqst

import (
	"context"
	"encoding/json"
	"fmt"
)

// ContentTypeJSON is the only Content-Type value JSON accepts by default.
// Parameters such as charset are not stripped: "application/json; charset=utf-8" is rejected.
const ContentTypeJSON = "application/json"

// JSONOptions controls JSON reads. The zero value requires an exact
// application/json Content-Type.
type JSONOptions struct {
	AllowAnyContentType bool
}

// Validator checks a parsed JSON value and returns it typed as T.
type Validator[T any] interface {
	Validate(ctx context.Context, value any) (T, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc[T any] func(ctx context.Context, value any) (T, error)

func (f ValidatorFunc[T]) Validate(ctx context.Context, value any) (T, error) {
	if f == nil {
		var zero T
		return zero, ErrNoValidator
	}
	return f(ctx, value)
}

// JSON drains the body and parses it without validation. The shape of the
// returned value is the caller's responsibility; use DecodeJSON for a checked result.
func (r *Response) JSON(opts JSONOptions) (any, error) {
	raw, err := r.drain("json")
	if err != nil {
		return nil, err
	}

	if !opts.AllowAnyContentType {
		if ct := r.header.Get("Content-Type"); ct != ContentTypeJSON {
			return nil, newError(KindContentType, "json", r.url, fmt.Errorf("%w: got %q", ErrContentTypeMismatch, ct))
		}
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, newError(KindParse, "json", r.url, err)
	}
	return value, nil
}

// DecodeJSON reads the body as JSON and runs it through v. A validator failure
// is returned as a KindValidation *Error wrapping the validator's own error.
func DecodeJSON[T any](ctx context.Context, r *Response, v Validator[T], opts JSONOptions) (T, error) {
	var zero T
	if isNilValidator(v) {
		return zero, newError(KindValidation, "json", r.url, ErrNoValidator)
	}

	value, err := r.JSON(opts)
	if err != nil {
		return zero, err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	out, err := v.Validate(ctx, value)
	if err != nil {
		return zero, newError(KindValidation, "json", r.url, err)
	}
	return out, nil
}

func isNilValidator[T any](v Validator[T]) bool {
	if v == nil {
		return true
	}
	f, ok := v.(ValidatorFunc[T])
	return ok && f == nil
}
