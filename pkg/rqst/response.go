package rqst

import (
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
)

const chunkSize = 32 << 10 // 32 KiB

const (
	stateUnread uint32 = iota
	stateConsumed
)

// Response wraps one completed HTTP exchange. Its body can be read once, by
// exactly one of Body, Text, JSON or DecodeJSON.
type Response struct {
	url    string
	status int
	header http.Header
	body   io.ReadCloser

	state     atomic.Uint32
	closeOnce sync.Once
	closeErr  error
}

func newResponse(url string, resp *resty.Response) *Response {
	r := &Response{
		url:    url,
		status: resp.StatusCode(),
		header: resp.Header(),
		body:   resp.RawBody(),
	}
	if r.header == nil {
		r.header = http.Header{}
	}
	return r
}

// StatusCode returns the HTTP status code. It is never checked by the client.
func (r *Response) StatusCode() int { return r.status }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.header }

// URL returns the URL the request was issued for.
func (r *Response) URL() string { return r.url }

// Consumed reports whether a read operation has claimed the body.
func (r *Response) Consumed() bool { return r.state.Load() == stateConsumed }

// Close releases the body without reading it. It is safe to call after a
// read and more than once.
func (r *Response) Close() error {
	r.state.Store(stateConsumed)
	return r.release()
}

func (r *Response) release() error {
	r.closeOnce.Do(func() {
		if r.body != nil {
			r.closeErr = r.body.Close()
		}
	})
	return r.closeErr
}

// claim moves the response from unread to consumed. Only the first caller wins.
func (r *Response) claim(op string) error {
	if !r.state.CompareAndSwap(stateUnread, stateConsumed) {
		return newError(KindConsumed, op, r.url, ErrBodyConsumed)
	}
	return nil
}

// Body returns the body as a single-pass sequence of chunks in arrival order.
// The body is claimed when iteration starts, so an unranged sequence leaves the
// response unread. Ranging over the sequence again, or over a consumed
// response, yields a single ErrBodyConsumed error. The underlying reader is
// released however iteration ends.
func (r *Response) Body() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if err := r.claim("body"); err != nil {
			yield(nil, err)
			return
		}
		defer r.release()

		if r.body == nil || r.body == http.NoBody {
			return
		}

		buf := make([]byte, chunkSize)
		for {
			n, err := r.body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, newError(KindTransport, "body", r.url, err))
				return
			}
		}
	}
}

// Text drains the body and returns it as text. Each invalid UTF-8 byte is
// replaced with its own U+FFFD. The Content-Type header is not consulted.
func (r *Response) Text() (string, error) {
	raw, err := r.drain("text")
	if err != nil {
		return "", err
	}
	return decodeUTF8(raw), nil
}

func decodeUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		b.WriteRune(r)
		raw = raw[size:]
	}
	return b.String()
}

// drain claims the body and reads it fully into memory.
func (r *Response) drain(op string) ([]byte, error) {
	if err := r.claim(op); err != nil {
		return nil, err
	}
	defer r.release()

	if r.body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(r.body)
	if err != nil {
		return nil, newError(KindTransport, op, r.url, err)
	}
	return raw, nil
}
