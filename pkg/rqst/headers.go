package rqst

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Headers is a set of request headers in one of two forms: HeaderList or HeaderMap.
type Headers interface {
	normalize(dst map[string]string) error
}

// Header is a single name/value pair. Value must be a string, a bool or a number.
type Header struct {
	Name  string
	Value any
}

// HeaderList applies pairs in order; a later pair overwrites an earlier one with
// the same name. Names are compared case-insensitively.
type HeaderList []Header

// HeaderMap applies entries in sorted key order, so of two keys differing only
// in case the one sorting last wins.
type HeaderMap map[string]any

func (l HeaderList) normalize(dst map[string]string) error {
	for _, h := range l {
		if err := setHeader(dst, h.Name, h.Value); err != nil {
			return err
		}
	}
	return nil
}

func (m HeaderMap) normalize(dst map[string]string) error {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := setHeader(dst, name, m[name]); err != nil {
			return err
		}
	}
	return nil
}

// RequestOptions are the per-request options accepted by Client.
type RequestOptions struct {
	Headers Headers
}

// NormalizeHeaders flattens h into the single-valued mapping handed to the transport,
// keyed by canonical header name. A nil h yields an empty, non-nil map.
func NormalizeHeaders(h Headers) (map[string]string, error) {
	out := make(map[string]string)
	if h == nil {
		return out, nil
	}
	if err := h.normalize(out); err != nil {
		return nil, err
	}
	return out, nil
}

func setHeader(dst map[string]string, name string, value any) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("header name is empty")
	}
	s, err := headerString(value)
	if err != nil {
		return fmt.Errorf("header %q: %w", name, err)
	}
	dst[http.CanonicalHeaderKey(strings.TrimSpace(name))] = s
	return nil
}

// headerString renders value in its natural string form. Only strings, bools
// and numbers are accepted.
func headerString(value any) (string, error) {
	switch value.(type) {
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return cast.ToStringE(value)
	default:
		return "", fmt.Errorf("unsupported header value type %T", value)
	}
}
