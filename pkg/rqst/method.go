package rqst

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is an HTTP request method. Values come from the Method* variables,
// ParseMethod, or CustomMethod; the zero Method is invalid.
type Method struct {
	verb string
}

var (
	MethodGet     = Method{http.MethodGet}
	MethodHead    = Method{http.MethodHead}
	MethodPost    = Method{http.MethodPost}
	MethodPut     = Method{http.MethodPut}
	MethodPatch   = Method{http.MethodPatch}
	MethodDelete  = Method{http.MethodDelete}
	MethodOptions = Method{http.MethodOptions}
	MethodConnect = Method{http.MethodConnect}
	MethodTrace   = Method{http.MethodTrace}
)

var standardMethods = map[string]Method{
	http.MethodGet:     MethodGet,
	http.MethodHead:    MethodHead,
	http.MethodPost:    MethodPost,
	http.MethodPut:     MethodPut,
	http.MethodPatch:   MethodPatch,
	http.MethodDelete:  MethodDelete,
	http.MethodOptions: MethodOptions,
	http.MethodConnect: MethodConnect,
	http.MethodTrace:   MethodTrace,
}

// ParseMethod resolves a standard method name, case-insensitively.
func ParseMethod(name string) (Method, error) {
	m, ok := standardMethods[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Method{}, fmt.Errorf("%w: %q is not a standard method", ErrInvalidMethod, name)
	}
	return m, nil
}

// CustomMethod builds a non-standard method such as PROPFIND. The verb is sent
// exactly as given and must be a valid HTTP token.
func CustomMethod(verb string) (Method, error) {
	if verb == "" {
		return Method{}, fmt.Errorf("%w: empty verb", ErrInvalidMethod)
	}
	for i := 0; i < len(verb); i++ {
		if !isTokenChar(verb[i]) {
			return Method{}, fmt.Errorf("%w: %q contains invalid character %q", ErrInvalidMethod, verb, verb[i])
		}
	}
	return Method{verb: verb}, nil
}

// String returns the verb as sent on the wire.
func (m Method) String() string { return m.verb }

// IsZero reports whether m was never set.
func (m Method) IsZero() bool { return m.verb == "" }

// isTokenChar reports whether c is a tchar per RFC 9110 section 5.6.2.
func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}
