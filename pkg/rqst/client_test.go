package rqst

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// roundTripFunc lets tests stand in for the network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// trackingBody records whether the client released it.
type trackingBody struct {
	io.Reader
	mu     sync.Mutex
	closed bool
}

func (b *trackingBody) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *trackingBody) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// stubClient returns a client whose transport answers every request with the given body.
func stubClient(header http.Header, body io.ReadCloser) *Client {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     header,
			Body:       body,
			Request:    r,
		}, nil
	})
	return NewClient(ClientOptions{HTTPClient: &http.Client{Transport: rt}})
}

func TestClientGetForwardsNormalizedHeaders(t *testing.T) {
	t.Parallel()
	var gotTrace, gotCount, gotFlag string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		gotTrace = r.Header.Get("X-Trace")
		gotCount = r.Header.Get("X-Count")
		gotFlag = r.Header.Get("X-Flag")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{HTTPClient: srv.Client(), Timeout: 2 * time.Second})
	resp, err := client.Get(context.Background(), srv.URL, RequestOptions{Headers: HeaderList{
		{Name: "X-Trace", Value: "a"},
		{Name: "X-Count", Value: 7},
		{Name: "X-Flag", Value: false},
		{Name: "X-Trace", Value: "b"},
	}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Close()

	if gotTrace != "b" || gotCount != "7" || gotFlag != "false" {
		t.Fatalf("unexpected headers trace=%q count=%q flag=%q", gotTrace, gotCount, gotFlag)
	}
}

func TestClientWrapsErrorStatuses(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{HTTPClient: srv.Client()})
	resp, err := client.Get(context.Background(), srv.URL, RequestOptions{})
	if err != nil {
		t.Fatalf("expected 404 to be wrapped, got error %v", err)
	}
	if resp.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode())
	}
	text, err := resp.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if strings.TrimSpace(text) != "missing" {
		t.Fatalf("unexpected body %q", text)
	}
}

func TestClientTransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(ClientOptions{Timeout: 2 * time.Second})
	_, err := client.Get(context.Background(), url, RequestOptions{})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if KindOf(err) != KindTransport {
		t.Fatalf("expected transport kind, got %v (%v)", KindOf(err), err)
	}
	if errors.Unwrap(err) == nil {
		t.Fatalf("expected underlying transport error to be preserved")
	}
}

func TestClientRejectsBadHeaderBeforeNetwork(t *testing.T) {
	t.Parallel()
	called := false
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("unexpected")
	})
	client := NewClient(ClientOptions{HTTPClient: &http.Client{Transport: rt}})

	_, err := client.Get(context.Background(), "http://example.invalid", RequestOptions{
		Headers: HeaderMap{"X-Bad": struct{}{}},
	})
	if KindOf(err) != KindRequest {
		t.Fatalf("expected request kind, got %v", err)
	}
	if called {
		t.Fatalf("transport must not be called for invalid headers")
	}
}

func TestClientDoCustomMethod(t *testing.T) {
	t.Parallel()
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusMultiStatus)
	}))
	defer srv.Close()

	verb, err := CustomMethod("PROPFIND")
	if err != nil {
		t.Fatalf("CustomMethod: %v", err)
	}
	client := NewClient(ClientOptions{HTTPClient: srv.Client()})
	resp, err := client.Do(context.Background(), verb, srv.URL, RequestOptions{})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Close()

	if gotMethod != "PROPFIND" {
		t.Fatalf("expected PROPFIND, got %s", gotMethod)
	}
	if resp.StatusCode() != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", resp.StatusCode())
	}
}

func TestClientDoZeroMethod(t *testing.T) {
	t.Parallel()
	client := NewClient(ClientOptions{})
	_, err := client.Do(context.Background(), Method{}, "http://example.invalid", RequestOptions{})
	if !errors.Is(err, ErrInvalidMethod) || KindOf(err) != KindRequest {
		t.Fatalf("expected invalid method request error, got %v", err)
	}
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) InfoObj(msg, _ string, _ interface{})  { l.record(msg) }
func (l *recordingLogger) DebugObj(msg, _ string, _ interface{}) { l.record(msg) }
func (l *recordingLogger) WarnObj(msg, _ string, _ interface{})  { l.record(msg) }
func (l *recordingLogger) ErrorObj(msg, _ string, _ interface{}) { l.record(msg) }

func TestClientLogsRequestLifecycle(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	log := &recordingLogger{}
	client := NewClient(ClientOptions{HTTPClient: srv.Client(), Logger: log})
	resp, err := client.Get(context.Background(), srv.URL, RequestOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Close()

	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.msgs) != 2 || log.msgs[0] != "rqst request issued" || log.msgs[1] != "rqst response received" {
		t.Fatalf("unexpected log messages %v", log.msgs)
	}
}

func TestGetCaseVariantHeadersLastWins(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Join(r.Header.Values("X-Trace"), ",")))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{HTTPClient: srv.Client()})
	headers := HeaderList{{Name: "x-trace", Value: "first"}, {Name: "X-Trace", Value: "second"}}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(context.Background(), srv.URL, RequestOptions{Headers: headers})
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		got, err := resp.Text()
		if err != nil {
			t.Fatalf("Text: %v", err)
		}
		if got != "second" {
			t.Fatalf("request %d: server saw X-Trace %q", i, got)
		}
	}
}
