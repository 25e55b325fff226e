package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Adda-Baaj/rqst/internal/config"
	"github.com/Adda-Baaj/rqst/internal/extract"
	"github.com/Adda-Baaj/rqst/internal/logger"
	"github.com/Adda-Baaj/rqst/internal/profiles"
	"github.com/Adda-Baaj/rqst/internal/storage"
	"github.com/Adda-Baaj/rqst/pkg/rqst"
	"github.com/Adda-Baaj/rqst/pkg/schema"
)

// Read modes accepted by Fetch.
const (
	ModeBody = "body"
	ModeText = "text"
	ModeJSON = "json"
)

// Request describes one command-line fetch.
type Request struct {
	Method  rqst.Method
	URL     string
	Profile string
	// Headers are "Name: value" pairs applied after the profile, in order.
	Headers             []string
	Mode                string
	SchemaFile          string
	AllowAnyContentType bool
	Select              string
	Title               bool
}

// Runner wires config, header profiles, the history store and the rqst client.
type Runner struct {
	cfg      *config.Config
	client   *rqst.Client
	profiles *profiles.Registry
	store    storage.Store
	log      logger.Logger
}

// Options tweaks runner construction; the zero value is fine for production use.
type Options struct {
	// ClientOptions are merged over the config-derived client settings.
	ClientOptions rqst.ClientOptions
	// Sugar, when set with Debug, receives resty's own diagnostics.
	Sugar *zap.SugaredLogger
	Debug bool
}

// NewRunner builds a runner from config.
func NewRunner(cfg *config.Config, log logger.Logger, opts Options) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}

	reg, err := profiles.Load(cfg.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	profileIDs := make([]string, 0, len(reg.All()))
	for _, p := range reg.All() {
		profileIDs = append(profileIDs, p.ID)
	}
	log.DebugObj("profiles loaded", "profiles_meta", map[string]any{
		"count": len(profileIDs),
		"ids":   profileIDs,
	})

	store, err := storage.NewStore(cfg.HistoryType, cfg.HistoryPath, storage.Options{
		EntryTTL:        cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init history storage: %w", err)
	}

	clientOpts := opts.ClientOptions
	if clientOpts.Timeout <= 0 {
		clientOpts.Timeout = cfg.Timeout
	}
	if clientOpts.Logger == nil {
		clientOpts.Logger = log
	}
	if opts.Debug {
		clientOpts.Debug = true
		if opts.Sugar != nil {
			clientOpts.RestyLogger = opts.Sugar
		}
	}

	return &Runner{
		cfg:      cfg,
		client:   rqst.NewClient(clientOpts),
		profiles: reg,
		store:    store,
		log:      log,
	}, nil
}

// Fetch issues req and writes the body to out according to req.Mode.
// Every attempt, failed or not, is recorded in the history store.
func (r *Runner) Fetch(ctx context.Context, req Request, out io.Writer) (err error) {
	if r == nil || r.client == nil {
		return fmt.Errorf("runner is not initialized")
	}
	if req.Method.IsZero() {
		req.Method = rqst.MethodGet
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = ModeBody
	}

	entry := storage.Entry{Method: req.Method.String(), URL: req.URL, Mode: mode}
	start := time.Now()
	counter := &countingWriter{w: out}
	defer func() {
		entry.DurationMs = time.Since(start).Milliseconds()
		entry.Bytes = counter.n
		if err != nil {
			entry.Error = err.Error()
		}
		r.record(entry)
	}()

	var validator rqst.Validator[any]
	if mode == ModeJSON && strings.TrimSpace(req.SchemaFile) != "" {
		s, err := schema.CompileFile[any](req.SchemaFile)
		if err != nil {
			return fmt.Errorf("load schema: %w", err)
		}
		validator = s
	} else if mode != ModeJSON && mode != ModeText && mode != ModeBody {
		return fmt.Errorf("unsupported mode %q (expected body, text or json)", req.Mode)
	}

	headers, err := r.headersFor(req)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(ctx, req.Method, req.URL, rqst.RequestOptions{Headers: headers})
	if err != nil {
		return err
	}
	defer resp.Close()

	entry.Status = resp.StatusCode()
	entry.ContentType = resp.Header().Get("Content-Type")

	switch mode {
	case ModeBody:
		return writeChunks(resp, counter)
	case ModeText:
		return r.writeText(resp, req, counter)
	default:
		return writeJSON(ctx, resp, validator, req.AllowAnyContentType, counter)
	}
}

// headersFor merges the profile headers with the command-line pairs; later pairs win.
func (r *Runner) headersFor(req Request) (rqst.HeaderList, error) {
	var headers rqst.HeaderList
	if id := strings.TrimSpace(req.Profile); id != "" {
		p, ok := r.profiles.ByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", id)
		}
		headers = append(headers, p.Headers()...)
	}

	var errs []error
	for _, raw := range req.Headers {
		h, err := ParseHeader(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		headers = append(headers, h)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return headers, nil
}

// ParseHeader parses a "Name: value" command-line header.
func ParseHeader(raw string) (rqst.Header, error) {
	name, value, ok := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return rqst.Header{}, fmt.Errorf("invalid header %q (expected \"Name: value\")", raw)
	}
	return rqst.Header{Name: name, Value: strings.TrimSpace(value)}, nil
}

func writeChunks(resp *rqst.Response, out io.Writer) error {
	for chunk, err := range resp.Body() {
		if err != nil {
			return err
		}
		if _, err := out.Write(chunk); err != nil {
			return fmt.Errorf("write body: %w", err)
		}
	}
	return nil
}

func (r *Runner) writeText(resp *rqst.Response, req Request, out io.Writer) error {
	text, err := resp.Text()
	if err != nil {
		return err
	}

	var lines []string
	switch {
	case req.Title:
		title, err := extract.Title(text)
		if err != nil {
			return err
		}
		lines = []string{title}
	case strings.TrimSpace(req.Select) != "":
		matches, err := extract.Select(text, req.Select)
		if err != nil {
			return err
		}
		lines = matches
	default:
		_, err := io.WriteString(out, text)
		return err
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
	}
	return nil
}

func writeJSON(ctx context.Context, resp *rqst.Response, v rqst.Validator[any], allowAny bool, out io.Writer) error {
	opts := rqst.JSONOptions{AllowAnyContentType: allowAny}

	var (
		value any
		err   error
	)
	if v != nil {
		value, err = rqst.DecodeJSON(ctx, resp, v, opts)
	} else {
		value, err = resp.JSON(opts)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// History writes up to limit recent entries to out, one JSON object per line.
func (r *Runner) History(limit int, out io.Writer) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("runner is not initialized")
	}
	entries, err := r.store.Recent(limit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	enc := json.NewEncoder(out)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("write history: %w", err)
		}
	}
	return nil
}

// Close releases the history store, logging any errors encountered.
func (r *Runner) Close() {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.log.ErrorObj("history store close failed", "error", err)
	}
}

func (r *Runner) record(e storage.Entry) {
	if err := r.store.Record(e); err != nil {
		r.log.WarnObj("history record failed", "history_error", map[string]any{
			"url":   e.URL,
			"error": err.Error(),
		})
		return
	}
	r.log.InfoObj("request completed", "request_meta", map[string]any{
		"method":      e.Method,
		"url":         e.URL,
		"status":      e.Status,
		"mode":        e.Mode,
		"bytes":       e.Bytes,
		"duration_ms": e.DurationMs,
		"error":       e.Error,
	})
}

// countingWriter tracks how many bytes reached the output.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
