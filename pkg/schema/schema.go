// Package schema provides validators for rqst JSON responses.
package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Adda-Baaj/rqst/pkg/rqst"
)

const resourceBase = "https://rqst.local/schemas/"

// Issue is one mismatch between a value and a schema.
type Issue struct {
	Path    string `json:"path"`
	Keyword string `json:"keyword,omitempty"`
	Message string `json:"message"`
}

// ValidationError lists every mismatch found for a value.
type ValidationError struct {
	Schema string  `json:"schema"`
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("schema %s: validation failed", e.Schema)
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		path := is.Path
		if path == "" {
			path = "/"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", path, is.Message))
	}
	return fmt.Sprintf("schema %s: %s", e.Schema, strings.Join(parts, "; "))
}

// JSONSchema validates values against a compiled JSON Schema and returns them as T.
type JSONSchema[T any] struct {
	name     string
	compiled *jsonschema.Schema
}

var _ rqst.Validator[map[string]any] = (*JSONSchema[map[string]any])(nil)

// Compile compiles a JSON Schema document. name identifies the schema in errors.
func Compile[T any](name, src string) (*JSONSchema[T], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("schema name is empty")
	}

	url := resourceBase + name
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &JSONSchema[T]{name: name, compiled: compiled}, nil
}

// CompileFile compiles the JSON Schema stored at path.
func CompileFile[T any](path string) (*JSONSchema[T], error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Compile[T](filepath.Base(path), string(raw))
}

// Name returns the schema identifier.
func (s *JSONSchema[T]) Name() string { return s.name }

// Validate checks value and converts it to T. Mismatches are reported as *ValidationError.
func (s *JSONSchema[T]) Validate(ctx context.Context, value any) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if err := s.compiled.Validate(value); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return zero, fmt.Errorf("validate schema %s: %w", s.name, err)
		}
		out := &ValidationError{Schema: s.name}
		collectIssues(ve, &out.Issues)
		return zero, out
	}

	return convert[T](s.name, value)
}

// collectIssues flattens the cause tree, keeping only leaf errors.
func collectIssues(ve *jsonschema.ValidationError, dst *[]Issue) {
	if len(ve.Causes) == 0 {
		*dst = append(*dst, Issue{
			Path:    ve.InstanceLocation,
			Keyword: ve.KeywordLocation,
			Message: ve.Message,
		})
		return
	}
	for _, c := range ve.Causes {
		collectIssues(c, dst)
	}
}

// Struct returns a validator that decodes the value into T, rejecting unknown
// fields and mistyped values.
func Struct[T any]() rqst.ValidatorFunc[T] {
	name := fmt.Sprintf("%T", *new(T))
	return func(ctx context.Context, value any) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		raw, err := json.Marshal(value)
		if err != nil {
			return zero, fmt.Errorf("re-encode value: %w", err)
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		var out T
		if err := dec.Decode(&out); err != nil {
			return zero, &ValidationError{Schema: name, Issues: []Issue{decodeIssue(err)}}
		}
		return out, nil
	}
}

func decodeIssue(err error) Issue {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return Issue{
			Path:    "/" + strings.ReplaceAll(typeErr.Field, ".", "/"),
			Keyword: "type",
			Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		}
	}
	return Issue{Message: strings.TrimPrefix(err.Error(), "json: ")}
}

// convert returns value as T, re-decoding through JSON when a direct assertion fails.
func convert[T any](name string, value any) (T, error) {
	if out, ok := value.(T); ok {
		return out, nil
	}

	var out T
	raw, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("re-encode value: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &ValidationError{Schema: name, Issues: []Issue{decodeIssue(err)}}
	}
	return out, nil
}
