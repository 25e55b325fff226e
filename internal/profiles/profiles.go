// Package profiles loads named header sets (YAML/JSON) applied to requests.
package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Adda-Baaj/rqst/pkg/rqst"
)

// Profile is a named set of request headers.
type Profile struct {
	ID          string         `json:"id" yaml:"id"`
	Description string         `json:"description" yaml:"description"`
	HeaderMap   map[string]any `json:"headers" yaml:"headers"`
	HeaderList  []HeaderEntry  `json:"header_list" yaml:"header_list"`
}

// HeaderEntry is one ordered header pair from a profile file.
type HeaderEntry struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

type configFile struct {
	Profiles []Profile `json:"profiles" yaml:"profiles"`
}

// Registry holds the profiles loaded from a file. It is read-only after Load.
type Registry struct {
	profiles []Profile
	idx      map[string]Profile
}

// Empty returns a registry with no profiles.
func Empty() *Registry {
	return &Registry{idx: map[string]Profile{}}
}

// Load reads the profiles file at path. An empty path yields an empty registry.
func Load(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Empty(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	cf, err := parseProfiles(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	reg := &Registry{
		profiles: make([]Profile, len(cf.Profiles)),
		idx:      make(map[string]Profile, len(cf.Profiles)),
	}
	for i := range cf.Profiles {
		p := sanitizeProfile(cf.Profiles[i])
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("profiles[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		reg.profiles[i] = p
		reg.idx[p.ID] = p
	}

	return reg, nil
}

type unmarshalFn func([]byte, any) error

// parseProfiles decodes the file by extension, trying every format when the extension is unknown.
func parseProfiles(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	known := false
	for _, d := range decoders {
		if ext == d.ext {
			known = true
		}
	}

	var errs []error
	for _, d := range decoders {
		if known && ext != d.ext {
			continue
		}
		var cf configFile
		if err := d.fn(data, &cf); err != nil {
			errs = append(errs, fmt.Errorf("decode %s profiles: %w", d.name, err))
			continue
		}
		return cf, nil
	}

	return configFile{}, fmt.Errorf("profiles file format not recognized (expected YAML or JSON): %w", errors.Join(errs...))
}

func sanitizeProfile(p Profile) Profile {
	p.ID = strings.TrimSpace(p.ID)
	p.Description = strings.TrimSpace(p.Description)

	if len(p.HeaderMap) > 0 {
		m := make(map[string]any, len(p.HeaderMap))
		for k, v := range p.HeaderMap {
			m[strings.TrimSpace(k)] = v
		}
		p.HeaderMap = m
	}
	for i := range p.HeaderList {
		p.HeaderList[i].Name = strings.TrimSpace(p.HeaderList[i].Name)
	}
	return p
}

func validateProfile(p Profile) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	for name, value := range p.HeaderMap {
		if name == "" {
			return fmt.Errorf("profile %q has a header with an empty name", p.ID)
		}
		if value == nil {
			return fmt.Errorf("profile %q header %q has no value", p.ID, name)
		}
	}
	for i, h := range p.HeaderList {
		if h.Name == "" {
			return fmt.Errorf("profile %q header_list[%d] has an empty name", p.ID, i)
		}
		if h.Value == nil {
			return fmt.Errorf("profile %q header_list[%d] has no value", p.ID, i)
		}
	}
	return nil
}

// ByID returns the profile with the given id.
func (r *Registry) ByID(id string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, false
	}

	p, ok := r.idx[id]
	return p, ok
}

// All returns all loaded profiles in file order.
func (r *Registry) All() []Profile {
	if r == nil {
		return nil
	}

	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Headers flattens the profile into ordered pairs: map entries sorted by name, then list entries.
func (p Profile) Headers() rqst.HeaderList {
	names := make([]string, 0, len(p.HeaderMap))
	for name := range p.HeaderMap {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(rqst.HeaderList, 0, len(names)+len(p.HeaderList))
	for _, name := range names {
		out = append(out, rqst.Header{Name: name, Value: p.HeaderMap[name]})
	}
	for _, h := range p.HeaderList {
		out = append(out, rqst.Header{Name: h.Name, Value: h.Value})
	}
	return out
}
