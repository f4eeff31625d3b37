package manifest

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/MrSnakeDoc/coursemod/internal/resource"
)

var (
	ErrMalformedManifest = errors.New("malformed manifest")
	ErrMalformedLocation = errors.New("malformed location")
)

const (
	keyName = "name"
	keyURL  = "url"
	keyID   = "id"
	keyRepl = "replInitialCommands"
)

// Record is a validated module entry of a course manifest.
//
// Example of a valid raw entry:
//
//	{
//	  "name": "My Module",
//	  "url": "https://example.com/mymodule.zip",
//	  "id": "abc",
//	  "replInitialCommands": ["import o1._"]
//	}
type Record struct {
	Name                string
	URL                 *url.URL
	VersionID           string
	ReplInitialCommands []string // nil when the key is absent
}

// Factory creates modules. It decides which concrete kind backs a location.
type Factory interface {
	CreateModule(name string, location *url.URL, versionID string, replCommands []string) (*resource.Module, error)
}

// DecodeRecord validates a raw manifest entry. Unknown keys are ignored.
func DecodeRecord(raw map[string]any) (Record, error) {
	name, err := requiredString(raw, keyName, "")
	if err != nil {
		return Record{}, err
	}

	rawURL, err := requiredString(raw, keyURL, name)
	if err != nil {
		return Record{}, err
	}

	loc, err := ParseLocation(rawURL)
	if err != nil {
		return Record{}, fmt.Errorf("module %q: %w", name, err)
	}

	rec := Record{Name: name, URL: loc}

	if v, ok := raw[keyID]; ok && v != nil {
		id, isString := v.(string)
		if !isString {
			return Record{}, fmt.Errorf("%w: module %q: %q must be a string, got %T", ErrMalformedManifest, name, keyID, v)
		}
		rec.VersionID = id
	}

	if v, ok := raw[keyRepl]; ok {
		cmds, err := stringList(v)
		if err != nil {
			return Record{}, fmt.Errorf("%w: module %q: %q %v", ErrMalformedManifest, name, keyRepl, err)
		}
		rec.ReplInitialCommands = cmds
	}

	return rec, nil
}

// ParseLocation accepts absolute URIs with a scheme, and a host unless the scheme is file.
func ParseLocation(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLocation, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrMalformedLocation, raw)
	}
	if u.Host == "" && u.Scheme != "file" {
		return nil, fmt.Errorf("%w: %q has no host", ErrMalformedLocation, raw)
	}
	return u, nil
}

// FromRecord builds a module from an already validated record.
func FromRecord(rec Record, f Factory) (*resource.Module, error) {
	m, err := f.CreateModule(rec.Name, rec.URL, rec.VersionID, rec.ReplInitialCommands)
	if err != nil {
		return nil, fmt.Errorf("create module %q: %w", rec.Name, err)
	}
	return m, nil
}

// FromRaw decodes then constructs. Nothing is created when decoding fails.
func FromRaw(raw map[string]any, f Factory) (*resource.Module, error) {
	rec, err := DecodeRecord(raw)
	if err != nil {
		return nil, err
	}
	return FromRecord(rec, f)
}

func requiredString(raw map[string]any, key, module string) (string, error) {
	where := ""
	if module != "" {
		where = fmt.Sprintf("module %q: ", module)
	}

	v, ok := raw[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %smissing %q", ErrMalformedManifest, where, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s%q must be a string, got %T", ErrMalformedManifest, where, key, v)
	}
	return s, nil
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return append([]string{}, list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d must be a string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be an array of strings, got %T", v)
	}
}
