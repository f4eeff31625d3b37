package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrSnakeDoc/coursemod/internal/resource"
	"github.com/MrSnakeDoc/coursemod/internal/service"

	"gopkg.in/yaml.v3"
)

const maxManifestBytes = 4 << 20

// Document is a course manifest: a name and a list of raw module entries.
type Document struct {
	Name    string           `json:"name" yaml:"name"`
	Modules []map[string]any `json:"modules" yaml:"modules"`
}

// Decode parses a manifest document. format is "json" or "yaml".
func Decode(data []byte, format string) (*Document, error) {
	var doc Document
	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
	return &doc, nil
}

// Records validates every entry, stopping at the first malformed one.
func (d *Document) Records() ([]Record, error) {
	recs := make([]Record, 0, len(d.Modules))
	seen := make(map[string]struct{}, len(d.Modules))
	for i, raw := range d.Modules {
		rec, err := DecodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := seen[rec.Name]; dup {
			return nil, fmt.Errorf("%w: entry %d: duplicate module %q", ErrMalformedManifest, i, rec.Name)
		}
		seen[rec.Name] = struct{}{}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Build validates all entries first, then constructs the modules.
func (d *Document) Build(f Factory) ([]*resource.Module, error) {
	recs, err := d.Records()
	if err != nil {
		return nil, err
	}
	mods := make([]*resource.Module, 0, len(recs))
	for _, rec := range recs {
		m, err := FromRecord(rec, f)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// Load reads a manifest from a local path or an http(s) URL.
func Load(ctx context.Context, source string, client service.HTTPClient) (*Document, error) {
	format := FormatOf(source)

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err := service.FetchBytes(ctx, client, source, maxManifestBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to download manifest %s: %w", source, err)
		}
		return Decode(data, format)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", source, err)
	}
	return Decode(data, format)
}

// FormatOf guesses the format from the extension; JSON is the default.
func FormatOf(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".yml", ".yaml":
		return "yaml"
	default:
		return "json"
	}
}
