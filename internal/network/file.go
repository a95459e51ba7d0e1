package network

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"roadcover/internal/graph"
)

// ErrUnknownFormat is returned for file extensions other than .json, .yaml
// and .yml.
var ErrUnknownFormat = errors.New("network: unknown file format")

// Format is a segment file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file name's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// File is the on-disk shape of a preprocessed network.
type File struct {
	Name     string          `json:"name,omitempty" yaml:"name,omitempty"`
	Depot    int64           `json:"depot,omitempty" yaml:"depot,omitempty"`
	Segments []graph.Segment `json:"segments" yaml:"segments"`
}

// Decode reads a network document. A JSON document carrying an Overpass
// "elements" array is preprocessed on the fly.
func Decode(r io.Reader, f Format) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out File
	switch f {
	case FormatJSON:
		var probe struct {
			Elements json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("decode network: %w", err)
		}
		if probe.Elements != nil {
			ex, err := DecodeOverpass(bytes.NewReader(data), nil)
			if err != nil {
				return nil, err
			}
			out.Segments, _ = Preprocess(ex)
			return &out, nil
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode network: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode network: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return &out, nil
}

// Encode writes v, usually a *File, in format f.
func Encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Load reads a network file, choosing the decoder by extension.
func Load(path string) (*File, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	nf, err := Decode(fh, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if nf.Name == "" {
		nf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return nf, nil
}

// Save writes nf to path in the format implied by its extension.
func Save(path string, nf *File) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, f, nf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
