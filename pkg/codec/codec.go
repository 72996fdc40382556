// Package codec reads and writes episode documents.
//
// Documents are YAML or JSON. Decoding is tolerant: numeric ids, integer
// timestamps and unknown fields written by older editors are accepted.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/wavebound/storyline/pkg/domain"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension. Unknown extensions
// are treated as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Decode parses an episode document. A document may be a graph object or a
// bare list of nodes.
func Decode(data []byte) (*domain.Graph, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty episode document")
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse episode document: %w", err)
	}

	switch v := raw.(type) {
	case []any:
		raw = map[string]any{"nodes": v}
	case map[string]any:
	default:
		return nil, fmt.Errorf("episode document must be an object or a list of nodes, got %T", raw)
	}

	var g domain.Graph
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &g,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode episode document: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = []domain.Node{}
	}
	return &g, nil
}

// Encode serializes a graph.
func Encode(g *domain.Graph, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal graph: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return nil, fmt.Errorf("failed to marshal graph: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal graph: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
