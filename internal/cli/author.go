package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/wavebound/storyline"
	"github.com/wavebound/storyline/internal/presentation/graph"
	"github.com/wavebound/storyline/pkg/codec"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/validator"
)

// Output formats of ExportEpisode.
const (
	FormatMermaid = "mermaid"
	FormatCanvas  = "canvas"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
)

// ReadEpisodeFile decodes an episode document from disk.
func ReadEpisodeFile(path string) (*domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// PrintReport writes the violations of r, or a success line, and returns
// r.Err().
func PrintReport(w io.Writer, r *validator.Report) error {
	if r.OK() {
		fmt.Fprintf(w, "Graph is valid (start: %s, %d nodes)\n", r.StartNodeID, len(r.Kinds))
		return nil
	}
	for _, v := range r.Violations {
		fmt.Fprintf(w, "  - %s\n", v.Error())
	}
	return r.Err()
}

// ImportEpisode stores the document at path as an episode. Invalid graphs
// are stored anyway; the report lists what is wrong.
func ImportEpisode(ctx context.Context, engine *storyline.Engine, seriesID, episodeID, path string) (*validator.Report, error) {
	g, err := ReadEpisodeFile(path)
	if err != nil {
		return nil, err
	}
	return engine.Save(ctx, seriesID, episodeID, g)
}

// ExportEpisode writes a stored episode in the given format.
func ExportEpisode(ctx context.Context, w io.Writer, engine *storyline.Engine, seriesID, episodeID, format string) error {
	if format == FormatCanvas {
		c, err := engine.Canvas(ctx, seriesID, episodeID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}

	g, err := engine.Open(ctx, seriesID, episodeID)
	if err != nil {
		return err
	}
	return WriteGraph(w, g, format)
}

// WriteGraph renders g as Mermaid or re-encodes it as a document.
func WriteGraph(w io.Writer, g *domain.Graph, format string) error {
	switch format {
	case FormatMermaid, "":
		_, err := io.WriteString(w, graph.GenerateMermaid(g, nil))
		return err
	case FormatJSON, FormatYAML:
		data, err := codec.Encode(g, codec.Format(format))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}
