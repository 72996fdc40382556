package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/wavebound/storyline"
	mcpAdapter "github.com/wavebound/storyline/pkg/adapters/mcp"
	"github.com/wavebound/storyline/pkg/observability"
)

// NewMCPServer builds the MCP tool server. Sessions use the engine's
// playback settings.
func NewMCPServer(engine *storyline.Engine, logger *slog.Logger) *mcpAdapter.Server {
	return mcpAdapter.NewServer(engine.Episodes(),
		mcpAdapter.WithLogger(logger),
		mcpAdapter.WithVersion(storyline.Version),
		mcpAdapter.WithHooks(observability.LogHooks(logger)),
		mcpAdapter.WithPlaybackOptions(engine.PlaybackOptions()...),
	)
}

// ServeMCP serves srv over in and out until ctx is cancelled or in is
// exhausted. Every session is stopped on return.
func ServeMCP(ctx context.Context, srv *mcpAdapter.Server, in io.Reader, out io.Writer) error {
	defer srv.Close()
	err := srv.ServeStdio(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
