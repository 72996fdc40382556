package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wavebound/storyline/internal/logging"
)

// errInterrupted is returned by InterruptibleReader after cancellation.
var errInterrupted = errors.New("interrupted")

// SignalContext is a context cancelled by SIGINT or SIGTERM that remembers
// which signal arrived.
type SignalContext struct {
	context.Context
	Cancel context.CancelFunc

	mu  sync.Mutex
	sig os.Signal
}

// NewSignalContext works like signal.NotifyContext but keeps the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			sc.mu.Lock()
			sc.sig = sig
			sc.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sig
}

// NewLogger configures the application logger. Logs go to stderr so they
// never mix with playback output on stdout.
func NewLogger(level string) (*slog.Logger, error) {
	if level == "off" || level == "" {
		return logging.NewNop(), nil
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(lvl), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// InterruptibleReader fails reads with errInterrupted once cancel is closed,
// so a prompt blocked on stdin gives up after Ctrl+C.
type InterruptibleReader struct {
	r      io.Reader
	cancel <-chan struct{}
}

// NewInterruptibleReader wraps r.
func NewInterruptibleReader(r io.Reader, cancel <-chan struct{}) *InterruptibleReader {
	return &InterruptibleReader{r: r, cancel: cancel}
}

func (ir *InterruptibleReader) cancelled() bool {
	select {
	case <-ir.cancel:
		return true
	default:
		return false
	}
}

func (ir *InterruptibleReader) Read(p []byte) (int, error) {
	if ir.cancelled() {
		return 0, errInterrupted
	}
	n, err := ir.r.Read(p)
	if ir.cancelled() {
		return 0, errInterrupted
	}
	return n, err
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, errInterrupted)
}

// handleExecutionError turns user interruptions into a clean exit.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}
