package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/grabfile"
)

// Ensure LoggingGrabber implements grabfile.Grabber.
var _ grabfile.Grabber = (*LoggingGrabber)(nil)

// LoggingGrabber wraps a Grabber with info logging of each run's outcome.
type LoggingGrabber struct {
	next   grabfile.Grabber
	logger *slog.Logger
}

// NewLoggingGrabber creates a new LoggingGrabber.
func NewLoggingGrabber(next grabfile.Grabber, logger *slog.Logger) *LoggingGrabber {
	return &LoggingGrabber{next: next, logger: logger}
}

// Grab delegates to the wrapped grabber and logs the outcome.
func (g *LoggingGrabber) Grab(ctx context.Context, targetURL string, opts grabfile.Options) *grabfile.Outcome {
	begin := time.Now()
	outcome := g.next.Grab(ctx, targetURL, opts)
	attrs := []any{
		"url", targetURL,
		"status", outcome.Status,
		"attempts", outcome.Attempts,
		"mode", outcome.Mode,
		"duration", time.Since(begin),
	}
	if outcome.Succeeded() {
		g.logger.Info("grab", append(attrs, "filename", outcome.Filename)...)
	} else {
		g.logger.Warn("grab", append(attrs, "kind", outcome.ErrorKind, "message", outcome.Message)...)
	}
	return outcome
}
