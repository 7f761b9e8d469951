// Package slog provides logging decorators and a log-backed notifier.
package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/grabfile"
)

// Ensure Notifier implements grabfile.Notifier.
var _ grabfile.Notifier = (*Notifier)(nil)

// Notifier delivers notifications as log records. It is the fallback
// channel when no remote endpoint is configured.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Notify logs text at info level.
func (n *Notifier) Notify(ctx context.Context, text string) {
	n.logger.InfoContext(ctx, "notify", "text", text)
}

// NotifyFile logs the file path and caption.
func (n *Notifier) NotifyFile(ctx context.Context, path, caption string) {
	n.logger.InfoContext(ctx, "notify", "text", caption, "file", path)
}
