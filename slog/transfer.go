package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/grabfile"
)

// Ensure LoggingTransferer implements grabfile.Transferer.
var _ grabfile.Transferer = (*LoggingTransferer)(nil)

// LoggingTransferer wraps a Transferer with info logging.
type LoggingTransferer struct {
	next   grabfile.Transferer
	logger *slog.Logger
}

// NewLoggingTransferer creates a new LoggingTransferer.
func NewLoggingTransferer(next grabfile.Transferer, logger *slog.Logger) *LoggingTransferer {
	return &LoggingTransferer{next: next, logger: logger}
}

// Transfer delegates to the wrapped transferer and logs the result.
func (t *LoggingTransferer) Transfer(ctx context.Context, job *grabfile.TransferJob) (filename string, err error) {
	defer func(begin time.Time) {
		t.logger.Info("transfer",
			"urls", len(job.URLs),
			"filename", filename,
			"code", grabfile.ErrorCode(err),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return t.next.Transfer(ctx, job)
}
