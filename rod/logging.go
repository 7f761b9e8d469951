package rod

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/grabfile"
)

// Ensure LoggingEnvironment implements grabfile.Environment.
var _ grabfile.Environment = (*LoggingEnvironment)(nil)

// LoggingEnvironment wraps an Environment with debug logging of session
// lifecycles.
type LoggingEnvironment struct {
	next   grabfile.Environment
	logger *slog.Logger
}

// NewLoggingEnvironment creates a new LoggingEnvironment.
func NewLoggingEnvironment(next grabfile.Environment, logger *slog.Logger) *LoggingEnvironment {
	return &LoggingEnvironment{next: next, logger: logger}
}

// Name delegates to the wrapped environment.
func (e *LoggingEnvironment) Name() string {
	return e.next.Name()
}

// NewSession logs session creation and wraps the session so its close is
// logged too.
func (e *LoggingEnvironment) NewSession(ctx context.Context) (sess grabfile.Session, err error) {
	defer func(begin time.Time) {
		e.logger.Debug("session open",
			"mode", e.next.Name(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	sess, err = e.next.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	return &loggingSession{next: sess, mode: e.next.Name(), logger: e.logger, opened: time.Now()}, nil
}

// Close delegates to the wrapped environment.
func (e *LoggingEnvironment) Close() error {
	return e.next.Close()
}

type loggingSession struct {
	next   grabfile.Session
	mode   string
	logger *slog.Logger
	opened time.Time
}

func (s *loggingSession) Page() grabfile.Page {
	return s.next.Page()
}

func (s *loggingSession) Close() (err error) {
	defer func() {
		s.logger.Debug("session close",
			"mode", s.mode,
			"lifetime", time.Since(s.opened),
			"err", err,
		)
	}()
	return s.next.Close()
}
