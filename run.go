package grabfile

import (
	"context"
	"time"
)

// Run is the persisted record of one engine invocation.
type Run struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Status     Status    `json:"status"`
	Filename   string    `json:"filename"`
	ErrorKind  string    `json:"errorKind"`
	Message    string    `json:"message"`
	Attempts   int       `json:"attempts"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Validate returns an error if the run contains invalid fields.
func (r *Run) Validate() error {
	if r.URL == "" {
		return Errorf(EINVALID, "run URL required")
	}
	switch r.Status {
	case StatusSuccess, StatusFailure:
	default:
		return Errorf(EINVALID, "run status %q invalid", r.Status)
	}
	return nil
}

// NewRun builds a history record from an outcome.
func NewRun(targetURL string, outcome *Outcome, startedAt, finishedAt time.Time) *Run {
	return &Run{
		URL:        targetURL,
		Status:     outcome.Status,
		Filename:   outcome.Filename,
		ErrorKind:  outcome.ErrorKind,
		Message:    outcome.Message,
		Attempts:   outcome.Attempts,
		Mode:       outcome.Mode,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
}

// RunService represents a service for recording run history.
type RunService interface {
	// CreateRun stores a run and assigns its ID.
	CreateRun(ctx context.Context, run *Run) error

	// FindRuns retrieves runs matching the filter, newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	URL    *string `json:"url"`
	Status *Status `json:"status"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
