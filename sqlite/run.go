package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/fwojciec/grabfile"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ grabfile.RunService = (*RunService)(nil)

// RunService implements grabfile.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun stores a run and assigns a new ID. Zero timestamps are set to
// the current time.
func (s *RunService) CreateRun(ctx context.Context, run *grabfile.Run) error {
	if err := run.Validate(); err != nil {
		return err
	}

	run.ID = uuid.New().String()
	now := time.Now().UTC()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, url, status, filename, error_kind, message, attempts, mode, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.URL, string(run.Status), run.Filename, run.ErrorKind, run.Message, run.Attempts, run.Mode,
		run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339))

	return err
}

// FindRuns retrieves runs matching the filter, newest first.
func (s *RunService) FindRuns(ctx context.Context, filter grabfile.RunFilter) ([]*grabfile.Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, url, status, filename, error_kind, message, attempts, mode, started_at, finished_at
		FROM runs WHERE 1=1`)

	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}

	// rowid breaks ties between runs started within the same second.
	query.WriteString(" ORDER BY started_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*grabfile.Run
	for rows.Next() {
		var run grabfile.Run
		var status, startedAt, finishedAt string

		if err := rows.Scan(&run.ID, &run.URL, &status, &run.Filename, &run.ErrorKind, &run.Message,
			&run.Attempts, &run.Mode, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.Status = grabfile.Status(status)

		if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
			return nil, err
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
