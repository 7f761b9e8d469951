package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fwojciec/grabfile"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	if deps.Runs == nil {
		err := grabfile.Errorf(grabfile.EINVALID, "run history is disabled; set --db or GRABFILE_DB")
		fmt.Fprintf(deps.Stderr, "error: %s\n", grabfile.ErrorMessage(err))
		return err
	}

	filter := grabfile.RunFilter{Limit: c.Limit}
	if c.URL != "" {
		filter.URL = &c.URL
	}
	if c.Failed {
		status := grabfile.StatusFailure
		filter.Status = &status
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", grabfile.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No runs recorded. Use 'grabfile get' to start one.")
		return nil
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	for _, r := range runs {
		result := r.Filename
		if r.Status == grabfile.StatusFailure {
			result = r.ErrorKind + ": " + r.Message
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Status,
			r.Mode,
			r.URL,
			r.Attempts,
			result,
		)
	}
	return w.Flush()
}
