package main_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fwojciec/grabfile"
	main "github.com/fwojciec/grabfile/cmd/grabfile"
	"github.com/fwojciec/grabfile/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("lists runs with status and result", func(t *testing.T) {
		t.Parallel()

		var gotFilter grabfile.RunFilter
		runs := &mock.RunService{
			FindRunsFn: func(_ context.Context, filter grabfile.RunFilter) ([]*grabfile.Run, error) {
				gotFilter = filter
				return []*grabfile.Run{
					{URL: "https://a.example.com", Status: grabfile.StatusSuccess, Filename: "a.zip", Attempts: 1, Mode: "fast", StartedAt: time.Now()},
					{URL: "https://b.example.com", Status: grabfile.StatusFailure, ErrorKind: grabfile.EREADINESS, Message: "no locator", Attempts: 3, Mode: "observable", StartedAt: time.Now()},
				}, nil
			},
		}
		var stdout, stderr bytes.Buffer
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &stdout, Stderr: &stderr, Runs: runs}

		err := (&main.HistoryCmd{Limit: 5, Failed: true}).Run(deps)

		require.NoError(t, err)
		assert.Equal(t, 5, gotFilter.Limit)
		require.NotNil(t, gotFilter.Status)
		assert.Equal(t, grabfile.StatusFailure, *gotFilter.Status)
		assert.Nil(t, gotFilter.URL)

		out := stdout.String()
		assert.Contains(t, out, "a.zip")
		assert.Contains(t, out, "readiness_timeout: no locator")
		assert.Contains(t, out, "observable")
	})

	t.Run("shows helpful message when empty", func(t *testing.T) {
		t.Parallel()

		runs := &mock.RunService{
			FindRunsFn: func(context.Context, grabfile.RunFilter) ([]*grabfile.Run, error) { return nil, nil },
		}
		var stdout, stderr bytes.Buffer
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &stdout, Stderr: &stderr, Runs: runs}

		require.NoError(t, (&main.HistoryCmd{}).Run(deps))
		assert.Contains(t, stdout.String(), "No runs recorded")
	})
}
