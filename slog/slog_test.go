package slog_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/fwojciec/grabfile"
	"github.com/fwojciec/grabfile/mock"
	grabslog "github.com/fwojciec/grabfile/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggingTransferer_Transfer(t *testing.T) {
	t.Parallel()

	t.Run("logs filename and duration", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Transferer{
			TransferFn: func(context.Context, *grabfile.TransferJob) (string, error) {
				return "file.zip", nil
			},
		}

		name, err := grabslog.NewLoggingTransferer(inner, newLogger(&buf)).
			Transfer(context.Background(), &grabfile.TransferJob{URLs: []string{"https://a.example.com/f"}})

		require.NoError(t, err)
		assert.Equal(t, "file.zip", name)
		out := buf.String()
		assert.Contains(t, out, "msg=transfer")
		assert.Contains(t, out, "filename=file.zip")
		assert.Contains(t, out, "urls=1")
		assert.Contains(t, out, "duration=")
	})

	t.Run("logs error code on failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Transferer{
			TransferFn: func(context.Context, *grabfile.TransferJob) (string, error) {
				return "", grabfile.Errorf(grabfile.ESTALLED, "no progress")
			},
		}

		_, err := grabslog.NewLoggingTransferer(inner, newLogger(&buf)).
			Transfer(context.Background(), &grabfile.TransferJob{})

		require.Error(t, err)
		assert.Contains(t, buf.String(), "code=transfer_stalled")
	})
}

func TestLoggingGrabber_Grab(t *testing.T) {
	t.Parallel()

	t.Run("logs success at info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Grabber{
			GrabFn: func(context.Context, string, grabfile.Options) *grabfile.Outcome {
				return &grabfile.Outcome{Status: grabfile.StatusSuccess, Filename: "a.pdf", Attempts: 1, Mode: "fast"}
			},
		}

		out := grabslog.NewLoggingGrabber(inner, newLogger(&buf)).
			Grab(context.Background(), "https://host.example.com/f/1", grabfile.Options{})

		assert.True(t, out.Succeeded())
		assert.Contains(t, buf.String(), "level=INFO")
		assert.Contains(t, buf.String(), "filename=a.pdf")
	})

	t.Run("logs failure at warn", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Grabber{
			GrabFn: func(context.Context, string, grabfile.Options) *grabfile.Outcome {
				return &grabfile.Outcome{Status: grabfile.StatusFailure, ErrorKind: grabfile.EREADINESS, Message: "no locator"}
			},
		}

		grabslog.NewLoggingGrabber(inner, newLogger(&buf)).
			Grab(context.Background(), "https://host.example.com/f/1", grabfile.Options{})

		out := buf.String()
		assert.Contains(t, out, "level=WARN")
		assert.Contains(t, out, "kind=readiness_timeout")
	})
}

func TestLoggingRunService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := &mock.RunService{
		CreateRunFn: func(_ context.Context, run *grabfile.Run) error {
			run.ID = "run-1"
			return nil
		},
		FindRunsFn: func(context.Context, grabfile.RunFilter) ([]*grabfile.Run, error) {
			return []*grabfile.Run{{ID: "run-1"}, {ID: "run-2"}}, nil
		},
	}
	svc := grabslog.NewLoggingRunService(inner, newLogger(&buf))

	run := &grabfile.Run{URL: "https://host.example.com", Status: grabfile.StatusSuccess, StartedAt: time.Now()}
	require.NoError(t, svc.CreateRun(context.Background(), run))
	runs, err := svc.FindRuns(context.Background(), grabfile.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	out := buf.String()
	assert.Contains(t, out, "create run")
	assert.Contains(t, out, "id=run-1")
	assert.Contains(t, out, "count=2")
}

func TestNotifier(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := grabslog.NewNotifier(newLogger(&buf))
	n.Notify(context.Background(), "Downloading a.zip: 25%")
	n.NotifyFile(context.Background(), "/tmp/shot.png", "Download failed")

	out := buf.String()
	assert.Contains(t, out, `text="Downloading a.zip: 25%"`)
	assert.Contains(t, out, "file=/tmp/shot.png")
}
