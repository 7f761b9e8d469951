package rod_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/grabfile"
	"github.com/fwojciec/grabfile/mock"
	"github.com/fwojciec/grabfile/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("logs session open and close", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		page := &mock.Page{}
		var closed bool
		inner := &mock.Environment{
			NameFn: func() string { return "fast" },
			NewSessionFn: func(context.Context) (grabfile.Session, error) {
				return &mock.Session{
					PageFn:  func() grabfile.Page { return page },
					CloseFn: func() error { closed = true; return nil },
				}, nil
			},
		}

		env := rod.NewLoggingEnvironment(inner, logger)
		assert.Equal(t, "fast", env.Name())

		sess, err := env.NewSession(context.Background())
		require.NoError(t, err)
		assert.Same(t, page, sess.Page())
		require.NoError(t, sess.Close())
		assert.True(t, closed)

		out := buf.String()
		assert.Contains(t, out, "session open")
		assert.Contains(t, out, "session close")
		assert.Contains(t, out, "mode=fast")
	})

	t.Run("logs session errors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		inner := &mock.Environment{
			NameFn: func() string { return "observable" },
			NewSessionFn: func(context.Context) (grabfile.Session, error) {
				return nil, errors.New("chrome not found")
			},
		}

		_, err := rod.NewLoggingEnvironment(inner, logger).NewSession(context.Background())
		require.Error(t, err)
		assert.Contains(t, buf.String(), "chrome not found")
	})
}
