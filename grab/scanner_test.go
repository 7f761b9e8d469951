package grab_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/grabfile"
	"github.com/fwojciec/grabfile/grab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner() *grab.Scanner {
	return &grab.Scanner{Timeout: 100 * time.Millisecond, Interval: 5 * time.Millisecond}
}

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	t.Run("first visible entry in table order wins", func(t *testing.T) {
		t.Parallel()

		page := newFakePage("https://host.example.com")
		page.ElementFn = func(_ context.Context, spec grabfile.LocatorSpec) (*grabfile.ElementInfo, error) {
			// Both later entries are visible; the earlier one must win.
			if spec.Pattern == "download now" || spec.Pattern == "a.file" {
				return &grabfile.ElementInfo{Tag: "button", Text: spec.Pattern}, nil
			}
			return nil, nil
		}

		spec, info, err := newTestScanner().Scan(context.Background(), page, testLocators())
		require.NoError(t, err)
		require.NotNil(t, spec)
		assert.Equal(t, "download now", spec.Pattern)
		assert.Equal(t, "download now", info.Text)
	})

	t.Run("waits for element to appear", func(t *testing.T) {
		t.Parallel()

		var polls atomic.Int32
		page := newFakePage("https://host.example.com")
		page.ElementFn = func(_ context.Context, spec grabfile.LocatorSpec) (*grabfile.ElementInfo, error) {
			if spec.Pattern != "a.file" {
				return nil, nil
			}
			if polls.Add(1) < 3 {
				return nil, nil
			}
			return &grabfile.ElementInfo{Tag: "a"}, nil
		}

		spec, _, err := newTestScanner().Scan(context.Background(), page, testLocators())
		require.NoError(t, err)
		require.NotNil(t, spec)
		assert.Equal(t, "a.file", spec.Pattern)
		assert.GreaterOrEqual(t, polls.Load(), int32(3))
	})

	t.Run("probe errors count as not visible", func(t *testing.T) {
		t.Parallel()

		page := newFakePage("https://host.example.com")
		page.ElementFn = func(_ context.Context, spec grabfile.LocatorSpec) (*grabfile.ElementInfo, error) {
			if spec.Pattern == "generate link" {
				return nil, errors.New("detached node")
			}
			if spec.Pattern == "a.file" {
				return &grabfile.ElementInfo{Tag: "a"}, nil
			}
			return nil, nil
		}

		spec, _, err := newTestScanner().Scan(context.Background(), page, testLocators())
		require.NoError(t, err)
		require.NotNil(t, spec)
		assert.Equal(t, "a.file", spec.Pattern)
	})

	t.Run("returns nil on timeout", func(t *testing.T) {
		t.Parallel()

		page := newFakePage("https://host.example.com")
		start := time.Now()
		spec, info, err := newTestScanner().ScanWithin(context.Background(), page, testLocators(), 30*time.Millisecond)
		require.NoError(t, err)
		assert.Nil(t, spec)
		assert.Nil(t, info)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("returns error when context is canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		page := newFakePage("https://host.example.com")
		_, _, err := newTestScanner().Scan(ctx, page, testLocators())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
