package grab_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/grabfile"
	"github.com/fwojciec/grabfile/grab"
	"github.com/fwojciec/grabfile/mock"
)

// fakePage is a mock.Page with working defaults and controllable event
// channels.
type fakePage struct {
	*mock.Page

	downloads chan grabfile.Download
	popups    chan grabfile.Page
	responses chan grabfile.Response

	acts    atomic.Int32
	reloads atomic.Int32
	closed  atomic.Bool
}

func newFakePage(pageURL string) *fakePage {
	fp := &fakePage{
		downloads: make(chan grabfile.Download, 8),
		popups:    make(chan grabfile.Page, 8),
		responses: make(chan grabfile.Response, 32),
	}
	fp.Page = &mock.Page{
		URLFn:      func() string { return pageURL },
		NavigateFn: func(context.Context, string) error { return nil },
		ReloadFn: func(context.Context) error {
			fp.reloads.Add(1)
			return nil
		},
		HTMLFn:    func(context.Context) (string, error) { return "<html><body></body></html>", nil },
		ElementFn: func(context.Context, grabfile.LocatorSpec) (*grabfile.ElementInfo, error) { return nil, nil },
		ProbeFn:   func(context.Context, string) (*grabfile.ElementInfo, error) { return nil, nil },
		EvalIntFn: func(context.Context, string) (int, error) { return 0, nil },
		WatchFn: func(context.Context) (*grabfile.Watch, error) {
			return &grabfile.Watch{
				Downloads: fp.downloads,
				Popups:    fp.popups,
				Responses: fp.responses,
				Stop:      func() {},
			}, nil
		},
		ActFn: func(context.Context, grabfile.LocatorSpec) error {
			fp.acts.Add(1)
			return nil
		},
		ReadBlobFn: func(context.Context, string) (*grabfile.Blob, error) {
			return nil, errors.New("no blob")
		},
		RequestHeadersFn: func(_ context.Context, _ string) (map[string]string, error) {
			return map[string]string{"Cookie": "session=abc", "Referer": pageURL}, nil
		},
		ScreenshotFn: func(context.Context) ([]byte, error) { return nil, errors.New("no screenshot") },
		CloseFn: func() error {
			fp.closed.Store(true)
			return nil
		},
	}
	return fp
}

// visibleFor makes spec matching pattern visible with info.
func visibleFor(pattern string, info *grabfile.ElementInfo) func(context.Context, grabfile.LocatorSpec) (*grabfile.ElementInfo, error) {
	return func(_ context.Context, spec grabfile.LocatorSpec) (*grabfile.ElementInfo, error) {
		if spec.Pattern == pattern {
			return info, nil
		}
		return nil, nil
	}
}

func newDownload(name string, content []byte) *mock.Download {
	return &mock.Download{
		SuggestedFilenameFn: func() string { return name },
		URLFn:               func() string { return "https://files.example.com/" + name },
		SaveAsFn: func(_ context.Context, path string) error {
			return os.WriteFile(path, content, 0o644)
		},
	}
}

// newTestCapturer returns a Capturer with short timings.
func newTestCapturer(dir string) *grab.Capturer {
	c := grab.NewCapturer(dir, nil, nil, nil)
	c.SniffWindow = 30 * time.Millisecond
	c.DownloadTimeout = 150 * time.Millisecond
	c.PopupTimeout = 150 * time.Millisecond
	return c
}

// sleepRecorder is a grab.SleepFunc that records requested durations.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

// testLocators is a small table used across tests.
func testLocators() grabfile.LocatorTable {
	return grabfile.LocatorTable{
		{Pattern: "generate link", Match: grabfile.MatchText, Kind: grabfile.KindButton, Priority: 0},
		{Pattern: "download now", Match: grabfile.MatchText, Kind: grabfile.KindButton, Priority: 10},
		{Pattern: "a.file", Match: grabfile.MatchCSS, Kind: grabfile.KindAnchor, Priority: 20},
	}
}
