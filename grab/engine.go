package grab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/grabfile"
)

// MaxMessageLength caps diagnostic messages in outcomes and notifications.
const MaxMessageLength = 300

// screenshotTimeout bounds the failure screenshot, which is taken with a
// context detached from the run so a canceled run can still be diagnosed.
const screenshotTimeout = 5 * time.Second

// notifyTimeout bounds terminal notification delivery.
const notifyTimeout = 30 * time.Second

// State is a step of the attempt controller.
type State string

// Controller states.
const (
	StateInit              State = "init"
	StateNavigating        State = "navigating"
	StateAwaitingReadiness State = "awaiting_readiness"
	StateScanning          State = "scanning"
	StateCapturing         State = "capturing"
	StateSuccess           State = "success"
	StateRetrying          State = "retrying"
	StateEscalating        State = "escalating"
	StateTerminal          State = "terminal"
)

// Attempt is one pass of readiness, scan, and capture. Index starts at 1.
type Attempt struct {
	Index     int
	Locator   grabfile.LocatorSpec
	StartedAt time.Time
}

// Ensure Engine implements grabfile.Grabber.
var _ grabfile.Grabber = (*Engine)(nil)

// Engine is the attempt controller. It drives one run per environment,
// escalating from the first environment to the second when the first fails
// with a navigation, readiness, or capture error.
type Engine struct {
	// Environments in escalation order. Only the first two are used.
	Environments []grabfile.Environment

	Detector   *ReadinessDetector
	Scanner    *Scanner
	Capturer   *Capturer
	Transferer grabfile.Transferer
	Notifier   grabfile.Notifier
	Logger     *slog.Logger

	// RescanTimeout bounds the scan after a reload.
	RescanTimeout time.Duration

	Sleep SleepFunc
	Now   func() time.Time
}

// NewEngine returns an Engine with default components. Callers set
// Transferer and Notifier.
func NewEngine(dir string, inspector grabfile.PageInspector, prober grabfile.URLProber, logger *slog.Logger, envs ...grabfile.Environment) *Engine {
	return &Engine{
		Environments:  envs,
		Detector:      NewReadinessDetector(inspector),
		Scanner:       NewScanner(),
		Capturer:      NewCapturer(dir, prober, inspector, logger),
		Logger:        logger,
		RescanTimeout: DefaultRescanTimeout,
		Sleep:         Sleep,
		Now:           time.Now,
	}
}

// runResult is what one environment run produced.
type runResult struct {
	mode       string
	filename   string
	attempts   int
	err        error
	screenshot []byte
}

// Grab implements grabfile.Grabber.
func (e *Engine) Grab(ctx context.Context, targetURL string, opts grabfile.Options) *grabfile.Outcome {
	log := loggerOrDiscard(e.Logger).With("url", targetURL)

	res := e.grab(ctx, targetURL, opts, log)
	outcome := &grabfile.Outcome{
		Status:   grabfile.StatusSuccess,
		Filename: res.filename,
		Attempts: res.attempts,
		Mode:     res.mode,
	}
	if res.err != nil {
		outcome.Status = grabfile.StatusFailure
		outcome.Filename = ""
		outcome.ErrorKind = grabfile.ErrorCode(res.err)
		outcome.Message = truncate(grabfile.ErrorMessage(res.err), MaxMessageLength)
		log.Error("run failed", "kind", outcome.ErrorKind, "message", outcome.Message, "attempts", outcome.Attempts, "mode", outcome.Mode)
	} else {
		log.Info("run succeeded", "filename", outcome.Filename, "attempts", outcome.Attempts, "mode", outcome.Mode)
	}
	e.report(ctx, outcome, res.screenshot, log)
	return outcome
}

func (e *Engine) grab(ctx context.Context, targetURL string, opts grabfile.Options, log *slog.Logger) runResult {
	u, err := url.Parse(targetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return runResult{err: grabfile.Errorf(grabfile.EUNSUPPORTED, "unsupported URL %q", targetURL)}
	}
	if len(opts.Locators) > 0 {
		if err := opts.Locators.Validate(); err != nil {
			return runResult{err: err}
		}
	}
	opts = opts.WithDefaults()

	envs := e.Environments
	if len(envs) == 0 {
		return runResult{err: grabfile.Errorf(grabfile.EUNSUPPORTED, "no browser environment configured")}
	}
	if len(envs) > 2 {
		envs = envs[:2]
	}

	ctx, cancel := context.WithTimeout(ctx, opts.OverallTimeout)
	defer cancel()

	table := opts.Locators.Sorted()
	var res runResult
	for i, env := range envs {
		res = e.runIn(ctx, env, targetURL, table, opts, log.With("mode", env.Name()))
		if res.err == nil || i == len(envs)-1 || ctx.Err() != nil || !escalates(res.err) {
			break
		}
		log.Info("escalating", "state", StateEscalating, "from", env.Name(), "to", envs[i+1].Name(), "kind", grabfile.ErrorCode(res.err))
	}
	return res
}

// escalates reports whether a failed run may be retried in the next
// environment. Transfer failures are never retried.
func escalates(err error) bool {
	switch grabfile.ErrorCode(err) {
	case grabfile.ENAVIGATION, grabfile.EREADINESS, grabfile.ECAPTURE:
		return true
	}
	return false
}

// runIn executes the controller state machine inside one environment.
func (e *Engine) runIn(ctx context.Context, env grabfile.Environment, targetURL string, table grabfile.LocatorTable, opts grabfile.Options, log *slog.Logger) (res runResult) {
	res.mode = env.Name()
	state := func(s State, args ...any) {
		log.Debug("state", append([]any{"state", s}, args...)...)
	}
	state(StateInit)

	sess, err := env.NewSession(ctx)
	if err != nil {
		res.err = e.fail(ctx, grabfile.ENAVIGATION, "open session: %v", err)
		return res
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("closing session failed", "error", err)
		}
	}()
	page := sess.Page()
	defer func() {
		if res.err != nil {
			res.screenshot = e.screenshot(ctx, page, log)
		}
		state(StateTerminal, "attempts", res.attempts)
	}()

	state(StateNavigating)
	if err := page.Navigate(ctx, targetURL); err != nil {
		res.err = e.fail(ctx, grabfile.ENAVIGATION, "navigate: %v", err)
		return res
	}

	// tried holds the locators acted on since the last page load.
	tried := make(map[string]bool)
	for n := 1; n <= opts.MaxAttempts; n++ {
		res.attempts = n

		if err := e.awaitReadiness(ctx, page, n, log); err != nil {
			res.err = err
			return res
		}

		state(StateScanning, "attempt", n)
		var (
			spec *grabfile.LocatorSpec
			info *grabfile.ElementInfo
			err  error
		)
		if n == 1 {
			spec, info, err = e.Scanner.ScanWithin(ctx, page, table, e.Scanner.Timeout)
		} else {
			// A failed action may have revealed the next step of a
			// multi-step flow on the same page.
			if rest := untried(table, tried); len(rest) > 0 {
				spec, info, err = e.Scanner.ScanWithin(ctx, page, rest, e.rescanTimeout())
			}
			if err == nil && spec == nil {
				state(StateRetrying, "attempt", n)
				if err := page.Reload(ctx); err != nil {
					res.err = e.fail(ctx, grabfile.ENAVIGATION, "reload: %v", err)
					return res
				}
				clear(tried)
				if err := e.awaitReadiness(ctx, page, n, log); err != nil {
					res.err = err
					return res
				}
				spec, info, err = e.Scanner.ScanWithin(ctx, page, table, e.rescanTimeout())
			}
		}
		if err != nil {
			res.err = e.fail(ctx, grabfile.ECANCELED, "%v", err)
			return res
		}
		if spec == nil {
			if n == 1 {
				res.err = grabfile.Errorf(grabfile.EREADINESS, "no download trigger became visible within %s", e.Scanner.Timeout)
			} else {
				res.err = grabfile.Errorf(grabfile.EREADINESS, "no download trigger visible after reload (attempt %d)", n)
			}
			return res
		}
		tried[spec.String()] = true

		attempt := Attempt{Index: n, Locator: *spec, StartedAt: e.now()}
		state(StateCapturing, "attempt", attempt.Index, "locator", attempt.Locator.String())
		result, strategy := e.Capturer.Capture(ctx, page, attempt.Locator, info)
		if result != nil {
			log.Info("captured", "attempt", n, "strategy", strategy, "elapsed", e.now().Sub(attempt.StartedAt))
			res.filename, res.err = e.finish(ctx, result, opts)
			if res.err == nil {
				state(StateSuccess, "attempt", n)
			}
			return res
		}
		if ctx.Err() != nil {
			res.err = e.fail(ctx, grabfile.ECANCELED, "%v", ctx.Err())
			return res
		}
	}

	res.err = grabfile.Errorf(grabfile.ECAPTURE, "no capture strategy produced a file after %d attempt(s)", res.attempts)
	return res
}

// awaitReadiness sleeps for whatever wait the page's readiness signals ask for.
func (e *Engine) awaitReadiness(ctx context.Context, page grabfile.Page, n int, log *slog.Logger) error {
	log.Debug("state", "state", StateAwaitingReadiness, "attempt", n)
	wait := e.Detector.WaitFor(e.Detector.DetectWait(ctx, page))
	if wait <= 0 {
		return nil
	}
	log.Info("waiting for page readiness", "attempt", n, "wait", wait)
	if err := e.sleep(ctx, wait); err != nil {
		return e.fail(ctx, grabfile.ECANCELED, "%v", err)
	}
	return nil
}

// untried returns the locators of table not yet acted on, in table order.
func untried(table grabfile.LocatorTable, tried map[string]bool) grabfile.LocatorTable {
	var out grabfile.LocatorTable
	for _, spec := range table {
		if !tried[spec.String()] {
			out = append(out, spec)
		}
	}
	return out
}

// finish turns a capture result into the final filename, delegating remote
// URLs to the transferer.
func (e *Engine) finish(ctx context.Context, result grabfile.CaptureResult, opts grabfile.Options) (string, error) {
	switch r := result.(type) {
	case *grabfile.LocalFile:
		return filepath.Base(r.Path), nil
	case *grabfile.RemoteURL:
		if e.Transferer == nil {
			return "", grabfile.Errorf(grabfile.EUNSUPPORTED, "no transfer delegate for %s", r.URL)
		}
		job := grabfile.NewTransferJob(r)
		job.StallTimeout = opts.StallTimeout
		if job.OutputName == "" {
			job.OutputName = grabfile.FallbackFilename
		}
		name, err := e.Transferer.Transfer(ctx, job)
		if err != nil {
			if ctx.Err() != nil {
				return "", e.fail(ctx, grabfile.ECANCELED, "%v", ctx.Err())
			}
			switch grabfile.ErrorCode(err) {
			case grabfile.ESTALLED, grabfile.ETRANSFER:
				return "", err
			}
			return "", grabfile.Errorf(grabfile.ETRANSFER, "%v", err)
		}
		return name, nil
	}
	return "", grabfile.Errorf(grabfile.EINTERNAL, "unknown capture result %T", result)
}

// fail builds an error with code, reporting cancellation instead when the
// run's context is done.
func (e *Engine) fail(ctx context.Context, code, format string, args ...any) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return grabfile.Errorf(grabfile.ECANCELED, "overall timeout exceeded")
		}
		return grabfile.Errorf(grabfile.ECANCELED, "run canceled")
	}
	return grabfile.Errorf(code, format, args...)
}

func (e *Engine) screenshot(ctx context.Context, page grabfile.Page, log *slog.Logger) []byte {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), screenshotTimeout)
	defer cancel()
	img, err := page.Screenshot(ctx)
	if err != nil {
		log.Debug("failure screenshot unavailable", "error", err)
		return nil
	}
	return img
}

// report sends exactly one terminal notification. A failure screenshot is
// attached from a temp dir that is removed afterwards.
func (e *Engine) report(ctx context.Context, outcome *grabfile.Outcome, screenshot []byte, log *slog.Logger) {
	if e.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	text := summary(outcome)
	if outcome.Succeeded() || len(screenshot) == 0 {
		e.Notifier.Notify(ctx, text)
		return
	}

	dir, err := os.MkdirTemp("", "grabfile-shot-*")
	if err != nil {
		log.Warn("staging screenshot failed", "error", err)
		e.Notifier.Notify(ctx, text)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "failure.png")
	if err := os.WriteFile(path, screenshot, 0o600); err != nil {
		log.Warn("staging screenshot failed", "error", err)
		e.Notifier.Notify(ctx, text)
		return
	}
	e.Notifier.NotifyFile(ctx, path, text)
}

func summary(o *grabfile.Outcome) string {
	if o.Succeeded() {
		return fmt.Sprintf("Downloaded %s (%s, %d attempt(s))", o.Filename, o.Mode, o.Attempts)
	}
	return truncate(fmt.Sprintf("Download failed [%s]: %s", o.ErrorKind, o.Message), MaxMessageLength)
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) rescanTimeout() time.Duration {
	if e.RescanTimeout > 0 {
		return e.RescanTimeout
	}
	return DefaultRescanTimeout
}
