// Package rod implements grabfile.Environment, Session, and Page on top of
// Chrome via go-rod.
package rod

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"

	"github.com/fwojciec/grabfile"
)

// Mode selects how the browser is launched.
type Mode string

// Execution modes in escalation order.
const (
	// ModeFast runs headless with stealth patches.
	ModeFast Mode = "fast"

	// ModeObservable runs a headful browser, optionally on a virtual
	// display. It is slower but defeats most headless detection.
	ModeObservable Mode = "observable"
)

// DefaultUserAgent replaces the HeadlessChrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Ensure Environment implements grabfile.Environment at compile time.
var _ grabfile.Environment = (*Environment)(nil)

// Environment owns one Chrome process for a mode. The browser is launched
// on the first NewSession call and every session gets its own incognito
// context. Environment is safe for concurrent use.
type Environment struct {
	mode      Mode
	bin       string
	userAgent string
	xvfb      bool
	noSandbox bool
	stealth   bool

	browser  *rod.Browser
	launcher *launcher.Launcher
	mu       sync.Mutex
	closed   atomic.Bool
}

// Option configures an Environment.
type Option func(*Environment)

// WithBin sets the browser binary. By default rod finds or downloads one.
func WithBin(path string) Option {
	return func(e *Environment) {
		e.bin = path
	}
}

// WithUserAgent overrides the session user agent.
func WithUserAgent(ua string) Option {
	return func(e *Environment) {
		e.userAgent = ua
	}
}

// WithXVFB runs a headful browser on a virtual display.
func WithXVFB(enabled bool) Option {
	return func(e *Environment) {
		e.xvfb = enabled
	}
}

// WithNoSandbox disables the Chrome sandbox, required when running as root.
func WithNoSandbox(enabled bool) Option {
	return func(e *Environment) {
		e.noSandbox = enabled
	}
}

// WithStealth toggles stealth script injection. Defaults to on in
// ModeFast and off in ModeObservable.
func WithStealth(enabled bool) Option {
	return func(e *Environment) {
		e.stealth = enabled
	}
}

// NewEnvironment creates an Environment for mode. Close must be called when
// the Environment is no longer needed.
func NewEnvironment(mode Mode, opts ...Option) *Environment {
	e := &Environment{
		mode:      mode,
		userAgent: DefaultUserAgent,
		stealth:   mode == ModeFast,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the mode name.
func (e *Environment) Name() string {
	return string(e.mode)
}

// NewSession opens an incognito context with a single page. Native
// downloads in the context are staged in a private directory and surfaced
// through Page.Watch.
func (e *Environment) NewSession(ctx context.Context) (grabfile.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	stageDir := filepath.Join(os.TempDir(), "grabfile-"+uuid.NewString())
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("creating download staging dir: %w", err)
	}

	sess := &Session{browser: incognito, stageDir: stageDir}
	if err := sess.open(e.userAgent, e.stealth); err != nil {
		_ = sess.Close()
		return nil, err
	}
	return sess, nil
}

// Close releases browser resources. Close is safe to call multiple times.
func (e *Environment) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	if e.launcher != nil {
		e.launcher.Kill()
		e.launcher = nil
	}
	return err
}

// LauncherPID returns the process ID of the browser launcher, or 0 before
// the first session. This method exists for testing purposes to verify
// proper cleanup.
func (e *Environment) LauncherPID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.launcher == nil {
		return 0
	}
	return e.launcher.PID()
}

func (e *Environment) ensureBrowser() (*rod.Browser, error) {
	if e.closed.Load() {
		return nil, grabfile.Errorf(grabfile.EINTERNAL, "environment %s is closed", e.mode)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser != nil {
		return e.browser, nil
	}

	l := e.newLauncher()
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	e.browser = browser
	e.launcher = l
	return browser, nil
}

// newLauncher applies stability and anti-detection flags for the mode.
func (e *Environment) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Set(flags.Flag("disable-popup-blocking")).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("no-first-run")).
		Leakless(true).
		NoSandbox(e.noSandbox).
		Headless(e.mode == ModeFast)
	l.Delete(flags.Flag("enable-automation"))

	if e.bin != "" {
		l = l.Bin(e.bin)
	}
	if e.mode == ModeObservable && e.xvfb {
		l = l.XVFB()
	}
	return l
}

// Ensure Session implements grabfile.Session at compile time.
var _ grabfile.Session = (*Session)(nil)

// Session is an incognito browser context with one page.
type Session struct {
	browser  *rod.Browser
	page     *Page
	stageDir string
	closed   atomic.Bool
}

func (s *Session) open(userAgent string, withStealth bool) error {
	err := proto.BrowserSetDownloadBehavior{
		Behavior:         proto.BrowserSetDownloadBehaviorBehaviorAllowAndName,
		BrowserContextID: s.browser.BrowserContextID,
		DownloadPath:     s.stageDir,
		EventsEnabled:    true,
	}.Call(s.browser)
	if err != nil {
		return fmt.Errorf("enabling downloads: %w", err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("creating page: %w", err)
	}
	if withStealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			_ = page.Close()
			return fmt.Errorf("injecting stealth script: %w", err)
		}
	}
	if userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
			_ = page.Close()
			return fmt.Errorf("setting user agent: %w", err)
		}
	}
	s.page = newPage(page, s.browser, s.stageDir)
	return nil
}

// Page returns the session's page.
func (s *Session) Page() grabfile.Page {
	return s.page
}

// Close disposes the browser context and removes staged downloads. Close
// is safe to call multiple times.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		err = s.browser.Close()
	}
	_ = os.RemoveAll(s.stageDir)
	return err
}
