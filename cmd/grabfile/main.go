package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/grabfile"
	"github.com/fwojciec/grabfile/aria2"
	"github.com/fwojciec/grabfile/goquery"
	"github.com/fwojciec/grabfile/grab"
	grabhttp "github.com/fwojciec/grabfile/http"
	"github.com/fwojciec/grabfile/notify"
	"github.com/fwojciec/grabfile/rod"
	grabslog "github.com/fwojciec/grabfile/slog"
	"github.com/fwojciec/grabfile/sqlite"
	"github.com/fwojciec/grabfile/transfer"
	"github.com/fwojciec/grabfile/webhook"
)

// notifyRate spaces out progress notifications.
const notifyRate = 0.5

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database used by the run history service.
	DB *sqlite.DB

	// Grabber replaces the browser-backed engine when set. Used for
	// end-to-end testing.
	Grabber grabfile.Grabber
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("grabfile"),
		kong.Description("Capture downloads from file hosting pages"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'grabfile --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	cmd := kongCtx.Command()
	if cmd == "locators" {
		return kongCtx.Run(deps)
	}

	dbPath := cli.DB
	if dbPath == "" {
		dbPath = defaultDBPath()
	}
	m.DB = sqlite.NewDB(dbPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set GRABFILE_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", dbPath, err)
	}
	defer m.Close()
	deps.Runs = grabslog.NewLoggingRunService(sqlite.NewRunService(m.DB), logger)

	if strings.HasPrefix(cmd, "get") {
		grabber := m.Grabber
		if grabber == nil {
			engine, closeEngine, err := newGrabber(&cli.Get, logger)
			if err != nil {
				return err
			}
			defer closeEngine()
			grabber = engine
		}
		deps.Grabber = grabslog.NewLoggingGrabber(grabber, logger)
	}

	return kongCtx.Run(deps)
}

// newGrabber wires the browser-backed engine for the get command. The
// returned func releases browser processes.
func newGrabber(c *GetCmd, logger *slog.Logger) (grabfile.Grabber, func(), error) {
	dir, err := c.outputDir()
	if err != nil {
		return nil, nil, fmt.Errorf("preparing download directory: %w", err)
	}

	notifier := newNotifier(c, logger)
	prober := grabhttp.NewProber()
	tools := []grabfile.TransferTool{aria2.NewTool(), grabhttp.NewStreamTool()}
	delegate := transfer.NewDelegate(dir, tools,
		transfer.WithProber(prober),
		transfer.WithNotifier(notifier),
		transfer.WithLogger(logger),
	)

	envs := newEnvironments(c, logger)
	engine := grab.NewEngine(dir, goquery.NewInspector(), prober, logger, envs...)
	engine.Transferer = grabslog.NewLoggingTransferer(delegate, logger)
	engine.Notifier = notifier

	closeAll := func() {
		var errs []error
		for _, env := range envs {
			errs = append(errs, env.Close())
		}
		if err := errors.Join(errs...); err != nil {
			logger.Warn("closing browsers", "error", err)
		}
	}
	return engine, closeAll, nil
}

func newEnvironments(c *GetCmd, logger *slog.Logger) []grabfile.Environment {
	opts := []rod.Option{rod.WithNoSandbox(c.NoSandbox)}
	if c.Browser != "" {
		opts = append(opts, rod.WithBin(c.Browser))
	}

	var modes []rod.Mode
	switch c.Mode {
	case "fast":
		modes = []rod.Mode{rod.ModeFast}
	case "observable":
		modes = []rod.Mode{rod.ModeObservable}
	default:
		modes = []rod.Mode{rod.ModeFast, rod.ModeObservable}
	}

	envs := make([]grabfile.Environment, 0, len(modes))
	for _, mode := range modes {
		modeOpts := opts
		if mode == rod.ModeObservable {
			modeOpts = append(append([]rod.Option(nil), opts...), rod.WithXVFB(c.XVFB))
		}
		envs = append(envs, rod.NewLoggingEnvironment(rod.NewEnvironment(mode, modeOpts...), logger))
	}
	return envs
}

func newNotifier(c *GetCmd, logger *slog.Logger) grabfile.Notifier {
	channels := notify.Multi{grabslog.NewNotifier(logger)}
	if c.Webhook != "" {
		channels = append(channels, webhook.NewNotifier(c.Webhook,
			webhook.WithSecret(c.Secret),
			webhook.WithLogger(logger),
		))
	}
	return notify.NewThrottle(channels, notifyRate)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "grabfile.db"
	}
	dir := filepath.Join(home, ".grabfile")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "history.db")
}
