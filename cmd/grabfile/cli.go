package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/grabfile"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Grabber grabfile.Grabber
	Runs    grabfile.RunService

	// Now defaults to time.Now.
	Now func() time.Time
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB      string `name:"db" env:"GRABFILE_DB" help:"Run history database path (default ~/.grabfile/history.db)"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Get      GetCmd      `cmd:"" help:"Capture the file offered by a hosting page"`
	History  HistoryCmd  `cmd:"" help:"List recent runs"`
	Locators LocatorsCmd `cmd:"" help:"Print the built-in locator table as JSON"`
}

// GetCmd is the "get" subcommand.
type GetCmd struct {
	URL          string        `arg:"" help:"File hosting page URL"`
	Attempts     int           `short:"a" default:"3" help:"Capture attempts per execution mode (1-10)"`
	Locators     string        `short:"l" type:"existingfile" help:"JSON locator table replacing the built-in one"`
	StallTimeout time.Duration `default:"60s" help:"Abort a transfer that makes no progress for this long"`
	Timeout      time.Duration `short:"t" default:"10m" help:"Overall run timeout"`
	Dir          string        `short:"d" default:"." help:"Directory to save the file in"`
	Mode         string        `short:"m" default:"auto" enum:"auto,fast,observable" help:"Execution mode (auto escalates fast to observable)"`
	Browser      string        `env:"GRABFILE_BROWSER" help:"Chrome or Chromium binary"`
	XVFB         bool          `name:"xvfb" help:"Run the observable browser on a virtual display"`
	NoSandbox    bool          `help:"Disable the Chrome sandbox (required as root in containers)"`
	Webhook      string        `env:"GRABFILE_WEBHOOK" help:"Endpoint receiving progress and outcome notifications"`
	Secret       string        `name:"webhook-secret" env:"GRABFILE_WEBHOOK_SECRET" help:"HMAC secret for webhook signatures"`
	Record       string        `default:"downloaded_filename.txt" help:"File receiving the saved filename (empty disables)"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Limit  int    `short:"n" default:"20" help:"Maximum number of runs to show"`
	URL    string `help:"Only show runs for this URL"`
	Failed bool   `help:"Only show failed runs"`
}

// LocatorsCmd is the "locators" subcommand.
type LocatorsCmd struct{}
