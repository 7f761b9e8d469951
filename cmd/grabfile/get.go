package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/grabfile"
)

// Options builds run options from the flags.
func (c *GetCmd) Options() (grabfile.Options, error) {
	opts := grabfile.Options{
		MaxAttempts:    c.Attempts,
		StallTimeout:   c.StallTimeout,
		OverallTimeout: c.Timeout,
	}
	if c.Locators != "" {
		f, err := os.Open(c.Locators)
		if err != nil {
			return opts, fmt.Errorf("opening locator table: %w", err)
		}
		defer f.Close()
		table, err := grabfile.ParseLocatorTable(f)
		if err != nil {
			return opts, err
		}
		opts.Locators = table
	}
	return opts, nil
}

// Run executes the get command.
func (c *GetCmd) Run(deps *Dependencies) error {
	opts, err := c.Options()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", grabfile.ErrorMessage(err))
		return err
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	started := now()
	outcome := deps.Grabber.Grab(deps.Ctx, c.URL, opts)
	finished := now()

	if deps.Runs != nil {
		run := grabfile.NewRun(c.URL, outcome, started, finished)
		if err := deps.Runs.CreateRun(deps.Ctx, run); err != nil {
			fmt.Fprintf(deps.Stderr, "warning: recording run history: %s\n", grabfile.ErrorMessage(err))
		}
	}

	enc := json.NewEncoder(deps.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return err
	}

	if !outcome.Succeeded() {
		return grabfile.Errorf(outcome.ErrorKind, "%s", outcome.Message)
	}

	if c.Record != "" {
		if err := os.WriteFile(c.Record, []byte(outcome.Filename), 0o644); err != nil {
			fmt.Fprintf(deps.Stderr, "warning: writing %s: %v\n", c.Record, err)
		}
	}
	return nil
}

// outputDir resolves and creates the download directory.
func (c *GetCmd) outputDir() (string, error) {
	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", errors.New(dir + " is not a directory")
	}
	return dir, nil
}
