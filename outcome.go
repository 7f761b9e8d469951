package grabfile

import (
	"context"
	"time"
)

// Status is the terminal status of a run.
type Status string

// Run statuses.
const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the single value returned to the caller of a run.
type Outcome struct {
	Status    Status `json:"status"`
	Filename  string `json:"filename,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`

	// Attempts is the number of capture attempts made by the final run.
	Attempts int `json:"attempts"`

	// Mode names the execution environment that produced the outcome.
	Mode string `json:"mode,omitempty"`
}

// Succeeded reports whether the outcome is a success.
func (o *Outcome) Succeeded() bool {
	return o != nil && o.Status == StatusSuccess
}

// Default option values.
const (
	DefaultMaxAttempts    = 3
	MaxMaxAttempts        = 10
	DefaultStallTimeout   = 60 * time.Second
	DefaultOverallTimeout = 10 * time.Minute
)

// Options configures a single run. Zero values select defaults.
type Options struct {
	MaxAttempts    int
	Locators       LocatorTable
	StallTimeout   time.Duration
	OverallTimeout time.Duration
}

// WithDefaults returns a copy of o with zero fields replaced by defaults
// and MaxAttempts clamped to [1, MaxMaxAttempts].
func (o Options) WithDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MaxAttempts > MaxMaxAttempts {
		o.MaxAttempts = MaxMaxAttempts
	}
	if len(o.Locators) == 0 {
		o.Locators = DefaultLocators()
	}
	if o.StallTimeout <= 0 {
		o.StallTimeout = DefaultStallTimeout
	}
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = DefaultOverallTimeout
	}
	return o
}

// Grabber runs the download-capture engine against one target URL.
type Grabber interface {
	// Grab never returns nil; failures are reported through the Outcome.
	Grab(ctx context.Context, targetURL string, opts Options) *Outcome
}
