package grab

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/fwojciec/grabfile"
)

// Readiness defaults.
const (
	DefaultWaitMargin  = 500 * time.Millisecond
	DefaultWaitCeiling = 60 * time.Second
	DefaultFlagWait    = 5 * time.Second
)

// DefaultCountdownSelectors lists common countdown and timer markers.
var DefaultCountdownSelectors = []string{
	"#countdown",
	".countdown",
	"#timer",
	".timer",
	"[data-countdown]",
	"[data-seconds]",
	"#wait",
	".wait",
	"span[id*=count]",
}

// countdownAttrs are numeric data attributes read when the text has no
// number.
var countdownAttrs = []string{
	"data-countdown",
	"data-seconds",
	"data-time",
	"data-timer",
	"data-remaining",
}

// DefaultFlagJS returns 1 while a page-exposed boolean readiness flag is
// still false.
const DefaultFlagJS = `() => {
	for (const name of ["downloadReady", "isReady", "countdownFinished", "timerDone", "canDownload"]) {
		if (typeof window[name] === "boolean") return window[name] ? 0 : 1;
	}
	return 0;
}`

var countdownNumber = regexp.MustCompile(`(?:^|\D)(\d{1,3})(?:\D|$)`)

// ReadinessDetector inspects a loaded page for countdown timers, meta
// refresh directives, and JS readiness flags. It never mutates the page.
type ReadinessDetector struct {
	// Inspector parses meta refresh directives. Nil skips that probe.
	Inspector grabfile.PageInspector

	CountdownSelectors []string
	FlagJS             string
	FlagWait           time.Duration
	Margin             time.Duration
	Ceiling            time.Duration
}

// NewReadinessDetector returns a detector with default markers.
func NewReadinessDetector(inspector grabfile.PageInspector) *ReadinessDetector {
	return &ReadinessDetector{
		Inspector:          inspector,
		CountdownSelectors: DefaultCountdownSelectors,
		FlagJS:             DefaultFlagJS,
		FlagWait:           DefaultFlagWait,
		Margin:             DefaultWaitMargin,
		Ceiling:            DefaultWaitCeiling,
	}
}

// DetectWait returns the number of seconds the page asks to wait, or 0.
// Signals are checked in order: visible countdown, meta refresh, JS flag.
// The first positive signal wins.
func (d *ReadinessDetector) DetectWait(ctx context.Context, page grabfile.Page) int {
	for _, sel := range d.CountdownSelectors {
		info, err := page.Probe(ctx, sel)
		if err != nil || info == nil {
			continue
		}
		if n, ok := ParseCountdown(info); ok && n > 0 {
			return n
		}
	}

	if d.Inspector != nil {
		if html, err := page.HTML(ctx); err == nil {
			if n, ok := d.Inspector.MetaRefresh(html); ok && n > 0 {
				return n
			}
		}
	}

	if d.FlagJS != "" {
		if v, err := page.EvalInt(ctx, d.FlagJS); err == nil && v > 0 {
			return int(math.Ceil(d.FlagWait.Seconds()))
		}
	}
	return 0
}

// WaitFor converts a detected wait into a sleep duration: the wait plus a
// safety margin, capped at the ceiling.
func (d *ReadinessDetector) WaitFor(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	w := time.Duration(seconds)*time.Second + d.Margin
	if d.Ceiling > 0 && w > d.Ceiling {
		w = d.Ceiling
	}
	return w
}

// ParseCountdown reads the first standalone 1-3 digit number from an
// element's text, falling back to numeric countdown data attributes.
func ParseCountdown(info *grabfile.ElementInfo) (int, bool) {
	if m := countdownNumber.FindStringSubmatch(info.Text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	for _, name := range countdownAttrs {
		v, ok := info.Attrs[name]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 999 {
			continue
		}
		return int(math.Ceil(f)), true
	}
	return 0, false
}
