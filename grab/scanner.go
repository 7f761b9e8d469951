package grab

import (
	"context"
	"time"

	"github.com/fwojciec/grabfile"
)

// Scanner defaults.
const (
	DefaultScanTimeout   = 10 * time.Second
	DefaultScanInterval  = 250 * time.Millisecond
	DefaultRescanTimeout = 5 * time.Second
)

// Scanner polls a page for the first visible locator in table order.
type Scanner struct {
	Timeout  time.Duration
	Interval time.Duration
}

// NewScanner returns a Scanner with default timing.
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout, Interval: DefaultScanInterval}
}

// Scan is ScanWithin using the scanner's own timeout.
func (s *Scanner) Scan(ctx context.Context, page grabfile.Page, table grabfile.LocatorTable) (*grabfile.LocatorSpec, *grabfile.ElementInfo, error) {
	return s.ScanWithin(ctx, page, table, s.Timeout)
}

// ScanWithin walks table top to bottom every poll interval and returns the
// first spec whose element is present and visible. The first match in table
// order wins, never the most specific one. It returns a nil spec when
// nothing becomes visible before timeout, and an error only when ctx ends.
func (s *Scanner) ScanWithin(ctx context.Context, page grabfile.Page, table grabfile.LocatorTable, timeout time.Duration) (*grabfile.LocatorSpec, *grabfile.ElementInfo, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultScanInterval
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for i := range table {
			info, err := page.Element(scanCtx, table[i])
			if err != nil || info == nil {
				continue
			}
			spec := table[i]
			return &spec, info, nil
		}

		select {
		case <-scanCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			return nil, nil, nil
		case <-ticker.C:
		}
	}
}
