// Package notify composes grabfile.Notifier implementations.
package notify

import (
	"context"
	"sync"

	"github.com/fwojciec/grabfile"
	"golang.org/x/time/rate"
)

// DefaultRate is the default number of notifications per second.
const DefaultRate = 1.0

var (
	_ grabfile.Notifier = (*Throttle)(nil)
	_ grabfile.Notifier = Multi(nil)
)

// Throttle limits the rate at which notifications reach the wrapped
// notifier using a token bucket with a burst of 1. Progress updates that
// cannot get a token before ctx is done are dropped; file notifications
// always wait.
type Throttle struct {
	next    grabfile.Notifier
	limiter *rate.Limiter
}

// NewThrottle creates a Throttle allowing rps notifications per second.
func NewThrottle(next grabfile.Notifier, rps float64) *Throttle {
	if rps <= 0 {
		rps = DefaultRate
	}
	return &Throttle{next: next, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

// Notify waits for a token and forwards text. It drops text when ctx ends
// first.
func (t *Throttle) Notify(ctx context.Context, text string) {
	if err := t.limiter.Wait(ctx); err != nil {
		return
	}
	t.next.Notify(ctx, text)
}

// NotifyFile forwards immediately, consuming a token when one is available
// so a following text notification is still spaced out.
func (t *Throttle) NotifyFile(ctx context.Context, path, caption string) {
	t.limiter.Allow()
	t.next.NotifyFile(ctx, path, caption)
}

// Multi fans notifications out to every notifier concurrently and returns
// once all have finished.
type Multi []grabfile.Notifier

// Notify forwards text to every notifier.
func (m Multi) Notify(ctx context.Context, text string) {
	m.each(func(n grabfile.Notifier) { n.Notify(ctx, text) })
}

// NotifyFile forwards the file to every notifier.
func (m Multi) NotifyFile(ctx context.Context, path, caption string) {
	m.each(func(n grabfile.Notifier) { n.NotifyFile(ctx, path, caption) })
}

func (m Multi) each(fn func(grabfile.Notifier)) {
	var wg sync.WaitGroup
	for _, n := range m {
		if n == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(n)
		}()
	}
	wg.Wait()
}
