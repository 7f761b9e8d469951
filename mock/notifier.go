package mock

import (
	"context"
	"sync"

	"github.com/fwojciec/grabfile"
)

var _ grabfile.Notifier = (*Notifier)(nil)

// Notifier is a mock implementation of grabfile.Notifier.
type Notifier struct {
	NotifyFn     func(ctx context.Context, text string)
	NotifyFileFn func(ctx context.Context, path, caption string)
}

func (n *Notifier) Notify(ctx context.Context, text string) {
	n.NotifyFn(ctx, text)
}

func (n *Notifier) NotifyFile(ctx context.Context, path, caption string) {
	n.NotifyFileFn(ctx, path, caption)
}

// RecordingNotifier is a grabfile.Notifier that records every message.
// It is safe for concurrent use.
type RecordingNotifier struct {
	mu       sync.Mutex
	Messages []string
	Files    []string
}

var _ grabfile.Notifier = (*RecordingNotifier)(nil)

func (n *RecordingNotifier) Notify(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, text)
}

func (n *RecordingNotifier) NotifyFile(_ context.Context, path, caption string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Files = append(n.Files, path+" "+caption)
}

// Snapshot returns copies of the recorded messages and files.
func (n *RecordingNotifier) Snapshot() (messages, files []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Messages...), append([]string(nil), n.Files...)
}
