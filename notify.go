package grabfile

import "context"

// Notifier is the user-facing notification channel. Delivery is
// best-effort: implementations swallow their own failures so a notification
// can never change a run's outcome.
type Notifier interface {
	Notify(ctx context.Context, text string)
	NotifyFile(ctx context.Context, path, caption string)
}
