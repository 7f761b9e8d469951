package grabfile

import (
	"context"
)

// Environment provisions browser sessions for one execution mode, such as
// a fast headless configuration or a slower, observable one.
type Environment interface {
	// Name identifies the mode in logs and outcomes.
	Name() string

	// NewSession opens a browser context with a single page.
	NewSession(ctx context.Context) (Session, error)

	// Close releases the underlying browser process.
	Close() error
}

// Session is one browser context and its page, owned by a single run.
// Close must be called on every exit path.
type Session interface {
	Page() Page
	Close() error
}

// ElementInfo describes a matched element at the time it was probed.
type ElementInfo struct {
	Tag   string
	Text  string
	Href  string // resolved href, empty for non-links
	Attrs map[string]string
}

// Response is an HTTP response observed by the page.
type Response struct {
	URL                string
	Status             int
	ContentType        string
	ContentDisposition string
}

// IsFileLike reports whether the response looks like a file download.
func (r Response) IsFileLike() bool {
	if r.Status >= 400 {
		return false
	}
	return IsFileLike(r.ContentType, r.ContentDisposition, r.URL)
}

// Blob is the content of a blob: URI read from inside the page.
type Blob struct {
	Data []byte
	MIME string
}

// Download is a native browser download started by a page.
type Download interface {
	// SuggestedFilename is the name proposed by the browser.
	SuggestedFilename() string

	// URL is the URL the browser is downloading from.
	URL() string

	// SaveAs waits for the download to complete and moves it to path.
	SaveAs(ctx context.Context, path string) error
}

// Watch delivers page events observed after it was armed. Channels are
// buffered and never closed; consumers select on them with a deadline.
type Watch struct {
	Downloads <-chan Download
	Popups    <-chan Page
	Responses <-chan Response

	// Stop detaches all listeners. It is safe to call more than once.
	Stop func()
}

// Page is the browser surface the capture engine drives. Every method
// honors ctx for cancellation and deadlines.
type Page interface {
	// URL returns the page's current URL.
	URL() string

	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error

	// HTML returns the current serialized document.
	HTML(ctx context.Context) (string, error)

	// Element returns the first element matching spec that is present and
	// visible, or nil when there is none.
	Element(ctx context.Context, spec LocatorSpec) (*ElementInfo, error)

	// Probe returns the first visible element matching a CSS selector, or
	// nil when there is none.
	Probe(ctx context.Context, selector string) (*ElementInfo, error)

	// EvalInt evaluates a JavaScript function expression returning a number.
	EvalInt(ctx context.Context, js string) (int, error)

	// Watch arms download, popup, and response listeners.
	Watch(ctx context.Context) (*Watch, error)

	// Act performs the spec's action on its first visible match: click for
	// anchors and buttons, submit for forms.
	Act(ctx context.Context, spec LocatorSpec) error

	// ReadBlob fetches a blob: URI from within the page's own context.
	ReadBlob(ctx context.Context, blobURL string) (*Blob, error)

	// RequestHeaders returns the headers the session would send to rawURL:
	// cookies, user agent, and referer.
	RequestHeaders(ctx context.Context, rawURL string) (map[string]string, error)

	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	Close() error
}

// PageInspector extracts readiness and link hints from serialized HTML.
type PageInspector interface {
	// MetaRefresh returns the delay of a meta refresh directive in seconds.
	MetaRefresh(html string) (seconds int, ok bool)

	// MirrorLinks returns absolute URLs of links in html whose file name
	// equals filename, in document order.
	MirrorLinks(html, baseURL, filename string) []string
}
