package grabfile

// CaptureResult is the artifact of one capture attempt: either a LocalFile
// or a RemoteURL. A nil CaptureResult means no strategy succeeded.
type CaptureResult interface {
	captureResult()
}

// LocalFile is a file already materialized in the working directory.
type LocalFile struct {
	Path string
}

func (*LocalFile) captureResult() {}

// RemoteURL is a resolved remote file that still needs to be transferred.
type RemoteURL struct {
	URL           string
	SuggestedName string

	// Headers carries the request headers (cookies, user agent, referer)
	// the page's session would have sent for URL.
	Headers map[string]string

	// Mirrors lists alternate URLs believed to serve the same content.
	Mirrors []string
}

func (*RemoteURL) captureResult() {}

// Strategy identifies which capture channel produced a result.
type Strategy string

// Capture strategies in their fixed priority order.
const (
	StrategyDirectLink Strategy = "direct-link"
	StrategyDownload   Strategy = "download-event"
	StrategyPopup      Strategy = "popup"
	StrategySniff      Strategy = "response-sniffing"
	StrategyBlob       Strategy = "blob"
)
