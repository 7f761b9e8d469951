package grabfile

import (
	"context"
	"time"
)

// TransferJob is a monitored fetch of one remote file from a set of
// mirrors. At most one job is active per run.
type TransferJob struct {
	// URLs is the ordered, de-duplicated mirror set. The first URL is the
	// one the capture resolved.
	URLs       []string
	OutputName string
	Headers    map[string]string

	// StallTimeout overrides the delegate's stall threshold when positive.
	StallTimeout time.Duration

	// TotalSize is -1 when the size is unknown.
	TotalSize   int64
	CurrentSize int64
	LastGrowth  time.Time
}

// NewTransferJob builds a job for a resolved remote URL, de-duplicating
// mirrors while preserving order.
func NewTransferJob(remote *RemoteURL) *TransferJob {
	seen := make(map[string]struct{}, len(remote.Mirrors)+1)
	var urls []string
	for _, u := range append([]string{remote.URL}, remote.Mirrors...) {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return &TransferJob{
		URLs:       urls,
		OutputName: remote.SuggestedName,
		Headers:    remote.Headers,
		TotalSize:  -1,
	}
}

// Transferer performs a monitored download of a TransferJob into the
// working directory and returns the written filename. Errors carry
// ESTALLED or ETRANSFER codes.
type Transferer interface {
	Transfer(ctx context.Context, job *TransferJob) (filename string, err error)
}

// ProbeResult is the metadata learned about a remote file before transfer.
type ProbeResult struct {
	URL                string
	Status             int
	Size               int64 // -1 when unknown
	ContentType        string
	ContentDisposition string
}

// IsFileLike reports whether the probed resource looks like a file.
func (r *ProbeResult) IsFileLike() bool {
	return r != nil && r.Status < 400 && IsFileLike(r.ContentType, r.ContentDisposition, r.URL)
}

// URLProber learns metadata about remote files.
type URLProber interface {
	// Probe returns metadata for the first reachable URL in order.
	// An error means no URL was reachable.
	Probe(ctx context.Context, urls []string, headers map[string]string) (*ProbeResult, error)
}

// TransferTool starts an out-of-process or background fetch of urls into
// path. Only the exit status and the growth of path are observed.
type TransferTool interface {
	Name() string

	// Available reports whether the tool can run in this environment.
	Available() bool

	Start(ctx context.Context, urls []string, headers map[string]string, path string) (TransferProcess, error)
}

// TransferProcess is a running transfer.
type TransferProcess interface {
	// Wait blocks until the transfer exits. A nil error means a zero exit
	// status.
	Wait() error

	// Kill terminates the transfer.
	Kill() error
}
