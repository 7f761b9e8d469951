package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fwojciec/grabfile"
)

// partSuffix names the staging file a stream writes before the final rename.
const partSuffix = ".part"

// Ensure StreamTool implements grabfile.TransferTool at compile time.
var _ grabfile.TransferTool = (*StreamTool)(nil)

// StreamTool downloads a file over a single HTTP connection, trying mirrors
// in order. It is always available and serves as the fallback when no
// multi-connection tool is installed.
type StreamTool struct {
	cfg *config
}

// NewStreamTool creates a new StreamTool.
func NewStreamTool(opts ...Option) *StreamTool {
	return &StreamTool{cfg: newConfig(opts)}
}

func (t *StreamTool) Name() string { return "http" }

func (t *StreamTool) Available() bool { return true }

// Start begins the download in the background. Output is staged at
// path+".part" and renamed to path on success.
func (t *StreamTool) Start(ctx context.Context, urls []string, headers map[string]string, path string) (grabfile.TransferProcess, error) {
	if len(urls) == 0 {
		return nil, errors.New("no URLs")
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &streamProcess{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		defer cancel()
		p.err = t.run(ctx, urls, headers, path)
	}()
	return p, nil
}

func (t *StreamTool) run(ctx context.Context, urls []string, headers map[string]string, path string) error {
	var lastErr error
	for _, u := range urls {
		err := t.fetch(ctx, u, headers, path+partSuffix)
		if err == nil {
			return os.Rename(path+partSuffix, path)
		}
		_ = os.Remove(path + partSuffix)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}
	return lastErr
}

func (t *StreamTool) fetch(ctx context.Context, rawURL string, headers map[string]string, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	t.cfg.setHeaders(req, headers)

	resp, err := t.cfg.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("copy %s: %w", rawURL, err)
	}
	return f.Close()
}

// streamProcess is a running StreamTool download.
type streamProcess struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (p *streamProcess) Wait() error {
	<-p.done
	return p.err
}

func (p *streamProcess) Kill() error {
	p.cancel()
	return nil
}
