package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/fwojciec/grabfile"
)

// maxParallelProbes bounds concurrent metadata requests per Probe call.
const maxParallelProbes = 4

var contentRangeTotal = regexp.MustCompile(`/(\d+)\s*$`)

// Ensure Prober implements grabfile.URLProber at compile time.
var _ grabfile.URLProber = (*Prober)(nil)

// Prober learns remote file metadata with HEAD requests, falling back to a
// one-byte ranged GET for servers that reject HEAD.
type Prober struct {
	cfg *config
}

// NewProber creates a new Prober.
func NewProber(opts ...Option) *Prober {
	return &Prober{cfg: newConfig(opts)}
}

// Probe checks all urls in parallel and returns the first reachable one in
// input order.
func (p *Prober) Probe(ctx context.Context, urls []string, headers map[string]string) (*grabfile.ProbeResult, error) {
	results := make([]*grabfile.ProbeResult, len(urls))
	errs := make([]error, len(urls))

	var g errgroup.Group
	g.SetLimit(maxParallelProbes)
	for i, u := range urls {
		g.Go(func() error {
			results[i], errs[i] = p.probe(ctx, u, headers)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r != nil {
			return r, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("no reachable URL among %d: %w", len(urls), err)
		}
	}
	return nil, fmt.Errorf("no URLs to probe")
}

func (p *Prober) probe(ctx context.Context, rawURL string, headers map[string]string) (*grabfile.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.timeout)
	defer cancel()

	res, err := p.do(ctx, http.MethodHead, rawURL, headers)
	if err != nil {
		return nil, err
	}
	if res.Status == http.StatusMethodNotAllowed || res.Status == http.StatusNotImplemented {
		res, err = p.do(ctx, http.MethodGet, rawURL, headers)
		if err != nil {
			return nil, err
		}
	}
	if res.Status >= 400 {
		return nil, fmt.Errorf("HTTP %d for %s", res.Status, rawURL)
	}
	return res, nil
}

func (p *Prober) do(ctx context.Context, method, rawURL string, headers map[string]string) (*grabfile.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	p.cfg.setHeaders(req, headers)
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := p.cfg.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))

	res := &grabfile.ProbeResult{
		URL:                resp.Request.URL.String(),
		Status:             resp.StatusCode,
		Size:               resp.ContentLength,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}
	if method == http.MethodGet {
		res.Size = -1
		if m := contentRangeTotal.FindStringSubmatch(resp.Header.Get("Content-Range")); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				res.Size = n
			}
		} else if resp.StatusCode == http.StatusOK {
			res.Size = resp.ContentLength
		}
	}
	if res.Size < 0 {
		res.Size = -1
	}
	return res, nil
}
