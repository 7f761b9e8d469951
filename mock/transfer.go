package mock

import (
	"context"

	"github.com/fwojciec/grabfile"
)

// Compile-time interface verification.
var (
	_ grabfile.Transferer      = (*Transferer)(nil)
	_ grabfile.URLProber       = (*URLProber)(nil)
	_ grabfile.TransferTool    = (*TransferTool)(nil)
	_ grabfile.TransferProcess = (*TransferProcess)(nil)
)

// Transferer is a mock implementation of grabfile.Transferer.
type Transferer struct {
	TransferFn func(ctx context.Context, job *grabfile.TransferJob) (string, error)
}

func (t *Transferer) Transfer(ctx context.Context, job *grabfile.TransferJob) (string, error) {
	return t.TransferFn(ctx, job)
}

// URLProber is a mock implementation of grabfile.URLProber.
type URLProber struct {
	ProbeFn func(ctx context.Context, urls []string, headers map[string]string) (*grabfile.ProbeResult, error)
}

func (p *URLProber) Probe(ctx context.Context, urls []string, headers map[string]string) (*grabfile.ProbeResult, error) {
	return p.ProbeFn(ctx, urls, headers)
}

// TransferTool is a mock implementation of grabfile.TransferTool.
type TransferTool struct {
	NameFn      func() string
	AvailableFn func() bool
	StartFn     func(ctx context.Context, urls []string, headers map[string]string, path string) (grabfile.TransferProcess, error)
}

func (t *TransferTool) Name() string {
	return t.NameFn()
}

func (t *TransferTool) Available() bool {
	return t.AvailableFn()
}

func (t *TransferTool) Start(ctx context.Context, urls []string, headers map[string]string, path string) (grabfile.TransferProcess, error) {
	return t.StartFn(ctx, urls, headers, path)
}

// TransferProcess is a mock implementation of grabfile.TransferProcess.
type TransferProcess struct {
	WaitFn func() error
	KillFn func() error
}

func (p *TransferProcess) Wait() error {
	return p.WaitFn()
}

func (p *TransferProcess) Kill() error {
	return p.KillFn()
}
