package mock

import (
	"context"

	"github.com/fwojciec/grabfile"
)

// Compile-time interface verification.
var (
	_ grabfile.RunService = (*RunService)(nil)
	_ grabfile.Grabber    = (*Grabber)(nil)
)

// RunService is a mock implementation of grabfile.RunService.
type RunService struct {
	CreateRunFn func(ctx context.Context, run *grabfile.Run) error
	FindRunsFn  func(ctx context.Context, filter grabfile.RunFilter) ([]*grabfile.Run, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *grabfile.Run) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FindRuns(ctx context.Context, filter grabfile.RunFilter) ([]*grabfile.Run, error) {
	return s.FindRunsFn(ctx, filter)
}

// Grabber is a mock implementation of grabfile.Grabber.
type Grabber struct {
	GrabFn func(ctx context.Context, targetURL string, opts grabfile.Options) *grabfile.Outcome
}

func (g *Grabber) Grab(ctx context.Context, targetURL string, opts grabfile.Options) *grabfile.Outcome {
	return g.GrabFn(ctx, targetURL, opts)
}
