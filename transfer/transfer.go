// Package transfer implements grabfile.Transferer as a delegate that runs
// transfer tools in preference order and watches the output file for
// growth.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/grabfile"
)

// Delegate defaults.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultProgressStep = 25
)

// PartSuffix is appended to in-progress output by tools that stage writes.
const PartSuffix = ".part"

// ControlSuffix marks aria2's resume control file next to the output.
const ControlSuffix = ".aria2"

// Ensure Delegate implements grabfile.Transferer at compile time.
var _ grabfile.Transferer = (*Delegate)(nil)

// Delegate performs a monitored transfer of a TransferJob. Tools are tried
// in order; the first available tool that exits cleanly with a non-empty
// file wins. A transfer whose output stops growing for longer than the
// stall timeout is killed and reported as stalled.
type Delegate struct {
	Dir    string
	Tools  []grabfile.TransferTool
	Prober grabfile.URLProber // optional, learns the total size

	PollInterval time.Duration
	StallTimeout time.Duration

	// Notifier receives progress updates every ProgressStep percent when
	// the total size is known. Optional.
	Notifier     grabfile.Notifier
	ProgressStep int

	Logger *slog.Logger
	Now    func() time.Time
}

// Option configures a Delegate.
type Option func(*Delegate)

// WithProber sets the prober used to learn the total size.
func WithProber(p grabfile.URLProber) Option {
	return func(d *Delegate) {
		d.Prober = p
	}
}

// WithPollInterval sets how often the output file is checked.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Delegate) {
		d.PollInterval = interval
	}
}

// WithStallTimeout sets the default stall threshold. A job's own
// StallTimeout takes precedence.
func WithStallTimeout(timeout time.Duration) Option {
	return func(d *Delegate) {
		d.StallTimeout = timeout
	}
}

// WithNotifier sets the progress notifier.
func WithNotifier(n grabfile.Notifier) Option {
	return func(d *Delegate) {
		d.Notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Delegate) {
		d.Logger = l
	}
}

// NewDelegate creates a Delegate writing into dir using tools in order.
func NewDelegate(dir string, tools []grabfile.TransferTool, opts ...Option) *Delegate {
	d := &Delegate{
		Dir:          dir,
		Tools:        tools,
		PollInterval: DefaultPollInterval,
		StallTimeout: grabfile.DefaultStallTimeout,
		ProgressStep: DefaultProgressStep,
		Now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Transfer implements grabfile.Transferer.
func (d *Delegate) Transfer(ctx context.Context, job *grabfile.TransferJob) (string, error) {
	log := d.logger()
	if len(job.URLs) == 0 {
		return "", grabfile.Errorf(grabfile.ETRANSFER, "transfer job has no URLs")
	}

	if d.Prober != nil {
		res, err := d.Prober.Probe(ctx, job.URLs, job.Headers)
		switch {
		case err != nil:
			log.Debug("size probe failed", "url", job.URLs[0], "error", err)
		case res.Size > 0:
			job.TotalSize = res.Size
		}
	}

	name := grabfile.SanitizeFilename(job.OutputName, "")
	path := filepath.Join(d.Dir, name)
	stall := job.StallTimeout
	if stall <= 0 {
		stall = d.StallTimeout
	}

	var (
		lastErr error
		tried   int
	)
	for _, tool := range d.Tools {
		if !tool.Available() {
			log.Debug("transfer tool unavailable", "tool", tool.Name())
			continue
		}
		tried++
		removeOutput(path)

		log.Info("transfer started", "tool", tool.Name(), "name", name, "mirrors", len(job.URLs), "size", job.TotalSize)
		err := d.run(ctx, tool, job, path, stall)
		if err == nil {
			return name, nil
		}
		removeOutput(path)

		if grabfile.ErrorCode(err) == grabfile.ESTALLED {
			return "", err
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("transfer %s: %w", name, ctx.Err())
		}
		log.Warn("transfer tool failed", "tool", tool.Name(), "error", err)
		lastErr = err
	}

	if tried == 0 {
		return "", grabfile.Errorf(grabfile.ETRANSFER, "no transfer tool available")
	}
	return "", grabfile.Errorf(grabfile.ETRANSFER, "all transfer tools failed: %v", lastErr)
}

// run starts one tool and monitors it until it exits, stalls, or ctx ends.
func (d *Delegate) run(ctx context.Context, tool grabfile.TransferTool, job *grabfile.TransferJob, path string, stall time.Duration) error {
	proc, err := tool.Start(ctx, job.URLs, job.Headers, path)
	if err != nil {
		return fmt.Errorf("start %s: %w", tool.Name(), err)
	}

	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()

	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	job.CurrentSize = 0
	job.LastGrowth = d.now()
	progress := newProgress(d.step())

	for {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("%s exited: %w", tool.Name(), err)
			}
			size := fileSize(path)
			if size <= 0 {
				return fmt.Errorf("%s produced no data", tool.Name())
			}
			job.CurrentSize = size
			return nil

		case <-ticker.C:
			size := max(fileSize(path), fileSize(path+PartSuffix))
			now := d.now()
			if size > job.CurrentSize {
				job.CurrentSize = size
				job.LastGrowth = now
				if pct, ok := progress.advance(size, job.TotalSize); ok {
					d.notify(ctx, fmt.Sprintf("Downloading %s: %d%%", filepath.Base(path), pct))
				}
				continue
			}
			if now.Sub(job.LastGrowth) > stall {
				_ = proc.Kill()
				<-done
				return grabfile.Errorf(grabfile.ESTALLED, "%s made no progress for %s (%d bytes written)", tool.Name(), stall, job.CurrentSize)
			}

		case <-ctx.Done():
			_ = proc.Kill()
			<-done
			return ctx.Err()
		}
	}
}

func (d *Delegate) notify(ctx context.Context, text string) {
	if d.Notifier != nil {
		d.Notifier.Notify(ctx, text)
	}
}

func (d *Delegate) step() int {
	if d.ProgressStep <= 0 || d.ProgressStep > 100 {
		return DefaultProgressStep
	}
	return d.ProgressStep
}

func (d *Delegate) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Delegate) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// progress tracks the next percentage threshold to report.
type progress struct {
	step int
	next int
}

func newProgress(step int) *progress {
	return &progress{step: step, next: step}
}

// advance returns the highest newly crossed threshold below 100.
func (p *progress) advance(current, total int64) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	pct := int(current * 100 / total)
	crossed := 0
	for p.next < 100 && pct >= p.next {
		crossed = p.next
		p.next += p.step
	}
	return crossed, crossed > 0
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func removeOutput(path string) {
	_ = os.Remove(path)
	_ = os.Remove(path + PartSuffix)
	_ = os.Remove(path + ControlSuffix)
}
