// Package aria2 implements grabfile.TransferTool by running the aria2c
// multi-connection downloader as a child process.
package aria2

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fwojciec/grabfile"
)

// DefaultConnections is the per-server connection and split count.
const DefaultConnections = 16

// stderrTail caps how much child output is kept for error messages.
const stderrTail = 512

// Ensure Tool implements grabfile.TransferTool at compile time.
var _ grabfile.TransferTool = (*Tool)(nil)

// Tool runs aria2c against all mirrors of a job at once.
type Tool struct {
	Bin         string
	Connections int
}

// NewTool returns a Tool using aria2c from PATH.
func NewTool() *Tool {
	return &Tool{Bin: "aria2c", Connections: DefaultConnections}
}

func (t *Tool) Name() string { return "aria2c" }

// Available reports whether the binary can be found.
func (t *Tool) Available() bool {
	_, err := exec.LookPath(t.Bin)
	return err == nil
}

// Args returns the aria2c command line for downloading urls into path.
// Headers are emitted in sorted order.
func (t *Tool) Args(urls []string, headers map[string]string, path string) []string {
	n := t.Connections
	if n <= 0 {
		n = DefaultConnections
	}
	args := []string{
		fmt.Sprintf("-x%d", n),
		fmt.Sprintf("-s%d", n),
		"--allow-overwrite=true",
		"--auto-file-renaming=false",
		"--continue=false",
		"--file-allocation=none",
		"--summary-interval=0",
		"--console-log-level=warn",
		"--dir=" + filepath.Dir(path),
		"--out=" + filepath.Base(path),
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.ContainsAny(headers[k], "\r\n") {
			continue
		}
		args = append(args, fmt.Sprintf("--header=%s: %s", k, headers[k]))
	}
	return append(args, urls...)
}

// Start launches aria2c. The process is killed when ctx is done.
func (t *Tool) Start(ctx context.Context, urls []string, headers map[string]string, path string) (grabfile.TransferProcess, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("aria2c: no URLs")
	}
	cmd := exec.CommandContext(ctx, t.Bin, t.Args(urls, headers, path)...)
	out := &tailBuffer{max: stderrTail}
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("aria2c: %w", err)
	}
	return &process{cmd: cmd, out: out}, nil
}

// process is a running aria2c child.
type process struct {
	cmd *exec.Cmd
	out *tailBuffer
}

func (p *process) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(p.out.String()); msg != "" {
			return fmt.Errorf("aria2c: %w: %s", err, msg)
		}
		return fmt.Errorf("aria2c: %w", err)
	}
	return nil
}

func (p *process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if over := b.buf.Len() - b.max; over > 0 {
		b.buf.Next(over)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
