package rod

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/fwojciec/grabfile"
)

// Ensure download implements grabfile.Download at compile time.
var _ grabfile.Download = (*download)(nil)

// download is a browser download staged under its GUID in the session's
// staging directory.
type download struct {
	guid      string
	url       string
	suggested string
	stageDir  string

	once sync.Once
	done chan struct{}
	err  error
}

func newDownload(guid, url, suggested, stageDir string) *download {
	return &download{
		guid:      guid,
		url:       url,
		suggested: suggested,
		stageDir:  stageDir,
		done:      make(chan struct{}),
	}
}

func (d *download) SuggestedFilename() string { return d.suggested }

func (d *download) URL() string { return d.url }

func (d *download) progress(state proto.BrowserDownloadProgressState) {
	switch state {
	case proto.BrowserDownloadProgressStateCompleted:
		d.finish(nil)
	case proto.BrowserDownloadProgressStateCanceled:
		d.finish(errors.New("download canceled by browser"))
	}
}

func (d *download) finish(err error) {
	d.once.Do(func() {
		d.err = err
		close(d.done)
	})
}

// SaveAs waits for completion and moves the staged file to path.
func (d *download) SaveAs(ctx context.Context, path string) error {
	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if d.err != nil {
		return d.err
	}
	return moveFile(filepath.Join(d.stageDir, d.guid), path)
}

// moveFile renames src to dst, copying when they are on different
// filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening staged download: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copying staged download: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
