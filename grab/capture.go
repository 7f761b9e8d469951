package grab

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fwojciec/grabfile"
)

// Capture defaults.
const (
	DefaultSniffWindow     = 3 * time.Second
	DefaultDownloadTimeout = 15 * time.Second
	DefaultPopupTimeout    = 15 * time.Second
)

// Capturer turns a matched locator into a CaptureResult by triggering its
// action and racing the possible delivery channels. Strategy order is the
// priority when more than one channel produces something.
type Capturer struct {
	// Dir is the working directory local files are written to.
	Dir string

	// Prober confirms direct links before they are used without a click.
	// Nil disables the direct-link shortcut.
	Prober grabfile.URLProber

	// Inspector finds mirror links for sniffed URLs. Optional.
	Inspector grabfile.PageInspector

	SniffWindow     time.Duration
	DownloadTimeout time.Duration
	PopupTimeout    time.Duration

	Logger *slog.Logger
}

// NewCapturer returns a Capturer writing into dir with default timing.
func NewCapturer(dir string, prober grabfile.URLProber, inspector grabfile.PageInspector, logger *slog.Logger) *Capturer {
	return &Capturer{
		Dir:             dir,
		Prober:          prober,
		Inspector:       inspector,
		SniffWindow:     DefaultSniffWindow,
		DownloadTimeout: DefaultDownloadTimeout,
		PopupTimeout:    DefaultPopupTimeout,
		Logger:          logger,
	}
}

// Capture performs spec's action on page and returns the first result in
// strategy order, or nil when no strategy produced one. info is the element
// the scanner matched.
func (c *Capturer) Capture(ctx context.Context, page grabfile.Page, spec grabfile.LocatorSpec, info *grabfile.ElementInfo) (grabfile.CaptureResult, grabfile.Strategy) {
	log := loggerOrDiscard(c.Logger).With("locator", spec.String())

	if res := c.directLink(ctx, page, spec, info); res != nil {
		log.Info("direct link confirmed", "url", res.URL)
		return res, grabfile.StrategyDirectLink
	}

	w, err := page.Watch(ctx)
	if err != nil {
		log.Warn("arming listeners failed", "error", err)
		return nil, ""
	}
	defer w.Stop()

	if err := page.Act(ctx, spec); err != nil {
		log.Warn("action failed", "error", err)
	}

	ch := c.await(ctx, page, spec, info, w)
	if ctx.Err() != nil {
		if ch.popup != nil {
			_ = ch.popup.Close()
		}
		return nil, ""
	}
	log.Debug("capture decision", "first", ch.strategy)

	// Every observed alternative is tried in strategy order until one
	// yields a file.
	if ch.download != nil {
		if res := c.saveDownload(ctx, ch.download, log); res != nil {
			if ch.popup != nil {
				_ = ch.popup.Close()
			}
			return res, grabfile.StrategyDownload
		}
	}
	if ch.popup == nil {
		ch.popup = drainPopup(w)
	}
	if ch.popup != nil {
		if res := c.fromPopup(ctx, ch.popup, w, log); res != nil {
			return res, grabfile.StrategyPopup
		}
	}
	if d := drainDownload(w); d != nil {
		if res := c.saveDownload(ctx, d, log); res != nil {
			return res, grabfile.StrategyDownload
		}
	}
	drainResponses(w, &ch)
	if ch.response != nil {
		return c.fromResponse(ctx, page, *ch.response, log), grabfile.StrategySniff
	}
	if ch.blobURL == "" {
		ch.blobURL, ch.blobName, _ = blobHref(ctx, page, spec, info)
	}
	if ch.blobURL != "" {
		if res := c.fromBlob(ctx, page, ch.blobURL, ch.blobName, log); res != nil {
			return res, grabfile.StrategyBlob
		}
	}
	log.Debug("no capture strategy succeeded")
	return nil, ""
}

// choice records what await observed. strategy names the first alternative
// in strategy order; the others remain as fallbacks.
type choice struct {
	strategy grabfile.Strategy
	download grabfile.Download
	popup    grabfile.Page
	response *grabfile.Response
	blobURL  string
	blobName string
}

// await races the listeners. A download ends the wait whenever it arrives.
// When the sniff window closes the wait ends if any alternative is
// available. Otherwise waiting continues until the download timeout, and any
// popup or file-like response arriving in that tail ends it. Popups and
// responses seen along the way are kept in the returned choice.
func (c *Capturer) await(ctx context.Context, page grabfile.Page, spec grabfile.LocatorSpec, info *grabfile.ElementInfo, w *grabfile.Watch) choice {
	sniff := time.NewTimer(durationOr(c.SniffWindow, DefaultSniffWindow))
	defer sniff.Stop()
	deadline := time.NewTimer(durationOr(c.DownloadTimeout, DefaultDownloadTimeout))
	defer deadline.Stop()

	var (
		ch          choice
		windowEnded bool
	)

	// pick applies strategy order to what has been observed so far.
	pick := func(includeBlob bool) bool {
		if d := drainDownload(w); d != nil {
			ch.strategy, ch.download = grabfile.StrategyDownload, d
			return true
		}
		drainResponses(w, &ch)
		if ch.popup != nil {
			ch.strategy = grabfile.StrategyPopup
			return true
		}
		if ch.response != nil {
			ch.strategy = grabfile.StrategySniff
			return true
		}
		if includeBlob {
			if href, name, ok := blobHref(ctx, page, spec, info); ok {
				ch.strategy, ch.blobURL, ch.blobName = grabfile.StrategyBlob, href, name
				return true
			}
		}
		return false
	}

	for {
		select {
		case d := <-w.Downloads:
			ch.strategy, ch.download = grabfile.StrategyDownload, d
			drainResponses(w, &ch)
			return ch
		case p := <-w.Popups:
			if ch.popup == nil {
				ch.popup = p
			} else {
				_ = p.Close()
			}
			if windowEnded && pick(false) {
				return ch
			}
		case r := <-w.Responses:
			if r.IsFileLike() {
				ch.response = &r
				if windowEnded && pick(false) {
					return ch
				}
			}
		case <-sniff.C:
			windowEnded = true
			if pick(true) {
				return ch
			}
		case <-deadline.C:
			if pick(true) {
				return ch
			}
			ch.strategy = ""
			return ch
		case <-ctx.Done():
			ch.strategy = ""
			return ch
		}
	}
}

func drainPopup(w *grabfile.Watch) grabfile.Page {
	select {
	case p := <-w.Popups:
		return p
	default:
		return nil
	}
}

func drainDownload(w *grabfile.Watch) grabfile.Download {
	select {
	case d := <-w.Downloads:
		return d
	default:
		return nil
	}
}

// drainResponses consumes pending responses so the last file-like one wins.
func drainResponses(w *grabfile.Watch, ch *choice) {
	for {
		select {
		case r := <-w.Responses:
			if r.IsFileLike() {
				ch.response = &r
			}
		default:
			return
		}
	}
}

func (c *Capturer) directLink(ctx context.Context, page grabfile.Page, spec grabfile.LocatorSpec, info *grabfile.ElementInfo) *grabfile.RemoteURL {
	if c.Prober == nil || spec.Kind != grabfile.KindAnchor || info == nil {
		return nil
	}
	if !strings.HasPrefix(info.Href, "http") || !grabfile.HasBinaryExtension(info.Href) {
		return nil
	}
	headers, _ := page.RequestHeaders(ctx, info.Href)
	res, err := c.Prober.Probe(ctx, []string{info.Href}, headers)
	if err != nil || !res.IsFileLike() {
		return nil
	}
	return &grabfile.RemoteURL{
		URL:           res.URL,
		SuggestedName: grabfile.ResolveFilename(res.ContentDisposition, res.URL, res.ContentType),
		Headers:       headers,
		Mirrors:       c.mirrors(ctx, page, res.URL, grabfile.FilenameFromURL(res.URL)),
	}
}

// saveDownload waits for a native download and moves it into Dir.
func (c *Capturer) saveDownload(ctx context.Context, d grabfile.Download, log *slog.Logger) *grabfile.LocalFile {
	raw := d.SuggestedFilename()
	if raw == "" {
		raw = grabfile.FilenameFromURL(d.URL())
	}
	name := grabfile.SanitizeFilename(raw, "")
	dst := filepath.Join(c.Dir, name)

	if err := d.SaveAs(ctx, dst); err != nil {
		log.Warn("saving download failed", "name", name, "error", err)
		return nil
	}
	if fi, err := os.Stat(dst); err != nil || fi.Size() == 0 {
		_ = os.Remove(dst)
		log.Warn("download produced no data", "name", name)
		return nil
	}
	return &grabfile.LocalFile{Path: dst}
}

// fromPopup repeats the download strategy on a popup page. Downloads may
// surface on either the popup or the originating watch, depending on where
// the browser attributes them. A file-like response on the popup is used
// when no download arrives.
func (c *Capturer) fromPopup(ctx context.Context, popup grabfile.Page, parent *grabfile.Watch, log *slog.Logger) grabfile.CaptureResult {
	defer func() { _ = popup.Close() }()

	var popupDownloads <-chan grabfile.Download
	var popupResponses <-chan grabfile.Response
	if pw, err := popup.Watch(ctx); err == nil {
		defer pw.Stop()
		popupDownloads, popupResponses = pw.Downloads, pw.Responses
	} else {
		log.Debug("arming popup listeners failed", "error", err)
	}

	timeout := time.NewTimer(durationOr(c.PopupTimeout, DefaultPopupTimeout))
	defer timeout.Stop()

	var (
		sniffed *grabfile.Response
		grace   <-chan time.Time
	)
	for {
		select {
		case d := <-parent.Downloads:
			return nilIfEmpty(c.saveDownload(ctx, d, log))
		case d := <-popupDownloads:
			return nilIfEmpty(c.saveDownload(ctx, d, log))
		case r := <-popupResponses:
			if r.IsFileLike() {
				sniffed = &r
				if grace == nil {
					grace = time.After(durationOr(c.SniffWindow, DefaultSniffWindow))
				}
			}
		case <-grace:
			return c.fromResponse(ctx, popup, *sniffed, log)
		case <-timeout.C:
			if sniffed != nil {
				return c.fromResponse(ctx, popup, *sniffed, log)
			}
			log.Debug("popup produced no download", "url", popup.URL())
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// nilIfEmpty avoids returning a typed nil inside the interface.
func nilIfEmpty(f *grabfile.LocalFile) grabfile.CaptureResult {
	if f == nil {
		return nil
	}
	return f
}

// fromResponse resolves a sniffed response into a RemoteURL carrying the
// session's request headers.
func (c *Capturer) fromResponse(ctx context.Context, page grabfile.Page, r grabfile.Response, log *slog.Logger) *grabfile.RemoteURL {
	name := grabfile.ResolveFilename(r.ContentDisposition, r.URL, r.ContentType)
	headers, err := page.RequestHeaders(ctx, r.URL)
	if err != nil {
		log.Debug("collecting session headers failed", "error", err)
	}
	return &grabfile.RemoteURL{
		URL:           r.URL,
		SuggestedName: name,
		Headers:       headers,
		Mirrors:       c.mirrors(ctx, page, r.URL, grabfile.FilenameFromURL(r.URL)),
	}
}

func (c *Capturer) mirrors(ctx context.Context, page grabfile.Page, primary, filename string) []string {
	if c.Inspector == nil || filename == "" {
		return nil
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return nil
	}
	var out []string
	for _, u := range c.Inspector.MirrorLinks(html, page.URL(), filename) {
		if u != primary {
			out = append(out, u)
		}
	}
	return out
}

// blobHref returns the blob: href of the matched element, re-reading it
// because pages often swap the href after the click.
func blobHref(ctx context.Context, page grabfile.Page, spec grabfile.LocatorSpec, matched *grabfile.ElementInfo) (href, name string, ok bool) {
	candidates := make([]*grabfile.ElementInfo, 0, 2)
	if cur, err := page.Element(ctx, spec); err == nil && cur != nil {
		candidates = append(candidates, cur)
	}
	if matched != nil {
		candidates = append(candidates, matched)
	}
	for _, el := range candidates {
		if strings.HasPrefix(el.Href, "blob:") {
			return el.Href, el.Attrs["download"], true
		}
	}
	return "", "", false
}

func (c *Capturer) fromBlob(ctx context.Context, page grabfile.Page, blobURL, suggested string, log *slog.Logger) *grabfile.LocalFile {
	blob, err := page.ReadBlob(ctx, blobURL)
	if err != nil {
		log.Warn("reading blob failed", "error", err)
		return nil
	}
	if len(blob.Data) == 0 {
		log.Warn("blob is empty")
		return nil
	}

	mimeType, ext := blob.MIME, grabfile.ExtensionForMIME(blob.MIME)
	if mimeType == "" || strings.Contains(mimeType, "octet-stream") {
		detected := mimetype.Detect(blob.Data)
		mimeType, ext = detected.String(), detected.Extension()
	}

	name := suggested
	if name != "" && path.Ext(name) == "" {
		name += ext
	}
	name = grabfile.SanitizeFilename(name, mimeType)
	if path.Ext(name) == "" && ext != "" {
		name = grabfile.SanitizeFilename(name+ext, mimeType)
	}

	dst := filepath.Join(c.Dir, name)
	if err := os.WriteFile(dst, blob.Data, 0o644); err != nil {
		log.Warn("writing blob failed", "error", err)
		return nil
	}
	return &grabfile.LocalFile{Path: dst}
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
