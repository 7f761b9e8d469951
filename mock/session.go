package mock

import (
	"context"

	"github.com/fwojciec/grabfile"
)

// Compile-time interface verification.
var (
	_ grabfile.Environment = (*Environment)(nil)
	_ grabfile.Session     = (*Session)(nil)
	_ grabfile.Page        = (*Page)(nil)
	_ grabfile.Download    = (*Download)(nil)
)

// Environment is a mock implementation of grabfile.Environment.
type Environment struct {
	NameFn       func() string
	NewSessionFn func(ctx context.Context) (grabfile.Session, error)
	CloseFn      func() error
}

func (e *Environment) Name() string {
	return e.NameFn()
}

func (e *Environment) NewSession(ctx context.Context) (grabfile.Session, error) {
	return e.NewSessionFn(ctx)
}

func (e *Environment) Close() error {
	return e.CloseFn()
}

// Session is a mock implementation of grabfile.Session.
type Session struct {
	PageFn  func() grabfile.Page
	CloseFn func() error
}

func (s *Session) Page() grabfile.Page {
	return s.PageFn()
}

func (s *Session) Close() error {
	return s.CloseFn()
}

// Page is a mock implementation of grabfile.Page.
type Page struct {
	URLFn            func() string
	NavigateFn       func(ctx context.Context, url string) error
	ReloadFn         func(ctx context.Context) error
	HTMLFn           func(ctx context.Context) (string, error)
	ElementFn        func(ctx context.Context, spec grabfile.LocatorSpec) (*grabfile.ElementInfo, error)
	ProbeFn          func(ctx context.Context, selector string) (*grabfile.ElementInfo, error)
	EvalIntFn        func(ctx context.Context, js string) (int, error)
	WatchFn          func(ctx context.Context) (*grabfile.Watch, error)
	ActFn            func(ctx context.Context, spec grabfile.LocatorSpec) error
	ReadBlobFn       func(ctx context.Context, blobURL string) (*grabfile.Blob, error)
	RequestHeadersFn func(ctx context.Context, rawURL string) (map[string]string, error)
	ScreenshotFn     func(ctx context.Context) ([]byte, error)
	CloseFn          func() error
}

func (p *Page) URL() string {
	return p.URLFn()
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.NavigateFn(ctx, url)
}

func (p *Page) Reload(ctx context.Context) error {
	return p.ReloadFn(ctx)
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.HTMLFn(ctx)
}

func (p *Page) Element(ctx context.Context, spec grabfile.LocatorSpec) (*grabfile.ElementInfo, error) {
	return p.ElementFn(ctx, spec)
}

func (p *Page) Probe(ctx context.Context, selector string) (*grabfile.ElementInfo, error) {
	return p.ProbeFn(ctx, selector)
}

func (p *Page) EvalInt(ctx context.Context, js string) (int, error) {
	return p.EvalIntFn(ctx, js)
}

func (p *Page) Watch(ctx context.Context) (*grabfile.Watch, error) {
	return p.WatchFn(ctx)
}

func (p *Page) Act(ctx context.Context, spec grabfile.LocatorSpec) error {
	return p.ActFn(ctx, spec)
}

func (p *Page) ReadBlob(ctx context.Context, blobURL string) (*grabfile.Blob, error) {
	return p.ReadBlobFn(ctx, blobURL)
}

func (p *Page) RequestHeaders(ctx context.Context, rawURL string) (map[string]string, error) {
	return p.RequestHeadersFn(ctx, rawURL)
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.ScreenshotFn(ctx)
}

func (p *Page) Close() error {
	return p.CloseFn()
}

// Download is a mock implementation of grabfile.Download.
type Download struct {
	SuggestedFilenameFn func() string
	URLFn               func() string
	SaveAsFn            func(ctx context.Context, path string) error
}

func (d *Download) SuggestedFilename() string {
	return d.SuggestedFilenameFn()
}

func (d *Download) URL() string {
	return d.URLFn()
}

func (d *Download) SaveAs(ctx context.Context, path string) error {
	return d.SaveAsFn(ctx, path)
}

// PageInspector is a mock implementation of grabfile.PageInspector.
type PageInspector struct {
	MetaRefreshFn func(html string) (int, bool)
	MirrorLinksFn func(html, baseURL, filename string) []string
}

var _ grabfile.PageInspector = (*PageInspector)(nil)

func (i *PageInspector) MetaRefresh(html string) (int, bool) {
	return i.MetaRefreshFn(html)
}

func (i *PageInspector) MirrorLinks(html, baseURL, filename string) []string {
	return i.MirrorLinksFn(html, baseURL, filename)
}
