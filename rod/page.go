package rod

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/fwojciec/grabfile"
)

// Ensure Page implements grabfile.Page at compile time.
var _ grabfile.Page = (*Page)(nil)

// Page adapts a rod page to grabfile.Page. Popups opened by a Page are
// wrapped as Pages of the same browser context.
type Page struct {
	page     *rod.Page
	browser  *rod.Browser
	stageDir string
	close    sync.Once
}

func newPage(page *rod.Page, browser *rod.Browser, stageDir string) *Page {
	return &Page{page: page, browser: browser, stageDir: stageDir}
}

// URL returns the current URL, or "" when the target is gone.
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for load: %w", err)
	}
	return nil
}

// Reload reloads the page and waits for the load event.
func (p *Page) Reload(ctx context.Context) error {
	page := p.page.Context(ctx)
	if err := page.Reload(); err != nil {
		return fmt.Errorf("reloading: %w", err)
	}
	return page.WaitLoad()
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// Element returns the first visible element matching spec.
func (p *Page) Element(ctx context.Context, spec grabfile.LocatorSpec) (*grabfile.ElementInfo, error) {
	el, err := p.find(ctx, spec)
	if err != nil || el == nil {
		return nil, err
	}
	return elementInfo(el)
}

// Probe returns the first visible element matching a CSS selector.
func (p *Page) Probe(ctx context.Context, selector string) (*grabfile.ElementInfo, error) {
	return p.Element(ctx, grabfile.LocatorSpec{Pattern: selector, Match: grabfile.MatchCSS, Kind: grabfile.KindButton})
}

func (p *Page) EvalInt(ctx context.Context, js string) (int, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// Act clicks anchors and buttons with a real mouse event so pages that
// require a user gesture open popups and downloads. Forms are submitted
// programmatically.
func (p *Page) Act(ctx context.Context, spec grabfile.LocatorSpec) error {
	el, err := p.find(ctx, spec)
	if err != nil {
		return err
	}
	if el == nil {
		return grabfile.Errorf(grabfile.ECAPTURE, "no visible element for %s", spec)
	}

	if spec.Kind == grabfile.KindForm {
		_, err := el.Eval(submitJS)
		return err
	}

	_ = el.ScrollIntoView()
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		// Covered or animated elements reject synthetic mouse input.
		if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
			return errors.Join(err, jsErr)
		}
	}
	return nil
}

// ReadBlob fetches a blob: URI from within the page.
func (p *Page) ReadBlob(ctx context.Context, blobURL string) (*grabfile.Blob, error) {
	res, err := p.page.Context(ctx).Eval(blobJS, blobURL)
	if err != nil {
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(res.Value.Get("data").Str())
	if err != nil {
		return nil, fmt.Errorf("decoding blob: %w", err)
	}
	return &grabfile.Blob{Data: data, MIME: res.Value.Get("mime").Str()}, nil
}

// RequestHeaders returns the cookies, user agent, and referer the page's
// session would send to rawURL.
func (p *Page) RequestHeaders(ctx context.Context, rawURL string) (map[string]string, error) {
	page := p.page.Context(ctx)
	headers := make(map[string]string, 3)

	cookies, err := page.Cookies([]string{rawURL})
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}
	if c := cookieHeader(cookies); c != "" {
		headers["Cookie"] = c
	}
	if res, err := page.Eval(userAgentJS); err == nil {
		headers["User-Agent"] = res.Value.Str()
	}
	if ref := p.URL(); strings.HasPrefix(ref, "http") {
		headers["Referer"] = ref
	}
	return headers, nil
}

// Screenshot captures the viewport as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, nil)
}

// Close closes the page target. Close is safe to call multiple times.
func (p *Page) Close() error {
	var err error
	p.close.Do(func() {
		err = p.page.Close()
	})
	return err
}

// find evaluates findJS without rod's default retry, so a missing element
// is reported immediately as nil.
func (p *Page) find(ctx context.Context, spec grabfile.LocatorSpec) (*rod.Element, error) {
	pattern, flags := jsPattern(spec)
	els, err := p.page.Context(ctx).ElementsByJS(rod.Eval(findJS, pattern, string(spec.Match), flags))
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

// jsPattern converts a locator pattern to JavaScript RegExp source and
// flags. Text matches are case-insensitive; an inline (?i) on attribute
// patterns becomes the "i" flag.
func jsPattern(spec grabfile.LocatorSpec) (pattern, flags string) {
	switch spec.Match {
	case grabfile.MatchText:
		return strings.TrimPrefix(spec.Pattern, "(?i)"), "i"
	case grabfile.MatchAttr:
		name, expr, _ := grabfile.SplitAttrPattern(spec.Pattern)
		if strings.HasPrefix(expr, "(?i)") {
			return name + "=" + strings.TrimPrefix(expr, "(?i)"), "i"
		}
		return spec.Pattern, ""
	}
	return spec.Pattern, ""
}

func elementInfo(el *rod.Element) (*grabfile.ElementInfo, error) {
	res, err := el.Eval(infoJS)
	if err != nil {
		return nil, err
	}
	info := &grabfile.ElementInfo{
		Tag:   res.Value.Get("tag").Str(),
		Text:  res.Value.Get("text").Str(),
		Href:  res.Value.Get("href").Str(),
		Attrs: make(map[string]string),
	}
	for k, v := range res.Value.Get("attrs").Map() {
		info.Attrs[k] = v.Str()
	}
	return info, nil
}

func cookieHeader(cookies []*proto.NetworkCookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
