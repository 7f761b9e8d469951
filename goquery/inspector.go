// Package goquery implements grabfile.PageInspector on top of goquery.
package goquery

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/grabfile"
)

// Ensure Inspector implements grabfile.PageInspector at compile time.
var _ grabfile.PageInspector = (*Inspector)(nil)

var refreshDelay = regexp.MustCompile(`^\s*(\d{1,3})(?:\.\d+)?\s*(?:[;,]|$)`)

// Inspector reads readiness and link hints from serialized HTML.
type Inspector struct{}

// NewInspector creates a new Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// MetaRefresh returns the delay of the first meta refresh directive.
// A zero delay is reported as found so callers can tell "refresh now" from
// "no directive".
func (i *Inspector) MetaRefresh(html string) (int, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}

	seconds, found := 0, false
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
			return true
		}
		content, _ := s.Attr("content")
		m := refreshDelay.FindStringSubmatch(content)
		if m == nil {
			return true
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return true
		}
		seconds, found = n, true
		return false
	})
	return seconds, found
}

// MirrorLinks returns absolute URLs of anchors whose path basename equals
// filename. Results are de-duplicated and keep document order.
func (i *Inspector) MirrorLinks(html, baseURL, filename string) []string {
	if filename == "" {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(path.Base(abs.Path), filename) {
			return
		}
		abs.Fragment = ""
		u := abs.String()
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		links = append(links, u)
	})
	return links
}
