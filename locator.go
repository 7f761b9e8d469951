package grabfile

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
)

// LocatorKind selects the action performed on a matched element.
type LocatorKind string

// Supported locator kinds.
const (
	KindAnchor LocatorKind = "anchor" // click
	KindButton LocatorKind = "button" // click
	KindForm   LocatorKind = "form"   // programmatic submit of the enclosing form
)

// MatchKind selects how a locator pattern is evaluated against the page.
type MatchKind string

// Supported match kinds.
const (
	// MatchText matches clickable elements whose visible text (or value)
	// matches the pattern as a case-insensitive regular expression.
	MatchText MatchKind = "text"

	// MatchCSS matches elements by CSS selector.
	MatchCSS MatchKind = "css"

	// MatchAttr matches elements by attribute value. The pattern has the
	// form "name=regexp", e.g. `href=\.zip$`.
	MatchAttr MatchKind = "attr"
)

// LocatorSpec is a declarative pattern used to find a download trigger
// without depending on a page's exact markup.
type LocatorSpec struct {
	Pattern  string      `json:"pattern"`
	Match    MatchKind   `json:"match"`
	Kind     LocatorKind `json:"kind"`
	Priority int         `json:"priority"`
}

// String returns a compact description used in logs.
func (s LocatorSpec) String() string {
	return fmt.Sprintf("%s:%s(%q)@%d", s.Kind, s.Match, s.Pattern, s.Priority)
}

// Validate returns an error if the spec contains invalid fields.
func (s LocatorSpec) Validate() error {
	if s.Pattern == "" {
		return Errorf(EINVALID, "locator pattern required")
	}
	switch s.Kind {
	case KindAnchor, KindButton, KindForm:
	default:
		return Errorf(EINVALID, "unknown locator kind %q", s.Kind)
	}
	switch s.Match {
	case MatchText:
		if _, err := regexp.Compile("(?i)" + s.Pattern); err != nil {
			return Errorf(EINVALID, "invalid text pattern %q: %v", s.Pattern, err)
		}
	case MatchCSS:
	case MatchAttr:
		name, expr, ok := SplitAttrPattern(s.Pattern)
		if !ok || name == "" {
			return Errorf(EINVALID, "attr pattern %q must have the form name=regexp", s.Pattern)
		}
		if _, err := regexp.Compile(expr); err != nil {
			return Errorf(EINVALID, "invalid attr pattern %q: %v", s.Pattern, err)
		}
	default:
		return Errorf(EINVALID, "unknown match kind %q", s.Match)
	}
	return nil
}

// SplitAttrPattern splits a MatchAttr pattern into attribute name and
// regular expression.
func SplitAttrPattern(pattern string) (name, expr string, ok bool) {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '=' {
			return pattern[:i], pattern[i+1:], true
		}
	}
	return "", "", false
}

// LocatorTable is an ordered list of locators. Scan order is priority
// ascending; entries with equal priority keep their table order.
type LocatorTable []LocatorSpec

// Validate returns the first invalid entry as an error.
func (t LocatorTable) Validate() error {
	if len(t) == 0 {
		return Errorf(EINVALID, "locator table is empty")
	}
	for i, s := range t {
		if err := s.Validate(); err != nil {
			return Errorf(EINVALID, "locator %d: %s", i, ErrorMessage(err))
		}
	}
	return nil
}

// Sorted returns a copy of the table in scan order.
func (t LocatorTable) Sorted() LocatorTable {
	out := make(LocatorTable, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// ParseLocatorTable decodes a JSON array of locators and validates it.
func ParseLocatorTable(r io.Reader) (LocatorTable, error) {
	var table LocatorTable
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&table); err != nil {
		return nil, Errorf(EINVALID, "decode locator table: %v", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// DefaultLocators returns the built-in locator table. Priorities encode
// multi-step flows: link generation comes before the final download click.
func DefaultLocators() LocatorTable {
	return LocatorTable{
		{Pattern: `^\s*generate\s+(download\s+)?link`, Match: MatchText, Kind: KindButton, Priority: 0},
		{Pattern: `^\s*create\s+download\s+link`, Match: MatchText, Kind: KindButton, Priority: 0},
		{Pattern: `form[method=post] [type=submit][name*=download i]`, Match: MatchCSS, Kind: KindForm, Priority: 5},
		{Pattern: `^\s*download\s+now\b`, Match: MatchText, Kind: KindButton, Priority: 10},
		{Pattern: `click\s+here\s+to\s+download`, Match: MatchText, Kind: KindAnchor, Priority: 10},
		{Pattern: `^\s*start\s+download\s*$`, Match: MatchText, Kind: KindButton, Priority: 10},
		{Pattern: `#downloadButton, #download-button, #downloadbtn, .downloadbtn`, Match: MatchCSS, Kind: KindButton, Priority: 20},
		{Pattern: `a.download-link, a.btn-download, a[download]`, Match: MatchCSS, Kind: KindAnchor, Priority: 20},
		{Pattern: `href=(?i)\.(zip|rar|7z|apk|exe|msi|dmg|iso|tar|gz|tgz|bz2|xz|pdf|mp4|mkv|mp3)(\?.*)?$`, Match: MatchAttr, Kind: KindAnchor, Priority: 30},
		{Pattern: `\bdownload\b`, Match: MatchText, Kind: KindButton, Priority: 50},
	}
}
