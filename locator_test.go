package grabfile_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/grabfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorTable_Sorted(t *testing.T) {
	t.Parallel()

	t.Run("orders by priority and keeps table order for ties", func(t *testing.T) {
		t.Parallel()

		table := grabfile.LocatorTable{
			{Pattern: "c", Match: grabfile.MatchCSS, Kind: grabfile.KindButton, Priority: 10},
			{Pattern: "a", Match: grabfile.MatchCSS, Kind: grabfile.KindButton, Priority: 0},
			{Pattern: "d", Match: grabfile.MatchCSS, Kind: grabfile.KindButton, Priority: 10},
			{Pattern: "b", Match: grabfile.MatchCSS, Kind: grabfile.KindButton, Priority: 0},
		}

		sorted := table.Sorted()

		var got []string
		for _, s := range sorted {
			got = append(got, s.Pattern)
		}
		assert.Equal(t, []string{"a", "b", "c", "d"}, got)
		assert.Equal(t, "c", table[0].Pattern, "original table must not be reordered")
	})
}

func TestLocatorTable_Validate(t *testing.T) {
	t.Parallel()

	t.Run("default table is valid", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, grabfile.DefaultLocators().Validate())
	})

	t.Run("rejects empty table", func(t *testing.T) {
		t.Parallel()

		err := grabfile.LocatorTable{}.Validate()
		assert.Equal(t, grabfile.EINVALID, grabfile.ErrorCode(err))
	})

	t.Run("rejects bad entries", func(t *testing.T) {
		t.Parallel()

		bad := []grabfile.LocatorSpec{
			{Pattern: "", Match: grabfile.MatchCSS, Kind: grabfile.KindButton},
			{Pattern: "x", Match: grabfile.MatchCSS, Kind: "link"},
			{Pattern: "x", Match: "xpath", Kind: grabfile.KindButton},
			{Pattern: "(", Match: grabfile.MatchText, Kind: grabfile.KindButton},
			{Pattern: "href", Match: grabfile.MatchAttr, Kind: grabfile.KindAnchor},
			{Pattern: "href=(", Match: grabfile.MatchAttr, Kind: grabfile.KindAnchor},
		}
		for _, spec := range bad {
			err := grabfile.LocatorTable{spec}.Validate()
			assert.Equal(t, grabfile.EINVALID, grabfile.ErrorCode(err), "spec %s", spec)
		}
	})
}

func TestParseLocatorTable(t *testing.T) {
	t.Parallel()

	t.Run("decodes a JSON table", func(t *testing.T) {
		t.Parallel()

		input := `[
			{"pattern": "#go", "match": "css", "kind": "button", "priority": 1},
			{"pattern": "href=\\.zip$", "match": "attr", "kind": "anchor", "priority": 2}
		]`

		table, err := grabfile.ParseLocatorTable(strings.NewReader(input))

		require.NoError(t, err)
		require.Len(t, table, 2)
		assert.Equal(t, grabfile.LocatorSpec{Pattern: "#go", Match: grabfile.MatchCSS, Kind: grabfile.KindButton, Priority: 1}, table[0])
		assert.Equal(t, grabfile.MatchAttr, table[1].Match)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		t.Parallel()

		_, err := grabfile.ParseLocatorTable(strings.NewReader(`[{"pattern":"#x","match":"css","kind":"button","weight":3}]`))

		assert.Equal(t, grabfile.EINVALID, grabfile.ErrorCode(err))
	})

	t.Run("rejects invalid entries", func(t *testing.T) {
		t.Parallel()

		_, err := grabfile.ParseLocatorTable(strings.NewReader(`[{"pattern":"#x","match":"css","kind":"image"}]`))

		assert.Equal(t, grabfile.EINVALID, grabfile.ErrorCode(err))
		assert.Contains(t, grabfile.ErrorMessage(err), "locator 0")
	})
}

func TestSplitAttrPattern(t *testing.T) {
	t.Parallel()

	name, expr, ok := grabfile.SplitAttrPattern(`href=\.zip$|a=b`)

	assert.True(t, ok)
	assert.Equal(t, "href", name)
	assert.Equal(t, `\.zip$|a=b`, expr)
}
