package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfmk/wfmk/internal/market"
)

func TestCollectPatterns(t *testing.T) {
	t.Run("deduplicates preserving order", func(t *testing.T) {
		patterns, err := collectPatterns([]string{"ember*", "trinity*", "ember*"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"ember*", "trinity*"}, patterns)
	})

	t.Run("merges file patterns", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "items.txt")
		require.NoError(t, os.WriteFile(path, []byte("ember*\n\ntrinity*\nember*\n"), 0o600))

		patterns, err := collectPatterns([]string{"ammo drum"}, []string{path})
		require.NoError(t, err)
		assert.Equal(t, []string{"ammo drum", "ember*", "trinity*"}, patterns)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := collectPatterns(nil, []string{filepath.Join(t.TempDir(), "absent.txt")})
		require.Error(t, err)
	})
}

func TestMatchPatterns(t *testing.T) {
	items := []market.Item{
		{ID: "1", Name: "Ember Prime Blueprint"},
		{ID: "2", Name: "Ember Prime Set"},
		{ID: "3", Name: "Trinity Prime Set"},
	}

	matched, notFound := matchPatterns(items, []string{"ember*", "*prime set", "rhino*"})

	var names []string
	for _, m := range matched {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Ember Prime Blueprint", "Ember Prime Set", "Trinity Prime Set"}, names,
		"matches deduplicate across patterns, keeping first-seen order")
	assert.Equal(t, []string{"rhino*"}, notFound)
}

func TestSortItemsByName(t *testing.T) {
	items := []market.Item{{Name: "b"}, {Name: "a"}, {Name: "c"}}

	sortItemsByName(items, false)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, "c", items[2].Name)

	sortItemsByName(items, true)
	assert.Equal(t, "c", items[0].Name)
	assert.Equal(t, "a", items[2].Name)
}

func TestNewRootCmd_ActionFlagsMutuallyExclusive(t *testing.T) {
	cmd := NewRootCmd("test")
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--list", "--summary", "ember*"})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestFailureError(t *testing.T) {
	require.NoError(t, failureError(0, 5))
	err := failureError(2, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 5")
}
