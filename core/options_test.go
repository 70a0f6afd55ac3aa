package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAllDocsOptions(t *testing.T) {
	opts, err := ParseAllDocsOptions(map[string]any{
		"startkey":      "a",
		"endkey":        "z",
		"descending":    true,
		"inclusive_end": false,
		"skip":          float64(2),
		"limit":         5,
		"include_docs":  true,
		"conflicts":     true,
		"update_seq":    true,
	})
	require.NoError(t, err)
	require.NotNil(t, opts.StartKey)
	assert.Equal(t, "a", *opts.StartKey)
	require.NotNil(t, opts.EndKey)
	assert.Equal(t, "z", *opts.EndKey)
	assert.True(t, opts.Descending)
	require.NotNil(t, opts.InclusiveEnd)
	assert.False(t, *opts.InclusiveEnd)
	assert.Equal(t, 2, opts.Skip)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, 5, *opts.Limit)
	assert.True(t, opts.IncludeDocs)
	assert.True(t, opts.Conflicts)
	assert.True(t, opts.UpdateSeq)
}

func TestParseAllDocsOptionsAliases(t *testing.T) {
	opts, err := ParseAllDocsOptions(map[string]any{
		"start_key": "a",
		"end_key":   "z",
	})
	require.NoError(t, err)
	require.NotNil(t, opts.StartKey)
	assert.Equal(t, "a", *opts.StartKey)
	require.NotNil(t, opts.EndKey)
	assert.Equal(t, "z", *opts.EndKey)

	// the spelled-out form never overrides the canonical one
	opts, err = ParseAllDocsOptions(map[string]any{
		"startkey":  "canonical",
		"start_key": "alias",
	})
	require.NoError(t, err)
	assert.Equal(t, "canonical", *opts.StartKey)
}

func TestParseAllDocsOptionsKeys(t *testing.T) {
	opts, err := ParseAllDocsOptions(map[string]any{
		"keys": []any{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, opts.Keys)

	opts, err = ParseAllDocsOptions(map[string]any{
		"keys": []string{},
	})
	require.NoError(t, err)
	assert.True(t, opts.hasKeys())
	assert.Empty(t, opts.Keys)

	_, err = ParseAllDocsOptions(map[string]any{"keys": "nope"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadRequest))

	_, err = ParseAllDocsOptions(map[string]any{"keys": []any{"a", 7}})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadRequest))
}

func TestParseAllDocsOptionsInvalid(t *testing.T) {
	_, err := ParseAllDocsOptions(map[string]any{"startkey": 7})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadRequest))

	_, err = ParseAllDocsOptions(map[string]any{"skip": "two"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadRequest))

	_, err = ParseAllDocsOptions(map[string]any{
		"keys":     []any{"a"},
		"startkey": "a",
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadRequest))

	_, err = ParseAllDocsOptions(map[string]any{
		"keys": []any{"a"},
		"key":  "a",
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadRequest))
}

func TestChangesOptionsStyle(t *testing.T) {
	opts := &ChangesOptions{}
	assert.Equal(t, StyleMainOnly, opts.style())
	opts.Style = StyleAllDocs
	assert.Equal(t, StyleAllDocs, opts.style())
}
