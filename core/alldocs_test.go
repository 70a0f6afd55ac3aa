package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rodent-software/vole/object"
	"github.com/rodent-software/vole/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedStore writes documents with ids '0'..'3' out of order.
func seedStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, storage.NewMemory())
	require.NoError(t, err)
	for _, doc := range []object.Document{
		{"_id": "0", "a": int64(1)},
		{"_id": "3", "a": int64(4)},
		{"_id": "1", "a": int64(2)},
		{"_id": "2", "a": int64(3)},
	} {
		id := doc["_id"].(string)
		body := object.Document{"a": doc["a"]}
		_, err := store.Put(ctx, id, object.RevID{}, body)
		require.NoError(t, err)
	}
	return store
}

func rowIDs(rows []Row) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}

func TestAllDocsCollationOrder(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	result, err := store.AllDocs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 0, result.Offset)
	assert.Equal(t, []string{"0", "1", "2", "3"}, rowIDs(result.Rows))
	assert.Nil(t, result.UpdateSeq)

	for _, row := range result.Rows {
		assert.Equal(t, row.ID, row.Key)
		assert.NotEmpty(t, row.Value.Rev)
		assert.False(t, row.Value.Deleted)
		assert.Nil(t, row.Doc)
	}
}

func TestAllDocsStartKey(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	start := "2"
	result, err := store.AllDocs(ctx, &AllDocsOptions{StartKey: &start})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, rowIDs(result.Rows))
	assert.Equal(t, 4, result.TotalRows)
}

func TestAllDocsStartKeyEqualsEndKey(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	key := "1"
	result, err := store.AllDocs(ctx, &AllDocsOptions{StartKey: &key, EndKey: &key})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, rowIDs(result.Rows))

	missing := "no-such-id"
	result, err = store.AllDocs(ctx, &AllDocsOptions{StartKey: &missing, EndKey: &missing})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 4, result.TotalRows)
}

func TestAllDocsSingleKey(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	key := "1"
	result, err := store.AllDocs(ctx, &AllDocsOptions{Key: &key})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, rowIDs(result.Rows))
}

func TestAllDocsKeys(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	result, err := store.AllDocs(ctx, &AllDocsOptions{Keys: []string{"2", "0", "1000"}})
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "2", result.Rows[0].ID)
	assert.Equal(t, "0", result.Rows[1].ID)
	assert.Equal(t, "1000", result.Rows[2].Key)
	assert.Equal(t, "not_found", result.Rows[2].Error)
	assert.Empty(t, result.Rows[2].ID)
	assert.Equal(t, 4, result.TotalRows)
}

func TestAllDocsKeysDuplicates(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	result, err := store.AllDocs(ctx, &AllDocsOptions{Keys: []string{"1", "1", "1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1", "1"}, rowIDs(result.Rows))
}

func TestAllDocsKeysDescending(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	result, err := store.AllDocs(ctx, &AllDocsOptions{
		Keys:       []string{"2", "0", "1000"},
		Descending: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "not_found", result.Rows[0].Error)
	assert.Equal(t, "0", result.Rows[1].ID)
	assert.Equal(t, "2", result.Rows[2].ID)
}

func TestAllDocsKeysEmpty(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	result, err := store.AllDocs(ctx, &AllDocsOptions{Keys: []string{}, keysGiven: true})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 4, result.TotalRows)
}

func TestAllDocsKeysIncompatibleOptions(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	bound := "1"
	for _, opts := range []*AllDocsOptions{
		{Keys: []string{"1"}, StartKey: &bound},
		{Keys: []string{"1"}, EndKey: &bound},
		{Keys: []string{"1"}, Key: &bound},
	} {
		_, err := store.AllDocs(ctx, opts)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindBadRequest))
	}
}

func TestAllDocsDescending(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	result, err := store.AllDocs(ctx, &AllDocsOptions{Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1", "0"}, rowIDs(result.Rows))

	// descending startkey is the start of the reversed walk
	start := "1"
	result, err = store.AllDocs(ctx, &AllDocsOptions{Descending: true, StartKey: &start})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "0"}, rowIDs(result.Rows))
}

func TestAllDocsInclusiveEnd(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	start, end := "0", "2"
	result, err := store.AllDocs(ctx, &AllDocsOptions{StartKey: &start, EndKey: &end})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, rowIDs(result.Rows))

	exclusive := false
	result, err = store.AllDocs(ctx, &AllDocsOptions{
		StartKey:     &start,
		EndKey:       &end,
		InclusiveEnd: &exclusive,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, rowIDs(result.Rows))

	// descending applies the flag to the endkey side of the walk
	result, err = store.AllDocs(ctx, &AllDocsOptions{
		StartKey:     &end,
		EndKey:       &start,
		Descending:   true,
		InclusiveEnd: &exclusive,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, rowIDs(result.Rows))
}

func TestAllDocsSkipLimit(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	limit := 2
	result, err := store.AllDocs(ctx, &AllDocsOptions{Skip: 1, Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, rowIDs(result.Rows))
	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 1, result.Offset)

	zero := 0
	result, err = store.AllDocs(ctx, &AllDocsOptions{Limit: &zero})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 4, result.TotalRows)

	result, err = store.AllDocs(ctx, &AllDocsOptions{Skip: 100})
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}

func TestAllDocsPaginationChaining(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	limit := 2
	var visited []string
	opts := &AllDocsOptions{Limit: &limit}
	for {
		result, err := store.AllDocs(ctx, opts)
		require.NoError(t, err)
		if len(result.Rows) == 0 {
			break
		}
		visited = append(visited, rowIDs(result.Rows)...)
		last := result.Rows[len(result.Rows)-1].ID
		opts = &AllDocsOptions{StartKey: &last, Skip: 1, Limit: &limit}
	}
	assert.Equal(t, []string{"0", "1", "2", "3"}, visited)
}

func TestAllDocsTotalRowsExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	winner, _, err := store.Get(ctx, "1")
	require.NoError(t, err)
	_, err = store.Remove(ctx, "1", winner.Rev)
	require.NoError(t, err)

	result, err := store.AllDocs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, []string{"0", "2", "3"}, rowIDs(result.Rows))

	// range bounds never change the total
	start := "2"
	result, err = store.AllDocs(ctx, &AllDocsOptions{StartKey: &start})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, []string{"2", "3"}, rowIDs(result.Rows))

	limit := 1
	result, err = store.AllDocs(ctx, &AllDocsOptions{Skip: 1, Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRows)
}

func TestAllDocsKeysSurfaceDeleted(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	winner, _, err := store.Get(ctx, "1")
	require.NoError(t, err)
	tombstone, err := store.Remove(ctx, "1", winner.Rev)
	require.NoError(t, err)

	result, err := store.AllDocs(ctx, &AllDocsOptions{
		Keys:        []string{"1", "2"},
		IncludeDocs: true,
		Conflicts:   true,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	deleted := result.Rows[0]
	assert.Equal(t, "1", deleted.ID)
	assert.True(t, deleted.Value.Deleted)
	assert.Equal(t, tombstone.String(), deleted.Value.Rev)
	assert.Nil(t, deleted.Doc)

	// the deleted row still serializes an explicit null doc
	data, err := json.Marshal(deleted)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	doc, ok := decoded["doc"]
	require.True(t, ok)
	assert.Nil(t, doc)
	value := decoded["value"].(map[string]any)
	assert.Equal(t, true, value["deleted"])

	live := result.Rows[1]
	require.NotNil(t, live.Doc)
	assert.Equal(t, "2", live.Doc["_id"])
	assert.Equal(t, live.Value.Rev, live.Doc["_rev"])
	assert.Equal(t, int64(3), live.Doc["a"])
}

func TestAllDocsIncludeDocsConflicts(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, storage.NewMemory())
	require.NoError(t, err)

	rev1 := object.RevID{Gen: 1, Hash: "base"}
	_, err = store.Graft(ctx, "doc", object.Revision{Rev: rev1, Body: object.Document{"v": int64(1)}})
	require.NoError(t, err)
	_, err = store.Graft(ctx, "doc", object.Revision{
		Rev: object.RevID{Gen: 2, Hash: "aa"}, Parent: rev1, Body: object.Document{"v": int64(2)},
	})
	require.NoError(t, err)
	_, err = store.Graft(ctx, "doc", object.Revision{
		Rev: object.RevID{Gen: 2, Hash: "ff"}, Parent: rev1, Body: object.Document{"v": int64(3)},
	})
	require.NoError(t, err)

	result, err := store.AllDocs(ctx, &AllDocsOptions{IncludeDocs: true, Conflicts: true})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	doc := result.Rows[0].Doc
	require.NotNil(t, doc)
	assert.Equal(t, "doc", doc["_id"])
	assert.Equal(t, "2-ff", doc["_rev"])
	assert.Equal(t, []any{"2-aa"}, doc["_conflicts"])

	// without the conflicts flag the member is absent
	result, err = store.AllDocs(ctx, &AllDocsOptions{IncludeDocs: true})
	require.NoError(t, err)
	_, ok := result.Rows[0].Doc["_conflicts"]
	assert.False(t, ok)
}

func TestAllDocsUpdateSeq(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	result, err := store.AllDocs(ctx, &AllDocsOptions{UpdateSeq: true})
	require.NoError(t, err)
	require.NotNil(t, result.UpdateSeq)
	assert.Equal(t, int64(4), *result.UpdateSeq)

	// and it stays off the wire when not requested
	result, err = store.AllDocs(ctx, nil)
	require.NoError(t, err)
	data, err := json.Marshal(result)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	_, ok := decoded["update_seq"]
	assert.False(t, ok)
}

func TestAllDocsSnapshotUnderWrites(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	limit := 2
	first, err := store.AllDocs(ctx, &AllDocsOptions{Limit: &limit})
	require.NoError(t, err)
	require.Equal(t, []string{"0", "1"}, rowIDs(first.Rows))

	// a write between pages must not repeat or skip established rows
	_, err = store.Put(ctx, "15", object.RevID{}, object.Document{"a": int64(5)})
	require.NoError(t, err)

	last := first.Rows[len(first.Rows)-1].ID
	second, err := store.AllDocs(ctx, &AllDocsOptions{StartKey: &last, Skip: 1, Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, []string{"15", "2"}, rowIDs(second.Rows))
}
