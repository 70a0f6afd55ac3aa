package core

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/rodent-software/vole/collate"
	"github.com/rodent-software/vole/object"
)

// indexEntry is the cached winner metadata for one document id. Entries
// persist for deleted documents until an explicit purge; the live count
// excludes them.
type indexEntry struct {
	id      string
	rev     object.RevID
	deleted bool
}

// allDocsIndex is an immutable snapshot of the all-docs index, ordered
// by collated id. Commits never modify a snapshot in place; they build a
// replacement, so a query holding a snapshot can paginate safely under
// concurrent writes.
type allDocsIndex struct {
	entries []indexEntry
	byID    map[string]int
	live    int
	seq     int64
}

func newAllDocsIndex() *allDocsIndex {
	return &allDocsIndex{byID: make(map[string]int)}
}

func buildAllDocsIndex(forests map[string]*object.Forest, seq int64) *allDocsIndex {
	idx := newAllDocsIndex()
	for id, forest := range forests {
		winner, ok := forest.Winner()
		if !ok {
			continue
		}
		idx.entries = append(idx.entries, indexEntry{id: id, rev: winner.Rev, deleted: winner.Deleted})
	}
	sort.Slice(idx.entries, func(i, j int) bool {
		return collate.CompareIDs(idx.entries[i].id, idx.entries[j].id) < 0
	})
	for i, e := range idx.entries {
		idx.byID[e.id] = i
		if !e.deleted {
			idx.live++
		}
	}
	idx.seq = seq
	return idx
}

// update returns a new snapshot with the winner metadata for one id
// replaced or inserted.
func (idx *allDocsIndex) update(id string, winner object.Revision, seq int64) *allDocsIndex {
	next := &allDocsIndex{
		byID: make(map[string]int, len(idx.byID)+1),
		live: idx.live,
		seq:  seq,
	}
	entry := indexEntry{id: id, rev: winner.Rev, deleted: winner.Deleted}
	if i, ok := idx.byID[id]; ok {
		next.entries = make([]indexEntry, len(idx.entries))
		copy(next.entries, idx.entries)
		if idx.entries[i].deleted != entry.deleted {
			if entry.deleted {
				next.live--
			} else {
				next.live++
			}
		}
		next.entries[i] = entry
	} else {
		pos := sort.Search(len(idx.entries), func(i int) bool {
			return collate.CompareIDs(idx.entries[i].id, id) >= 0
		})
		next.entries = make([]indexEntry, 0, len(idx.entries)+1)
		next.entries = append(next.entries, idx.entries[:pos]...)
		next.entries = append(next.entries, entry)
		next.entries = append(next.entries, idx.entries[pos:]...)
		if !entry.deleted {
			next.live++
		}
	}
	for i, e := range next.entries {
		next.byID[e.id] = i
	}
	return next
}

// RowValue carries the winner metadata of an all-docs row.
type RowValue struct {
	Rev     string `json:"rev"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Row is one all-docs result row.
type Row struct {
	ID    string
	Key   string
	Value *RowValue
	Doc   object.Document
	Error string

	hasDoc bool
}

// MarshalJSON renders the row the way callers expect: the doc member
// appears only when docs were requested, and is an explicit null for
// deleted documents.
func (r Row) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	if r.Error != "" {
		out["key"] = r.Key
		out["error"] = r.Error
		return json.Marshal(out)
	}
	out["id"] = r.ID
	out["key"] = r.Key
	out["value"] = r.Value
	if r.hasDoc {
		if r.Doc == nil {
			out["doc"] = nil
		} else {
			out["doc"] = r.Doc
		}
	}
	return json.Marshal(out)
}

// AllDocsResult is the response of an all-docs query.
type AllDocsResult struct {
	TotalRows int    `json:"total_rows"`
	Offset    int    `json:"offset"`
	Rows      []Row  `json:"rows"`
	UpdateSeq *int64 `json:"update_seq,omitempty"`
}

// AllDocs answers a range or multi-get query over the document index.
// Rows follow collation order for range scans and input order for keys
// queries. TotalRows always counts the non-deleted documents in the
// whole store.
func (s *Store) AllDocs(ctx context.Context, opts *AllDocsOptions) (*AllDocsResult, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &AllDocsOptions{}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	idx, _, lookup := s.snapshot()

	result := &AllDocsResult{
		TotalRows: idx.live,
		Offset:    opts.Skip,
		Rows:      []Row{},
	}
	if opts.UpdateSeq {
		seq := idx.seq
		result.UpdateSeq = &seq
	}

	if opts.hasKeys() {
		result.Rows = s.keysRows(idx, lookup, opts)
		return result, nil
	}
	result.Rows = s.rangeRows(idx, lookup, opts)
	return result, nil
}

func (s *Store) keysRows(idx *allDocsIndex, lookup func(string) *object.Forest, opts *AllDocsOptions) []Row {
	keys := opts.Keys
	if opts.Descending {
		keys = make([]string, len(opts.Keys))
		for i, k := range opts.Keys {
			keys[len(keys)-1-i] = k
		}
	}
	rows := make([]Row, 0, len(keys))
	for _, key := range keys {
		i, ok := idx.byID[key]
		if !ok {
			rows = append(rows, Row{Key: key, Error: KindNotFound})
			continue
		}
		rows = append(rows, s.buildRow(idx.entries[i], lookup, opts))
	}
	return clip(rows, opts.Skip, opts.Limit)
}

func (s *Store) rangeRows(idx *allDocsIndex, lookup func(string) *object.Forest, opts *AllDocsOptions) []Row {
	start, end := opts.StartKey, opts.EndKey
	if opts.Key != nil {
		// key narrows the scan to the single id; combining key with
		// range bounds is tolerated but unspecified
		start, end = opts.Key, opts.Key
	}

	// resolve bounds in natural order; under descending the startkey is
	// the upper bound since the walk runs high to low
	lower, upper := start, end
	lowerIncl, upperIncl := true, opts.inclusiveEnd()
	if opts.Descending {
		lower, upper = end, start
		lowerIncl, upperIncl = opts.inclusiveEnd(), true
	}

	lo := 0
	if lower != nil {
		lo = sort.Search(len(idx.entries), func(i int) bool {
			c := collate.CompareIDs(idx.entries[i].id, *lower)
			if lowerIncl {
				return c >= 0
			}
			return c > 0
		})
	}
	hi := len(idx.entries)
	if upper != nil {
		hi = sort.Search(len(idx.entries), func(i int) bool {
			c := collate.CompareIDs(idx.entries[i].id, *upper)
			if upperIncl {
				return c > 0
			}
			return c >= 0
		})
	}

	rows := []Row{}
	appendEntry := func(e indexEntry) {
		if e.deleted {
			return
		}
		rows = append(rows, s.buildRow(e, lookup, opts))
	}
	if opts.Descending {
		for i := hi - 1; i >= lo; i-- {
			appendEntry(idx.entries[i])
		}
	} else {
		for i := lo; i < hi; i++ {
			appendEntry(idx.entries[i])
		}
	}
	return clip(rows, opts.Skip, opts.Limit)
}

func (s *Store) buildRow(e indexEntry, lookup func(string) *object.Forest, opts *AllDocsOptions) Row {
	row := Row{
		ID:    e.id,
		Key:   e.id,
		Value: &RowValue{Rev: e.rev.String(), Deleted: e.deleted},
	}
	if !opts.IncludeDocs {
		return row
	}
	row.hasDoc = true
	if e.deleted {
		return row
	}
	forest := lookup(e.id)
	if forest == nil {
		return row
	}
	revision, ok := forest.Get(e.rev)
	if !ok {
		return row
	}
	doc := revision.Body.Clone()
	if doc == nil {
		doc = object.NewDocument()
	}
	doc["_id"] = e.id
	doc["_rev"] = e.rev.String()
	if opts.Conflicts {
		if conflicts := forest.ConflictingLeaves(); len(conflicts) > 0 {
			revs := make([]any, len(conflicts))
			for i, rev := range conflicts {
				revs[i] = rev.String()
			}
			doc["_conflicts"] = revs
		}
	}
	row.Doc = doc
	return row
}

func clip(rows []Row, skip int, limit *int) []Row {
	if skip > 0 {
		if skip >= len(rows) {
			rows = []Row{}
		} else {
			rows = rows[skip:]
		}
	}
	if limit != nil && *limit >= 0 && *limit < len(rows) {
		rows = rows[:*limit]
	}
	return rows
}
