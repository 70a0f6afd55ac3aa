package core

import (
	"context"
	"slices"

	"github.com/rodent-software/vole/object"
)

// ChangedRev names one revision in a change result.
type ChangedRev struct {
	Rev string `json:"rev"`
}

// ChangeResult is one document's entry in a changes response.
type ChangeResult struct {
	Seq     int64           `json:"seq"`
	ID      string          `json:"id"`
	Changes []ChangedRev    `json:"changes"`
	Deleted bool            `json:"deleted,omitempty"`
	Doc     object.Document `json:"doc,omitempty"`
}

// ChangesResult is the one-shot changes response.
type ChangesResult struct {
	Results []ChangeResult `json:"results"`
	LastSeq int64          `json:"last_seq"`
}

// Changes replays the mutation log after the given cursor. Only the most
// recent event per document is reported; all_docs style additionally
// lists every live leaf revision in the changes member. An event with
// seq <= since is never reported, and descending reverses enumeration
// order only.
func (s *Store) Changes(ctx context.Context, opts *ChangesOptions) (*ChangesResult, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &ChangesOptions{}
	}
	if style := opts.style(); style != StyleMainOnly && style != StyleAllDocs {
		return nil, BadRequest("invalid changes style " + style)
	}
	_, events, lookup := s.snapshot()

	// the log is in sequence order; keep the newest event per document
	latest := make(map[string]int)
	for i, event := range events {
		if event.Seq <= opts.Since {
			continue
		}
		latest[event.ID] = i
	}
	// report documents in the order of their newest event
	type pending struct {
		id  string
		idx int
	}
	items := make([]pending, 0, len(latest))
	for id, idx := range latest {
		items = append(items, pending{id: id, idx: idx})
	}
	slices.SortFunc(items, func(a, b pending) int {
		return a.idx - b.idx
	})

	if opts.Descending {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	if opts.Limit != nil && *opts.Limit >= 0 && *opts.Limit < len(items) {
		items = items[:*opts.Limit]
	}

	result := &ChangesResult{
		Results: []ChangeResult{},
		LastSeq: opts.Since,
	}
	for _, item := range items {
		event := events[item.idx]
		result.Results = append(result.Results, s.buildChange(event, lookup, opts))
		if event.Seq > result.LastSeq {
			result.LastSeq = event.Seq
		}
	}
	return result, nil
}

func (s *Store) buildChange(event *object.ChangeEvent, lookup func(string) *object.Forest, opts *ChangesOptions) ChangeResult {
	change := ChangeResult{
		Seq:     event.Seq,
		ID:      event.ID,
		Changes: []ChangedRev{{Rev: event.Rev.String()}},
		Deleted: event.Deleted,
	}
	forest := lookup(event.ID)
	if forest == nil {
		return change
	}
	if opts.style() == StyleAllDocs {
		leaves := forest.Leaves()
		change.Changes = make([]ChangedRev, 0, len(leaves))
		for _, leaf := range leaves {
			change.Changes = append(change.Changes, ChangedRev{Rev: leaf.Rev.String()})
		}
	}
	if !opts.IncludeDocs {
		return change
	}
	revision, ok := forest.Get(event.Rev)
	if !ok {
		return change
	}
	doc := revision.Body.Clone()
	if doc == nil {
		doc = object.NewDocument()
	}
	doc["_id"] = event.ID
	doc["_rev"] = event.Rev.String()
	if event.Deleted {
		doc["_deleted"] = true
	}
	if opts.Conflicts {
		if conflicts := forest.ConflictingLeaves(); len(conflicts) > 0 {
			revs := make([]any, len(conflicts))
			for i, rev := range conflicts {
				revs[i] = rev.String()
			}
			doc["_conflicts"] = revs
		}
	}
	change.Doc = doc
	return change
}
