package core

import (
	"context"
	"encoding/json"
)

// BulkResult is the outcome of one mutation in a bulk request, in input
// order: either the new revision id or a structured error. Failures on
// one document never affect its siblings.
type BulkResult struct {
	ID  string
	Rev string
	Err *Error
}

func (r BulkResult) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(map[string]any{
			"id":      r.ID,
			"error":   r.Err.Kind,
			"name":    r.Err.Name,
			"reason":  r.Err.Reason,
			"message": r.Err.Reason,
			"status":  r.Err.Status,
		})
	}
	return json.Marshal(map[string]any{
		"ok":  true,
		"id":  r.ID,
		"rev": r.Rev,
	})
}

// BulkApply commits an ordered list of mutations. Each document's
// mutation is atomic; the batch is not atomic across documents.
// Sequence numbers follow input order for the mutations that succeed.
func (s *Store) BulkApply(ctx context.Context, mutations []Mutation) ([]BulkResult, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	results := make([]BulkResult, len(mutations))
	for i, m := range mutations {
		rev, err := s.commit(ctx, m)
		if err != nil {
			results[i] = BulkResult{ID: m.DocID(), Err: Normalize(err)}
			continue
		}
		results[i] = BulkResult{ID: m.DocID(), Rev: rev.String()}
	}
	return results, nil
}
