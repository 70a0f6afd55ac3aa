package object

// Root is the top-level persisted object for a store.
type Root struct {
	// Seq is the last assigned sequence number.
	Seq int64
	// Documents is a mapping of ids to forest hashes.
	Documents map[string]Hash
	// Log is the hash of the most recent change event, or empty.
	Log Hash
}

// ChangeEvent records one committed mutation of one document.
type ChangeEvent struct {
	// Seq is the sequence number assigned at commit.
	Seq int64
	// ID is the document id.
	ID string
	// Rev is the winning revision at the time of the change.
	Rev RevID
	// Deleted is true if the winner was a tombstone.
	Deleted bool
	// Prev is the hash of the previous event, or empty for the first.
	Prev Hash
}

// Document is the body of a revision.
type Document map[string]any

func NewDocument() Document {
	return make(map[string]any)
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case Document:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return t
	}
}
