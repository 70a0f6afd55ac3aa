package core

import "fmt"

// Changes feed styles.
const (
	StyleMainOnly = "main_only"
	StyleAllDocs  = "all_docs"
)

// AllDocsOptions controls an all-docs query. A nil Keys slice means the
// option is absent; an empty non-nil slice yields zero rows.
type AllDocsOptions struct {
	StartKey     *string
	EndKey       *string
	Key          *string
	Keys         []string
	Descending   bool
	InclusiveEnd *bool
	Skip         int
	Limit        *int
	IncludeDocs  bool
	Conflicts    bool
	UpdateSeq    bool

	keysGiven bool
}

func (o *AllDocsOptions) inclusiveEnd() bool {
	return o.InclusiveEnd == nil || *o.InclusiveEnd
}

func (o *AllDocsOptions) hasKeys() bool {
	return o.Keys != nil || o.keysGiven
}

// Validate rejects malformed option combinations.
func (o *AllDocsOptions) Validate() error {
	if !o.hasKeys() {
		return nil
	}
	if o.StartKey != nil {
		return BadRequest("Query parameter `start_key` is not compatible with multi-get")
	}
	if o.EndKey != nil {
		return BadRequest("Query parameter `end_key` is not compatible with multi-get")
	}
	if o.Key != nil {
		return BadRequest("Query parameter `key` is not compatible with multi-get")
	}
	return nil
}

// ChangesOptions controls a one-shot changes query.
type ChangesOptions struct {
	Since       int64
	Descending  bool
	Limit       *int
	IncludeDocs bool
	Conflicts   bool
	// Style selects main_only (default) or all_docs leaf reporting.
	Style string
	// ReturnDocs is accepted for API compatibility; the one-shot feed
	// always materializes its results.
	ReturnDocs bool
}

func (o *ChangesOptions) style() string {
	if o.Style == "" {
		return StyleMainOnly
	}
	return o.Style
}

// ParseAllDocsOptions builds typed options from a loosely typed map, the
// shape accepted at the outer API boundaries. It applies the
// start_key/end_key aliases and rejects malformed values.
func ParseAllDocsOptions(raw map[string]any) (*AllDocsOptions, error) {
	opts := &AllDocsOptions{}
	if v, ok := raw["startkey"]; ok {
		s, err := asString("startkey", v)
		if err != nil {
			return nil, err
		}
		opts.StartKey = &s
	}
	if v, ok := raw["start_key"]; ok && opts.StartKey == nil {
		s, err := asString("start_key", v)
		if err != nil {
			return nil, err
		}
		opts.StartKey = &s
	}
	if v, ok := raw["endkey"]; ok {
		s, err := asString("endkey", v)
		if err != nil {
			return nil, err
		}
		opts.EndKey = &s
	}
	if v, ok := raw["end_key"]; ok && opts.EndKey == nil {
		s, err := asString("end_key", v)
		if err != nil {
			return nil, err
		}
		opts.EndKey = &s
	}
	if v, ok := raw["key"]; ok {
		s, err := asString("key", v)
		if err != nil {
			return nil, err
		}
		opts.Key = &s
	}
	if v, ok := raw["keys"]; ok {
		keys, err := asKeys(v)
		if err != nil {
			return nil, err
		}
		opts.Keys = keys
		opts.keysGiven = true
	}
	if v, ok := raw["descending"]; ok {
		opts.Descending, _ = v.(bool)
	}
	if v, ok := raw["inclusive_end"]; ok {
		b, _ := v.(bool)
		opts.InclusiveEnd = &b
	}
	if v, ok := raw["skip"]; ok {
		n, err := asInt("skip", v)
		if err != nil {
			return nil, err
		}
		opts.Skip = n
	}
	if v, ok := raw["limit"]; ok {
		n, err := asInt("limit", v)
		if err != nil {
			return nil, err
		}
		opts.Limit = &n
	}
	if v, ok := raw["include_docs"]; ok {
		opts.IncludeDocs, _ = v.(bool)
	}
	if v, ok := raw["conflicts"]; ok {
		opts.Conflicts, _ = v.(bool)
	}
	if v, ok := raw["update_seq"]; ok {
		opts.UpdateSeq, _ = v.(bool)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func asString(name string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", BadRequest(fmt.Sprintf("Query parameter `%s` has to be a string", name))
	}
	return s, nil
}

func asInt(name string, v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	default:
		return 0, BadRequest(fmt.Sprintf("Query parameter `%s` has to be a number", name))
	}
}

func asKeys(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		if t == nil {
			return []string{}, nil
		}
		return t, nil
	case []any:
		keys := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, BadRequest("Query parameter `keys` has to be an array of strings")
			}
			keys = append(keys, s)
		}
		return keys, nil
	default:
		return nil, BadRequest("Query parameter `keys` has to be an array")
	}
}
