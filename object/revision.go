package object

import (
	"fmt"
	"strconv"
	"strings"
)

// RevID identifies one revision of a document by its generation and the
// hash of its content.
type RevID struct {
	// Gen is the 1-based depth of the revision in its history.
	Gen int64
	// Hash is the hex-encoded content hash.
	Hash string
}

// ParseRevID parses a revision id in "generation-hash" form.
func ParseRevID(s string) (RevID, error) {
	idx := strings.IndexByte(s, '-')
	if idx <= 0 || idx == len(s)-1 {
		return RevID{}, fmt.Errorf("invalid rev format %q", s)
	}
	gen, err := strconv.ParseInt(s[:idx], 10, 64)
	if err != nil || gen < 1 {
		return RevID{}, fmt.Errorf("invalid rev format %q", s)
	}
	return RevID{Gen: gen, Hash: s[idx+1:]}, nil
}

// String returns the "generation-hash" form of the revision id.
func (r RevID) String() string {
	return strconv.FormatInt(r.Gen, 10) + "-" + r.Hash
}

// IsZero returns true if the revision id is unset.
func (r RevID) IsZero() bool {
	return r.Gen == 0 && r.Hash == ""
}

// Compare orders two revision ids by generation, then by a byte-wise
// comparison of the hash. Winner selection depends on this being stable
// across runs.
func (r RevID) Compare(other RevID) int {
	switch {
	case r.Gen < other.Gen:
		return -1
	case r.Gen > other.Gen:
		return 1
	default:
		return strings.Compare(r.Hash, other.Hash)
	}
}

// Revision is one immutable version of a document.
type Revision struct {
	// Rev identifies the revision.
	Rev RevID
	// Parent identifies the parent revision, or is zero for a root.
	Parent RevID
	// Deleted marks the revision as a tombstone.
	Deleted bool
	// Body holds the document content. Tombstones have a nil body.
	Body Document
}
