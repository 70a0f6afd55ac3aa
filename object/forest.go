package object

import (
	"errors"
	"slices"
)

// ErrMissingParent is returned when an edit names a parent revision that
// is not a leaf of the forest.
var ErrMissingParent = errors.New("missing parent revision")

// Forest holds every known revision of one document and their parent
// edges. Nodes are kept in an arena in insertion order; a revision id
// appears at most once. Leaves are nodes without children, and more than
// one live leaf means the document is in conflict.
type Forest struct {
	id       string
	nodes    []Revision
	index    map[RevID]int
	hasChild []bool
}

// NewForest returns an empty forest for the given document id.
func NewForest(id string) *Forest {
	return &Forest{
		id:    id,
		index: make(map[RevID]int),
	}
}

// DocID returns the id of the document this forest belongs to.
func (f *Forest) DocID() string {
	return f.id
}

// Len returns the number of revisions in the forest.
func (f *Forest) Len() int {
	return len(f.nodes)
}

// Revisions returns every revision in insertion order.
func (f *Forest) Revisions() []Revision {
	out := make([]Revision, len(f.nodes))
	copy(out, f.nodes)
	return out
}

// Clone returns an independent copy of the forest. Published forests are
// treated as immutable; mutations run on a clone that replaces the
// original only on a successful commit.
func (f *Forest) Clone() *Forest {
	out := &Forest{
		id:       f.id,
		nodes:    make([]Revision, len(f.nodes)),
		index:    make(map[RevID]int, len(f.index)),
		hasChild: make([]bool, len(f.hasChild)),
	}
	copy(out.nodes, f.nodes)
	copy(out.hasChild, f.hasChild)
	for k, v := range f.index {
		out.index[k] = v
	}
	return out
}

// Get returns the revision with the given id.
func (f *Forest) Get(rev RevID) (Revision, bool) {
	i, ok := f.index[rev]
	if !ok {
		return Revision{}, false
	}
	return f.nodes[i], true
}

// Insert records a fresh edit against the named parent and returns the
// new revision id. The parent must be an existing leaf; a zero parent is
// accepted only when the forest is empty or the current winner is a
// tombstone, in which case the edit extends the winning tombstone.
// Inserting an id the forest already contains succeeds without change.
func (f *Forest) Insert(parent RevID, hash string, deleted bool, body Document) (RevID, error) {
	if parent.IsZero() {
		winner, ok := f.Winner()
		switch {
		case !ok:
			// new document, gen 1 root
		case winner.Deleted:
			parent = winner.Rev
		default:
			return RevID{}, ErrMissingParent
		}
	} else {
		if _, ok := f.index[parent]; !ok || !f.isLeaf(parent) {
			return RevID{}, ErrMissingParent
		}
	}
	rev := RevID{Gen: parent.Gen + 1, Hash: hash}
	f.graft(Revision{Rev: rev, Parent: parent, Deleted: deleted, Body: body})
	return rev, nil
}

// Graft records a revision whose exact id was dictated by the caller,
// creating a new branch when the parent is unknown. Grafting an id the
// forest already contains is a no-op.
func (f *Forest) Graft(rev Revision) {
	f.graft(rev)
}

func (f *Forest) graft(rev Revision) {
	if _, ok := f.index[rev.Rev]; ok {
		return
	}
	idx := len(f.nodes)
	f.index[rev.Rev] = idx
	f.nodes = append(f.nodes, rev)
	f.hasChild = append(f.hasChild, false)
	if i, ok := f.index[rev.Parent]; ok && i != idx {
		f.hasChild[i] = true
	}
	// an out-of-order graft may arrive after its children
	for _, n := range f.nodes[:idx] {
		if n.Parent == rev.Rev {
			f.hasChild[idx] = true
			break
		}
	}
}

func (f *Forest) isLeaf(rev RevID) bool {
	i, ok := f.index[rev]
	return ok && !f.hasChild[i]
}

// Leaves returns every leaf revision, best first: live revisions before
// tombstones, then higher generation, then byte-wise greater hash.
func (f *Forest) Leaves() []Revision {
	var leaves []Revision
	for i, n := range f.nodes {
		if !f.hasChild[i] {
			leaves = append(leaves, n)
		}
	}
	sortLeaves(leaves)
	return leaves
}

// Winner returns the current winning revision, or false for an empty
// forest.
func (f *Forest) Winner() (Revision, bool) {
	leaves := f.Leaves()
	if len(leaves) == 0 {
		return Revision{}, false
	}
	return leaves[0], true
}

// ConflictingLeaves returns the ids of live leaves other than the winner,
// in the same order leaves are ranked. Tombstone leaves are not reported.
func (f *Forest) ConflictingLeaves() []RevID {
	leaves := f.Leaves()
	if len(leaves) < 2 {
		return nil
	}
	var out []RevID
	for _, leaf := range leaves[1:] {
		if !leaf.Deleted {
			out = append(out, leaf.Rev)
		}
	}
	return out
}

// History returns the path from the given revision to its root, starting
// at the revision itself.
func (f *Forest) History(rev RevID) []Revision {
	var out []Revision
	for {
		i, ok := f.index[rev]
		if !ok {
			return out
		}
		out = append(out, f.nodes[i])
		rev = f.nodes[i].Parent
	}
}

func sortLeaves(leaves []Revision) {
	slices.SortStableFunc(leaves, func(a, b Revision) int {
		switch {
		case beats(a, b):
			return -1
		case beats(b, a):
			return 1
		default:
			return 0
		}
	})
}

// beats reports whether a outranks b in winner order.
func beats(a, b Revision) bool {
	if a.Deleted != b.Deleted {
		return !a.Deleted
	}
	return a.Rev.Compare(b.Rev) > 0
}
