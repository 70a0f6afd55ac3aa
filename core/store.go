package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rodent-software/vole/codec"
	"github.com/rodent-software/vole/object"
	"github.com/rodent-software/vole/storage"
)

// Store is the document revision engine. It owns every document's
// revision forest, the collated all-docs index, and the change log, and
// keeps all three consistent through a single commit step.
//
// Published forests and index snapshots are immutable; commits build
// replacements and swap them in, so readers always observe a consistent
// snapshot without blocking writers.
type Store struct {
	repo repository

	mu      sync.RWMutex
	forests map[string]*object.Forest
	hashes  map[string]object.Hash
	index   *allDocsIndex
	events  []*object.ChangeEvent
	logHead object.Hash
	seq     int64
	closed  bool

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	id string
}

// Open loads or initializes a store using the given storage backend. The
// sequence counter resumes from the persisted root.
func Open(ctx context.Context, st storage.Storage) (*Store, error) {
	s := &Store{
		repo:    repository{storage: st},
		forests: make(map[string]*object.Forest),
		hashes:  make(map[string]object.Hash),
		locks:   make(map[string]*sync.Mutex),
	}
	id, err := s.repo.instanceID(ctx, uuid.NewString())
	if err != nil {
		return nil, err
	}
	s.id = id

	root, err := s.repo.root(ctx)
	if err != nil {
		return nil, err
	}
	if root == nil {
		s.index = newAllDocsIndex()
		return s, nil
	}
	s.seq = root.Seq
	s.logHead = root.Log
	for docID, hash := range root.Documents {
		forest, err := s.repo.forest(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("load forest %s: %w", docID, err)
		}
		s.forests[docID] = forest
		s.hashes[docID] = hash
	}
	s.events, err = s.repo.events(ctx, root.Log)
	if err != nil {
		return nil, err
	}
	s.index = buildAllDocsIndex(s.forests, s.seq)
	return s, nil
}

// ID returns the persistent identity of the store instance.
func (s *Store) ID() string {
	return s.id
}

// Close marks the store closed. Every subsequent operation fails with a
// fixed bad_request error.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Ping reports whether the store is usable.
func (s *Store) Ping() error {
	return s.checkOpen()
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed()
	}
	return nil
}

// Seq returns the last assigned sequence number.
func (s *Store) Seq() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.seq
}

// DocCount returns the number of documents whose winner is not a
// tombstone.
func (s *Store) DocCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.index.live
}

// Mutation is one requested change to one document. FreshEdit and
// TrustedEdit are the two variants: the former computes the next
// revision, the latter grafts an exact revision dictated by the caller.
type Mutation interface {
	DocID() string
	apply(forest *object.Forest) (object.RevID, error)
}

// FreshEdit asks the store to compute the next revision from the named
// parent. A zero Parent is valid only for unknown or deleted documents.
type FreshEdit struct {
	ID      string
	Parent  object.RevID
	Deleted bool
	Body    object.Document
}

func (m FreshEdit) DocID() string {
	return m.ID
}

func (m FreshEdit) apply(forest *object.Forest) (object.RevID, error) {
	if err := validateBody(m.Body); err != nil {
		return object.RevID{}, err
	}
	body := m.Body.Clone()
	if m.Deleted {
		body = nil
	}
	hash, err := codec.RevHash(m.Parent, m.Deleted, body)
	if err != nil {
		return object.RevID{}, err
	}
	rev, err := forest.Insert(m.Parent, hash, m.Deleted, body)
	if errors.Is(err, object.ErrMissingParent) {
		return object.RevID{}, Conflict("")
	}
	if err != nil {
		return object.RevID{}, err
	}
	return rev, nil
}

// TrustedEdit grafts the exact revision onto the document's forest,
// creating a conflicting branch when the parent is unknown. Used when a
// revision id was dictated by a remote peer.
type TrustedEdit struct {
	ID       string
	Revision object.Revision
}

func (m TrustedEdit) DocID() string {
	return m.ID
}

func (m TrustedEdit) apply(forest *object.Forest) (object.RevID, error) {
	if m.Revision.Rev.Gen < 1 || m.Revision.Rev.Hash == "" {
		return object.RevID{}, BadRequest("invalid rev format")
	}
	if err := validateBody(m.Revision.Body); err != nil {
		return object.RevID{}, err
	}
	rev := m.Revision
	rev.Body = rev.Body.Clone()
	if rev.Deleted {
		rev.Body = nil
	}
	forest.Graft(rev)
	return rev.Rev, nil
}

// Put records a fresh edit and returns the new revision id.
func (s *Store) Put(ctx context.Context, id string, parent object.RevID, body object.Document) (object.RevID, error) {
	if id == "" {
		return object.RevID{}, BadRequest("_id is required for puts")
	}
	return s.commit(ctx, FreshEdit{ID: id, Parent: parent, Body: body})
}

// Remove writes a tombstone revision on top of the named parent.
func (s *Store) Remove(ctx context.Context, id string, parent object.RevID) (object.RevID, error) {
	if err := s.checkOpen(); err != nil {
		return object.RevID{}, err
	}
	s.mu.RLock()
	_, known := s.forests[id]
	s.mu.RUnlock()
	if !known {
		return object.RevID{}, NotFound("missing")
	}
	if parent.IsZero() {
		return object.RevID{}, Conflict("")
	}
	return s.commit(ctx, FreshEdit{ID: id, Parent: parent, Deleted: true})
}

// Graft records a trusted edit with the exact revision given.
func (s *Store) Graft(ctx context.Context, id string, rev object.Revision) (object.RevID, error) {
	return s.commit(ctx, TrustedEdit{ID: id, Revision: rev})
}

// Get returns the winning revision of the document and the ids of any
// conflicting leaves. Unknown documents and documents whose winner is a
// tombstone report not_found.
func (s *Store) Get(ctx context.Context, id string) (object.Revision, []object.RevID, error) {
	if err := s.checkOpen(); err != nil {
		return object.Revision{}, nil, err
	}
	s.mu.RLock()
	forest := s.forests[id]
	s.mu.RUnlock()

	if forest == nil {
		return object.Revision{}, nil, NotFound("missing")
	}
	winner, ok := forest.Winner()
	if !ok {
		return object.Revision{}, nil, NotFound("missing")
	}
	if winner.Deleted {
		return object.Revision{}, nil, NotFound("deleted")
	}
	return winner, forest.ConflictingLeaves(), nil
}

// commit is the exclusive section updating one document: forest, all-docs
// entry, and change event move together or not at all.
func (s *Store) commit(ctx context.Context, m Mutation) (object.RevID, error) {
	if err := s.checkOpen(); err != nil {
		return object.RevID{}, err
	}
	id := m.DocID()
	if id == "" {
		return object.RevID{}, BadRequest("_id is required")
	}
	lock := s.docLock(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current := s.forests[id]
	s.mu.RUnlock()

	var work *object.Forest
	if current == nil {
		work = object.NewForest(id)
	} else {
		work = current.Clone()
	}
	rev, err := m.apply(work)
	if err != nil {
		return object.RevID{}, Normalize(err)
	}
	if current != nil && work.Len() == current.Len() {
		// duplicate revision, deliberate-retry semantics
		return rev, nil
	}
	winner, ok := work.Winner()
	if !ok {
		return object.RevID{}, BadRequest("empty forest after edit")
	}

	forestHash, err := s.repo.createObject(ctx, work)
	if err != nil {
		return object.RevID{}, Normalize(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return object.RevID{}, ErrClosed()
	}
	event := &object.ChangeEvent{
		Seq:     s.seq + 1,
		ID:      id,
		Rev:     winner.Rev,
		Deleted: winner.Deleted,
		Prev:    s.logHead,
	}
	eventHash, err := s.repo.createObject(ctx, event)
	if err != nil {
		return object.RevID{}, Normalize(err)
	}
	root := &object.Root{
		Seq:       event.Seq,
		Documents: make(map[string]object.Hash, len(s.hashes)+1),
		Log:       eventHash,
	}
	for k, v := range s.hashes {
		root.Documents[k] = v
	}
	root.Documents[id] = forestHash
	if err := s.repo.putRoot(ctx, root); err != nil {
		return object.RevID{}, Normalize(err)
	}

	s.seq = event.Seq
	s.logHead = eventHash
	s.forests[id] = work
	s.hashes[id] = forestHash
	s.events = append(s.events, event)
	s.index = s.index.update(id, winner, s.seq)
	return rev, nil
}

func (s *Store) docLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// snapshot returns the current index and events for a read-only query,
// plus a forest lookup. Revisions are immutable, so a forest fetched
// after the snapshot can only extend it, never contradict it.
func (s *Store) snapshot() (*allDocsIndex, []*object.ChangeEvent, func(string) *object.Forest) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.index
	events := s.events[:len(s.events):len(s.events)]
	lookup := func(id string) *object.Forest {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.forests[id]
	}
	return idx, events, lookup
}

func validateBody(body object.Document) error {
	names := make([]string, 0, 1)
	for k := range body {
		if strings.HasPrefix(k, "_") {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)
	return fmt.Errorf("%s: %s", badSpecialMember, names[0])
}
