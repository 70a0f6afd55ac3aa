// Package vole is a local document database with multi-version
// concurrency control. Documents carry branching revision histories;
// conflicting branches survive replication-style inserts and a
// deterministic winner is exposed until conflicts are resolved.
package vole

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rodent-software/vole/core"
	"github.com/rodent-software/vole/object"
	"github.com/rodent-software/vole/storage"
)

// DB wraps a store with the caller-facing document API.
type DB struct {
	name  string
	store *core.Store
	log   logrus.FieldLogger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used by the DB.
func WithLogger(log logrus.FieldLogger) Option {
	return func(db *DB) {
		db.log = log
	}
}

// Open creates a new DB instance using the given storage backend.
func Open(ctx context.Context, st storage.Storage, name string, opts ...Option) (*DB, error) {
	db := &DB{
		name: name,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(db)
	}
	store, err := core.Open(ctx, st)
	if err != nil {
		return nil, err
	}
	db.store = store
	db.log.WithFields(logrus.Fields{
		"name":       name,
		"update_seq": store.Seq(),
		"doc_count":  store.DocCount(),
	}).Info("database opened")
	return db, nil
}

// Name returns the database name.
func (db *DB) Name() string {
	return db.name
}

// Store returns the underlying document store.
func (db *DB) Store() *core.Store {
	return db.store
}

// Close marks the database closed; later operations fail.
func (db *DB) Close() error {
	return db.store.Close()
}

// GetOptions controls a single-document read.
type GetOptions struct {
	// Conflicts attaches a _conflicts member listing rival leaves.
	Conflicts bool
}

// Get returns the winning revision of a document with _id and _rev
// merged into the body.
func (db *DB) Get(ctx context.Context, id string, opts *GetOptions) (object.Document, error) {
	winner, conflicts, err := db.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := winner.Body.Clone()
	if doc == nil {
		doc = object.NewDocument()
	}
	doc["_id"] = id
	doc["_rev"] = winner.Rev.String()
	if opts != nil && opts.Conflicts && len(conflicts) > 0 {
		revs := make([]any, len(conflicts))
		for i, rev := range conflicts {
			revs[i] = rev.String()
		}
		doc["_conflicts"] = revs
	}
	return doc, nil
}

// Put writes a document. The body carries _id, and _rev names the parent
// revision for updates. The new revision id is returned.
func (db *DB) Put(ctx context.Context, doc object.Document) (string, error) {
	meta, err := splitMeta(doc)
	if err != nil {
		return "", err
	}
	if meta.id == "" {
		return "", core.BadRequest("_id is required for puts")
	}
	var rev object.RevID
	if meta.deleted {
		rev, err = db.store.Remove(ctx, meta.id, meta.rev)
	} else {
		rev, err = db.store.Put(ctx, meta.id, meta.rev, meta.body)
	}
	if err != nil {
		return "", err
	}
	return rev.String(), nil
}

// Post writes a document with a generated id and returns the id and the
// new revision id.
func (db *DB) Post(ctx context.Context, doc object.Document) (string, string, error) {
	meta, err := splitMeta(doc)
	if err != nil {
		return "", "", err
	}
	if meta.id == "" {
		meta.id = uuid.NewString()
	}
	rev, err := db.store.Put(ctx, meta.id, meta.rev, meta.body)
	if err != nil {
		return "", "", err
	}
	return meta.id, rev.String(), nil
}

// Delete writes a tombstone on top of the given revision.
func (db *DB) Delete(ctx context.Context, id, rev string) (string, error) {
	parent, err := object.ParseRevID(rev)
	if err != nil {
		return "", core.BadRequest("Invalid rev format")
	}
	tombstone, err := db.store.Remove(ctx, id, parent)
	if err != nil {
		return "", err
	}
	return tombstone.String(), nil
}

// BulkDocs applies a batch of document writes. With newEdits the store
// computes each next revision; without it each document's _rev is
// grafted verbatim, preserving conflicting branches as replication does.
// One result per input document, in input order.
func (db *DB) BulkDocs(ctx context.Context, docs []object.Document, newEdits bool) ([]core.BulkResult, error) {
	mutations := make([]core.Mutation, 0, len(docs))
	for _, doc := range docs {
		m, err := db.mutation(doc, newEdits)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, m)
	}
	results, err := db.store.BulkApply(ctx, mutations)
	if err != nil {
		return nil, err
	}
	db.log.WithField("count", len(results)).Debug("bulk docs applied")
	return results, nil
}

func (db *DB) mutation(doc object.Document, newEdits bool) (core.Mutation, error) {
	meta, err := splitMeta(doc)
	if err != nil {
		return nil, err
	}
	if newEdits {
		if meta.id == "" {
			meta.id = uuid.NewString()
		}
		return core.FreshEdit{
			ID:      meta.id,
			Parent:  meta.rev,
			Deleted: meta.deleted,
			Body:    meta.body,
		}, nil
	}
	if meta.id == "" {
		return nil, core.BadRequest("_id is required")
	}
	if meta.rev.IsZero() {
		return nil, core.BadRequest("_rev is required with new_edits disabled")
	}
	return core.TrustedEdit{
		ID: meta.id,
		Revision: object.Revision{
			Rev:     meta.rev,
			Deleted: meta.deleted,
			Body:    meta.body,
		},
	}, nil
}

// AllDocs answers a collated range or multi-get query over all
// documents.
func (db *DB) AllDocs(ctx context.Context, opts *core.AllDocsOptions) (*core.AllDocsResult, error) {
	return db.store.AllDocs(ctx, opts)
}

// Changes answers a one-shot changes feed query.
func (db *DB) Changes(ctx context.Context, opts *core.ChangesOptions) (*core.ChangesResult, error) {
	return db.store.Changes(ctx, opts)
}

// Compact is accepted for API compatibility. Revisions are stored
// content-addressed and shared, so there is nothing to rewrite yet.
func (db *DB) Compact(ctx context.Context) error {
	if err := db.store.Ping(); err != nil {
		return err
	}
	db.log.WithField("name", db.name).Debug("compaction requested")
	return nil
}

// Info describes the current state of the database.
type Info struct {
	DBName    string `json:"db_name"`
	DocCount  int    `json:"doc_count"`
	UpdateSeq int64  `json:"update_seq"`
	UUID      string `json:"uuid"`
}

func (db *DB) Info(ctx context.Context) (*Info, error) {
	if err := db.store.Ping(); err != nil {
		return nil, err
	}
	return &Info{
		DBName:    db.name,
		DocCount:  db.store.DocCount(),
		UpdateSeq: db.store.Seq(),
		UUID:      db.store.ID(),
	}, nil
}

type docMeta struct {
	id      string
	rev     object.RevID
	deleted bool
	body    object.Document
}

// splitMeta separates the reserved members of a document body from its
// content. Unknown underscore members are left in place for the store to
// reject.
func splitMeta(doc object.Document) (docMeta, error) {
	var meta docMeta
	meta.body = object.NewDocument()
	for k, v := range doc {
		switch k {
		case "_id":
			id, ok := v.(string)
			if !ok || id == "" {
				return meta, core.BadRequest("_id must be a non-empty string")
			}
			meta.id = id
		case "_rev":
			s, ok := v.(string)
			if !ok {
				return meta, core.BadRequest("Invalid rev format")
			}
			rev, err := object.ParseRevID(s)
			if err != nil {
				return meta, core.BadRequest("Invalid rev format")
			}
			meta.rev = rev
		case "_deleted":
			meta.deleted, _ = v.(bool)
		case "_revisions", "_attachments", "_conflicts":
			// accepted and ignored
		default:
			meta.body[k] = v
		}
	}
	return meta, nil
}
