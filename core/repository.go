package core

import (
	"bytes"
	"context"
	"errors"

	"github.com/rodent-software/vole/codec"
	"github.com/rodent-software/vole/object"
	"github.com/rodent-software/vole/storage"
)

const (
	rootKey = "root"
	uuidKey = "uuid"
)

// repository persists codec-encoded objects in a storage backend. Every
// object except the root is immutable and stored under its content hash;
// the root lives at a fixed key and points at the rest.
type repository struct {
	storage storage.Storage
}

func (r repository) createObject(ctx context.Context, value any) (object.Hash, error) {
	data, err := codec.Encode(value)
	if err != nil {
		return nil, err
	}
	hash := object.Sum(data)
	if err := r.storage.Put(ctx, hash.String(), data); err != nil {
		return nil, err
	}
	return hash, nil
}

// root returns the persisted root, or nil for an uninitialized store.
func (r repository) root(ctx context.Context) (*object.Root, error) {
	data, err := r.storage.Get(ctx, rootKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeRoot(data)
}

func (r repository) putRoot(ctx context.Context, root *object.Root) error {
	data, err := codec.Encode(root)
	if err != nil {
		return err
	}
	return r.storage.Put(ctx, rootKey, data)
}

// forest returns the forest with the given hash.
func (r repository) forest(ctx context.Context, hash object.Hash) (*object.Forest, error) {
	data, err := r.storage.Get(ctx, hash.String())
	if err != nil {
		return nil, err
	}
	return codec.DecodeForest(data)
}

// event returns the change event with the given hash.
func (r repository) event(ctx context.Context, hash object.Hash) (*object.ChangeEvent, error) {
	data, err := r.storage.Get(ctx, hash.String())
	if err != nil {
		return nil, err
	}
	return codec.DecodeEvent(data)
}

// events replays the event chain ending at the given hash and returns it
// in sequence order.
func (r repository) events(ctx context.Context, head object.Hash) ([]*object.ChangeEvent, error) {
	var out []*object.ChangeEvent
	for !head.IsZero() {
		event, err := r.event(ctx, head)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
		head = event.Prev
	}
	// chain is walked newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// instanceID returns the persisted store identity, writing a fresh one
// on first use.
func (r repository) instanceID(ctx context.Context, fresh string) (string, error) {
	data, err := r.storage.Get(ctx, uuidKey)
	if errors.Is(err, storage.ErrNotFound) {
		if err := r.storage.Put(ctx, uuidKey, []byte(fresh)); err != nil {
			return "", err
		}
		return fresh, nil
	}
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(data)), nil
}
