// Package codec implements the deterministic binary encoding used for
// persisted objects. Map keys are written in sorted order so that equal
// values always produce equal bytes, which the revision hashes depend on.
package codec

import (
	"bytes"

	"github.com/rodent-software/vole/object"
)

const (
	kindString  = byte(1)
	kindBytes   = byte(2)
	kindBool    = byte(3)
	kindInt64   = byte(4)
	kindFloat64 = byte(5)
	kindMap     = byte(6)
	kindList    = byte(7)
	kindHash    = byte(8)
	kindNull    = byte(9)
	kindRev     = byte(10)

	kindRoot     = byte(100)
	kindForest   = byte(101)
	kindRevision = byte(102)
	kindEvent    = byte(103)
)

// Encode returns the encoded bytes of the given value.
func Encode(value any) ([]byte, error) {
	var buff bytes.Buffer
	enc := NewEncoder(&buff)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// RevHash returns the content hash for a fresh edit: the hash of the
// parent revision id, the deleted flag, and the canonical body bytes.
// Equal edits against equal parents hash equally, which makes retried
// writes idempotent.
func RevHash(parent object.RevID, deleted bool, body object.Document) (string, error) {
	var buff bytes.Buffer
	enc := NewEncoder(&buff)
	if err := enc.EncodeString(parent.String()); err != nil {
		return "", err
	}
	if err := enc.EncodeBool(deleted); err != nil {
		return "", err
	}
	if err := enc.Encode(body); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return object.Sum(buff.Bytes()).String(), nil
}
