package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/rodent-software/vole/object"
)

type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{bufio.NewReader(r)}
}

// DecodeRoot decodes a root object from the given bytes.
func DecodeRoot(data []byte) (*object.Root, error) {
	return NewDecoder(bytes.NewReader(data)).DecodeRoot()
}

// DecodeForest decodes a forest from the given bytes.
func DecodeForest(data []byte) (*object.Forest, error) {
	return NewDecoder(bytes.NewReader(data)).DecodeForest()
}

// DecodeEvent decodes a change event from the given bytes.
func DecodeEvent(data []byte) (*object.ChangeEvent, error) {
	return NewDecoder(bytes.NewReader(data)).DecodeEvent()
}

func (e *Decoder) Decode() (any, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return nil, err
	}
	err = e.r.UnreadByte()
	if err != nil {
		return nil, err
	}
	switch kind {
	case kindNull:
		return nil, e.DecodeNull()
	case kindRoot:
		return e.DecodeRoot()
	case kindForest:
		return e.DecodeForest()
	case kindRevision:
		return e.DecodeRevision()
	case kindEvent:
		return e.DecodeEvent()
	case kindRev:
		return e.DecodeRev()
	case kindHash:
		return e.DecodeHash()
	case kindBytes:
		return e.DecodeBytes()
	case kindString:
		return e.DecodeString()
	case kindInt64:
		return e.DecodeInt64()
	case kindFloat64:
		return e.DecodeFloat64()
	case kindBool:
		return e.DecodeBool()
	case kindList:
		return e.DecodeList()
	case kindMap:
		return e.DecodeMap()
	default:
		return nil, fmt.Errorf("invalid codec kind %x", kind)
	}
}

func (e *Decoder) DecodeNull() error {
	kind, err := e.r.ReadByte()
	if err != nil {
		return err
	}
	if kind != kindNull {
		return fmt.Errorf("unexpected codec kind %x", kind)
	}
	return nil
}

func (e *Decoder) DecodeRoot() (*object.Root, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind != kindRoot {
		return nil, fmt.Errorf("unexpected codec kind %x", kind)
	}
	seq, err := e.DecodeInt64()
	if err != nil {
		return nil, err
	}
	documents, err := e.DecodeMap()
	if err != nil {
		return nil, err
	}
	log, err := e.DecodeHash()
	if err != nil {
		return nil, err
	}
	root := object.Root{
		Seq:       seq,
		Documents: make(map[string]object.Hash, len(documents)),
		Log:       log,
	}
	for k, v := range documents {
		root.Documents[k] = v.(object.Hash)
	}
	return &root, nil
}

func (e *Decoder) DecodeForest() (*object.Forest, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind != kindForest {
		return nil, fmt.Errorf("unexpected codec kind %x", kind)
	}
	id, err := e.DecodeString()
	if err != nil {
		return nil, err
	}
	size, err := e.readUint64()
	if err != nil {
		return nil, err
	}
	forest := object.NewForest(id)
	for i := 0; i < int(size); i++ {
		rev, err := e.DecodeRevision()
		if err != nil {
			return nil, err
		}
		forest.Graft(rev)
	}
	return forest, nil
}

func (e *Decoder) DecodeRevision() (object.Revision, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return object.Revision{}, err
	}
	if kind != kindRevision {
		return object.Revision{}, fmt.Errorf("unexpected codec kind %x", kind)
	}
	rev, err := e.DecodeRev()
	if err != nil {
		return object.Revision{}, err
	}
	parent, err := e.DecodeRev()
	if err != nil {
		return object.Revision{}, err
	}
	deleted, err := e.DecodeBool()
	if err != nil {
		return object.Revision{}, err
	}
	body, err := e.Decode()
	if err != nil {
		return object.Revision{}, err
	}
	revision := object.Revision{
		Rev:     rev,
		Parent:  parent,
		Deleted: deleted,
	}
	if body != nil {
		revision.Body = object.Document(body.(map[string]any))
	}
	return revision, nil
}

func (e *Decoder) DecodeEvent() (*object.ChangeEvent, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind != kindEvent {
		return nil, fmt.Errorf("unexpected codec kind %x", kind)
	}
	seq, err := e.DecodeInt64()
	if err != nil {
		return nil, err
	}
	id, err := e.DecodeString()
	if err != nil {
		return nil, err
	}
	rev, err := e.DecodeRev()
	if err != nil {
		return nil, err
	}
	deleted, err := e.DecodeBool()
	if err != nil {
		return nil, err
	}
	prev, err := e.DecodeHash()
	if err != nil {
		return nil, err
	}
	return &object.ChangeEvent{
		Seq:     seq,
		ID:      id,
		Rev:     rev,
		Deleted: deleted,
		Prev:    prev,
	}, nil
}

func (e *Decoder) DecodeRev() (object.RevID, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return object.RevID{}, err
	}
	if kind != kindRev {
		return object.RevID{}, fmt.Errorf("unexpected codec kind %x", kind)
	}
	gen, err := e.readUint64()
	if err != nil {
		return object.RevID{}, err
	}
	size, err := e.readUint64()
	if err != nil {
		return object.RevID{}, err
	}
	hash := make([]byte, size)
	_, err = io.ReadFull(e.r, hash)
	if err != nil {
		return object.RevID{}, err
	}
	return object.RevID{Gen: int64(gen), Hash: string(hash)}, nil
}

func (e *Decoder) DecodeHash() (object.Hash, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind != kindHash {
		return nil, fmt.Errorf("unexpected codec kind %x", kind)
	}
	size, err := e.readUint64()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	value := make([]byte, size)
	_, err = io.ReadFull(e.r, value)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (e *Decoder) DecodeBytes() ([]byte, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind != kindBytes {
		return nil, fmt.Errorf("unexpected codec kind %x", kind)
	}
	size, err := e.readUint64()
	if err != nil {
		return nil, err
	}
	value := make([]byte, size)
	_, err = io.ReadFull(e.r, value)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (e *Decoder) DecodeString() (string, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return "", err
	}
	if kind != kindString {
		return "", fmt.Errorf("unexpected codec kind %x", kind)
	}
	size, err := e.readUint64()
	if err != nil {
		return "", err
	}
	value := make([]byte, size)
	_, err = io.ReadFull(e.r, value)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (e *Decoder) DecodeInt64() (int64, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if kind != kindInt64 {
		return 0, fmt.Errorf("unexpected codec kind %x", kind)
	}
	value, err := e.readUint64()
	if err != nil {
		return 0, err
	}
	return int64(value), nil
}

func (e *Decoder) DecodeFloat64() (float64, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if kind != kindFloat64 {
		return 0, fmt.Errorf("unexpected codec kind %x", kind)
	}
	value, err := e.readUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(value), nil
}

func (e *Decoder) DecodeBool() (bool, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return false, err
	}
	if kind != kindBool {
		return false, fmt.Errorf("unexpected codec kind %x", kind)
	}
	value, err := e.r.ReadByte()
	if err != nil {
		return false, err
	}
	return value != 0, nil
}

func (e *Decoder) DecodeList() ([]any, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind != kindList {
		return nil, fmt.Errorf("unexpected codec kind %x", kind)
	}
	size, err := e.readUint64()
	if err != nil {
		return nil, err
	}
	value := make([]any, size)
	for i := 0; i < int(size); i++ {
		v, err := e.Decode()
		if err != nil {
			return nil, err
		}
		value[i] = v
	}
	return value, nil
}

func (e *Decoder) DecodeMap() (map[string]any, error) {
	kind, err := e.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind != kindMap {
		return nil, fmt.Errorf("unexpected codec kind %x", kind)
	}
	size, err := e.readUint64()
	if err != nil {
		return nil, err
	}
	value := make(map[string]any, size)
	for i := 0; i < int(size); i++ {
		k, err := e.DecodeString()
		if err != nil {
			return nil, err
		}
		v, err := e.Decode()
		if err != nil {
			return nil, err
		}
		value[k] = v
	}
	return value, nil
}

func (e *Decoder) readUint64() (uint64, error) {
	result := uint64(0)
	for i := 0; i < 8; i++ {
		b, err := e.r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b) << (i * 8)
	}
	return result, nil
}
