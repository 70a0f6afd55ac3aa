package codec

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/rodent-software/vole/object"
)

type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{bufio.NewWriter(w)}
}

func (e *Encoder) Flush() error {
	return e.w.Flush()
}

func (e *Encoder) Encode(value any) error {
	switch t := value.(type) {
	case nil:
		return e.EncodeNull()
	case *object.Root:
		return e.EncodeRoot(t)
	case *object.Forest:
		return e.EncodeForest(t)
	case object.Revision:
		return e.EncodeRevision(t)
	case *object.ChangeEvent:
		return e.EncodeEvent(t)
	case object.RevID:
		return e.EncodeRev(t)
	case object.Document:
		return e.EncodeMap(t)
	case object.Hash:
		return e.EncodeHash(t)
	case []byte:
		return e.EncodeBytes(t)
	case string:
		return e.EncodeString(t)
	case int64:
		return e.EncodeInt64(t)
	case int:
		return e.EncodeInt64(int64(t))
	case float64:
		return e.EncodeFloat64(t)
	case bool:
		return e.EncodeBool(t)
	case []any:
		return e.EncodeList(t)
	case map[string]any:
		return e.EncodeMap(t)
	default:
		return fmt.Errorf("no encoder for %T", value)
	}
}

func (e *Encoder) EncodeNull() error {
	return e.w.WriteByte(kindNull)
}

func (e *Encoder) EncodeRoot(value *object.Root) error {
	err := e.w.WriteByte(kindRoot)
	if err != nil {
		return err
	}
	err = e.EncodeInt64(value.Seq)
	if err != nil {
		return err
	}
	documents := make(map[string]any, len(value.Documents))
	for k, v := range value.Documents {
		documents[k] = v
	}
	err = e.EncodeMap(documents)
	if err != nil {
		return err
	}
	return e.EncodeHash(value.Log)
}

func (e *Encoder) EncodeForest(value *object.Forest) error {
	err := e.w.WriteByte(kindForest)
	if err != nil {
		return err
	}
	err = e.EncodeString(value.DocID())
	if err != nil {
		return err
	}
	revisions := value.Revisions()
	err = e.writeUint64(uint64(len(revisions)))
	if err != nil {
		return err
	}
	for _, rev := range revisions {
		err = e.EncodeRevision(rev)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) EncodeRevision(value object.Revision) error {
	err := e.w.WriteByte(kindRevision)
	if err != nil {
		return err
	}
	err = e.EncodeRev(value.Rev)
	if err != nil {
		return err
	}
	err = e.EncodeRev(value.Parent)
	if err != nil {
		return err
	}
	err = e.EncodeBool(value.Deleted)
	if err != nil {
		return err
	}
	if value.Body == nil {
		return e.EncodeNull()
	}
	return e.EncodeMap(value.Body)
}

func (e *Encoder) EncodeEvent(value *object.ChangeEvent) error {
	err := e.w.WriteByte(kindEvent)
	if err != nil {
		return err
	}
	err = e.EncodeInt64(value.Seq)
	if err != nil {
		return err
	}
	err = e.EncodeString(value.ID)
	if err != nil {
		return err
	}
	err = e.EncodeRev(value.Rev)
	if err != nil {
		return err
	}
	err = e.EncodeBool(value.Deleted)
	if err != nil {
		return err
	}
	return e.EncodeHash(value.Prev)
}

func (e *Encoder) EncodeRev(value object.RevID) error {
	err := e.w.WriteByte(kindRev)
	if err != nil {
		return err
	}
	err = e.writeUint64(uint64(value.Gen))
	if err != nil {
		return err
	}
	err = e.writeUint64(uint64(len(value.Hash)))
	if err != nil {
		return err
	}
	_, err = e.w.Write([]byte(value.Hash))
	return err
}

func (e *Encoder) EncodeHash(value object.Hash) error {
	err := e.w.WriteByte(kindHash)
	if err != nil {
		return err
	}
	err = e.writeUint64(uint64(len(value)))
	if err != nil {
		return err
	}
	_, err = e.w.Write(value)
	return err
}

func (e *Encoder) EncodeBytes(value []byte) error {
	err := e.w.WriteByte(kindBytes)
	if err != nil {
		return err
	}
	err = e.writeUint64(uint64(len(value)))
	if err != nil {
		return err
	}
	_, err = e.w.Write(value)
	return err
}

func (e *Encoder) EncodeString(value string) error {
	err := e.w.WriteByte(kindString)
	if err != nil {
		return err
	}
	err = e.writeUint64(uint64(len(value)))
	if err != nil {
		return err
	}
	_, err = e.w.Write([]byte(value))
	return err
}

func (e *Encoder) EncodeInt64(value int64) error {
	err := e.w.WriteByte(kindInt64)
	if err != nil {
		return err
	}
	return e.writeUint64(uint64(value))
}

func (e *Encoder) EncodeFloat64(value float64) error {
	err := e.w.WriteByte(kindFloat64)
	if err != nil {
		return err
	}
	return e.writeUint64(math.Float64bits(value))
}

func (e *Encoder) EncodeBool(value bool) error {
	err := e.w.WriteByte(kindBool)
	if err != nil {
		return err
	}
	if value {
		return e.w.WriteByte(1)
	}
	return e.w.WriteByte(0)
}

func (e *Encoder) EncodeList(value []any) error {
	err := e.w.WriteByte(kindList)
	if err != nil {
		return err
	}
	err = e.writeUint64(uint64(len(value)))
	if err != nil {
		return err
	}
	for _, v := range value {
		err := e.Encode(v)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) EncodeMap(value map[string]any) error {
	err := e.w.WriteByte(kindMap)
	if err != nil {
		return err
	}
	err = e.writeUint64(uint64(len(value)))
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(value))
	for k := range value {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		err := e.EncodeString(k)
		if err != nil {
			return err
		}
		err = e.Encode(value[k])
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeUint64(value uint64) error {
	for i := 0; i < 8; i++ {
		err := e.w.WriteByte(byte(value >> (i * 8)))
		if err != nil {
			return err
		}
	}
	return nil
}
