package cbor

import (
	"bytes"
	"math"
	"math/big"
	"reflect"
	"sort"

	"github.com/x448/float16"
)

// encodeValue dispatches a Go value to its wire form in three stages,
// tried in order: native emission for the types with a fixed CBOR
// shape, the registered write-handler for everything else the codec
// recognizes, then generic collection emission for slices and maps
// that were never normalized into Array/Map. A value that matches
// none of the three is unsupported.
func (c *Codec) encodeValue(w *CborWriter, v any) error {
	if ok, err := c.encodeNative(w, v); ok {
		return err
	}
	if replacement, handled, err := c.encodeWithHandler(v); handled {
		if err != nil {
			return err
		}
		return c.encodeValue(w, replacement)
	}
	if ok, err := c.encodeCollection(w, v); ok {
		return err
	}
	return c.fail(ErrKindUnsupportedType, "no native form, write handler, or collection shape", v)
}

func (c *Codec) encodeNative(w *CborWriter, v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return true, w.WriteNull()
	case bool:
		return true, w.WriteBoolean(x)
	case undefinedType:
		return true, w.WriteUndefined()
	case SimpleValue:
		return true, w.WriteSimpleValue(x)
	case Char:
		return true, w.WriteTextString(string(rune(x)))
	case string:
		return true, w.WriteTextString(x)
	case []byte:
		return true, w.WriteByteString(x)
	case float32:
		return true, c.encodeFloat(w, float64(x), true)
	case float64:
		return true, c.encodeFloat(w, x, false)
	case *big.Int:
		if x == nil {
			return true, w.WriteNull()
		}
		if x.IsInt64() {
			return true, w.WriteInt64(x.Int64())
		}
		if x.IsUint64() {
			return true, w.WriteUint64(x.Uint64())
		}
		if x.Sign() < 0 {
			// Major type 1 carries -1-x, which fits 8 bytes down to -2^64.
			arg := new(big.Int).Neg(x)
			arg.Sub(arg, big.NewInt(1))
			if arg.IsUint64() {
				w.writeMinimalInitialByte(MajorTypeNegativeInteger, arg.Uint64())
				w.advanceContainer()
				return true, nil
			}
		}
		// Oversized: falls through to the bignum write handler (tag 2/3).
		return false, nil
	case Tag:
		if err := w.WriteTag(CborTag(x.Number)); err != nil {
			return true, err
		}
		return true, c.encodeValue(w, x.Value)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true, w.WriteInt64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true, w.WriteUint64(rv.Uint())
	}
	return false, nil
}

// encodeFloat compresses zero, NaN, and infinities to half-precision
// regardless of the input width, otherwise preserves the input's
// native width (32- or 64-bit).
func (c *Codec) encodeFloat(w *CborWriter, f float64, wasFloat32 bool) error {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return writeHalfFloat(w, float32(f))
	}
	if wasFloat32 {
		return w.WriteFloat32(float32(f))
	}
	return w.WriteFloat64(f)
}

func writeHalfFloat(w *CborWriter, f float32) error {
	bits := float16.Fromfloat32(f).Bits()
	writeRawAdvance(w, []byte{
		encodeInitialByte(MajorTypeSimpleOrFloat, 25),
		byte(bits >> 8),
		byte(bits),
	})
	return nil
}

// writeRawAdvance appends already-encoded bytes directly to the
// writer's buffer and updates its container bookkeeping, used for
// canonical-mode re-emission of pre-sorted entries.
func writeRawAdvance(w *CborWriter, b []byte) {
	w.buffer = append(w.buffer, b...)
	w.currentOffset = len(w.buffer)
	w.advanceContainer()
}

func (c *Codec) encodeWithHandler(v any) (any, bool, error) {
	key := c.Dispatch(v)
	h, ok := c.WriteHandlers[key]
	if !ok {
		return nil, false, nil
	}
	replacement, err := h(v)
	if err != nil {
		return nil, true, c.fail(ErrKindUnsupportedType, err.Error(), v)
	}
	return replacement, true, nil
}

func (c *Codec) encodeCollection(w *CborWriter, v any) (bool, error) {
	switch x := v.(type) {
	case Array:
		return true, c.encodeArrayItems(w, x.Items)
	case Map:
		return true, c.encodeMapEntries(w, x.Entries)
	case Set:
		return true, c.encodeSet(w, x.Items)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return false, nil
		}
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return true, c.encodeArrayItems(w, items)
	case reflect.Map:
		keys := rv.MapKeys()
		entries := make([]MapEntry, len(keys))
		for i, k := range keys {
			entries[i] = MapEntry{Key: k.Interface(), Value: rv.MapIndex(k).Interface()}
		}
		return true, c.encodeMapEntries(w, entries)
	}
	return false, nil
}

func (c *Codec) encodeArrayItems(w *CborWriter, items []any) error {
	if err := w.WriteStartArray(len(items)); err != nil {
		return err
	}
	for _, it := range items {
		if err := c.encodeValue(w, it); err != nil {
			return err
		}
	}
	return w.WriteEndArray()
}

func (c *Codec) encodeMapEntries(w *CborWriter, entries []MapEntry) error {
	if !c.Canonical {
		if err := w.WriteStartMap(len(entries)); err != nil {
			return err
		}
		for _, e := range entries {
			if err := c.encodeValue(w, e.Key); err != nil {
				return err
			}
			if err := c.encodeValue(w, e.Value); err != nil {
				return err
			}
		}
		return w.WriteEndMap()
	}

	type encodedEntry struct {
		key   []byte
		value []byte
	}
	encoded := make([]encodedEntry, len(entries))
	for i, e := range entries {
		kw := NewCborWriter(WithConformanceMode(ConformanceCanonical))
		if err := c.encodeValue(kw, e.Key); err != nil {
			return err
		}
		vw := NewCborWriter(WithConformanceMode(ConformanceCanonical))
		if err := c.encodeValue(vw, e.Value); err != nil {
			return err
		}
		encoded[i] = encodedEntry{key: kw.BytesCopy(), value: vw.BytesCopy()}
	}
	sort.SliceStable(encoded, func(i, j int) bool {
		return cborByteLess(encoded[i].key, encoded[j].key)
	})

	if err := w.WriteStartMap(len(encoded)); err != nil {
		return err
	}
	for _, e := range encoded {
		writeRawAdvance(w, e.key)
		writeRawAdvance(w, e.value)
	}
	return w.WriteEndMap()
}

func (c *Codec) encodeSet(w *CborWriter, items []any) error {
	if err := w.WriteTag(CborTag(c.SetTag)); err != nil {
		return err
	}
	if !c.Canonical {
		return c.encodeArrayItems(w, items)
	}

	encoded := make([][]byte, len(items))
	for i, it := range items {
		iw := NewCborWriter(WithConformanceMode(ConformanceCanonical))
		if err := c.encodeValue(iw, it); err != nil {
			return err
		}
		encoded[i] = iw.BytesCopy()
	}
	sort.SliceStable(encoded, func(i, j int) bool {
		return cborByteLess(encoded[i], encoded[j])
	})

	if err := w.WriteStartArray(len(encoded)); err != nil {
		return err
	}
	for _, b := range encoded {
		writeRawAdvance(w, b)
	}
	return w.WriteEndArray()
}

// cborByteLess implements the canonical CBOR sort order: shorter
// encodings first, ties broken lexicographically.
func cborByteLess(a, b []byte) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return bytes.Compare(a, b) < 0
}
