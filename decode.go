package cbor

import (
	"encoding/binary"

	"github.com/x448/float16"
)

// decodeValue reads one CBOR data item from r and returns its
// value-model representation. Dispatch on the leading byte is done in
// two stages: checkHeaderValidity rejects reserved/illegal header
// forms up front (the teacher's low-level reader only catches some of
// these, and folds the rest into a single generic error), then
// r.PeekState's major-type switch - compiled by the Go toolchain into
// a jump table - picks the per-shape reader.
func decodeValue(c *Codec, r *CborReader) (any, error) {
	if r.CurrentOffset() >= len(r.data) {
		return nil, c.fail(ErrKindEndOfInput, "unexpected end of input", nil)
	}
	if err := checkHeaderValidity(c, r); err != nil {
		return nil, err
	}

	state, err := r.PeekState()
	if err != nil {
		return nil, translateErr(c, err)
	}

	switch state {
	case StateUnsignedInteger:
		v, err := r.ReadUint64()
		if err != nil {
			return nil, translateErr(c, err)
		}
		return v, nil

	case StateNegativeInteger:
		bi, err := r.ReadBigInt()
		if err != nil {
			return nil, translateErr(c, err)
		}
		if bi.IsInt64() {
			return bi.Int64(), nil
		}
		return bi, nil

	case StateByteString, StateStartIndefiniteLengthByteString:
		b, err := r.ReadByteString()
		if err != nil {
			return nil, translateStringErr(c, err, ErrKindIllegalChunkType)
		}
		return b, nil

	case StateTextString, StateStartIndefiniteLengthTextString:
		s, err := r.ReadTextString()
		if err != nil {
			return nil, translateStringErr(c, err, ErrKindIllegalChunkType)
		}
		return s, nil

	case StateStartArray:
		return decodeArray(c, r)

	case StateStartMap:
		return decodeMap(c, r)

	case StateTag:
		return decodeTag(c, r)

	case StateBoolean:
		b, err := r.ReadBoolean()
		if err != nil {
			return nil, translateErr(c, err)
		}
		return b, nil

	case StateNull:
		if err := r.ReadNull(); err != nil {
			return nil, translateErr(c, err)
		}
		return nil, nil

	case StateUndefinedValue:
		if err := r.ReadUndefined(); err != nil {
			return nil, translateErr(c, err)
		}
		return Undef, nil

	case StateSimpleValue:
		sv, err := r.ReadSimpleValue()
		if err != nil {
			return nil, translateErr(c, err)
		}
		if c.Strict {
			return nil, c.fail(ErrKindUnknownSimpleValue, "unknown simple value", sv)
		}
		return sv, nil

	case StateHalfPrecisionFloat:
		f, err := decodeHalfFloat(r)
		if err != nil {
			return nil, translateErr(c, err)
		}
		return float32(f), nil

	case StateSinglePrecisionFloat:
		f, err := r.ReadFloat32()
		if err != nil {
			return nil, translateErr(c, err)
		}
		return f, nil

	case StateDoublePrecisionFloat:
		f, err := r.ReadFloat64()
		if err != nil {
			return nil, translateErr(c, err)
		}
		return f, nil
	}

	return nil, c.fail(ErrKindUnsupportedType, "reader produced an unhandled state", state)
}

// checkHeaderValidity inspects the raw header byte for conditions the
// teacher's reader folds into a single generic error, and raises the
// precise error kind instead: reserved additional-info codes (28-30),
// illegal-simple-type (the same range under major type 7), and
// indefinite-length markers on major types that forbid them
// (integers and tags).
func checkHeaderValidity(c *Codec, r *CborReader) error {
	data := r.data
	off := r.CurrentOffset()
	if off >= len(data) {
		return nil
	}
	ib := data[off]
	if ib == breakByte {
		return nil
	}
	mt, ai := decodeInitialByte(ib)

	if ai >= 28 && ai <= 30 {
		if mt == MajorTypeSimpleOrFloat {
			return c.fail(ErrKindIllegalSimpleType, "illegal simple type code", ib)
		}
		return c.fail(ErrKindReservedInfoCode, "reserved additional information code", ib)
	}

	if ai == 31 {
		switch mt {
		case MajorTypeUnsignedInteger, MajorTypeNegativeInteger, MajorTypeTag:
			return c.fail(ErrKindIllegalStream, "integers and tags may not be indefinite-length", mt)
		}
	}

	return nil
}

// translateErr maps a low-level reader sentinel error onto the
// equivalent CodecError, leaving already-translated errors untouched.
func translateErr(c *Codec, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*CodecError); ok {
		return err
	}
	switch err {
	case ErrUnexpectedEndOfData:
		return c.fail(ErrKindEndOfInput, "unexpected end of input", nil)
	case ErrUnexpectedBreak, ErrIncompleteContainer:
		return c.fail(ErrKindUnexpectedBreak, "unexpected break", nil)
	case ErrInvalidSimpleValue:
		return c.fail(ErrKindIllegalSimpleType, "illegal simple type", nil)
	case ErrInvalidCbor:
		return c.fail(ErrKindReservedInfoCode, "reserved additional information code", nil)
	case ErrIndefiniteLengthNotAllowed:
		return c.fail(ErrKindIllegalStream, "indefinite-length form not allowed under the current conformance mode", nil)
	case ErrNonCanonical:
		return c.fail(ErrKindNonCanonicalEncoding, "integer is not minimally encoded", nil)
	default:
		// Every other sentinel the embedded CborReader can produce
		// (invalid UTF-8, nesting depth exceeded, reader state/argument
		// errors) still needs to go through the error sink instead of
		// escaping Decode untranslated and unkinded.
		return c.fail(ErrKindMalformedInput, err.Error(), err)
	}
}

// translateStringErr is translateErr specialized for the byte/text
// string readers, whose chunk-type mismatch surfaces as ErrInvalidCbor.
func translateStringErr(c *Codec, err error, chunkKind ErrorKind) error {
	if err == ErrInvalidCbor {
		return c.fail(chunkKind, "indefinite-length string chunk has the wrong type", nil)
	}
	return translateErr(c, err)
}

func decodeHalfFloat(r *CborReader) (float32, error) {
	off := r.CurrentOffset()
	if off+3 > len(r.data) {
		return 0, ErrUnexpectedEndOfData
	}
	bits := binary.BigEndian.Uint16(r.data[off+1:])
	r.offset += 3
	r.invalidateState()
	r.advanceContainer()
	return float16.Frombits(bits).Float32(), nil
}

func decodeArray(c *Codec, r *CborReader) (any, error) {
	n, err := r.ReadStartArray()
	if err != nil {
		return nil, translateErr(c, err)
	}
	streamed := n < 0

	var items []any
	if n >= 0 {
		items = make([]any, 0, n)
		for i := 0; i < n; i++ {
			v, err := decodeValue(c, r)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
	} else {
		for {
			st, err := r.PeekState()
			if err != nil {
				return nil, translateErr(c, err)
			}
			if st == StateEndArray {
				break
			}
			v, err := decodeValue(c, r)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
	}

	if err := r.ReadEndArray(); err != nil {
		return nil, translateErr(c, err)
	}
	return Array{Items: items, Streamed: streamed}, nil
}

func decodeMap(c *Codec, r *CborReader) (any, error) {
	n, err := r.ReadStartMap()
	if err != nil {
		return nil, translateErr(c, err)
	}
	streamed := n < 0

	var entries []MapEntry
	seen := newDuplicateIndexSet(c)
	readPair := func() error {
		key, err := decodeValue(c, r)
		if err != nil {
			return err
		}
		if seen.addIfNew(key, len(entries), func(i int) any { return entries[i].Key }) {
			return c.fail(ErrKindDuplicateMapKey, "duplicate map key", key)
		}
		st, err := r.PeekState()
		if err == ErrIncompleteContainer {
			return c.fail(ErrKindMissingMapValue, "map ended after key with no value", key)
		}
		if err != nil {
			return translateErr(c, err)
		}
		if st == StateEndMap {
			return c.fail(ErrKindMissingMapValue, "map ended after key with no value", key)
		}
		val, err := decodeValue(c, r)
		if err != nil {
			return err
		}
		entries = append(entries, MapEntry{Key: key, Value: val})
		return nil
	}

	if n >= 0 {
		entries = make([]MapEntry, 0, n)
		for i := 0; i < n; i++ {
			if err := readPair(); err != nil {
				return nil, err
			}
		}
	} else {
		for {
			st, err := r.PeekState()
			if err != nil {
				return nil, translateErr(c, err)
			}
			if st == StateEndMap {
				break
			}
			if err := readPair(); err != nil {
				return nil, err
			}
		}
	}

	if err := r.ReadEndMap(); err != nil {
		return nil, translateErr(c, err)
	}
	return Map{Entries: entries, Streamed: streamed}, nil
}

func decodeTag(c *Codec, r *CborReader) (any, error) {
	tagNum, err := r.ReadTag()
	if err != nil {
		return nil, translateErr(c, err)
	}
	wrapped, err := decodeValue(c, r)
	if err != nil {
		return nil, err
	}
	return c.resolveTag(uint64(tagNum), wrapped)
}

// resolveTag applies the set-tag check, then the read-handler
// registry, then strict/lax fallback, in that priority order.
func (c *Codec) resolveTag(tag uint64, wrapped any) (any, error) {
	if tag == c.SetTag {
		return c.decodeSet(wrapped)
	}

	if h, ok := c.ReadHandlers[tag]; ok {
		v, err := h(wrapped)
		if err != nil {
			if ce, ok := err.(*CodecError); ok {
				return nil, ce
			}
			return nil, c.fail(ErrKindTagHandlingError, err.Error(), wrapped)
		}
		return v, nil
	}

	if c.Strict {
		return nil, c.fail(ErrKindUnknownTag, "unknown tag", tag)
	}
	return Tag{Number: tag, Value: wrapped}, nil
}

func (c *Codec) decodeSet(wrapped any) (any, error) {
	arr, ok := wrapped.(Array)
	if !ok {
		return nil, c.fail(ErrKindTagHandlingError, "set tag payload must be an array", wrapped)
	}
	if c.Strict {
		seen := newDuplicateIndexSet(c)
		for i, item := range arr.Items {
			if seen.addIfNew(item, i, func(j int) any { return arr.Items[j] }) {
				return nil, c.fail(ErrKindDuplicateSetEntry, "duplicate set entry", item)
			}
		}
	}
	return Set{Items: arr.Items}, nil
}
