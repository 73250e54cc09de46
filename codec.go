package cbor

import (
	"io"
	"iter"
	"reflect"
)

// WriteHandler converts a registered Go value into its wire
// representation: typically a Tag, but any encodable value is allowed.
type WriteHandler func(v any) (any, error)

// ReadHandler converts a tag's already-decoded payload into the Go
// value the caller should see in its place.
type ReadHandler func(payload any) (any, error)

// TimestampFormat selects how time.Time values are written by the
// built-in tag-0/tag-1 write handler.
type TimestampFormat int

const (
	// TimestampRFC3339 writes time.Time as a tag-0 RFC 3339 string.
	TimestampRFC3339 TimestampFormat = iota
	// TimestampEpoch writes time.Time as a tag-1 numeric epoch offset.
	TimestampEpoch
)

// Codec holds the mutable state a single encode/decode call tree needs:
// the write/read handler registries, the dispatch function used to
// pick a write handler, and the conformance knobs. A *Codec takes the
// place of a dynamically-scoped error handler and *dispatch
// multimethod from the reference model: a single instance threaded
// through a call tree gives nested calls the same visibility a dynamic
// binding would.
type Codec struct {
	// WriteHandlers maps a dispatch key (by default a reflect.Type) to
	// the handler responsible for converting that kind of value.
	WriteHandlers map[any]WriteHandler

	// ReadHandlers maps a tag number to the handler that converts its
	// payload into a Go value.
	ReadHandlers map[uint64]ReadHandler

	// Dispatch computes the WriteHandlers key for a value. The default
	// dispatches on the value's dynamic reflect.Type.
	Dispatch func(v any) any

	// SetTag is the tag number used to recognize and emit Set values.
	// Defaults to 258.
	SetTag uint64

	// Canonical forces the deterministic encoding: minimal-width
	// integers, no indefinite-length forms, and map/set entries sorted
	// shortest-bytes-first then lexicographically.
	Canonical bool

	// Strict rejects unknown tags, unknown simple values, and duplicate
	// set entries on decode instead of passing them through.
	Strict bool

	// TimestampFormat controls how the built-in time.Time write
	// handler represents dates.
	TimestampFormat TimestampFormat

	// ErrorSink builds the error value returned for a given failure.
	// Overriding it lets a caller attach request-scoped context to
	// every error the codec raises.
	ErrorSink func(kind ErrorKind, message string, data any) error
}

// CodecOption configures a Codec built by NewCodec.
type CodecOption func(*Codec)

// WithWriteHandlers replaces the write-handler registry.
func WithWriteHandlers(handlers map[any]WriteHandler) CodecOption {
	return func(c *Codec) { c.WriteHandlers = handlers }
}

// WithReadHandlers replaces the read-handler registry.
func WithReadHandlers(handlers map[uint64]ReadHandler) CodecOption {
	return func(c *Codec) { c.ReadHandlers = handlers }
}

// WithDispatch overrides the write-handler dispatch function.
func WithDispatch(dispatch func(v any) any) CodecOption {
	return func(c *Codec) { c.Dispatch = dispatch }
}

// WithSetTag overrides the tag number used for Set values.
func WithSetTag(tag uint64) CodecOption {
	return func(c *Codec) { c.SetTag = tag }
}

// WithCanonical turns canonical (deterministic) encoding on or off.
func WithCanonical(canonical bool) CodecOption {
	return func(c *Codec) { c.Canonical = canonical }
}

// WithStrict turns strict decoding on or off.
func WithStrict(strict bool) CodecOption {
	return func(c *Codec) { c.Strict = strict }
}

// WithTimestampFormat selects the wire form for time.Time values.
func WithTimestampFormat(format TimestampFormat) CodecOption {
	return func(c *Codec) { c.TimestampFormat = format }
}

// WithErrorSink overrides how errors raised by the codec are built.
func WithErrorSink(sink func(kind ErrorKind, message string, data any) error) CodecOption {
	return func(c *Codec) { c.ErrorSink = sink }
}

func defaultDispatch(v any) any {
	return reflect.TypeOf(v)
}

func defaultErrorSink(kind ErrorKind, message string, data any) error {
	return &CodecError{Kind: kind, Message: message, Data: data, Err: kind.sentinel()}
}

// NewCodec builds a Codec with empty handler registries; callers
// register their own write/read handlers, or start from DefaultCodec
// to get the built-in tag set.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		WriteHandlers: make(map[any]WriteHandler),
		ReadHandlers:  make(map[uint64]ReadHandler),
		Dispatch:      defaultDispatch,
		SetTag:        258,
		ErrorSink:     defaultErrorSink,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultCodec builds a Codec with the built-in tag handlers
// (date/time, bignum, decimal fraction, rational, URI, regexp, UUID,
// identifier, self-describe, and set) already registered.
func DefaultCodec(opts ...CodecOption) *Codec {
	c := NewCodec(opts...)
	registerBuiltinTags(c)
	return c
}

// RegisterWriteHandler installs h for the given dispatch key (usually
// a reflect.Type obtained from reflect.TypeOf on a zero value).
func (c *Codec) RegisterWriteHandler(dispatchKey any, h WriteHandler) {
	c.WriteHandlers[dispatchKey] = h
}

// RegisterReadHandler installs h for the given tag number.
func (c *Codec) RegisterReadHandler(tag uint64, h ReadHandler) {
	c.ReadHandlers[tag] = h
}

func (c *Codec) fail(kind ErrorKind, message string, data any) error {
	return c.ErrorSink(kind, message, data)
}

// encodeConformanceMode picks the low-level writer's conformance mode.
// Canonical here also buys the writer's own minimal-width/no-indefinite-
// length invariants as a belt-and-suspenders check behind encode.go's
// own canonical re-sorting, which is exactly what spec.md §4.4 asks of
// an encoder.
func (c *Codec) encodeConformanceMode() CborConformanceMode {
	switch {
	case c.Canonical:
		return ConformanceCanonical
	case c.Strict:
		return ConformanceStrict
	default:
		return ConformanceLax
	}
}

// decodeConformanceMode picks the low-level reader's conformance mode.
// Canonical is deliberately NOT threaded through here: spec.md §4.4
// describes canonical mode as an encode-side map/set-ordering rule
// only, and the embedded CborReader treats ConformanceCanonical as
// "reject indefinite-length forms outright" - something spec.md §8's
// streaming-equivalence property requires a canonical codec to still
// be able to decode. Strict decoding (unknown tags, duplicate set
// entries, ...) is handled entirely in decode.go and does not depend
// on the reader's own stricter-than-spec conformance checks, but
// threading Strict through still gets the reader's minimal-width-
// integer and valid-UTF-8 checks for free.
func (c *Codec) decodeConformanceMode() CborConformanceMode {
	if c.Strict {
		return ConformanceStrict
	}
	return ConformanceLax
}

// Encode returns the canonical or lax CBOR encoding of v.
func (c *Codec) Encode(v any) ([]byte, error) {
	w := NewCborWriter(WithConformanceMode(c.encodeConformanceMode()))
	if err := c.encodeValue(w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeTo writes the CBOR encoding of v to out and returns the number
// of bytes written.
func (c *Codec) EncodeTo(out io.Writer, v any) (int, error) {
	data, err := c.Encode(v)
	if err != nil {
		return 0, err
	}
	return out.Write(data)
}

// EncodeSeq writes each value in values to out as a consecutive CBOR
// data item stream (a single multi-root document).
func (c *Codec) EncodeSeq(out io.Writer, values []any) (int, error) {
	total := 0
	for _, v := range values {
		n, err := c.EncodeTo(out, v)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Decode reads a single CBOR data item from the front of data and
// returns the decoded value along with whatever bytes remain.
// End-of-input before the first byte is a clean termination: it
// returns (nil, data, nil), not an error. A truncated value (EOF after
// at least one header byte has committed the decoder to more data)
// raises ErrKindEndOfInput instead.
func (c *Codec) Decode(data []byte) (any, []byte, error) {
	if len(data) == 0 {
		return nil, data, nil
	}
	r := NewCborReader(data, WithReaderConformanceMode(c.decodeConformanceMode()))
	v, err := decodeValue(c, r)
	if err != nil {
		return nil, data, err
	}
	return v, data[r.CurrentOffset():], nil
}

// DecodeSeq returns an iterator over every consecutive CBOR data item
// in data. Iteration stops after yielding the first decode error.
func (c *Codec) DecodeSeq(data []byte) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		rest := data
		for len(rest) > 0 {
			v, next, err := c.Decode(rest)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
			rest = next
		}
	}
}
