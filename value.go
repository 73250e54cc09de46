package cbor

import (
	"bytes"
	"math"
	"math/big"
	"reflect"
)

// undefinedType is the unexported backing type for the CBOR undefined
// sentinel (wire code 0xF7); Undef is its only inhabitant.
type undefinedType struct{}

// Undef is the singleton CBOR undefined value.
var Undef = undefinedType{}

// Char is a single Unicode code point, native-emitted as a one-rune
// CBOR text string. Go's rune is just int32, so a distinct named type
// is needed to tell "this is a character" apart from a plain integer.
type Char rune

// Tag is an already-constructed tagged value: a non-negative tag number
// wrapping an arbitrary value. The encoder emits it directly (header
// codec write, then the wrapped value), bypassing the write-handler
// registry entirely. The decoder also falls back to Tag for any tag
// number with no registered read handler in lax mode.
type Tag struct {
	Number uint64
	Value  any
}

// Array is an ordered sequence of values. Streamed records whether the
// value was read from an indefinite-length encoding; it is advisory
// metadata for debuggers and canonicalizers and never affects Equal.
type Array struct {
	Items    []any
	Streamed bool
}

// MapEntry is a single key/value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Map is an ordered association of unique keys to values. CBOR map keys
// may be any value, including byte strings and arrays, which are not
// always Go-comparable, so entries are stored in a slice instead of a
// Go map. Iteration order is preserved verbatim unless the encoding
// codec is canonical.
type Map struct {
	Entries  []MapEntry
	Streamed bool
}

// Get returns the value associated with key and whether it was found.
func (m Map) Get(key any) (any, bool) {
	for _, e := range m.Entries {
		if Equal(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// Set is an unordered collection of unique values, encoded as a tag
// wrapping an array (default tag 258).
type Set struct {
	Items []any
}

// Contains reports whether v is a member of s.
func (s Set) Contains(v any) bool {
	for _, item := range s.Items {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// GenericTagged is the generic tagged-literal form of tag 27: a
// tag-name string paired with an arbitrary form.
type GenericTagged struct {
	TagName string
	Form    any
}

// URI marks a string as a tag-32 URI rather than plain text.
type URI string

// Identifier is a tag-39 symbol or keyword. A leading ":" in the wire
// form marks a keyword; Keyword carries that distinction directly so
// callers don't need to sniff the string.
type Identifier struct {
	Name    string
	Keyword bool
}

// SelfDescribed wraps a value to be prefixed with the tag-55799
// self-describe marker on encode.
type SelfDescribed struct {
	Value any
}

// normalize adapts plain Go slices/maps to the Array/Map wrapper types
// so Equal only needs to handle one shape.
func normalize(v any) any {
	switch x := v.(type) {
	case Array, Map, Set, Tag, nil, bool, string, []byte, float32, float64,
		*big.Int, undefinedType, SimpleValue, Char:
		return x
	case []any:
		return Array{Items: x}
	case map[string]any:
		entries := make([]MapEntry, 0, len(x))
		for k, val := range x {
			entries = append(entries, MapEntry{Key: k, Value: val})
		}
		return Map{Entries: entries}
	}
	return v
}

// Equal reports whether a and b represent the same CBOR value, per the
// equivalence rules of the data model: NaN-equal floats, byte-wise
// byte-string comparison, code-point order for text, unordered
// Map/Set matching, and indifference to the Streamed flag.
func Equal(a, b any) bool {
	a, b = normalize(a), normalize(b)

	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case undefinedType:
		_, ok := b.(undefinedType)
		return ok
	case SimpleValue:
		bv, ok := b.(SimpleValue)
		return ok && av == bv
	case Char:
		bv, ok := b.(Char)
		return ok && av == bv
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float32:
		return equalFloat(float64(av), true, b)
	case float64:
		return equalFloat(av, true, b)
	case Tag:
		bv, ok := b.(Tag)
		return ok && av.Number == bv.Number && Equal(av.Value, bv.Value)
	case Array:
		bv, ok := b.(Array)
		return ok && equalItems(av.Items, bv.Items)
	case Set:
		bv, ok := b.(Set)
		return ok && equalUnordered(av.Items, bv.Items)
	case Map:
		bv, ok := b.(Map)
		return ok && equalMapEntries(av.Entries, bv.Entries)
	}

	if bigA, ok := toBigIntLoose(a); ok {
		if bigB, ok := toBigIntLoose(b); ok {
			return bigA.Cmp(bigB) == 0
		}
		return false
	}

	return reflect.DeepEqual(a, b)
}

func equalFloat(av float64, _ bool, b any) bool {
	var bv float64
	switch x := b.(type) {
	case float32:
		bv = float64(x)
	case float64:
		bv = x
	default:
		return false
	}
	if math.IsNaN(av) && math.IsNaN(bv) {
		return true
	}
	if av == 0 && bv == 0 {
		return math.Signbit(av) == math.Signbit(bv)
	}
	return av == bv
}

func equalItems(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalMapEntries(a, b []MapEntry) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ea := range a {
		found := false
		for j, eb := range b {
			if used[j] {
				continue
			}
			if Equal(ea.Key, eb.Key) && Equal(ea.Value, eb.Value) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func equalUnordered(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, va := range a {
		found := false
		for j, vb := range b {
			if used[j] {
				continue
			}
			if Equal(va, vb) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// toBigIntLoose converts any native integer kind, including *big.Int,
// into a *big.Int for cross-width comparison (Equal only, never used
// to silently widen encoding decisions).
func toBigIntLoose(v any) (*big.Int, bool) {
	if n, ok := v.(*big.Int); ok {
		return n, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), true
	}
	return nil, false
}
