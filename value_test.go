package cbor

import (
	"math"
	"math/big"
	"testing"
)

func TestEqualPrimitives(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil_equal", nil, nil, true},
		{"bool_equal", true, true, true},
		{"bool_not_equal", true, false, false},
		{"string_equal", "fun", "fun", true},
		{"bytes_equal", []byte{1, 2, 3}, []byte{1, 2, 3}, true},
		{"bytes_not_equal", []byte{1, 2, 3}, []byte{1, 2, 4}, false},
		{"undef_equal", Undef, Undef, true},
		{"undef_vs_nil", Undef, nil, false},
		{"char_equal", Char('a'), Char('a'), true},
		{"char_vs_int32", Char('a'), int32('a'), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqualFloats(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nan_equal", nan, nan, true},
		{"nan_vs_number", nan, 1.0, false},
		{"positive_negative_zero", 0.0, math.Copysign(0, -1), false},
		{"cross_width_equal", float32(1.5), float64(1.5), true},
		{"one_equal", 1.0, 1.0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqualCrossWidthIntegers(t *testing.T) {
	big18446744073709551616, _ := new(big.Int).SetString("18446744073709551616", 10)
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"int_vs_int64", int(5), int64(5), true},
		{"uint8_vs_int", uint8(5), int(5), true},
		{"bigint_vs_uint64", big.NewInt(5), uint64(5), true},
		{"bigint_distinct_from_float", big18446744073709551616, 18446744073709551616.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqualArray(t *testing.T) {
	a := Array{Items: []any{int64(1), int64(2)}}
	b := Array{Items: []any{int64(1), int64(2)}, Streamed: true}
	c := Array{Items: []any{int64(2), int64(1)}}

	if !Equal(a, b) {
		t.Error("arrays with the same items should be equal regardless of Streamed")
	}
	if Equal(a, c) {
		t.Error("arrays differing in order should not be equal")
	}
}

func TestEqualMapUnordered(t *testing.T) {
	a := Map{Entries: []MapEntry{{Key: "a", Value: int64(1)}, {Key: "b", Value: int64(2)}}}
	b := Map{Entries: []MapEntry{{Key: "b", Value: int64(2)}, {Key: "a", Value: int64(1)}}}
	c := Map{Entries: []MapEntry{{Key: "a", Value: int64(1)}, {Key: "b", Value: int64(3)}}}

	if !Equal(a, b) {
		t.Error("maps with the same entries in different order should be equal")
	}
	if Equal(a, c) {
		t.Error("maps with differing values should not be equal")
	}
}

func TestEqualSetUnordered(t *testing.T) {
	a := Set{Items: []any{int64(1), int64(2), int64(3)}}
	b := Set{Items: []any{int64(3), int64(1), int64(2)}}
	c := Set{Items: []any{int64(1), int64(2)}}

	if !Equal(a, b) {
		t.Error("sets with the same members in different order should be equal")
	}
	if Equal(a, c) {
		t.Error("sets of different size should not be equal")
	}
}

func TestEqualTag(t *testing.T) {
	a := Tag{Number: 0, Value: "2013-03-21T20:04:00Z"}
	b := Tag{Number: 0, Value: "2013-03-21T20:04:00Z"}
	c := Tag{Number: 1, Value: "2013-03-21T20:04:00Z"}

	if !Equal(a, b) {
		t.Error("tags with same number and value should be equal")
	}
	if Equal(a, c) {
		t.Error("tags with different numbers should not be equal")
	}
}

func TestNormalizePlainSlicesAndMaps(t *testing.T) {
	arr := normalize([]any{int64(1), int64(2)})
	a, ok := arr.(Array)
	if !ok || len(a.Items) != 2 {
		t.Fatalf("normalize([]any) = %#v, want Array of length 2", arr)
	}

	m := normalize(map[string]any{"a": int64(1)})
	mv, ok := m.(Map)
	if !ok || len(mv.Entries) != 1 {
		t.Fatalf("normalize(map[string]any) = %#v, want Map of length 1", m)
	}
}

func TestMapGet(t *testing.T) {
	m := Map{Entries: []MapEntry{{Key: "a", Value: int64(1)}, {Key: "b", Value: int64(2)}}}

	v, ok := m.Get("a")
	if !ok || !Equal(v, int64(1)) {
		t.Errorf("Get(a) = %v, %v, want 1, true", v, ok)
	}
	if _, ok := m.Get("z"); ok {
		t.Error("Get(z) should report not found")
	}
}

func TestSetContains(t *testing.T) {
	s := Set{Items: []any{int64(1), int64(2), int64(3)}}
	if !s.Contains(int64(2)) {
		t.Error("Contains(2) should be true")
	}
	if s.Contains(int64(4)) {
		t.Error("Contains(4) should be false")
	}
}
