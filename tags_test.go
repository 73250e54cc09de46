package cbor

import (
	"encoding/hex"
	"math/big"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestTagTimeRFC3339RoundTrip(t *testing.T) {
	c := DefaultCodec()
	want := time.Date(2013, 3, 21, 20, 4, 0, 0, time.UTC)

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	gt, ok := got.(time.Time)
	if !ok || !gt.Equal(want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagTimeEpochRoundTrip(t *testing.T) {
	c := DefaultCodec(WithTimestampFormat(TimestampEpoch))
	want := time.Unix(1363896240, 0).UTC()

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	gt, ok := got.(time.Time)
	if !ok || !gt.Equal(want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagBignumRoundTrip(t *testing.T) {
	c := DefaultCodec()
	big18446744073709551616, _ := new(big.Int).SetString("18446744073709551616", 10)

	data, err := c.Encode(big18446744073709551616)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := "C249010000000000000000"
	if got := hex.EncodeToString(data); !equalHexFold(got, want) {
		t.Errorf("got %s, want %s", got, want)
	}

	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !Equal(got, big18446744073709551616) {
		t.Errorf("round trip got %#v, want %#v", got, big18446744073709551616)
	}
}

func TestTagNegativeBignumRoundTrip(t *testing.T) {
	c := DefaultCodec()
	magnitude, _ := new(big.Int).SetString("18446744073709551617", 10)
	want := new(big.Int).Neg(magnitude)

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !Equal(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagDecimalFractionRoundTrip(t *testing.T) {
	c := DefaultCodec()
	want := decimal.New(273, -2) // 2.73

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	gd, ok := got.(decimal.Decimal)
	if !ok || !gd.Equal(want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagGenericTaggedRoundTrip(t *testing.T) {
	c := DefaultCodec()
	want := GenericTagged{TagName: "my-lib/point", Form: Array{Items: []any{int64(1), int64(2)}}}

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	gv, ok := got.(GenericTagged)
	if !ok || gv.TagName != want.TagName || !Equal(gv.Form, want.Form) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagRationalRoundTrip(t *testing.T) {
	c := DefaultCodec()
	want := big.NewRat(1, 3)

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	gr, ok := got.(*big.Rat)
	if !ok || gr.Cmp(want) != 0 {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagURIRoundTrip(t *testing.T) {
	c := DefaultCodec()
	want := URI("https://example.com/widgets")

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != want {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagURIStrictRejectsMalformed(t *testing.T) {
	lax := DefaultCodec()
	data, err := lax.Encode(URI("not a uri at all\x7f"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	strict := DefaultCodec(WithStrict(true))
	if _, _, err := strict.Decode(data); err == nil {
		t.Error("strict decode of malformed URI should fail")
	}
}

func TestTagRegexpRoundTrip(t *testing.T) {
	c := DefaultCodec()
	want := regexp.MustCompile(`[a-z]+@[a-z]+\.com`)

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	gre, ok := got.(*regexp.Regexp)
	if !ok || gre.String() != want.String() {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagUUIDRoundTrip(t *testing.T) {
	c := DefaultCodec()
	want := uuid.MustParse("dbd559ef-333b-4f11-96b1-b0654babe844")

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	wantHex := "D82550DBD559EF333B4F1196B1B0654BABE844"
	if got := hex.EncodeToString(data); !equalHexFold(got, wantHex) {
		t.Errorf("got %s, want %s", got, wantHex)
	}

	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip got %#v, want %#v", got, want)
	}
}

func TestTagIdentifierKeyword(t *testing.T) {
	c := DefaultCodec()
	want := Identifier{Name: "active", Keyword: true}

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != want {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagIdentifierSymbol(t *testing.T) {
	c := DefaultCodec()
	want := Identifier{Name: "user/id"}

	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != want {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestTagSelfDescribedRoundTrip(t *testing.T) {
	c := DefaultCodec()
	data, err := c.Encode(SelfDescribed{Value: int64(15)})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := "D9D9F70F"
	if got := hex.EncodeToString(data); !equalHexFold(got, want) {
		t.Errorf("got %s, want %s", got, want)
	}

	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !Equal(got, int64(15)) {
		t.Errorf("got %#v, want 15", got)
	}
}

func TestSetTagRoundTripAndHexVector(t *testing.T) {
	c := DefaultCodec()
	s := Set{Items: []any{int64(1), int64(2), int64(3)}}

	data, err := c.Encode(s)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := "D9010283010203"
	if got := hex.EncodeToString(data); !equalHexFold(got, want) {
		t.Errorf("got %s, want %s", got, want)
	}

	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !Equal(got, s) {
		t.Errorf("round trip got %#v, want %#v", got, s)
	}
}

func TestSetTagStrictDuplicateEntry(t *testing.T) {
	w := NewCborWriter()
	if err := w.WriteTag(258); err != nil {
		t.Fatalf("WriteTag failed: %v", err)
	}
	if err := w.WriteStartArray(2); err != nil {
		t.Fatalf("WriteStartArray failed: %v", err)
	}
	if err := w.WriteUint64(1); err != nil {
		t.Fatalf("WriteUint64 failed: %v", err)
	}
	if err := w.WriteUint64(1); err != nil {
		t.Fatalf("WriteUint64 failed: %v", err)
	}
	if err := w.WriteEndArray(); err != nil {
		t.Fatalf("WriteEndArray failed: %v", err)
	}

	strict := DefaultCodec(WithStrict(true))
	if _, _, err := strict.Decode(w.Bytes()); err == nil {
		t.Error("strict decode of a set with a duplicate entry should fail")
	}

	lax := DefaultCodec()
	got, _, err := lax.Decode(w.Bytes())
	if err != nil {
		t.Fatalf("lax Decode failed: %v", err)
	}
	if set, ok := got.(Set); !ok || len(set.Items) != 2 {
		t.Errorf("lax decode got %#v, want a 2-item Set", got)
	}
}

func TestCustomSetTag(t *testing.T) {
	c := DefaultCodec(WithSetTag(300))
	s := Set{Items: []any{int64(1), int64(2)}}

	data, err := c.Encode(s)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !Equal(got, s) {
		t.Errorf("got %#v, want %#v", got, s)
	}

	// The same bytes under a codec with the default set tag should
	// decode as an ordinary Tag{300, Array}, not a Set.
	def := DefaultCodec()
	got, _, err = def.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := got.(Set); ok {
		t.Error("a non-matching set tag should not decode to Set")
	}
}
