package cbor

import (
	"fmt"
	"math"
	"math/big"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// registerBuiltinTags installs the write/read handlers for every
// built-in tag onto c: date/time (0/1), bignum (2/3), decimal fraction
// (4), generic tagged literal (27), rational (30), URI (32), regular
// expression (35), UUID (37), identifier (39), and self-describe
// (55799).
func registerBuiltinTags(c *Codec) {
	registerTimeTag(c)
	registerBignumTag(c)
	registerDecimalTag(c)
	registerGenericTaggedTag(c)
	registerRationalTag(c)
	registerURITag(c)
	registerRegexpTag(c)
	registerUUIDTag(c)
	registerIdentifierTag(c)
	registerSelfDescribedTag(c)
}

func registerTimeTag(c *Codec) {
	c.WriteHandlers[reflect.TypeOf(time.Time{})] = func(v any) (any, error) {
		t := v.(time.Time)
		if c.TimestampFormat == TimestampEpoch {
			if t.Nanosecond() == 0 {
				return Tag{Number: uint64(TagUnixTime), Value: t.Unix()}, nil
			}
			secs := float64(t.UnixNano()) / 1e9
			return Tag{Number: uint64(TagUnixTime), Value: secs}, nil
		}
		return Tag{Number: uint64(TagDateTimeString), Value: t.Format(time.RFC3339Nano)}, nil
	}

	c.ReadHandlers[uint64(TagDateTimeString)] = func(payload any) (any, error) {
		s, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("tag 0 payload must be a text string, got %T", payload)
		}
		return time.Parse(time.RFC3339Nano, s)
	}

	c.ReadHandlers[uint64(TagUnixTime)] = func(payload any) (any, error) {
		switch n := payload.(type) {
		case uint64:
			return time.Unix(int64(n), 0).UTC(), nil
		case int64:
			return time.Unix(n, 0).UTC(), nil
		case *big.Int:
			return time.Unix(n.Int64(), 0).UTC(), nil
		case float32:
			return epochFloatToTime(float64(n)), nil
		case float64:
			return epochFloatToTime(n), nil
		default:
			return nil, fmt.Errorf("tag 1 payload must be numeric, got %T", payload)
		}
	}
}

func epochFloatToTime(secs float64) time.Time {
	whole := math.Floor(secs)
	frac := secs - whole
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

func registerBignumTag(c *Codec) {
	bigIntType := reflect.TypeOf(&big.Int{})
	c.WriteHandlers[bigIntType] = func(v any) (any, error) {
		n := v.(*big.Int)
		if n.Sign() >= 0 {
			return Tag{Number: uint64(TagUnsignedBignum), Value: n.Bytes()}, nil
		}
		abs := new(big.Int).Neg(n)
		abs.Sub(abs, big.NewInt(1))
		return Tag{Number: uint64(TagNegativeBignum), Value: abs.Bytes()}, nil
	}

	c.ReadHandlers[uint64(TagUnsignedBignum)] = func(payload any) (any, error) {
		b, ok := payload.([]byte)
		if !ok {
			return nil, fmt.Errorf("tag 2 payload must be a byte string, got %T", payload)
		}
		return new(big.Int).SetBytes(b), nil
	}
	c.ReadHandlers[uint64(TagNegativeBignum)] = func(payload any) (any, error) {
		b, ok := payload.([]byte)
		if !ok {
			return nil, fmt.Errorf("tag 3 payload must be a byte string, got %T", payload)
		}
		n := new(big.Int).SetBytes(b)
		n.Add(n, big.NewInt(1))
		n.Neg(n)
		return n, nil
	}
}

func registerDecimalTag(c *Codec) {
	c.WriteHandlers[reflect.TypeOf(decimal.Decimal{})] = func(v any) (any, error) {
		d := v.(decimal.Decimal)
		return Tag{Number: uint64(TagDecimalFraction), Value: Array{
			Items: []any{int64(d.Exponent()), d.Coefficient()},
		}}, nil
	}

	c.ReadHandlers[uint64(TagDecimalFraction)] = func(payload any) (any, error) {
		arr, ok := payload.(Array)
		if !ok || len(arr.Items) != 2 {
			return nil, fmt.Errorf("tag 4 payload must be a 2-element array")
		}
		exp, err := toInt64(arr.Items[0])
		if err != nil {
			return nil, err
		}
		mant, err := toBigInt(arr.Items[1])
		if err != nil {
			return nil, err
		}
		return decimal.NewFromBigInt(mant, int32(exp)), nil
	}
}

func registerGenericTaggedTag(c *Codec) {
	c.WriteHandlers[reflect.TypeOf(GenericTagged{})] = func(v any) (any, error) {
		g := v.(GenericTagged)
		return Tag{Number: 27, Value: Array{Items: []any{g.TagName, g.Form}}}, nil
	}

	c.ReadHandlers[27] = func(payload any) (any, error) {
		arr, ok := payload.(Array)
		if !ok || len(arr.Items) != 2 {
			return nil, fmt.Errorf("tag 27 payload must be a 2-element array")
		}
		name, ok := arr.Items[0].(string)
		if !ok {
			return nil, fmt.Errorf("tag 27 first element must be a text string")
		}
		return GenericTagged{TagName: name, Form: arr.Items[1]}, nil
	}
}

func registerRationalTag(c *Codec) {
	c.WriteHandlers[reflect.TypeOf(&big.Rat{})] = func(v any) (any, error) {
		r := v.(*big.Rat)
		return Tag{Number: 30, Value: Array{Items: []any{r.Num(), r.Denom()}}}, nil
	}

	c.ReadHandlers[30] = func(payload any) (any, error) {
		arr, ok := payload.(Array)
		if !ok || len(arr.Items) != 2 {
			return nil, fmt.Errorf("tag 30 payload must be a 2-element array")
		}
		num, err := toBigInt(arr.Items[0])
		if err != nil {
			return nil, err
		}
		den, err := toBigInt(arr.Items[1])
		if err != nil {
			return nil, err
		}
		return new(big.Rat).SetFrac(num, den), nil
	}
}

func registerURITag(c *Codec) {
	c.WriteHandlers[reflect.TypeOf(URI(""))] = func(v any) (any, error) {
		return Tag{Number: uint64(TagURI), Value: string(v.(URI))}, nil
	}

	c.ReadHandlers[uint64(TagURI)] = func(payload any) (any, error) {
		s, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("tag 32 payload must be a text string, got %T", payload)
		}
		if c.Strict {
			if _, err := url.Parse(s); err != nil {
				return nil, err
			}
		}
		return URI(s), nil
	}
}

func registerRegexpTag(c *Codec) {
	c.WriteHandlers[reflect.TypeOf(&regexp.Regexp{})] = func(v any) (any, error) {
		return Tag{Number: uint64(TagRegularExpression), Value: v.(*regexp.Regexp).String()}, nil
	}

	c.ReadHandlers[uint64(TagRegularExpression)] = func(payload any) (any, error) {
		s, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("tag 35 payload must be a text string, got %T", payload)
		}
		return regexp.Compile(s)
	}
}

func registerUUIDTag(c *Codec) {
	const tagUUID = 37
	c.WriteHandlers[reflect.TypeOf(uuid.UUID{})] = func(v any) (any, error) {
		u := v.(uuid.UUID)
		b := make([]byte, 16)
		copy(b, u[:])
		return Tag{Number: tagUUID, Value: b}, nil
	}

	c.ReadHandlers[tagUUID] = func(payload any) (any, error) {
		b, ok := payload.([]byte)
		if !ok || len(b) != 16 {
			return nil, fmt.Errorf("tag 37 payload must be a 16-byte byte string, got %T", payload)
		}
		return uuid.FromBytes(b)
	}
}

func registerIdentifierTag(c *Codec) {
	const tagIdentifier = 39
	c.WriteHandlers[reflect.TypeOf(Identifier{})] = func(v any) (any, error) {
		id := v.(Identifier)
		s := id.Name
		if id.Keyword {
			s = ":" + s
		}
		return Tag{Number: tagIdentifier, Value: s}, nil
	}

	c.ReadHandlers[tagIdentifier] = func(payload any) (any, error) {
		s, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("tag 39 payload must be a text string, got %T", payload)
		}
		if strings.HasPrefix(s, ":") {
			return Identifier{Name: s[1:], Keyword: true}, nil
		}
		return Identifier{Name: s}, nil
	}
}

func registerSelfDescribedTag(c *Codec) {
	c.WriteHandlers[reflect.TypeOf(SelfDescribed{})] = func(v any) (any, error) {
		return Tag{Number: uint64(TagSelfDescribedCbor), Value: v.(SelfDescribed).Value}, nil
	}

	c.ReadHandlers[uint64(TagSelfDescribedCbor)] = func(payload any) (any, error) {
		return payload, nil
	}
}

func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		return x, nil
	case int64:
		return big.NewInt(x), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	default:
		return nil, fmt.Errorf("cbor: expected integer, got %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, ErrOverflow
		}
		return int64(x), nil
	case *big.Int:
		if !x.IsInt64() {
			return 0, ErrOverflow
		}
		return x.Int64(), nil
	default:
		return 0, fmt.Errorf("cbor: expected integer, got %T", v)
	}
}
