package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
	KindMap
	KindList
	KindPair
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindTime:   "time",
	KindMap:    "map",
	KindList:   "list",
	KindPair:   "pair",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged variant holding one piece of open-ended payload data.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	n    string // integer literal too wide for int64
	f    float64
	s    string
	t    time.Time
	m    *Map
	l    []Value
	p    *Pair
}

// Pair is the (cleaned mapping, error list) tuple stored for nested mappings.
type Pair struct {
	Data   *Map
	Errors []string
}

func Null() Value                 { return Value{} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }
func IntValue(i int64) Value      { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value  { return Value{kind: KindFloat, f: f} }
func StringValue(s string) Value  { return Value{kind: KindString, s: s} }
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t} }

// MapValue wraps m. A nil map is treated as an empty one.
func MapValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// ListValue wraps the given elements.
func ListValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, l: items}
}

// PairValue wraps a nested cleaning result.
func PairValue(data *Map, errs []string) Value {
	if data == nil {
		data = NewMap()
	}
	if errs == nil {
		errs = []string{}
	}
	return Value{kind: KindPair, p: &Pair{Data: data, Errors: errs}}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumber reports whether v holds an int or a float.
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

func (v Value) AsString() (string, bool)  { return v.s, v.kind == KindString }
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }
func (v Value) AsMap() (*Map, bool)       { return v.m, v.kind == KindMap }
func (v Value) AsList() ([]Value, bool)   { return v.l, v.kind == KindList }
func (v Value) AsPair() (*Pair, bool)     { return v.p, v.kind == KindPair }

// FormatTimestamp renders t as ISO-8601 text, keeping fractional seconds only
// when they are non-zero.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		if v.n != "" {
			buf.WriteString(v.n)
			break
		}
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		text, err := formatFloat(v.f)
		if err != nil {
			return err
		}
		buf.WriteString(text)
	case KindString:
		return encodeString(buf, v.s)
	case KindTime:
		return encodeString(buf, FormatTimestamp(v.t))
	case KindMap:
		return v.m.encode(buf)
	case KindList:
		buf.WriteByte('[')
		for idx, item := range v.l {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindPair:
		buf.WriteByte('[')
		if err := v.p.Data.encode(buf); err != nil {
			return err
		}
		buf.WriteByte(',')
		if err := encodeStrings(buf, v.p.Errors); err != nil {
			return err
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("encode value: unknown kind %s", v.kind)
	}
	return nil
}

// formatFloat renders f as the shortest text that reads back to the same
// float, always marked as a float: integral values keep a ".0" suffix and
// exponents below -4 or from 16 up use scientific notation.
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("encode float: unsupported value %v", f)
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil {
		return "", fmt.Errorf("encode float: %w", err)
	}
	if exp < -4 || exp >= 16 {
		return sci, nil
	}
	text := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(text, '.') {
		text += ".0"
	}
	return text, nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder.Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

func encodeStrings(buf *bytes.Buffer, items []string) error {
	buf.WriteByte('[')
	for idx, s := range items {
		if idx > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, s); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}
