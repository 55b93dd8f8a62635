package uri

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrLabelNotFound is returned when an enum label lookup has no entry
	// for the given value.
	ErrLabelNotFound = errors.New("enum label not found")
	ErrNotEnum       = errors.New("value is not an enum")
)

// Kind is the semantic kind of a query Value.
type Kind int

const (
	KindInt Kind = iota + 1
	KindUint
	KindFloat
	KindUUID
	KindString
	KindBool
	KindEnum
	KindObject
)

// Value is a query value tagged with the kind that decides how it is
// rendered. Build one with the constructor matching the kind, or let
// ValueOf pick it from the dynamic type.
type Value struct {
	kind Kind
	text string
	obj  any
	err  error
}

// Int renders v in base 10.
func Int(v int64) Value {
	return Value{kind: KindInt, text: strconv.FormatInt(v, 10)}
}

// Uint renders v in base 10.
func Uint(v uint64) Value {
	return Value{kind: KindUint, text: strconv.FormatUint(v, 10)}
}

// Float renders v with the fewest digits that represent it exactly,
// never in exponent form.
func Float(v float64) Value {
	return Value{kind: KindFloat, text: strconv.FormatFloat(v, 'f', -1, 64)}
}

// Float32 renders v with the fewest digits that round-trip it at 32-bit
// precision, so float32(3.14) renders as "3.14".
func Float32(v float32) Value {
	return Value{kind: KindFloat, text: strconv.FormatFloat(float64(v), 'f', -1, 32)}
}

// UUID renders id in its canonical hyphenated form.
func UUID(id uuid.UUID) Value {
	return Value{kind: KindUUID, text: id.String()}
}

// String renders s unchanged; escaping happens when the query is built.
func String(s string) Value {
	return Value{kind: KindString, text: s}
}

// Bool renders "true" or "false".
func Bool(v bool) Value {
	return Value{kind: KindBool, text: strconv.FormatBool(v)}
}

// Object renders v as JSON which is then form-encoded. The query encoder
// escapes the result a second time, so `{"a":1}` travels as
// `%257b%2522a%2522%253a1%257d`.
func Object(v any) Value {
	return Value{kind: KindObject, obj: v}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Format returns the query representation of the value.
func (v Value) Format() (string, error) {
	if v.err != nil {
		return "", v.err
	}

	if v.kind != KindObject {
		return v.text, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.obj); err != nil {
		return "", fmt.Errorf("encoding query object: %w", err)
	}

	return formEncode(strings.TrimSuffix(buf.String(), "\n")), nil
}

// ValueOf picks the rendering rule from the dynamic type of v. Named
// integer types, which is how enums are declared, render their ordinal.
// Anything that is not a scalar is rendered as an Object.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Uint(uint64(x))
	case uint8:
		return Uint(uint64(x))
	case uint16:
		return Uint(uint64(x))
	case uint32:
		return Uint(uint64(x))
	case uint64:
		return Uint(x)
	case float32:
		return Float32(x)
	case float64:
		return Float(x)
	case uuid.UUID:
		return UUID(x)
	case nil:
		return Object(nil)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{kind: KindEnum, text: strconv.FormatInt(rv.Int(), 10)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Value{kind: KindEnum, text: strconv.FormatUint(rv.Uint(), 10)}
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Float32:
		return Float32(float32(rv.Float()))
	case reflect.Float64:
		return Float(rv.Float())
	default:
		return Object(v)
	}
}

// formEncode escapes s the way HTML form encoders do: letters, digits and
// -_.!*() stay, spaces become '+', everything else is %xx in lower case.
func formEncode(s string) string {
	const hex = "0123456789abcdef"

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			sb.WriteByte(c)
		case c == '-', c == '_', c == '.', c == '!', c == '*', c == '(', c == ')':
			sb.WriteByte(c)
		case c == ' ':
			sb.WriteByte('+')
		default:
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0f])
		}
	}

	return sb.String()
}
