package uri

import (
	"fmt"
	"strconv"
)

// Ordinal is satisfied by the integer types enums are declared with.
type Ordinal interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// NamedOrdinal is an enum that knows the symbolic name of its members.
type NamedOrdinal interface {
	Ordinal
	fmt.Stringer
}

// LabelFunc returns the caller-defined label of an enum member, such as a
// localized display name.
type LabelFunc[E Ordinal] func(E) (string, bool)

// Labels builds a LabelFunc backed by a lookup table.
func Labels[E Ordinal](table map[E]string) LabelFunc[E] {
	return func(e E) (string, bool) {
		l, ok := table[e]
		return l, ok
	}
}

// Enum renders the numeric ordinal of e.
func Enum[E Ordinal](e E) Value {
	return Value{kind: KindEnum, text: ordinal(e)}
}

// EnumName renders the symbolic name of e.
func EnumName[E NamedOrdinal](e E) Value {
	return Value{kind: KindEnum, text: e.String()}
}

// EnumLabel renders the label label reports for e. A missing label is
// reported when the query is built.
func EnumLabel[E Ordinal](e E, label LabelFunc[E]) Value {
	l, ok := label(e)
	if !ok {
		return Value{kind: KindEnum, err: fmt.Errorf("%w: %T(%s)", ErrLabelNotFound, e, ordinal(e))}
	}

	return Value{kind: KindEnum, text: l}
}

func ordinal[E Ordinal](e E) string {
	if e < 0 {
		return strconv.FormatInt(int64(e), 10)
	}

	return strconv.FormatUint(uint64(e), 10)
}
