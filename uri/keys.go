package uri

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrFieldNotFound = errors.New("field not found")
	ErrTagNotFound   = errors.New("field tag not found")
)

// KeyFunc derives a query key from a model field name.
type KeyFunc func(field string) (string, error)

// KeyError describes a failed key derivation.
type KeyError struct {
	Model string
	Field string
	Tag   string
	Err   error
}

func (e *KeyError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("%v: %s on %s", e.Err, e.Field, e.Model)
	}

	return fmt.Sprintf("%v: %q on %s.%s", e.Err, e.Tag, e.Model, e.Field)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// Keys derives keys from an explicit field-to-key table.
func Keys(table map[string]string) KeyFunc {
	return func(field string) (string, error) {
		key, ok := table[field]
		if !ok {
			return "", &KeyError{Model: "key table", Field: field, Err: ErrFieldNotFound}
		}

		return key, nil
	}
}

// TagKeys derives keys from the tag of T's exported fields, e.g.
// TagKeys[Person]("json") maps GivenName `json:"NumeleDat"` to NumeleDat.
// The tag table is resolved once, when TagKeys is called.
func TagKeys[T any](tag string) KeyFunc {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	model := typ.String()
	if typ.Kind() != reflect.Struct {
		return func(field string) (string, error) {
			return "", &KeyError{Model: model, Field: field, Err: ErrFieldNotFound}
		}
	}

	fields := make(map[string]string, typ.NumField())
	for i := range typ.NumField() {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}

		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			name = ""
		}
		fields[f.Name] = name
	}

	return func(field string) (string, error) {
		key, ok := fields[field]
		switch {
		case !ok:
			return "", &KeyError{Model: model, Field: field, Err: ErrFieldNotFound}
		case key == "":
			return "", &KeyError{Model: model, Field: field, Tag: tag, Err: ErrTagNotFound}
		}

		return key, nil
	}
}
