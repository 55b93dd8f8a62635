// Package uri builds the relative part of a request URI: path segments,
// query parameters and fragment. The rendered string is resolved against
// the base address of the client that sends the request.
package uri

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Parameter is one rendered query pair.
type Parameter struct {
	Key   string
	Value string
}

// Builder accumulates a path, query and fragment. It is not safe for
// concurrent use. Errors raised while adding parameters are reported by
// Build.
type Builder struct {
	path     string
	query    []Parameter
	fragment string
	errs     []error
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// SetPath replaces the path with the given segments. Leading and trailing
// slashes of each segment are stripped and the segments are joined with
// a single '/', so SetPath("a", "/b/c/") and SetPath("a/b/c") agree.
func (b *Builder) SetPath(segments ...string) *Builder {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}

	b.path = strings.Join(parts, "/")

	return b
}

// Add appends a query parameter rendered according to the dynamic type
// of value. See ValueOf.
func (b *Builder) Add(key string, value any) *Builder {
	return b.AddValue(key, ValueOf(value))
}

// AddValue appends a query parameter. Keys may repeat; every pair is kept.
func (b *Builder) AddValue(key string, value Value) *Builder {
	s, err := value.Format()
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("query param[%s]: %w", key, err))
		return b
	}

	b.query = append(b.query, Parameter{Key: key, Value: s})

	return b
}

// AddField appends a query parameter whose key is derived from a model
// field through keys. A field that cannot be resolved is an error.
func (b *Builder) AddField(keys KeyFunc, field string, value any) *Builder {
	key, err := keys(field)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}

	return b.AddValue(key, ValueOf(value))
}

// AddEnumField appends an enum value built with Enum, EnumName or
// EnumLabel under a key derived from a model field. Any other kind of
// value fails with ErrNotEnum when the query is built.
func (b *Builder) AddEnumField(keys KeyFunc, field string, value Value) *Builder {
	if value.kind != KindEnum {
		b.errs = append(b.errs, fmt.Errorf("query field[%s]: %w", field, ErrNotEnum))
		return b
	}

	return b.AddField(keys, field, value)
}

// SetFragment sets the fragment, adding the leading '#' unless the value
// already starts with one.
func (b *Builder) SetFragment(fragment string) *Builder {
	if !strings.HasPrefix(fragment, "#") {
		fragment = "#" + fragment
	}

	b.fragment = fragment

	return b
}

// Query returns a copy of the query parameters in insertion order.
func (b *Builder) Query() []Parameter {
	return slices.Clone(b.query)
}

// Build renders the relative URI. When nothing was set it returns the
// empty string, leaving the base address untouched.
func (b *Builder) Build() (string, error) {
	if err := errors.Join(b.errs...); err != nil {
		return "", err
	}

	return b.String(), nil
}

// String renders the relative URI, skipping parameters that failed.
func (b *Builder) String() string {
	var sb strings.Builder

	sb.WriteString(b.path)

	for i, p := range b.query {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(escape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(escape(p.Value))
	}

	sb.WriteString(b.fragment)

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
