package response

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Media types with a default formatter.
const (
	MediaJSON = "application/json"
	MediaXML  = "application/xml"
	MediaForm = "application/x-www-form-urlencoded"
	MediaBSON = "application/bson"
	MediaText = "text/plain"
)

// Formatter decodes a body into dst.
type Formatter func(body io.Reader, dst any) error

// Formatters maps a media type to the formatter that decodes it.
type Formatters map[string]Formatter

// DefaultFormatters returns a fresh table with the built-in formatters.
func DefaultFormatters() Formatters {
	return Formatters{
		MediaJSON: decodeJSON,
		MediaXML:  decodeXML,
		MediaForm: decodeForm,
		MediaBSON: decodeBSON,
		MediaText: decodeText,
	}
}

// merge returns a copy of f with overrides applied on top.
func (f Formatters) merge(overrides Formatters) Formatters {
	out := maps.Clone(f)
	if out == nil {
		out = make(Formatters, len(overrides))
	}
	maps.Copy(out, overrides)

	return out
}

// lookup finds the formatter for mediaType, falling back on structured
// syntax suffixes (+json, +xml) and on text/plain for other text types.
func (f Formatters) lookup(mediaType string) (Formatter, bool) {
	if fn, ok := f[mediaType]; ok {
		return fn, true
	}

	switch {
	case strings.HasSuffix(mediaType, "+json"):
		fn, ok := f[MediaJSON]
		return fn, ok
	case strings.HasSuffix(mediaType, "+xml"), mediaType == "text/xml":
		fn, ok := f[MediaXML]
		return fn, ok
	case strings.HasPrefix(mediaType, "text/"):
		fn, ok := f[MediaText]
		return fn, ok
	}

	return nil, false
}

func isJSON(mediaType string) bool {
	return mediaType == MediaJSON || strings.HasSuffix(mediaType, "+json")
}

func decodeJSON(body io.Reader, dst any) error {
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("decoding json: %w", err)
	}

	return nil
}

func decodeXML(body io.Reader, dst any) error {
	if err := xml.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("decoding xml: %w", err)
	}

	return nil
}

func decodeBSON(body io.Reader, dst any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading bson: %w", err)
	}

	if err := bson.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding bson: %w", err)
	}

	return nil
}

func decodeForm(body io.Reader, dst any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading form: %w", err)
	}

	values, err := url.ParseQuery(string(data))
	if err != nil {
		return fmt.Errorf("decoding form: %w", err)
	}

	switch d := dst.(type) {
	case *url.Values:
		*d = values
	case *map[string][]string:
		*d = values
	default:
		return fmt.Errorf("%w: form into %T", ErrUnsupportedDest, dst)
	}

	return nil
}

func decodeText(body io.Reader, dst any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading text: %w", err)
	}

	switch d := dst.(type) {
	case *string:
		*d = string(data)
	case *[]byte:
		*d = data
	default:
		return fmt.Errorf("%w: text into %T", ErrUnsupportedDest, dst)
	}

	return nil
}
