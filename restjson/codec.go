// Package restjson implements the JSON wire format for rhttp resources.
//
// Request bodies must be JSON objects or arrays; handlers return maps and
// slices which are encoded deterministically (encoding/json sorts object
// keys) with non-finite numbers rejected. Error envelopes render as a
// pretty-printed {"code": ..., "error": ..., "detail": ...} document.
package restjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/advdv/rhttp"
)

const (
	acceptHeader      = "application/json"
	contentTypeFormat = "application/json; charset=%s"

	// excerptLen bounds how much of a rejected body ends up in the error.
	excerptLen = 60
)

// Codec implements [rhttp.Codec] for JSON.
type Codec struct{}

// New inits the JSON codec.
func New() Codec { return Codec{} }

// Name implements [rhttp.Codec].
func (Codec) Name() string { return "json" }

// Accept implements [rhttp.Codec].
func (Codec) Accept() string { return acceptHeader }

// ContentType implements [rhttp.Codec].
func (Codec) ContentType(encoding string) string {
	return fmt.Sprintf(contentTypeFormat, encoding)
}

// Decode parses a JSON body into a map[string]any or []any. A body whose
// first non-whitespace byte is not '{' or '[' is rejected before the full
// parse, with a bounded excerpt of the input in the error.
func (c Codec) Decode(body []byte, encoding string) (any, error) {
	decoded, err := transcodeIn(body, encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "decode body as %s", encoding)
	}

	trimmed := bytes.TrimSpace(decoded)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, errors.Newf(
			"invalid JSON first character != { or [... got: %s ...", excerpt(body))
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrapf(err, "parse JSON body, got: %s ...", excerpt(body))
	}

	return v, nil
}

// Encode serializes an accepted value. encoding/json keeps object keys
// sorted and errors on NaN and infinities, matching the strict-compliance
// contract.
func (c Codec) Encode(v any, encoding string) ([]byte, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal response")
	}

	return transcodeOut(encoded, encoding)
}

// Accepts reports whether v is a map, slice or array value. Byte slices are
// excluded, they are raw data, not a JSON structure.
func (Codec) Accepts(v any) bool {
	if v == nil {
		return false
	}

	if _, isBytes := v.([]byte); isBytes {
		return false
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

// envelopeDoc is the rendered error document. Keys sort as code, detail,
// error, keeping responses diffable.
type envelopeDoc struct {
	Code   int     `json:"code"`
	Detail *string `json:"detail"`
	Error  string  `json:"error"`
}

// EncodeEnvelope implements [rhttp.Codec]. Detail renders as null unless
// exposure is enabled.
func (c Codec) EncodeEnvelope(e *rhttp.Envelope, encoding string, exposeDetail bool) ([]byte, error) {
	doc := envelopeDoc{Code: e.Status, Error: e.Brief}
	if exposeDetail {
		doc.Detail = &e.Detail
	}

	encoded, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal error envelope")
	}

	return transcodeOut(encoded, encoding)
}

// excerpt clips a body for inclusion in malformed-body errors.
func excerpt(body []byte) []byte {
	if len(body) > excerptLen {
		return body[:excerptLen]
	}

	return body
}

// transcodeIn converts a request body from the configured charset to UTF-8.
func transcodeIn(body []byte, encoding string) ([]byte, error) {
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown encoding %q", encoding)
	}

	return enc.NewDecoder().Bytes(body)
}

// transcodeOut converts UTF-8 output to the configured charset.
func transcodeOut(encoded []byte, encoding string) ([]byte, error) {
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown encoding %q", encoding)
	}

	out, err := enc.NewEncoder().Bytes(encoded)
	if err != nil {
		return nil, errors.Wrapf(err, "encode response as %s", encoding)
	}

	return out, nil
}

var _ rhttp.Codec = Codec{}
