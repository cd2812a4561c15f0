package rhttp

import (
	"net/http"
	"net/url"
	"strings"
)

// Codec converts between raw request/response bytes and the structured values
// a format's handlers work with. Implementations are stateless and safe for
// concurrent use; see the restjson and restxml sub-packages.
type Codec interface {
	// Name identifies the format in diagnostics, e.g. "json".
	Name() string

	// Accept is the fixed Accept header value advertised on every response
	// from this format, error paths included.
	Accept() string

	// ContentType is the Content-Type header value parameterized by the
	// configured charset.
	ContentType(encoding string) string

	// Decode parses a raw request body into a structured value. It must fail
	// fast on a cheap syntactic sniff (first non-whitespace byte outside the
	// format's start set) before attempting a full parse, and its error must
	// carry a bounded excerpt of the offending input.
	Decode(body []byte, encoding string) (any, error)

	// Encode serializes a value from the accepted response set. The output is
	// deterministic for a given value and encoding, and non-finite numbers
	// are rejected rather than substituted.
	Encode(v any, encoding string) ([]byte, error)

	// Accepts reports whether v is in this format's closed set of
	// serializable response shapes.
	Accepts(v any) bool

	// EncodeEnvelope renders this format's representation of an error
	// envelope. Detail is withheld unless exposeDetail is set.
	EncodeEnvelope(e *Envelope, encoding string, exposeDetail bool) ([]byte, error)
}

// BodyDecoder is the strategy the dispatch engine uses to turn a raw POST/PUT
// body into the value passed to handlers. The default decoder delegates to
// the resource's codec; decorators such as [AllowEmptyBody] and [FormBody]
// wrap it to vary the behavior without touching the codec itself.
type BodyDecoder interface {
	DecodeBody(r *http.Request, body []byte, encoding string) (any, error)
}

// BodyDecoderFunc allows casting a function to a [BodyDecoder].
type BodyDecoderFunc func(r *http.Request, body []byte, encoding string) (any, error)

// DecodeBody implements the [BodyDecoder] interface.
func (f BodyDecoderFunc) DecodeBody(r *http.Request, body []byte, encoding string) (any, error) {
	return f(r, body, encoding)
}

// CodecBodyDecoder adapts a codec's Decode into the default [BodyDecoder].
func CodecBodyDecoder(c Codec) BodyDecoder {
	return BodyDecoderFunc(func(_ *http.Request, body []byte, encoding string) (any, error) {
		return c.Decode(body, encoding)
	})
}

// AllowEmptyBody decorates a body decoder so that an empty or all-whitespace
// body decodes to nil instead of failing the format's sniff. Handlers then
// receive a nil body value.
func AllowEmptyBody(next BodyDecoder) BodyDecoder {
	return BodyDecoderFunc(func(r *http.Request, body []byte, encoding string) (any, error) {
		if len(strings.TrimSpace(string(body))) == 0 {
			return nil, nil
		}

		return next.DecodeBody(r, body, encoding)
	})
}

// StringResponses wraps a codec so the accepted response set additionally
// includes string and []byte values, which are written to the client as-is.
// Every other value type is handled by the wrapped codec.
func StringResponses(c Codec) Codec {
	return stringResponses{c}
}

type stringResponses struct{ Codec }

func (c stringResponses) Accepts(v any) bool {
	switch v.(type) {
	case string, []byte:
		return true
	}

	return c.Codec.Accepts(v)
}

func (c stringResponses) Encode(v any, encoding string) ([]byte, error) {
	switch tv := v.(type) {
	case string:
		return []byte(tv), nil
	case []byte:
		return tv, nil
	}

	return c.Codec.Encode(v, encoding)
}

// formMemoryLimit bounds how much of a multipart body is held in memory.
const formMemoryLimit = 32 << 20

// FormBody decorates a body decoder so that form-encoded requests decode to
// the parsed url.Values instead of going through the format's codec. Requests
// with any other content type fall through to the next decoder.
func FormBody(next BodyDecoder) BodyDecoder {
	return BodyDecoderFunc(func(r *http.Request, body []byte, encoding string) (any, error) {
		ct := r.Header.Get("Content-Type")

		switch {
		case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
			return url.ParseQuery(string(body))
		case strings.HasPrefix(ct, "multipart/form-data"):
			if err := r.ParseMultipartForm(formMemoryLimit); err != nil {
				return nil, err
			}

			return r.Form, nil
		}

		return next.DecodeBody(r, body, encoding)
	})
}
