// Package restxml implements the XML wire format for rhttp resources, with
// github.com/beevik/etree element trees as the structured value type.
package restxml

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/advdv/rhttp"
)

const (
	acceptHeader      = "application/xml"
	contentTypeFormat = "application/xml; charset=%s"

	excerptLen = 60
)

// Codec implements [rhttp.Codec] for XML.
type Codec struct{}

// New inits the XML codec.
func New() Codec { return Codec{} }

// Name implements [rhttp.Codec].
func (Codec) Name() string { return "xml" }

// Accept implements [rhttp.Codec].
func (Codec) Accept() string { return acceptHeader }

// ContentType implements [rhttp.Codec].
func (Codec) ContentType(encoding string) string {
	return fmt.Sprintf(contentTypeFormat, encoding)
}

// Decode parses an XML body into a [*etree.Document]. A body whose first
// non-whitespace byte is not '<' is rejected before the full parse. A body
// with an XML declaration is read in its declared charset; a declaration-less
// body is assumed to be in the configured charset.
func (c Codec) Decode(body []byte, encoding string) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return nil, errors.Newf(
			"invalid XML first character != <... got: %s ...", excerpt(body))
	}

	if !bytes.HasPrefix(trimmed, []byte("<?xml")) {
		decoded, err := transcodeIn(body, encoding)
		if err != nil {
			return nil, errors.Wrapf(err, "decode body as %s", encoding)
		}

		body = decoded
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader

	if err := doc.ReadFromBytes(body); err != nil {
		return nil, errors.Wrapf(err, "parse XML body, got: %s ...", excerpt(body))
	}

	if doc.Root() == nil {
		return nil, errors.Newf("XML body has no root element, got: %s ...", excerpt(body))
	}

	return doc, nil
}

// Encode serializes an element or document, emitting an XML declaration with
// the configured charset and transcoding the output bytes to it. etree keeps
// document order, the output is deterministic for a given tree.
func (c Codec) Encode(v any, encoding string) ([]byte, error) {
	doc, err := asDocument(v, encoding)
	if err != nil {
		return nil, err
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "serialize XML response")
	}

	return transcodeOut(out, encoding)
}

// Accepts reports whether v is an etree element or document.
func (Codec) Accepts(v any) bool {
	switch v.(type) {
	case *etree.Element, *etree.Document:
		return true
	default:
		return false
	}
}

// EncodeEnvelope implements [rhttp.Codec], rendering:
//
//	<errorPage>
//	    <code>500</code>
//	    <brief>...</brief>
//	    <detail>...</detail>
//	</errorPage>
func (c Codec) EncodeEnvelope(e *rhttp.Envelope, encoding string, exposeDetail bool) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="`+encoding+`"`)

	page := doc.CreateElement("errorPage")
	page.CreateElement("code").SetText(strconv.Itoa(e.Status))
	page.CreateElement("brief").SetText(e.Brief)

	detail := page.CreateElement("detail")
	if exposeDetail {
		detail.SetText(e.Detail)
	}

	doc.Indent(4)

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "serialize error envelope")
	}

	return transcodeOut(out, encoding)
}

// asDocument wraps a bare element in a document carrying the declaration.
func asDocument(v any, encoding string) (*etree.Document, error) {
	switch tv := v.(type) {
	case *etree.Document:
		return tv, nil
	case *etree.Element:
		doc := etree.NewDocument()
		doc.CreateProcInst("xml", `version="1.0" encoding="`+encoding+`"`)
		doc.SetRoot(tv.Copy())

		return doc, nil
	default:
		return nil, errors.Newf("unsupported XML response type %T", v)
	}
}

// transcodeIn converts a declaration-less body from the configured charset
// to UTF-8.
func transcodeIn(body []byte, encoding string) ([]byte, error) {
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown encoding %q", encoding)
	}

	return enc.NewDecoder().Bytes(body)
}

// transcodeOut converts serialized UTF-8 output to the configured charset,
// matching the charset the declaration and Content-Type header claim.
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

// charsetReader lets etree read bodies declared in any IANA charset.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown charset %q", charset)
	}

	return enc.NewDecoder().Reader(input), nil
}

func excerpt(body []byte) []byte {
	if len(body) > excerptLen {
		return body[:excerptLen]
	}

	return body
}

var _ rhttp.Codec = Codec{}
