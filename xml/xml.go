// Package xml provides an XML codec implementation.
package xml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/zoobzio/facet"
)

// Element names for lists. XML has a single root, so a list is written as
// <items><item>...</item></items>.
const (
	listElement = "items"
	itemElement = "item"
)

// ErrRecordsUnsupported is returned for dynamic records, which have no
// typed XML form.
var ErrRecordsUnsupported = errors.New("xml: dynamic records are not supported")

var recordType = reflect.TypeFor[facet.DynamicRecord]()

// xmlCodec implements facet.Codec for XML.
type xmlCodec struct{}

// New returns an XML codec. Slices are wrapped in a list element on
// Marshal and unwrapped on Unmarshal, so side tables decode like they do
// in the other codecs.
func New() facet.Codec {
	return &xmlCodec{}
}

// ContentType returns the MIME type for XML.
func (c *xmlCodec) ContentType() string {
	return "application/xml"
}

type list struct {
	XMLName xml.Name `xml:"items"`
	Items   any      `xml:"item"`
}

// Marshal encodes v as XML.
func (c *xmlCodec) Marshal(v any) ([]byte, error) {
	rt := reflect.TypeOf(v)
	if holdsRecords(rt) {
		return nil, ErrRecordsUnsupported
	}
	if isList(rt) {
		return xml.Marshal(list{Items: v})
	}
	return xml.Marshal(v)
}

// Unmarshal decodes XML data into v.
func (c *xmlCodec) Unmarshal(data []byte, v any) error {
	rt := reflect.TypeOf(v)
	if holdsRecords(rt) {
		return ErrRecordsUnsupported
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() && rt.Elem().Kind() == reflect.Slice && isList(rt.Elem()) {
		return unmarshalList(data, rv.Elem())
	}
	return xml.Unmarshal(data, v)
}

// unmarshalList decodes each child of the list element into a new
// element of out.
func unmarshalList(data []byte, out reflect.Value) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	open := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if !open {
				return fmt.Errorf("xml: missing <%s> element", listElement)
			}
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !open {
				if t.Name.Local != listElement {
					return fmt.Errorf("xml: expected <%s>, got <%s>", listElement, t.Name.Local)
				}
				open = true
				continue
			}
			elem := reflect.New(out.Type().Elem())
			if err := dec.DecodeElement(elem.Interface(), &t); err != nil {
				return err
			}
			out.Set(reflect.Append(out, elem.Elem()))
		case xml.EndElement:
			return nil
		}
	}
}

func isList(rt reflect.Type) bool {
	if rt == nil {
		return false
	}
	switch rt.Kind() {
	case reflect.Slice:
		return rt.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

// holdsRecords reports whether rt is a DynamicRecord or a list of them,
// looking through pointers.
func holdsRecords(rt reflect.Type) bool {
	for rt != nil {
		switch rt.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array:
			rt = rt.Elem()
		default:
			return rt == recordType
		}
	}
	return false
}
