package facet

import "fmt"

// Codec provides content-type aware marshaling.
// Implementations live in the json, yaml, msgpack, bson, and xml
// subpackages.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// DecodeRecord decodes a single dynamic record, keeping field order.
func DecodeRecord(c Codec, data []byte) (*DynamicRecord, error) {
	r := NewDynamicRecord()
	if err := c.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode record (%s): %w", c.ContentType(), err)
	}
	return r, nil
}

// DecodeRecords decodes a list of dynamic records. The bson codec carries
// lists inside a wrapping document.
func DecodeRecords(c Codec, data []byte) ([]*DynamicRecord, error) {
	var rows []*DynamicRecord
	if err := c.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode records (%s): %w", c.ContentType(), err)
	}
	return rows, nil
}
