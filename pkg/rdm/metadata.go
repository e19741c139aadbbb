package rdm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// Fields is the key/value payload of a Metadata value.
type Fields map[string]interface{}

// Args are resolved endpoint path arguments keyed by placeholder name.
type Args map[string]string

// Merge returns a new Args holding a overlaid with b. Keys in b win.
func (a Args) Merge(b Args) Args {
	merged := make(Args, len(a)+len(b))
	maps.Copy(merged, a)
	maps.Copy(merged, b)

	return merged
}

// Metadata is a payload tagged with the Contract describing its family.
// Object and list families carry Fields; stream families carry bytes or a
// reader instead.
type Metadata struct {
	contract Contract
	fields   Fields
	payload  []byte
	reader   io.Reader
}

// NewMetadata creates metadata of the given family holding fields.
func NewMetadata(contract Contract, fields Fields) *Metadata {
	if fields == nil {
		fields = Fields{}
	}

	return &Metadata{contract: contract, fields: fields}
}

// NewStream creates outgoing stream metadata reading from r.
func NewStream(r io.Reader) *Metadata {
	return &Metadata{contract: OutgoingStream, fields: Fields{}, reader: r}
}

// Contract returns the family this metadata belongs to.
func (m *Metadata) Contract() Contract {
	return m.contract
}

// AcceptType is the response content type requested for this family.
func (m *Metadata) AcceptType() string {
	return m.contract.AcceptType()
}

// RequestContentType is the content type sent when this metadata is a body.
func (m *Metadata) RequestContentType() string {
	return m.contract.RequestContentType()
}

// EndpointArgs derives path arguments from the held fields.
func (m *Metadata) EndpointArgs() (Args, error) {
	return m.contract.EndpointArgs(m)
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (interface{}, error) {
	value, ok := m.fields[key]
	if !ok {
		return nil, &FieldNotFoundError{Key: key}
	}

	return value, nil
}

// Lookup walks nested objects, e.g. Lookup("metadata", "title").
func (m *Metadata) Lookup(path ...string) (interface{}, error) {
	var current interface{} = map[string]interface{}(m.fields)

	for i, key := range path {
		object, ok := asObject(current)
		if !ok {
			return nil, &FieldNotFoundError{Key: joinPath(path[:i+1])}
		}

		current, ok = object[key]
		if !ok {
			return nil, &FieldNotFoundError{Key: joinPath(path[:i+1])}
		}
	}

	return current, nil
}

// String returns the value under key converted to a string.
func (m *Metadata) String(key string) (string, error) {
	value, err := m.Get(key)
	if err != nil {
		return "", err
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		return "", fmt.Errorf("converting field %q: %w", key, err)
	}

	return s, nil
}

// Has reports whether key is present.
func (m *Metadata) Has(key string) bool {
	_, ok := m.fields[key]

	return ok
}

// Set assigns value to key.
func (m *Metadata) Set(key string, value interface{}) {
	m.fields[key] = value
}

// Fields returns a shallow copy of the held fields.
func (m *Metadata) Fields() Fields {
	return maps.Clone(m.fields)
}

// Decode copies the held fields into out, which is usually a pointer to a
// struct tagged with json tags.
func (m *Metadata) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook:       jsonNumberHook,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}

	err = decoder.Decode(map[string]interface{}(m.fields))
	if err != nil {
		return fmt.Errorf("decoding %s metadata: %w", m.contract.Name(), err)
	}

	return nil
}

// List returns the list view of metadata whose family is a ListContract.
func (m *Metadata) List() (*ListMetadata, error) {
	listContract, ok := m.contract.(ListContract)
	if !ok {
		return nil, fmt.Errorf("%s: %w", m.contract.Name(), ErrNotAList)
	}

	return listContract.List(m)
}

// Bytes returns the payload of stream metadata.
func (m *Metadata) Bytes() []byte {
	return m.payload
}

// Reader returns the payload of stream metadata as a reader.
func (m *Metadata) Reader() io.Reader {
	if m.reader != nil {
		return m.reader
	}

	return bytes.NewReader(m.payload)
}

// MarshalJSON encodes the held fields.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.fields)
}

// ListMetadata is the decoded view of a list-shaped payload.
type ListMetadata struct {
	*Metadata

	Hits         []*Metadata
	Total        int
	Aggregations interface{}
}

func asObject(value interface{}) (map[string]interface{}, bool) {
	switch object := value.(type) {
	case map[string]interface{}:
		return object, true
	case Fields:
		return object, true
	default:
		return nil, false
	}
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}

func jsonNumberHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	number, ok := data.(json.Number)
	if !ok || to.Kind() == reflect.String {
		return data, nil
	}

	if i, err := number.Int64(); err == nil {
		return i, nil
	}

	return number.Float64()
}
