package rdm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cast"
)

// Content types used by InvenioRDM.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeInvenioJSON = "application/vnd.inveniordm.v1+json"
	ContentTypeOctetStream = "application/octet-stream"
)

// Contract describes one payload family: the headers it negotiates, how it
// travels on the wire, and which endpoint arguments it can yield.
type Contract interface {
	Name() string
	AcceptType() string
	RequestContentType() string
	Decode(body []byte) (*Metadata, error)
	Encode(m *Metadata) (io.Reader, error)
	EndpointArgs(m *Metadata) (Args, error)
}

// ListContract is a Contract whose payload holds a page of items.
type ListContract interface {
	Contract
	List(m *Metadata) (*ListMetadata, error)
}

// Payload families.
var (
	RecordMetadata = &objectContract{
		name:        "record",
		accept:      ContentTypeJSON,
		contentType: ContentTypeJSON,
		args:        map[string]string{"id": "id"},
	}
	DraftMetadata = &objectContract{
		name:        "draft",
		accept:      ContentTypeInvenioJSON,
		contentType: ContentTypeJSON,
		args:        map[string]string{"id": "id"},
	}
	FileMetadata = &objectContract{
		name:        "file",
		accept:      ContentTypeJSON,
		contentType: ContentTypeJSON,
		args:        map[string]string{"filename": "key"},
	}
	CommunityMetadata = &objectContract{
		name:        "community",
		accept:      ContentTypeJSON,
		contentType: ContentTypeJSON,
		args:        map[string]string{"id": "id"},
	}
	CommunityRecordMetadata = &objectContract{
		name:        "community records",
		accept:      ContentTypeJSON,
		contentType: ContentTypeJSON,
		encode:      encodeCommunityRecords,
	}

	RecordListMetadata = &listContract{
		objectContract: objectContract{
			name:        "record list",
			accept:      ContentTypeInvenioJSON,
			contentType: ContentTypeJSON,
		},
		item:      RecordMetadata,
		hitsPath:  []string{"hits", "hits"},
		totalPath: []string{"hits", "total"},
	}
	FilesListMetadata = &listContract{
		objectContract: objectContract{
			name:        "files list",
			accept:      ContentTypeJSON,
			contentType: ContentTypeJSON,
			encode:      encodeFileEntries,
		},
		item:     FileMetadata,
		hitsPath: []string{"entries"},
	}
	CommunityListMetadata = &listContract{
		objectContract: objectContract{
			name:        "community list",
			accept:      ContentTypeJSON,
			contentType: ContentTypeJSON,
		},
		item:      CommunityMetadata,
		hitsPath:  []string{"hits", "hits"},
		totalPath: []string{"hits", "total"},
	}
	CommunityRecordListMetadata = &listContract{
		objectContract: objectContract{
			name:        "community record list",
			accept:      ContentTypeJSON,
			contentType: ContentTypeJSON,
		},
		item:      RecordMetadata,
		hitsPath:  []string{"hits", "hits"},
		totalPath: []string{"hits", "total"},
	}

	OutgoingStream = &streamContract{
		name:        "outgoing stream",
		accept:      ContentTypeJSON,
		contentType: ContentTypeOctetStream,
	}
	IncomingStream = &streamContract{
		name: "incoming stream",
	}
)

type objectContract struct {
	name        string
	accept      string
	contentType string
	// placeholder name -> field name
	args   map[string]string
	encode func(m *Metadata) (interface{}, error)
}

func (c *objectContract) Name() string               { return c.name }
func (c *objectContract) AcceptType() string         { return c.accept }
func (c *objectContract) RequestContentType() string { return c.contentType }

func (c *objectContract) Decode(body []byte) (*Metadata, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return nil, &DeserializationError{Contract: c.name, Err: err}
	}

	return &Metadata{contract: c, fields: fields}, nil
}

func (c *objectContract) Encode(m *Metadata) (io.Reader, error) {
	var payload interface{} = map[string]interface{}(m.fields)

	if c.encode != nil {
		var err error

		payload, err = c.encode(m)
		if err != nil {
			return nil, err
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s metadata: %w", c.name, err)
	}

	return bytes.NewReader(data), nil
}

func (c *objectContract) EndpointArgs(m *Metadata) (Args, error) {
	args := make(Args, len(c.args))

	for placeholder, field := range c.args {
		value, ok := m.fields[field]
		if !ok || value == nil {
			return nil, &MissingFieldError{Contract: c.name, Field: field}
		}

		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("converting %s field %q: %w", c.name, field, err)
		}

		args[placeholder] = s
	}

	return args, nil
}

type listContract struct {
	objectContract

	item      Contract
	hitsPath  []string
	totalPath []string
}

// Decode validates the list shape up front so malformed pages fail at the
// transport boundary rather than during iteration.
func (c *listContract) Decode(body []byte) (*Metadata, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return nil, &DeserializationError{Contract: c.name, Err: err}
	}

	m := &Metadata{contract: c, fields: fields}

	_, err = c.List(m)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (c *listContract) List(m *Metadata) (*ListMetadata, error) {
	raw, err := m.Lookup(c.hitsPath...)
	if err != nil {
		return nil, &DeserializationError{Contract: c.name, Err: err}
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, &DeserializationError{
			Contract: c.name,
			Err:      fmt.Errorf("%s is %T, not a list", joinPath(c.hitsPath), raw),
		}
	}

	hits := make([]*Metadata, 0, len(items))

	for i, item := range items {
		object, ok := asObject(item)
		if !ok {
			return nil, &DeserializationError{Contract: c.name, Err: fmt.Errorf("hit %d: %w", i, ErrInvalidHit)}
		}

		hits = append(hits, &Metadata{contract: c.item, fields: object})
	}

	total := len(hits)

	if c.totalPath != nil {
		rawTotal, err := m.Lookup(c.totalPath...)
		if err != nil {
			return nil, &DeserializationError{Contract: c.name, Err: err}
		}

		total, err = toTotal(rawTotal)
		if err != nil {
			return nil, &DeserializationError{Contract: c.name, Err: err}
		}
	}

	if len(hits) > total {
		return nil, &DeserializationError{
			Contract: c.name,
			Err:      fmt.Errorf("%w: %d > %d", ErrHitsExceedTotal, len(hits), total),
		}
	}

	aggregations, _ := m.Get("aggregations")

	return &ListMetadata{Metadata: m, Hits: hits, Total: total, Aggregations: aggregations}, nil
}

func (c *listContract) EndpointArgs(*Metadata) (Args, error) {
	return Args{}, nil
}

type streamContract struct {
	name        string
	accept      string
	contentType string
}

func (c *streamContract) Name() string               { return c.name }
func (c *streamContract) AcceptType() string         { return c.accept }
func (c *streamContract) RequestContentType() string { return c.contentType }

func (c *streamContract) Decode(body []byte) (*Metadata, error) {
	return &Metadata{contract: c, fields: Fields{}, payload: body}, nil
}

func (c *streamContract) Encode(m *Metadata) (io.Reader, error) {
	if m.reader == nil && m.payload == nil {
		return nil, fmt.Errorf("%s: %w", c.name, ErrNoStreamPayload)
	}

	return m.Reader(), nil
}

func (c *streamContract) EndpointArgs(*Metadata) (Args, error) {
	return Args{}, nil
}

func decodeObject(body []byte) (Fields, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var payload interface{}

	err := decoder.Decode(&payload)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	object, ok := payload.(map[string]interface{})
	if !ok {
		return nil, ErrNotAnObject
	}

	return object, nil
}

// toTotal accepts both a bare count and the {"value": n} form.
func toTotal(raw interface{}) (int, error) {
	if object, ok := asObject(raw); ok {
		raw = object["value"]
	}

	if number, ok := raw.(json.Number); ok {
		total, err := number.Int64()
		if err != nil {
			return 0, fmt.Errorf("parsing total: %w", err)
		}

		return int(total), nil
	}

	total, err := cast.ToIntE(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing total: %w", err)
	}

	return total, nil
}

func encodeFileEntries(m *Metadata) (interface{}, error) {
	entries, ok := m.fields["entries"]
	if !ok {
		return map[string]interface{}(m.fields), nil
	}

	return entries, nil
}

func encodeCommunityRecords(m *Metadata) (interface{}, error) {
	ids, err := recordIDs(m.fields["records"])
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return map[string]interface{}{}, nil
	}

	records := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		records = append(records, map[string]string{"id": id})
	}

	return map[string]interface{}{"records": records}, nil
}

func recordIDs(raw interface{}) ([]string, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if value == "" {
			return nil, nil
		}

		return []string{value}, nil
	case []string:
		return value, nil
	case []interface{}:
		ids := make([]string, 0, len(value))

		for _, item := range value {
			id, err := cast.ToStringE(item)
			if err != nil {
				return nil, &InvalidInputError{Input: item, Expected: "a record identifier"}
			}

			ids = append(ids, id)
		}

		return ids, nil
	default:
		return nil, &InvalidInputError{Input: raw, Expected: "a record identifier or a list of identifiers"}
	}
}

// NewFileEntries builds the request body that registers files on a draft.
func NewFileEntries(keys ...string) *Metadata {
	entries := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, map[string]interface{}{"key": key})
	}

	return NewMetadata(FilesListMetadata, Fields{"entries": entries})
}

// NormalizeCommunityRecords turns a record identifier, a list of
// identifiers, or community records metadata into the body used to add
// records to a community.
func NormalizeCommunityRecords(input interface{}) (*Metadata, error) {
	switch value := input.(type) {
	case string:
		return NewMetadata(CommunityRecordMetadata, Fields{"records": value}), nil
	case []string:
		return NewMetadata(CommunityRecordMetadata, Fields{"records": value}), nil
	case []interface{}:
		ids, err := recordIDs(value)
		if err != nil {
			return nil, err
		}

		return NewMetadata(CommunityRecordMetadata, Fields{"records": ids}), nil
	case *Metadata:
		if value != nil && value.contract == CommunityRecordMetadata {
			return value, nil
		}
	}

	return nil, &InvalidInputError{
		Input:    input,
		Expected: "a record identifier, a list of identifiers, or community records metadata",
	}
}
