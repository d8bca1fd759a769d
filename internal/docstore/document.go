package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// FieldCreateTime orders query results by the server-side creation time of
// each document rather than by a field inside its data.
const FieldCreateTime = "__createTime"

type Document struct {
	ID         string
	Collection string
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// DataTo decodes the document data into v.
func (d Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", d.Collection, d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", d.Collection, d.ID, err)
	}
	return nil
}

// Snapshot is the full result of a subscribed document or query at one point in time.
type Snapshot struct {
	Collection string
	Docs       []Document
}

// Doc returns the single document of a document snapshot.
func (s Snapshot) Doc() (Document, bool) {
	if len(s.Docs) == 0 {
		return Document{}, false
	}
	return s.Docs[0], true
}

type FilterOp int

const (
	OpEqual FilterOp = iota
	OpArrayContains
)

type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

func Where(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

func ArrayContains(field string, value any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

type Order struct {
	Field string
	Desc  bool
}

type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    *Order
	Limit      int
}

func encodeObject(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("document data must be an object, got %s", raw)
	}
	return raw, nil
}

func decodeRow(collection, id string, raw []byte, created, updated time.Time) (Document, error) {
	doc := Document{ID: id, Collection: collection, CreateTime: created, UpdateTime: updated}
	if len(raw) == 0 {
		doc.Data = map[string]any{}
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}
