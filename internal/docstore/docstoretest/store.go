// Package docstoretest provides an in-memory document store for tests of
// code that reads and writes documents.
package docstoretest

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"

	"backend-twitter/internal/docstore"
	"backend-twitter/internal/shared/apperr"
)

type UpdateCall struct {
	Collection string
	ID         string
	Fields     map[string]any
}

type Store struct {
	mu      sync.Mutex
	docs    map[string]map[string]docstore.Document
	seq     int
	clock   time.Time
	Updates []UpdateCall
	// Errs fails the named operation ("add", "get", "update", "delete",
	// "union", "remove", "query") with the given error.
	Errs map[string]error
}

func New() *Store {
	return &Store{
		docs:  map[string]map[string]docstore.Document{},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Errs:  map[string]error{},
	}
}

// Put stores data under a fixed id.
func (s *Store) Put(collection, id string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, normalize(data))
}

func (s *Store) Add(_ context.Context, collection string, data any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Errs["add"]; err != nil {
		return "", err
	}
	s.seq++
	id := collection + "-" + strconv.Itoa(s.seq)
	s.put(collection, id, normalize(data))
	return id, nil
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Errs["get"]; err != nil {
		return docstore.Document{}, err
	}
	doc, ok := s.docs[collection][id]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%w: %s/%s", apperr.ErrNotFound, collection, id)
	}
	return clone(doc), nil
}

func (s *Store) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Errs["update"]; err != nil {
		return err
	}
	doc, ok := s.docs[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", apperr.ErrNotFound, collection, id)
	}
	norm := normalize(fields)
	s.Updates = append(s.Updates, UpdateCall{Collection: collection, ID: id, Fields: norm})
	for k, v := range norm {
		doc.Data[k] = v
	}
	s.docs[collection][id] = doc
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Errs["delete"]; err != nil {
		return err
	}
	delete(s.docs[collection], id)
	return nil
}

func (s *Store) ArrayUnion(_ context.Context, collection, id, field string, values ...any) error {
	return s.arrayOp("union", collection, id, field, values, func(current []any, v any) []any {
		if indexOf(current, v) < 0 {
			current = append(current, v)
		}
		return current
	})
}

func (s *Store) ArrayRemove(_ context.Context, collection, id, field string, values ...any) error {
	return s.arrayOp("remove", collection, id, field, values, func(current []any, v any) []any {
		out := current[:0]
		for _, e := range current {
			if !reflect.DeepEqual(e, v) {
				out = append(out, e)
			}
		}
		return out
	})
}

func (s *Store) Query(_ context.Context, q docstore.Query) ([]docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Errs["query"]; err != nil {
		return nil, err
	}

	var out []docstore.Document
	for _, doc := range s.docs[q.Collection] {
		if matches(doc, q.Filters) {
			out = append(out, clone(doc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.OrderBy != nil && q.OrderBy.Field != docstore.FieldCreateTime {
			less := fmt.Sprint(a.Data[q.OrderBy.Field]) < fmt.Sprint(b.Data[q.OrderBy.Field])
			if q.OrderBy.Desc {
				return !less
			}
			return less
		}
		if q.OrderBy != nil && q.OrderBy.Desc {
			return a.CreateTime.After(b.CreateTime)
		}
		return a.CreateTime.Before(b.CreateTime)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Doc returns the stored data of a document, or nil.
func (s *Store) Doc(collection, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil
	}
	return clone(doc).Data
}

func (s *Store) arrayOp(op, collection, id, field string, values []any, apply func([]any, any) []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Errs[op]; err != nil {
		return err
	}
	doc, ok := s.docs[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", apperr.ErrNotFound, collection, id)
	}
	current, _ := doc.Data[field].([]any)
	for _, v := range normalize(map[string]any{"v": values})["v"].([]any) {
		current = apply(current, v)
	}
	if current == nil {
		current = []any{}
	}
	doc.Data[field] = current
	s.docs[collection][id] = doc
	return nil
}

func (s *Store) put(collection, id string, data map[string]any) {
	if s.docs[collection] == nil {
		s.docs[collection] = map[string]docstore.Document{}
	}
	s.clock = s.clock.Add(time.Second)
	s.docs[collection][id] = docstore.Document{
		ID:         id,
		Collection: collection,
		Data:       data,
		CreateTime: s.clock,
		UpdateTime: s.clock,
	}
}

func matches(doc docstore.Document, filters []docstore.Filter) bool {
	for _, f := range filters {
		want := normalize(map[string]any{"v": f.Value})["v"]
		got := doc.Data[f.Field]
		switch f.Op {
		case docstore.OpEqual:
			if !reflect.DeepEqual(got, want) {
				return false
			}
		case docstore.OpArrayContains:
			arr, _ := got.([]any)
			if indexOf(arr, want) < 0 {
				return false
			}
		}
	}
	return true
}

func indexOf(list []any, v any) int {
	for i, e := range list {
		if reflect.DeepEqual(e, v) {
			return i
		}
	}
	return -1
}

func normalize(data any) map[string]any {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(fmt.Sprintf("docstoretest: marshal: %v", err))
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("docstoretest: data must be an object: %v", err))
	}
	return out
}

func clone(doc docstore.Document) docstore.Document {
	doc.Data = normalize(doc.Data)
	return doc
}
