// Package docstore is a schema-less document store over a Postgres JSONB
// table: named collections, CRUD, filtered ordered queries and live
// subscriptions driven by the change feed.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"backend-twitter/internal/changefeed"
	"backend-twitter/internal/db"
	"backend-twitter/internal/shared/apperr"
	"backend-twitter/internal/telemetry"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Store struct {
	db     db.Querier
	feed   *changefeed.Hub
	logger *slog.Logger
	tracer trace.Tracer
}

func New(q db.Querier, feed *changefeed.Hub, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     q,
		feed:   feed,
		logger: logger,
		tracer: telemetry.Tracer("backend-twitter/docstore"),
	}
}

func (s *Store) Add(ctx context.Context, collection string, data any) (string, error) {
	ctx, span := s.start(ctx, "docstore.Add", collection)
	defer span.End()

	payload, err := encodeObject(data)
	if err != nil {
		return "", fail(span, err)
	}
	id := uuid.NewString()
	if _, err := s.db.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
	`, collection, id, payload); err != nil {
		return "", fail(span, err)
	}
	s.changed(collection, id, "add")
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	ctx, span := s.start(ctx, "docstore.Get", collection)
	defer span.End()

	row := s.db.QueryRow(ctx, `
		SELECT id, data, created_at, updated_at
		FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)

	var (
		docID string
		raw   []byte
		doc   Document
	)
	if err := row.Scan(&docID, &raw, &doc.CreateTime, &doc.UpdateTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, fmt.Errorf("%w: %s/%s", apperr.ErrNotFound, collection, id)
		}
		return Document{}, fail(span, err)
	}
	return decodeRow(collection, docID, raw, doc.CreateTime, doc.UpdateTime)
}

// Update merges fields into the top level of an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	ctx, span := s.start(ctx, "docstore.Update", collection)
	defer span.End()

	payload, err := encodeObject(fields)
	if err != nil {
		return fail(span, err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
	`, collection, id, payload)
	if err != nil {
		return fail(span, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", apperr.ErrNotFound, collection, id)
	}
	s.changed(collection, id, "update")
	return nil
}

// Delete removes a document; deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	ctx, span := s.start(ctx, "docstore.Delete", collection)
	defer span.End()

	if _, err := s.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return fail(span, err)
	}
	s.changed(collection, id, "delete")
	return nil
}

// ArrayUnion appends each value not already present to the array at field.
func (s *Store) ArrayUnion(ctx context.Context, collection, id, field string, values ...any) error {
	return s.arrayOp(ctx, "union", collection, id, field, values, `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$3::text],
			COALESCE(data->($3::text), '[]'::jsonb) || COALESCE((
				SELECT jsonb_agg(v ORDER BY i)
				FROM jsonb_array_elements($4::jsonb) WITH ORDINALITY AS t(v, i)
				WHERE v NOT IN (SELECT e FROM jsonb_array_elements(COALESCE(data->($3::text), '[]'::jsonb)) e)
			), '[]'::jsonb)),
			updated_at = now()
		WHERE collection = $1 AND id = $2
	`)
}

// ArrayRemove drops every element equal to one of values from the array at field.
func (s *Store) ArrayRemove(ctx context.Context, collection, id, field string, values ...any) error {
	return s.arrayOp(ctx, "remove", collection, id, field, values, `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$3::text], COALESCE((
				SELECT jsonb_agg(e ORDER BY i)
				FROM jsonb_array_elements(COALESCE(data->($3::text), '[]'::jsonb)) WITH ORDINALITY AS t(e, i)
				WHERE e NOT IN (SELECT v FROM jsonb_array_elements($4::jsonb) v)
			), '[]'::jsonb)),
			updated_at = now()
		WHERE collection = $1 AND id = $2
	`)
}

func (s *Store) arrayOp(ctx context.Context, op, collection, id, field string, values []any, sql string) error {
	ctx, span := s.start(ctx, "docstore.Array"+op, collection)
	defer span.End()

	if field == "" {
		return fail(span, errors.New("array field required"))
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return fail(span, err)
	}
	tag, err := s.db.Exec(ctx, sql, collection, id, field, payload)
	if err != nil {
		return fail(span, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", apperr.ErrNotFound, collection, id)
	}
	s.changed(collection, id, "array_"+op)
	return nil
}

func (s *Store) Query(ctx context.Context, q Query) ([]Document, error) {
	ctx, span := s.start(ctx, "docstore.Query", q.Collection)
	defer span.End()

	sql, args, err := q.build()
	if err != nil {
		return nil, fail(span, err)
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fail(span, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
			d   Document
		)
		if err := rows.Scan(&id, &raw, &d.CreateTime, &d.UpdateTime); err != nil {
			return nil, fail(span, err)
		}
		doc, err := decodeRow(q.Collection, id, raw, d.CreateTime, d.UpdateTime)
		if err != nil {
			return nil, fail(span, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, err)
	}
	return docs, nil
}

func (q Query) build() (string, []any, error) {
	if q.Collection == "" {
		return "", nil, errors.New("collection required")
	}
	var b strings.Builder
	args := []any{q.Collection}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	b.WriteString("SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1")
	for _, f := range q.Filters {
		if f.Field == "" {
			return "", nil, errors.New("filter field required")
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		field := next(f.Field)
		switch f.Op {
		case OpEqual:
			fmt.Fprintf(&b, " AND data->(%s::text) = %s::jsonb", field, next(value))
		case OpArrayContains:
			fmt.Fprintf(&b, " AND data->(%s::text) @> jsonb_build_array(%s::jsonb)", field, next(value))
		default:
			return "", nil, fmt.Errorf("filter %s: unsupported op %d", f.Field, f.Op)
		}
	}

	dir := "ASC"
	if q.OrderBy != nil && q.OrderBy.Desc {
		dir = "DESC"
	}
	switch {
	case q.OrderBy == nil:
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	case q.OrderBy.Field == FieldCreateTime:
		fmt.Fprintf(&b, " ORDER BY created_at %s, id %s", dir, dir)
	default:
		fmt.Fprintf(&b, " ORDER BY data->(%s::text) %s, id %s", next(q.OrderBy.Field), dir, dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %s", next(q.Limit))
	}
	return b.String(), args, nil
}

func (s *Store) changed(collection, id, op string) {
	telemetry.DocumentWrites.WithLabelValues(collection, op).Inc()
	if s.feed == nil {
		return
	}
	s.feed.Broadcast(collection, []byte(id))
	s.feed.Broadcast(docTopic(collection, id), []byte(op))
}

func (s *Store) start(ctx context.Context, name, collection string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("docstore.collection", collection)))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func docTopic(collection, id string) string {
	return collection + "/" + id
}
