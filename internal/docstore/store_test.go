package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"backend-twitter/internal/changefeed"
	"backend-twitter/internal/shared/apperr"

	"github.com/pashagolub/pgxmock/v3"
)

type jsonArg map[string]any

func (j jsonArg) Match(v interface{}) bool {
	raw, ok := v.([]byte)
	if !ok {
		return false
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		return false
	}
	want, _ := json.Marshal(map[string]any(j))
	var norm map[string]any
	_ = json.Unmarshal(want, &norm)
	return reflect.DeepEqual(got, norm)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func docRows(id, data string, at time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "data", "created_at", "updated_at"}).
		AddRow(id, []byte(data), at, at)
}

func TestAddGetUpdateDelete(t *testing.T) {
	mock := newMock(t)
	store := New(mock, nil, nil)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("posts", pgxmock.AnyArg(), jsonArg{"content": "hello", "uid": "u1"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Add(ctx, "posts", map[string]any{"content": "hello", "uid": "u1"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}

	now := time.Now()
	mock.ExpectQuery(`SELECT id, data, created_at, updated_at\s+FROM documents WHERE collection = \$1 AND id = \$2`).
		WithArgs("posts", id).
		WillReturnRows(docRows(id, `{"content":"hello","uid":"u1"}`, now))

	doc, err := store.Get(ctx, "posts", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data["content"] != "hello" || !doc.CreateTime.Equal(now) {
		t.Fatalf("unexpected doc: %+v", doc)
	}

	mock.ExpectExec(`UPDATE documents SET data = data \|\| \$3::jsonb`).
		WithArgs("posts", id, jsonArg{"content": "edited"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.Update(ctx, "posts", id, map[string]any{"content": "edited"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs("posts", id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := store.Delete(ctx, "posts", id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddRejectsNonObject(t *testing.T) {
	store := New(newMock(t), nil, nil)
	if _, err := store.Add(context.Background(), "posts", []string{"a"}); err == nil {
		t.Fatalf("expected error for array payload")
	}
}

func TestGetMissing(t *testing.T) {
	mock := newMock(t)
	store := New(mock, nil, nil)

	mock.ExpectQuery(`SELECT id, data`).
		WithArgs("posts", "nope").
		WillReturnRows(pgxmock.NewRows([]string{"id", "data", "created_at", "updated_at"}))

	_, err := store.Get(context.Background(), "posts", "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateMissing(t *testing.T) {
	mock := newMock(t)
	store := New(mock, nil, nil)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("posts", "nope", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Update(context.Background(), "posts", "nope", map[string]any{"content": "x"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestArrayUnionAndRemove(t *testing.T) {
	mock := newMock(t)
	store := New(mock, nil, nil)
	ctx := context.Background()

	comment := map[string]any{"comment": "hi", "uid": "u2"}
	mock.ExpectExec(`jsonb_array_elements\(\$4::jsonb\) WITH ORDINALITY`).
		WithArgs("posts", "p1", "comments", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.ArrayUnion(ctx, "posts", "p1", "comments", comment); err != nil {
		t.Fatalf("union: %v", err)
	}

	mock.ExpectExec(`WHERE e NOT IN`).
		WithArgs("posts", "p1", "comments", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.ArrayRemove(ctx, "posts", "p1", "comments", comment); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := store.ArrayUnion(ctx, "posts", "p1", "", "x"); err == nil {
		t.Fatalf("expected error for empty field")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryBuild(t *testing.T) {
	q := Query{
		Collection: "notifications",
		Filters:    []Filter{Where("uid", "u1"), ArrayContains("hashTags", "go")},
		OrderBy:    &Order{Field: FieldCreateTime, Desc: true},
		Limit:      20,
	}
	sql, args, err := q.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, part := range []string{
		"collection = $1",
		"data->($2::text) = $3::jsonb",
		"data->($4::text) @> jsonb_build_array($5::jsonb)",
		"ORDER BY created_at DESC, id DESC",
		"LIMIT $6",
	} {
		if !strings.Contains(sql, part) {
			t.Fatalf("expected %q in %s", part, sql)
		}
	}
	if len(args) != 6 || args[1] != "uid" || string(args[2].([]byte)) != `"u1"` || args[5] != 20 {
		t.Fatalf("unexpected args: %v", args)
	}

	byField := Query{Collection: "posts", OrderBy: &Order{Field: "content"}}
	sql, args, err = byField.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sql, "ORDER BY data->($2::text) ASC") || args[1] != "content" {
		t.Fatalf("unexpected order clause: %s %v", sql, args)
	}

	if _, _, err := (Query{}).build(); err == nil {
		t.Fatalf("expected error without collection")
	}
}

func TestQueryRows(t *testing.T) {
	mock := newMock(t)
	store := New(mock, nil, nil)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, data, created_at, updated_at FROM documents WHERE collection = \$1 AND data->`).
		WithArgs("notifications", "uid", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "data", "created_at", "updated_at"}).
			AddRow("n2", []byte(`{"uid":"u1","isRead":false}`), now, now).
			AddRow("n1", []byte(`{"uid":"u1","isRead":true}`), now.Add(-time.Minute), now))

	docs, err := store.Query(context.Background(), Query{
		Collection: "notifications",
		Filters:    []Filter{Where("uid", "u1")},
		OrderBy:    &Order{Field: FieldCreateTime, Desc: true},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "n2" || docs[1].Data["isRead"] != true {
		t.Fatalf("unexpected docs: %+v", docs)
	}

	var n struct {
		UID    string `json:"uid"`
		IsRead bool   `json:"isRead"`
	}
	if err := docs[1].DataTo(&n); err != nil || n.UID != "u1" || !n.IsRead {
		t.Fatalf("decode: %+v %v", n, err)
	}
}

func TestStoreBroadcastsWrites(t *testing.T) {
	mock := newMock(t)
	hub := changefeed.NewHub(nil, nil)
	store := New(mock, hub, nil)

	collection := hub.Register("posts")
	doc := hub.Register("posts/p1")
	defer hub.Unregister(collection)
	defer hub.Unregister(doc)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("posts", "p1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.Update(context.Background(), "posts", "p1", map[string]any{"content": "x"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	for _, c := range []*changefeed.Client{collection, doc} {
		select {
		case <-c.Send:
		case <-time.After(time.Second):
			t.Fatalf("expected notice on %s", c.Topic)
		}
	}
}
