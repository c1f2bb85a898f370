package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvtable/internal/render"
)

// fakeRow copies values into Scan destinations by position.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

type fakeRows struct {
	pgx.Rows
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	return fakeRow{values: r.data[r.pos-1]}.Scan(dest...)
}

func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     { r.closed = true }

type fakeDB struct {
	sql  []string
	args [][]any

	tag      pgconn.CommandTag
	execErr  error
	row      fakeRow
	rows     *fakeRows
	queryErr error
}

func (f *fakeDB) record(sql string, args []any) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.record(sql, args)
	return f.tag, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.record(sql, args)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.record(sql, args)
	return f.row
}

func snippetRow(id uuid.UUID, markup string, at time.Time) []any {
	return []any{
		pgtype.UUID{Bytes: id, Valid: true},
		"block",
		[]byte(`{"hasHeader":true,"hasStripes":true}`),
		"a,b",
		markup,
		int32(1),
		int32(2),
		pgtype.Text{String: "10.0.0.1", Valid: true},
		pgtype.Text{},
		pgtype.Timestamptz{Time: at, Valid: true},
	}
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewPostgresStore(db).EnsureSchema(context.Background()))
	require.Len(t, db.sql, 1)
	assert.Contains(t, db.sql[0], "CREATE TABLE IF NOT EXISTS snippets")

	db.execErr = errors.New("permission denied")
	err := NewPostgresStore(db).EnsureSchema(context.Background())
	assert.ErrorContains(t, err, "create snippets schema")
}

func TestPostgresStore_Save(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	store := NewPostgresStore(db)

	s := &Snippet{
		Format:   render.FormatBlock,
		Options:  render.Options{HasHeader: true},
		Input:    "a,b",
		Markup:   "<!-- wp:table -->",
		Rows:     1,
		Columns:  2,
		ClientIP: "10.0.0.1",
	}
	require.NoError(t, store.Save(context.Background(), s))

	require.Len(t, db.args, 1)
	args := db.args[0]
	require.Len(t, args, 10)
	assert.Equal(t, toPgUUID(s.ID), args[0])
	assert.Equal(t, "block", args[1])
	assert.JSONEq(t, `{"hasHeader":true}`, string(args[2].([]byte)))
	assert.Equal(t, int32(2), args[6])
	assert.Equal(t, pgtype.Text{String: "10.0.0.1", Valid: true}, args[7])
	assert.Equal(t, pgtype.Text{}, args[8])
	assert.True(t, strings.HasPrefix(db.sql[0], "INSERT INTO snippets"))
}

func TestPostgresStore_Get(t *testing.T) {
	id := uuid.New()
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &fakeDB{row: fakeRow{values: snippetRow(id, "<table/>", at)}}

	got, err := NewPostgresStore(db).Get(context.Background(), id.String())
	require.NoError(t, err)

	assert.Equal(t, &Snippet{
		ID:        id.String(),
		Format:    render.FormatBlock,
		Options:   render.Options{HasHeader: true, HasStripes: true},
		Input:     "a,b",
		Markup:    "<table/>",
		Rows:      1,
		Columns:   2,
		ClientIP:  "10.0.0.1",
		CreatedAt: at,
	}, got)
}

func TestPostgresStore_GetErrors(t *testing.T) {
	store := NewPostgresStore(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})
	_, err := store.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrSnippetNotFound)

	_, err = store.Get(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrInvalidSnippetID)

	store = NewPostgresStore(&fakeDB{row: fakeRow{err: errors.New("connection reset")}})
	_, err = store.Get(context.Background(), uuid.NewString())
	assert.ErrorContains(t, err, "get snippet")
}

func TestPostgresStore_List(t *testing.T) {
	at := time.Now().UTC()
	rows := &fakeRows{data: [][]any{
		snippetRow(uuid.New(), "first", at),
		snippetRow(uuid.New(), "second", at.Add(-time.Minute)),
	}}
	db := &fakeDB{rows: rows}

	list, err := NewPostgresStore(db).List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Markup)
	assert.True(t, rows.closed)
	assert.Equal(t, pgtype.Int4{Int32: 5, Valid: true}, db.args[0][0])

	db = &fakeDB{rows: &fakeRows{}}
	_, err = NewPostgresStore(db).List(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, pgtype.Int4{}, db.args[0][0])
}

func TestPostgresStore_ListErrors(t *testing.T) {
	_, err := NewPostgresStore(&fakeDB{queryErr: errors.New("down")}).List(context.Background(), 1)
	assert.ErrorContains(t, err, "list snippets")

	_, err = NewPostgresStore(&fakeDB{rows: &fakeRows{err: errors.New("broken pipe")}}).List(context.Background(), 1)
	assert.ErrorContains(t, err, "broken pipe")
}

func TestPostgresStore_Delete(t *testing.T) {
	id := uuid.NewString()

	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 1")}
	require.NoError(t, NewPostgresStore(db).Delete(context.Background(), id))

	db = &fakeDB{tag: pgconn.NewCommandTag("DELETE 0")}
	assert.ErrorIs(t, NewPostgresStore(db).Delete(context.Background(), id), ErrSnippetNotFound)

	assert.ErrorIs(t, NewPostgresStore(db).Delete(context.Background(), "x"), ErrInvalidSnippetID)
}
