package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/csvtable/internal/render"
)

// DBTX is the subset of *pgxpool.Pool used by PostgresStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const snippetSchema = `
CREATE TABLE IF NOT EXISTS snippets (
	id           UUID PRIMARY KEY,
	format       TEXT NOT NULL,
	options      JSONB NOT NULL DEFAULT '{}',
	input        TEXT NOT NULL,
	markup       TEXT NOT NULL,
	row_count    INTEGER NOT NULL,
	column_count INTEGER NOT NULL,
	client_ip    TEXT,
	user_agent   TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS snippets_created_at_idx ON snippets (created_at DESC);`

const snippetColumns = `id, format, options, input, markup, row_count, column_count, client_ip, user_agent, created_at`

// PostgresStore keeps snippets in the snippets table.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore wraps db, normally a *pgxpool.Pool.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the snippets table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, snippetSchema); err != nil {
		return fmt.Errorf("create snippets schema: %w", err)
	}
	return nil
}

// Save implements SnippetStore.
func (p *PostgresStore) Save(ctx context.Context, s *Snippet) error {
	if err := prepareSnippet(s); err != nil {
		return err
	}

	opts, err := json.Marshal(s.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}

	_, err = p.db.Exec(ctx,
		`INSERT INTO snippets (`+snippetColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		toPgUUID(s.ID),
		string(s.Format),
		opts,
		s.Input,
		s.Markup,
		int32(s.Rows),
		int32(s.Columns),
		toPgText(s.ClientIP),
		toPgText(s.UserAgent),
		pgtype.Timestamptz{Time: s.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert snippet: %w", err)
	}
	return nil
}

// Get implements SnippetStore.
func (p *PostgresStore) Get(ctx context.Context, id string) (*Snippet, error) {
	parsed, err := ParseSnippetID(id)
	if err != nil {
		return nil, err
	}

	row := p.db.QueryRow(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = $1`,
		pgtype.UUID{Bytes: parsed, Valid: true},
	)
	s, err := scanSnippet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSnippetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snippet: %w", err)
	}
	return s, nil
}

// List implements SnippetStore. A non-positive limit returns everything.
func (p *PostgresStore) List(ctx context.Context, limit int) ([]Snippet, error) {
	var limitArg pgtype.Int4
	if limit > 0 {
		limitArg = pgtype.Int4{Int32: int32(limit), Valid: true}
	}

	rows, err := p.db.Query(ctx,
		`SELECT `+snippetColumns+` FROM snippets ORDER BY created_at DESC LIMIT $1`,
		limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	defer rows.Close()

	var out []Snippet
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	return out, nil
}

// Delete implements SnippetStore.
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	parsed, err := ParseSnippetID(id)
	if err != nil {
		return err
	}

	tag, err := p.db.Exec(ctx, `DELETE FROM snippets WHERE id = $1`, pgtype.UUID{Bytes: parsed, Valid: true})
	if err != nil {
		return fmt.Errorf("delete snippet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnippetNotFound
	}
	return nil
}

// scanSnippet reads one row in snippetColumns order.
func scanSnippet(row pgx.Row) (*Snippet, error) {
	var (
		id        pgtype.UUID
		format    string
		options   []byte
		input     string
		markup    string
		rowCount  int32
		colCount  int32
		clientIP  pgtype.Text
		userAgent pgtype.Text
		createdAt pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &format, &options, &input, &markup,
		&rowCount, &colCount, &clientIP, &userAgent, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	s := &Snippet{
		ID:        uuidToString(id),
		Format:    render.Format(format),
		Input:     input,
		Markup:    markup,
		Rows:      int(rowCount),
		Columns:   int(colCount),
		CreatedAt: createdAt.Time,
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &s.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	if clientIP.Valid {
		s.ClientIP = clientIP.String
	}
	if userAgent.Valid {
		s.UserAgent = userAgent.String
	}
	return s, nil
}

func toPgUUID(s string) pgtype.UUID {
	parsed, err := ParseSnippetID(s)
	if err != nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
