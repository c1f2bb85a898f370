package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvtable/internal/render"
)

var (
	// ErrSnippetNotFound is returned when no snippet has the requested ID.
	ErrSnippetNotFound = errors.New("snippet not found")

	// ErrInvalidSnippetID is returned for IDs that are not UUIDs.
	ErrInvalidSnippetID = errors.New("invalid snippet id")
)

// DefaultHistoryLimit bounds MemoryStore when no limit is configured.
const DefaultHistoryLimit = 100

// Snippet is a saved conversion.
type Snippet struct {
	ID        string         `json:"id"`
	Format    render.Format  `json:"format"`
	Options   render.Options `json:"options"`
	Input     string         `json:"input"`
	Markup    string         `json:"markup"`
	Rows      int            `json:"rows"`
	Columns   int            `json:"columns"`
	ClientIP  string         `json:"client_ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SnippetStore persists snippets. List returns newest first.
type SnippetStore interface {
	Save(ctx context.Context, s *Snippet) error
	Get(ctx context.Context, id string) (*Snippet, error)
	List(ctx context.Context, limit int) ([]Snippet, error)
	Delete(ctx context.Context, id string) error
}

// ParseSnippetID validates id and returns it in canonical form.
func ParseSnippetID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidSnippetID, id)
	}
	return parsed, nil
}

// prepareSnippet fills in ID and CreatedAt when unset.
func prepareSnippet(s *Snippet) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	} else {
		parsed, err := ParseSnippetID(s.ID)
		if err != nil {
			return err
		}
		s.ID = parsed.String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

// MemoryStore keeps the most recent snippets in memory. It is used when no
// database is configured; the oldest entry is evicted once the limit is hit.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Snippet // newest first
	limit int
}

// NewMemoryStore creates a store holding at most limit snippets.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryStore{limit: limit}
}

// Save implements SnippetStore.
func (m *MemoryStore) Save(ctx context.Context, s *Snippet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := prepareSnippet(s); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append([]Snippet{*s}, m.items...)
	if len(m.items) > m.limit {
		m.items = m.items[:m.limit]
	}
	return nil
}

// Get implements SnippetStore.
func (m *MemoryStore) Get(_ context.Context, id string) (*Snippet, error) {
	parsed, err := ParseSnippetID(id)
	if err != nil {
		return nil, err
	}
	key := parsed.String()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.items {
		if m.items[i].ID == key {
			s := m.items[i]
			return &s, nil
		}
	}
	return nil, ErrSnippetNotFound
}

// List implements SnippetStore. A non-positive limit returns everything.
func (m *MemoryStore) List(_ context.Context, limit int) ([]Snippet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Snippet, n)
	copy(out, m.items[:n])
	return out, nil
}

// Delete implements SnippetStore.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	parsed, err := ParseSnippetID(id)
	if err != nil {
		return err
	}
	key := parsed.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].ID == key {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrSnippetNotFound
}

// Len returns the number of stored snippets.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
