package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvtable/internal/render"
)

func TestParseSnippetID(t *testing.T) {
	id := uuid.New()

	got, err := ParseSnippetID(strings.ToUpper(id.String()))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseSnippetID("not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidSnippetID)
}

func TestMemoryStore_SaveAssignsIDAndTime(t *testing.T) {
	store := NewMemoryStore(10)
	s := &Snippet{Format: render.FormatHTML, Markup: "<table></table>"}

	require.NoError(t, store.Save(context.Background(), s))

	_, err := uuid.Parse(s.ID)
	assert.NoError(t, err)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, *s, *got)
}

func TestMemoryStore_SaveRejectsBadID(t *testing.T) {
	store := NewMemoryStore(10)
	err := store.Save(context.Background(), &Snippet{ID: "nope"})
	assert.ErrorIs(t, err, ErrInvalidSnippetID)
	assert.Zero(t, store.Len())
}

func TestMemoryStore_ListNewestFirstAndEvicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	var ids []string
	for i := 0; i < 5; i++ {
		s := &Snippet{Markup: fmt.Sprintf("m%d", i)}
		require.NoError(t, store.Save(ctx, s))
		ids = append(ids, s.ID)
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"m4", "m3", "m2"}, []string{all[0].Markup, all[1].Markup, all[2].Markup})

	_, err = store.Get(ctx, ids[0])
	assert.ErrorIs(t, err, ErrSnippetNotFound)

	two, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestMemoryStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(5)
	require.NoError(t, store.Save(ctx, &Snippet{Markup: "original"}))

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	list[0].Markup = "changed"

	again, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Markup)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(5)
	s := &Snippet{}
	require.NoError(t, store.Save(ctx, s))

	require.NoError(t, store.Delete(ctx, s.ID))
	assert.ErrorIs(t, store.Delete(ctx, s.ID), ErrSnippetNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "bad"), ErrInvalidSnippetID)
	assert.Zero(t, store.Len())
}

func TestMemoryStore_SaveHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemoryStore(5).Save(ctx, &Snippet{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_KeepsProvidedTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Snippet{CreatedAt: at}
	require.NoError(t, NewMemoryStore(1).Save(context.Background(), s))
	assert.Equal(t, at, s.CreatedAt)
}
