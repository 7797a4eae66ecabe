package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore_CreateIsUnique(t *testing.T) {
	store := newTestStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := store.Create()
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 100, store.Len())
}

func TestMemorySessionStore_CreateSkipsLiveIDs(t *testing.T) {
	gen := &sequenceGenerator{ids: []string{"same", "same", "other"}}
	store := NewMemorySessionStore(gen, 0)

	assert.Equal(t, "same", store.Create())
	assert.Equal(t, "other", store.Create())
}

func TestMemorySessionStore_AppendAndList(t *testing.T) {
	store := newTestStore()
	id := store.Create()

	require.NoError(t, store.Append(id, []StoredFile{{Filename: "c.png"}, {Filename: "a.png"}}))
	require.NoError(t, store.Append(id, []StoredFile{{Filename: "b.png"}, {Filename: "a.png"}}))

	names, err := store.List(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.png", "a.png", "b.png", "a.png"}, names)

	again, err := store.List(id)
	require.NoError(t, err)
	assert.Equal(t, names, again)
}

func TestMemorySessionStore_UnknownSession(t *testing.T) {
	store := newTestStore()

	_, err := store.List("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, store.Append("missing", []StoredFile{{Filename: "a.png"}}), ErrSessionNotFound)
	assert.ErrorIs(t, store.Clear("missing"), ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete("missing"), ErrSessionNotFound)
}

func TestMemorySessionStore_GetDistinguishesEmpty(t *testing.T) {
	store := newTestStore()
	id := store.Create()

	_, err := store.Get(id)
	assert.ErrorIs(t, err, ErrEmptySession)
	assert.NotErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Append(id, []StoredFile{{Filename: "a.png", Content: []byte("x")}}))
	files, err := store.Get(id)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []byte("x"), files[0].Content)
}

func TestMemorySessionStore_GetReturnsSnapshot(t *testing.T) {
	store := newTestStore()
	id := store.Create()
	require.NoError(t, store.Append(id, []StoredFile{{Filename: "a.png"}}))

	files, err := store.Get(id)
	require.NoError(t, err)
	files[0].Filename = "mutated.png"

	names, err := store.List(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, names)
}

func TestMemorySessionStore_ClearKeepsSession(t *testing.T) {
	store := newTestStore()
	id := store.Create()
	require.NoError(t, store.Append(id, []StoredFile{{Filename: "a.png"}, {Filename: "b.png"}}))

	require.NoError(t, store.Clear(id))

	names, err := store.List(id)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrEmptySession)

	require.NoError(t, store.Append(id, []StoredFile{{Filename: "c.png"}}))
	names, err = store.List(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.png"}, names)
}

func TestMemorySessionStore_Delete(t *testing.T) {
	store := newTestStore()
	id := store.Create()

	require.NoError(t, store.Delete(id))
	assert.Equal(t, 0, store.Len())
	_, err := store.List(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_MaxFiles(t *testing.T) {
	store := NewMemorySessionStore(NewUUIDGenerator(), 2)
	id := store.Create()

	require.NoError(t, store.Append(id, []StoredFile{{Filename: "a.png"}}))
	err := store.Append(id, []StoredFile{{Filename: "b.png"}, {Filename: "c.png"}})
	assert.ErrorIs(t, err, ErrTooManyFiles)

	names, err := store.List(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, names, "rejected append must not be partially applied")
}

func TestMemorySessionStore_Expire(t *testing.T) {
	store := newTestStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	stale := store.Create()
	now = now.Add(30 * time.Minute)
	fresh := store.Create()
	now = now.Add(45 * time.Minute)

	assert.Equal(t, 0, store.Expire(0), "non-positive ttl never expires")
	assert.Equal(t, 1, store.Expire(time.Hour))

	_, err := store.List(stale)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.List(fresh)
	assert.NoError(t, err)
}

func TestMemorySessionStore_TouchExtendsLifetime(t *testing.T) {
	store := newTestStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	id := store.Create()
	now = now.Add(50 * time.Minute)
	_, err := store.List(id)
	require.NoError(t, err)
	now = now.Add(50 * time.Minute)

	assert.Equal(t, 0, store.Expire(time.Hour))
}

func TestMemorySessionStore_ConcurrentSessionsIsolated(t *testing.T) {
	store := newTestStore()
	const sessions = 8
	const filesPerSession = 50

	ids := make([]string, sessions)
	for i := range ids {
		ids[i] = store.Create()
	}

	var wg sync.WaitGroup
	for s, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := 0; f < filesPerSession; f++ {
				name := fmt.Sprintf("s%d-f%03d.png", s, f)
				if err := store.Append(id, []StoredFile{{Filename: name}}); err != nil {
					t.Errorf("append failed: %v", err)
					return
				}
				if _, err := store.List(id); err != nil {
					t.Errorf("list failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	for s, id := range ids {
		names, err := store.List(id)
		require.NoError(t, err)
		require.Len(t, names, filesPerSession)
		for f, name := range names {
			assert.Equal(t, fmt.Sprintf("s%d-f%03d.png", s, f), name)
		}
	}
}
