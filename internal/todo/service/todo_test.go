package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tasklist/internal/todo/audit"
	"github.com/aussiebroadwan/tasklist/internal/todo/cache"
	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
	"github.com/aussiebroadwan/tasklist/internal/todo/store"
	"github.com/aussiebroadwan/tasklist/internal/todo/store/drivers/sqlite"
)

// newTodoStack wires a real store, cache, and audit recorder around the
// service, the same shape the application assembles at boot.
func newTodoStack(t *testing.T) (*ToDoService, store.Store, *miniredis.Miniredis) {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mr := miniredis.RunT(t)
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := cache.NewRedis(cache.Config{URL: "redis://" + mr.Addr()}, discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	rec, err := audit.NewRecorder(filepath.Join(t.TempDir(), "audit.log"), c, discard, 100)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	return &ToDoService{
		Store:    st,
		Cache:    c,
		Audit:    rec,
		CacheTTL: time.Minute,
	}, st, mr
}

func newOwner(t *testing.T, st store.Store, username string) domain.User {
	t.Helper()
	user, err := st.Users().CreateUser(context.Background(), username+"@example.com", username, "hash")
	require.NoError(t, err)
	return user
}

func TestToDoService_CreateGetRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, mr := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	item, err := svc.Create(ctx, owner.ID, "buy milk", false)
	require.NoError(t, err)
	require.Positive(t, item.ID)

	got, err := svc.Get(ctx, owner.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, item.ID, got.ID)
	require.Equal(t, "buy milk", got.Title)

	// The read-through populated the single-item key.
	require.True(t, mr.Exists(cache.ItemKey(owner.ID, item.ID)))
}

func TestToDoService_GetServesFromCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, _ := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	item, err := svc.Create(ctx, owner.ID, "cached", false)
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner.ID, item.ID) // populate
	require.NoError(t, err)

	// Remove the row behind the cache's back; the snapshot must still serve.
	require.NoError(t, st.Items().DeleteItem(ctx, owner.ID, item.ID))

	got, err := svc.Get(ctx, owner.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, "cached", got.Title)
}

func TestToDoService_NotFoundIsNeverCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, mr := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	_, err := svc.Get(ctx, owner.ID, 12345)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.False(t, mr.Exists(cache.ItemKey(owner.ID, 12345)))

	// The id becoming valid later must not be shadowed by a stale miss.
	item, err := st.Items().CreateItem(ctx, owner.ID, "late arrival", false)
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, "late arrival", got.Title)
}

func TestToDoService_CorruptCacheEntryFallsThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, mr := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	item, err := svc.Create(ctx, owner.ID, "real title", false)
	require.NoError(t, err)

	key := cache.ItemKey(owner.ID, item.ID)
	require.NoError(t, mr.Set(key, "{not json"))

	got, err := svc.Get(ctx, owner.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, "real title", got.Title, "corrupt snapshot must read as a miss")

	// And the fresh snapshot replaced the corrupt one.
	raw, err := mr.Get(key)
	require.NoError(t, err)
	var cached domain.Item
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	require.Equal(t, item.ID, cached.ID)
}

func TestToDoService_ListFiltersCacheIndependently(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, mr := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	_, err := svc.Create(ctx, owner.ID, "done", true)
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner.ID, "pending", false)
	require.NoError(t, err)

	all, err := svc.List(ctx, owner.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	done := true
	completed, err := svc.List(ctx, owner.ID, &done)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.Equal(t, "done", completed[0].Title)

	require.True(t, mr.Exists(cache.ListKey(owner.ID, nil)))
	require.True(t, mr.Exists(cache.ListKey(owner.ID, &done)))
}

func TestToDoService_CreateInvalidatesAllListVariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, mr := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	_, err := svc.Create(ctx, owner.ID, "first", false)
	require.NoError(t, err)

	// Warm every list variant.
	done := true
	_, err = svc.List(ctx, owner.ID, nil)
	require.NoError(t, err)
	_, err = svc.List(ctx, owner.ID, &done)
	require.NoError(t, err)

	_, err = svc.Create(ctx, owner.ID, "second", true)
	require.NoError(t, err)

	for _, key := range cache.ListKeys(owner.ID) {
		require.False(t, mr.Exists(key), "list key %q should be dropped", key)
	}

	// A fresh list sees the new item, not a stale snapshot.
	items, err := svc.List(ctx, owner.ID, &done)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "second", items[0].Title)
}

func TestToDoService_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, mr := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	item, err := svc.Create(ctx, owner.ID, "original", false)
	require.NoError(t, err)

	_, err = svc.List(ctx, owner.ID, nil) // warm a list key
	require.NoError(t, err)

	done := true
	updated, err := svc.Update(ctx, owner.ID, item.ID, domain.ItemUpdate{Completed: &done})
	require.NoError(t, err)
	require.True(t, updated.Completed)
	require.Equal(t, "original", updated.Title, "absent fields stay untouched")

	// The single-item key holds the fresh snapshot.
	raw, err := mr.Get(cache.ItemKey(owner.ID, item.ID))
	require.NoError(t, err)
	var cached domain.Item
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	require.True(t, cached.Completed)

	// And every list variant was dropped.
	for _, key := range cache.ListKeys(owner.ID) {
		require.False(t, mr.Exists(key))
	}
}

func TestToDoService_UpdateUnknownItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, _ := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	title := "new"
	_, err := svc.Update(ctx, owner.ID, 999, domain.ItemUpdate{Title: &title})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestToDoService_DeleteEvictsCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, mr := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	item, err := svc.Create(ctx, owner.ID, "doomed", false)
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner.ID, item.ID) // warm the item key
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner.ID, item.ID))
	require.False(t, mr.Exists(cache.ItemKey(owner.ID, item.ID)))

	_, err = svc.Get(ctx, owner.ID, item.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, owner.ID, item.ID), store.ErrNotFound)
}

func TestToDoService_OwnershipIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, _ := newTodoStack(t)
	alice := newOwner(t, st, "alice")
	mallory := newOwner(t, st, "mallory")

	item, err := svc.Create(ctx, alice.ID, "private", false)
	require.NoError(t, err)

	_, err = svc.Get(ctx, mallory.ID, item.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	done := true
	_, err = svc.Update(ctx, mallory.ID, item.ID, domain.ItemUpdate{Completed: &done})
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, mallory.ID, item.ID), store.ErrNotFound)

	items, err := svc.List(ctx, mallory.ID, nil)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestToDoService_SurvivesCacheOutage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, mr := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	mr.SetError("backend down")

	item, err := svc.Create(ctx, owner.ID, "resilient", false)
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, "resilient", got.Title)

	items, err := svc.List(ctx, owner.ID, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestToDoService_AuditTrail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, mr := newTodoStack(t)
	owner := newOwner(t, st, "alice")

	item, err := svc.Create(ctx, owner.ID, "tracked", false)
	require.NoError(t, err)
	_, err = svc.Get(ctx, owner.ID, item.ID) // store read
	require.NoError(t, err)
	_, err = svc.Get(ctx, owner.ID, item.ID) // cache hit
	require.NoError(t, err)
	_, err = svc.Get(ctx, owner.ID, 999) // not found
	require.ErrorIs(t, err, store.ErrNotFound)

	entries, err := mr.List(audit.RecentKey)
	require.NoError(t, err)
	require.Len(t, entries, 4, "exactly one event per operation")

	outcomes := make([]string, 0, len(entries))
	for _, raw := range entries {
		var e domain.Event
		require.NoError(t, json.Unmarshal([]byte(raw), &e))
		require.Equal(t, "todo", e.Resource)
		require.Equal(t, owner.ID, e.OwnerID)
		outcomes = append(outcomes, e.Outcome)
	}

	// Ring is most recent first.
	require.Equal(t, []string{
		domain.OutcomeNotFound,
		domain.OutcomeCacheHit,
		domain.OutcomeSuccess,
		domain.OutcomeSuccess,
	}, outcomes)
}
