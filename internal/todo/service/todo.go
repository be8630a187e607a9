package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/tasklist/internal/todo/audit"
	"github.com/aussiebroadwan/tasklist/internal/todo/cache"
	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
	"github.com/aussiebroadwan/tasklist/internal/todo/store"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

const resourceTodo = "todo"

// ToDoService composes the cache layer and item store behind the CRUD
// contract the API consumes. The store is the system of record; the cache
// only shortens reads and may be empty or behind at any time. Every
// operation emits exactly one audit event.
type ToDoService struct {
	Store    store.Store
	Cache    cache.Cache
	Audit    *audit.Recorder
	CacheTTL time.Duration

	// Collapses concurrent misses for the same cache key into one store read.
	group singleflight.Group
}

// Get returns the item by id, reading through the cache. A NotFound result
// is never cached, so an id that becomes valid later is not shadowed.
func (s *ToDoService) Get(ctx context.Context, ownerID, id int64) (domain.Item, error) {
	key := cache.ItemKey(ownerID, id)

	if b, ok := s.Cache.Get(ctx, key); ok {
		var item domain.Item
		if err := json.Unmarshal(b, &item); err == nil {
			s.audit(ctx, "get", ownerID, id, "", domain.OutcomeCacheHit, nil)
			return item, nil
		}
		// Corrupt snapshot reads as a miss; drop it so it is not hit again.
		s.Cache.Delete(ctx, key)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		item, err := s.Store.Items().GetItem(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(item); err == nil {
			s.Cache.Set(ctx, key, b, s.CacheTTL)
		}
		return item, nil
	})
	if err != nil {
		s.audit(ctx, "get", ownerID, id, "", outcomeFor(err), err)
		return domain.Item{}, err
	}

	s.audit(ctx, "get", ownerID, id, "", domain.OutcomeSuccess, nil)
	return v.(domain.Item), nil
}

// List returns the owner's items for an optional completion filter. The
// cache key encodes the exact filter, so each variant caches independently.
func (s *ToDoService) List(ctx context.Context, ownerID int64, completed *bool) ([]domain.Item, error) {
	key := cache.ListKey(ownerID, completed)
	filter := filterLabel(completed)

	if b, ok := s.Cache.Get(ctx, key); ok {
		var items []domain.Item
		if err := json.Unmarshal(b, &items); err == nil {
			s.audit(ctx, "list", ownerID, 0, filter, domain.OutcomeCacheHit, nil)
			return items, nil
		}
		s.Cache.Delete(ctx, key)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		items, err := s.Store.Items().ListItems(ctx, ownerID, completed)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(items); err == nil {
			s.Cache.Set(ctx, key, b, s.CacheTTL)
		}
		return items, nil
	})
	if err != nil {
		s.audit(ctx, "list", ownerID, 0, filter, domain.OutcomeError, err)
		return nil, err
	}

	s.audit(ctx, "list", ownerID, 0, filter, domain.OutcomeSuccess, nil)
	return v.([]domain.Item), nil
}

// Create persists a new item, then drops every list-shaped key for the
// owner. There is no single-item key to populate yet: the id is assigned by
// the store, and the commit must land before any cache work.
func (s *ToDoService) Create(ctx context.Context, ownerID int64, title string, completed bool) (domain.Item, error) {
	item, err := s.Store.Items().CreateItem(ctx, ownerID, title, completed)
	if err != nil {
		s.audit(ctx, "create", ownerID, 0, "", domain.OutcomeError, err)
		return domain.Item{}, err
	}

	s.invalidateLists(ctx, ownerID)
	s.audit(ctx, "create", ownerID, item.ID, "", domain.OutcomeSuccess, nil)
	return item, nil
}

// Update applies the non-nil fields of upd, refreshes the single-item key
// with the new snapshot, and drops every list-shaped key for the owner.
func (s *ToDoService) Update(ctx context.Context, ownerID, id int64, upd domain.ItemUpdate) (domain.Item, error) {
	// Fetch-or-fail first so an absent or foreign-owned id is rejected
	// before any write is attempted.
	if _, err := s.Store.Items().GetItem(ctx, ownerID, id); err != nil {
		s.audit(ctx, "update", ownerID, id, "", outcomeFor(err), err)
		return domain.Item{}, err
	}

	item, err := s.Store.Items().UpdateItem(ctx, ownerID, id, upd)
	if err != nil {
		s.audit(ctx, "update", ownerID, id, "", outcomeFor(err), err)
		return domain.Item{}, err
	}

	if b, err := json.Marshal(item); err == nil {
		s.Cache.Set(ctx, cache.ItemKey(ownerID, id), b, s.CacheTTL)
	}
	s.invalidateLists(ctx, ownerID)

	s.audit(ctx, "update", ownerID, id, "", domain.OutcomeSuccess, nil)
	return item, nil
}

// Delete removes the item, evicts its single-item key, and drops every
// list-shaped key for the owner.
func (s *ToDoService) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.Store.Items().GetItem(ctx, ownerID, id); err != nil {
		s.audit(ctx, "delete", ownerID, id, "", outcomeFor(err), err)
		return err
	}

	if err := s.Store.Items().DeleteItem(ctx, ownerID, id); err != nil {
		s.audit(ctx, "delete", ownerID, id, "", outcomeFor(err), err)
		return err
	}

	s.Cache.Delete(ctx, cache.ItemKey(ownerID, id))
	s.invalidateLists(ctx, ownerID)

	s.audit(ctx, "delete", ownerID, id, "", domain.OutcomeSuccess, nil)
	return nil
}

// invalidateLists drops all list variants for the owner, not just the one a
// request touched: a mutated item may newly match a filter that was not in
// this operation's context.
func (s *ToDoService) invalidateLists(ctx context.Context, ownerID int64) {
	s.Cache.Delete(ctx, cache.ListKeys(ownerID)...)
}

func (s *ToDoService) audit(
	ctx context.Context,
	action string,
	ownerID, itemID int64,
	filter, outcome string,
	err error,
) {
	e := domain.Event{
		Action:   action,
		Resource: resourceTodo,
		OwnerID:  ownerID,
		ItemID:   itemID,
		Filter:   filter,
		Outcome:  outcome,
	}
	if err != nil {
		e.Error = err.Error()
	}
	s.Audit.Record(ctx, e)

	if outcome == domain.OutcomeError {
		slogx.FromContext(ctx).Error("todo operation failed",
			"action", action, "owner_id", ownerID, "item_id", itemID, "err", err)
	}
}

func outcomeFor(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return domain.OutcomeNotFound
	}
	return domain.OutcomeError
}

func filterLabel(completed *bool) string {
	switch {
	case completed == nil:
		return "all"
	case *completed:
		return "completed"
	default:
		return "active"
	}
}
