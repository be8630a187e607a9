package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and let transactions
// reuse the same method set.
type Store interface {
	Users() Users
	Items() Items

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back if fn returns an
	// error, committed otherwise. Preferred over Tx for multi-step writes.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new identity record and returns it with the
	// store-assigned id. Duplicate email or username -> ErrAlreadyExists.
	CreateUser(ctx context.Context, email, username, passwordHash string) (domain.User, error)

	// GetUserByUsername is used during sign-in. Absent -> ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByID returns a user by id. Absent -> ErrNotFound.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
}

type Items interface {
	// CreateItem inserts a new item for ownerID and returns it with the
	// store-assigned id and creation timestamp.
	CreateItem(ctx context.Context, ownerID int64, title string, completed bool) (domain.Item, error)

	// GetItem returns the item only if it belongs to ownerID; anything else
	// is ErrNotFound. Ownership is enforced in the query, never after.
	GetItem(ctx context.Context, ownerID, id int64) (domain.Item, error)

	// ListItems returns the owner's items, optionally filtered by completion
	// state. Order is not part of the contract.
	ListItems(ctx context.Context, ownerID int64, completed *bool) ([]domain.Item, error)

	// UpdateItem applies the non-nil fields of upd and returns the updated
	// row. Absent or foreign-owned -> ErrNotFound.
	UpdateItem(ctx context.Context, ownerID, id int64, upd domain.ItemUpdate) (domain.Item, error)

	// DeleteItem removes the item. Absent or foreign-owned -> ErrNotFound.
	DeleteItem(ctx context.Context, ownerID, id int64) error
}
