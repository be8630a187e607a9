package domain

import "time"

// Item is a single to-do entry scoped to its owning user.
//
// The struct doubles as the cache snapshot shape: plain data only, so it is
// always safe to serialize. CreatedAt is set once by the store.
type Item struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemUpdate carries a partial mutation. Nil fields are left untouched.
type ItemUpdate struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u ItemUpdate) IsEmpty() bool {
	return u.Title == nil && u.Completed == nil
}
