package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
	"github.com/aussiebroadwan/tasklist/internal/todo/store"
)

type itemsRepo struct {
	q querier
}

func (r *itemsRepo) CreateItem(
	ctx context.Context,
	ownerID int64,
	title string,
	completed bool,
) (domain.Item, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO items (user_id, title, completed, created_at) VALUES (?, ?, ?, ?)`,
		ownerID, title, completed, now,
	)
	if err != nil {
		return domain.Item{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Item{}, err
	}
	return domain.Item{
		ID:        id,
		UserID:    ownerID,
		Title:     title,
		Completed: completed,
		CreatedAt: now,
	}, nil
}

func (r *itemsRepo) GetItem(ctx context.Context, ownerID, id int64) (domain.Item, error) {
	// Ownership lives in the WHERE clause: a foreign-owned row is
	// indistinguishable from an absent one.
	row := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, title, completed, created_at
		 FROM items WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	var it domain.Item
	if err := row.Scan(&it.ID, &it.UserID, &it.Title, &it.Completed, &it.CreatedAt); err != nil {
		return domain.Item{}, mapNotFound(err)
	}
	return it, nil
}

func (r *itemsRepo) ListItems(
	ctx context.Context,
	ownerID int64,
	completed *bool,
) ([]domain.Item, error) {
	query := `SELECT id, user_id, title, completed, created_at FROM items WHERE user_id = ?`
	args := []any{ownerID}
	if completed != nil {
		query += ` AND completed = ?`
		args = append(args, *completed)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.UserID, &it.Title, &it.Completed, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *itemsRepo) UpdateItem(
	ctx context.Context,
	ownerID, id int64,
	upd domain.ItemUpdate,
) (domain.Item, error) {
	if !upd.IsEmpty() {
		query := `UPDATE items SET `
		args := []any{}
		if upd.Title != nil {
			query += `title = ?`
			args = append(args, *upd.Title)
		}
		if upd.Completed != nil {
			if upd.Title != nil {
				query += `, `
			}
			query += `completed = ?`
			args = append(args, *upd.Completed)
		}
		query += ` WHERE id = ? AND user_id = ?`
		args = append(args, id, ownerID)

		res, err := r.q.ExecContext(ctx, query, args...)
		if err != nil {
			return domain.Item{}, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return domain.Item{}, err
		}
		if n == 0 {
			return domain.Item{}, store.ErrNotFound
		}
	}
	return r.GetItem(ctx, ownerID, id)
}

func (r *itemsRepo) DeleteItem(ctx context.Context, ownerID, id int64) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM items WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
