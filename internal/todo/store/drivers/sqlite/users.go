package sqlite

import (
	"context"

	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
)

type usersRepo struct {
	q querier
}

func (r *usersRepo) CreateUser(
	ctx context.Context,
	email, username, passwordHash string,
) (domain.User, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash) VALUES (?, ?, ?)`,
		email, username, passwordHash,
	)
	if err != nil {
		return domain.User{}, mapConflict(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           id,
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
	}, nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.scanUser(r.q.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash FROM users WHERE username = ?`,
		username,
	))
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return r.scanUser(r.q.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash FROM users WHERE id = ?`,
		id,
	))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *usersRepo) scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}
