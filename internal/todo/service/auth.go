package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
	"github.com/aussiebroadwan/tasklist/internal/todo/store"
	"github.com/aussiebroadwan/tasklist/pkg/cryptox"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

// ErrInvalidCredentials is returned for both unknown usernames and wrong
// passwords, so callers cannot probe which accounts exist.
var ErrInvalidCredentials = errors.New("invalid_credentials")

// AuthService handles registration and sign-in against the credential store.
type AuthService struct {
	Store  store.Store
	Tokens *TokenService
}

// Register creates a new identity and returns a freshly issued token for it.
// A duplicate email or username surfaces as store.ErrAlreadyExists.
func (s *AuthService) Register(
	ctx context.Context,
	email, username, password string,
) (domain.Token, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Token{}, err
	}

	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().CreateUser(ctx, email, username, hash)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return domain.Token{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", user.ID, "username", user.Username)
	return s.Tokens.Issue(user)
}

// SignIn verifies the credentials and issues a token.
func (s *AuthService) SignIn(
	ctx context.Context,
	username, password string,
) (domain.Token, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Token{}, ErrInvalidCredentials
		}
		return domain.Token{}, err
	}

	if cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		slogx.FromContext(ctx).Info("sign-in rejected", "username", username)
		return domain.Token{}, ErrInvalidCredentials
	}

	return s.Tokens.Issue(user)
}
