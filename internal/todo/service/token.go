package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
)

// ErrInvalidToken covers every token rejection: bad signature, malformed
// string, or current time outside the [nbf, exp] window. Callers get no
// further detail.
var ErrInvalidToken = errors.New("invalid_token")

var hmacMethods = []string{"HS256", "HS384", "HS512"}

// TokenService mints and validates the bearer tokens. Tokens are stateless:
// once issued they are never tracked server-side, so validity is purely a
// function of signature and expiry. There is no revocation.
type TokenService struct {
	Secret    []byte
	Algorithm string // one of HS256, HS384, HS512
	TTL       time.Duration
}

// userClaims embeds a snapshot of the user's public fields alongside the
// registered claims, so validation never needs a store round-trip. The
// snapshot may be stale relative to concurrent profile changes; that is the
// accepted price of statelessness.
type userClaims struct {
	User domain.PublicUser `json:"user"`
	jwt.RegisteredClaims
}

// Issue signs a token for user valid from now until now+TTL.
func (s *TokenService) Issue(user domain.User) (domain.Token, error) {
	method := jwt.GetSigningMethod(s.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return domain.Token{}, errors.New("unsupported signing algorithm: " + s.Algorithm)
	}

	now := time.Now()
	claims := userClaims{
		User: user.Public(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	}

	signed, err := jwt.NewWithClaims(method, claims).SignedString(s.Secret)
	if err != nil {
		return domain.Token{}, err
	}

	return domain.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.TTL.Seconds()),
	}, nil
}

// Validate checks the signature and validity window and returns the user
// snapshot embedded at issue time.
func (s *TokenService) Validate(raw string) (domain.PublicUser, error) {
	var claims userClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods(hmacMethods))
	if err != nil {
		return domain.PublicUser{}, ErrInvalidToken
	}
	if claims.User.ID == 0 {
		return domain.PublicUser{}, ErrInvalidToken
	}
	return claims.User, nil
}
