package domain

// User is the identity record owned by the credential store. The password
// hash is an opaque argon2id PHC string and must never leave the service.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
}

// PublicUser is the externally visible slice of a User. It is embedded in
// issued tokens and returned by the identity endpoint.
type PublicUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Public strips the credential fields from a User.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Username: u.Username}
}
