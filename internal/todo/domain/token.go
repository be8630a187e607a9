package domain

// Token is what sign-up and sign-in hand back to the client: a signed,
// self-contained bearer credential. Validity is purely signature + expiry;
// nothing is tracked server-side.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "Bearer"
	ExpiresIn   int64  `json:"expires_in"` // seconds until expiry
}
