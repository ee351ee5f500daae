package domain

import "time"

// Credential holds the bearer token obtained from the authorization code
// exchange. It is persisted all-or-nothing and never mutated in place.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the token lifetime has elapsed.
func (c *Credential) Expired() bool {
	return !time.Now().Before(c.ExpiresAt)
}

// Valid reports whether the credential can authenticate a request now.
func (c *Credential) Valid() bool {
	return c != nil && c.AccessToken != "" && !c.Expired()
}
