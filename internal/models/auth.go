package models

import "time"

// Session is the signed-in identity mirrored to local storage under authUser.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Subject   string    `json:"sub,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsExpired reports whether the token's own exp claim has passed. A session
// without a known expiry is never considered expired locally.
func (s *Session) IsExpired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}
