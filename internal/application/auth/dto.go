package auth

import "time"

// LoginInput contains operator credentials
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult contains the issued token pair
type LoginResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	Username              string    `json:"username"`
}

// RefreshTokenInput contains the refresh token to roll over
type RefreshTokenInput struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenResult contains the new token pair
type RefreshTokenResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}
