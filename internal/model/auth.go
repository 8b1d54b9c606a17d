package model

// LoginRequest carries the credential presented to the token endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the OAuth2-password style response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserWithPermissions is the /me projection: the caller plus their
// effective permission set at the time of the call.
type UserWithPermissions struct {
	Username    string       `json:"username"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Permissions []Permission `json:"permissions"`
}
