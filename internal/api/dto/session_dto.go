package dto

import "time"

// LoginRequest payload for portal login. Accepts JSON or form encoding.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	ReturnTo string `json:"returnTo" form:"returnTo"`
}

// LoginResponse is returned when login has nowhere to redirect.
type LoginResponse struct {
	User      UserSummary `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}
