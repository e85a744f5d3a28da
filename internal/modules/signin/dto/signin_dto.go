package dto

import "legalconnect.io/portal/internal/modules/registration/form"

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignInResponse struct {
	Token         string       `json:"token,omitempty"`
	ExpiresAt     int64        `json:"expires_at,omitempty"`
	Redirect      string       `json:"redirect,omitempty"`
	Error         string       `json:"error,omitempty"`
	Notifications []form.Toast `json:"notifications"`
}
