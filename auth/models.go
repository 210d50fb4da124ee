package auth

import "encoding/json"

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type ConfirmSignUpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type ResendCodeRequest struct {
	Email string `json:"email"`
}

// AuthUser is the user identity returned with every token pair.
type AuthUser struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

// AuthResponse is the token pair returned by /auth/login and /auth/refresh.
type AuthResponse struct {
	// AccessToken is the short-lived bearer credential.
	AccessToken string `json:"access_token"`

	// RefreshToken renews the pair via /auth/refresh.
	RefreshToken string `json:"refresh_token"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`

	User AuthUser `json:"user"`
}

type SignUpUser struct {
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

// SignUpResponse reports whether the new user must confirm their email.
// The backend uses either needs_confirmation or confirmation_required.
type SignUpResponse struct {
	Message           string      `json:"message"`
	UserID            *string     `json:"user_id,omitempty"`
	NeedsConfirmation *bool       `json:"needs_confirmation,omitempty"`
	UserConfirmed     *bool       `json:"user_confirmed,omitempty"`
	User              *SignUpUser `json:"user,omitempty"`
}

func (r *SignUpResponse) UnmarshalJSON(data []byte) error {
	type plain SignUpResponse
	var aux struct {
		plain
		ConfirmationRequired *bool `json:"confirmation_required,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = SignUpResponse(aux.plain)
	if r.NeedsConfirmation == nil {
		r.NeedsConfirmation = aux.ConfirmationRequired
	}
	return nil
}

// RequiresConfirmation is true only when the backend explicitly says so.
func (r *SignUpResponse) RequiresConfirmation() bool {
	return r.NeedsConfirmation != nil && *r.NeedsConfirmation
}

type ConfirmResponse struct {
	Message   string `json:"message"`
	Confirmed *bool  `json:"confirmed,omitempty"`
}

type ForgotPasswordResponse struct {
	Message        string  `json:"message"`
	DeliveryMedium *string `json:"delivery_medium,omitempty"`
}

type ResetPasswordResponse struct {
	Message string `json:"message"`
	Success *bool  `json:"success,omitempty"`
}

type ResendCodeResponse struct {
	Message        string  `json:"message"`
	DeliveryMedium *string `json:"delivery_medium,omitempty"`
}
