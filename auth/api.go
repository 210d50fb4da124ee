package auth

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-saverr/apiclient"
	"github.com/pkg/errors"
)

// Endpoint paths of the authentication API. None of them take a bearer token.
const (
	RouteSignUp         = "/auth/signup"
	RouteConfirm        = "/auth/confirm"
	RouteLogin          = "/auth/login"
	RouteRefresh        = "/auth/refresh"
	RouteForgotPassword = "/auth/forgot-password"
	RouteResetPassword  = "/auth/reset-password"
	RouteResendCode     = "/auth/resend-code"
)

// API is the authentication backend consumed by the session manager.
type API interface {
	SignUp(ctx context.Context, email, password, name string) (*SignUpResponse, error)
	ConfirmSignUp(ctx context.Context, email, code string) (*ConfirmResponse, error)
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) (*ResetPasswordResponse, error)
	ResendCode(ctx context.Context, email string) (*ResendCodeResponse, error)
}

var _ API = (*Client)(nil)

// Client implements API over HTTP.
type Client struct {
	api *apiclient.Client
}

func NewClient(api *apiclient.Client) (*Client, error) {
	if api == nil {
		return nil, errors.New("[NewClient] api client is required")
	}
	return &Client{api: api}, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, name string) (*SignUpResponse, error) {
	var resp SignUpResponse
	if err := c.post(ctx, "signup", RouteSignUp, SignUpRequest{Email: email, Password: password, Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) (*ConfirmResponse, error) {
	var resp ConfirmResponse
	if err := c.post(ctx, "confirm", RouteConfirm, ConfirmSignUpRequest{Email: email, Code: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, "login", RouteLogin, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, "refresh", RouteRefresh, RefreshTokenRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	var resp ForgotPasswordResponse
	if err := c.post(ctx, "forgot_password", RouteForgotPassword, ForgotPasswordRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) (*ResetPasswordResponse, error) {
	var resp ResetPasswordResponse
	req := ResetPasswordRequest{Email: email, Code: code, NewPassword: newPassword}
	if err := c.post(ctx, "reset_password", RouteResetPassword, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResendCode(ctx context.Context, email string) (*ResendCodeResponse, error) {
	var resp ResendCodeResponse
	if err := c.post(ctx, "resend_code", RouteResendCode, ResendCodeRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	return c.api.Do(ctx, apiclient.Request{Op: op, Method: http.MethodPost, Path: path, Body: body}, out)
}
