package apifakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-saverr/auth"
)

var _ auth.API = (*FakeAPI)(nil)

// FakeAPI answers with the configured funcs and counts calls per method.
// A nil func answers with a zero-value response and no error.
type FakeAPI struct {
	SignUpFunc         func(email, password, name string) (*auth.SignUpResponse, error)
	ConfirmSignUpFunc  func(email, code string) (*auth.ConfirmResponse, error)
	LoginFunc          func(email, password string) (*auth.AuthResponse, error)
	RefreshTokenFunc   func(refreshToken string) (*auth.AuthResponse, error)
	ForgotPasswordFunc func(email string) (*auth.ForgotPasswordResponse, error)
	ResetPasswordFunc  func(email, code, newPassword string) (*auth.ResetPasswordResponse, error)
	ResendCodeFunc     func(email string) (*auth.ResendCodeResponse, error)

	lock  sync.Mutex
	calls map[string]int
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{calls: make(map[string]int)}
}

// Calls returns how many times method was invoked.
func (f *FakeAPI) Calls(method string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[method]
}

// TotalCalls is the number of network calls made through the fake.
func (f *FakeAPI) TotalCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *FakeAPI) record(method string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[method]++
}

func (f *FakeAPI) SignUp(_ context.Context, email, password, name string) (*auth.SignUpResponse, error) {
	f.record("SignUp")
	if f.SignUpFunc == nil {
		return &auth.SignUpResponse{}, nil
	}
	return f.SignUpFunc(email, password, name)
}

func (f *FakeAPI) ConfirmSignUp(_ context.Context, email, code string) (*auth.ConfirmResponse, error) {
	f.record("ConfirmSignUp")
	if f.ConfirmSignUpFunc == nil {
		return &auth.ConfirmResponse{}, nil
	}
	return f.ConfirmSignUpFunc(email, code)
}

func (f *FakeAPI) Login(_ context.Context, email, password string) (*auth.AuthResponse, error) {
	f.record("Login")
	if f.LoginFunc == nil {
		return &auth.AuthResponse{}, nil
	}
	return f.LoginFunc(email, password)
}

func (f *FakeAPI) RefreshToken(_ context.Context, refreshToken string) (*auth.AuthResponse, error) {
	f.record("RefreshToken")
	if f.RefreshTokenFunc == nil {
		return &auth.AuthResponse{}, nil
	}
	return f.RefreshTokenFunc(refreshToken)
}

func (f *FakeAPI) ForgotPassword(_ context.Context, email string) (*auth.ForgotPasswordResponse, error) {
	f.record("ForgotPassword")
	if f.ForgotPasswordFunc == nil {
		return &auth.ForgotPasswordResponse{}, nil
	}
	return f.ForgotPasswordFunc(email)
}

func (f *FakeAPI) ResetPassword(_ context.Context, email, code, newPassword string) (*auth.ResetPasswordResponse, error) {
	f.record("ResetPassword")
	if f.ResetPasswordFunc == nil {
		return &auth.ResetPasswordResponse{}, nil
	}
	return f.ResetPasswordFunc(email, code, newPassword)
}

func (f *FakeAPI) ResendCode(_ context.Context, email string) (*auth.ResendCodeResponse, error) {
	f.record("ResendCode")
	if f.ResendCodeFunc == nil {
		return &auth.ResendCodeResponse{}, nil
	}
	return f.ResendCodeFunc(email)
}
