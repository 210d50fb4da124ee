package mockbackend

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-saverr/auth"
	"github.com/jrsteele09/go-saverr/internal/utils"
	"golang.org/x/time/rate"
)

const minPasswordLength = 8

type codePurpose string

const (
	purposeVerify codePurpose = "verify"
	purposeReset  codePurpose = "reset"
)

type codeKey struct {
	email   string
	purpose codePurpose
}

type issuedCode struct {
	Code      string
	ExpiresAt time.Time
}

var (
	errCodeMismatch = errors.New("code mismatch")
	errCodeExpired  = errors.New("code expired")
)

// issueCode stores a fresh six digit code for u. Delivery is a log line.
func (s *Server) issueCode(u *user, purpose codePurpose) {
	code := fmt.Sprintf("%06d", s.rng.IntN(1_000_000))
	s.codes[codeKey{u.Email, purpose}] = issuedCode{Code: code, ExpiresAt: s.now().Add(s.codeTTL)}
	s.logger.Info().Str("user_id", u.ID).Str("purpose", string(purpose)).Str("code", code).Msg("code issued")
}

// redeemCode accepts the issued code or UniversalCode and consumes the issued one.
func (s *Server) redeemCode(u *user, purpose codePurpose, code string) error {
	key := codeKey{u.Email, purpose}
	if code == UniversalCode {
		delete(s.codes, key)
		return nil
	}
	issued, ok := s.codes[key]
	if !ok || issued.Code != code {
		return errCodeMismatch
	}
	if !s.now().Before(issued.ExpiresAt) {
		delete(s.codes, key)
		return errCodeExpired
	}
	delete(s.codes, key)
	return nil
}

func writeCodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errCodeExpired) {
		writeError(w, http.StatusBadRequest, codeExpiredCode, "Invalid code provided, please request a code again.")
		return
	}
	writeError(w, http.StatusBadRequest, codeCodeMismatch, "Invalid verification code provided, please try again.")
}

func (s *Server) loginLimiter(email string) *rate.Limiter {
	key := normalizeEmail(email)
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.loginLimit, s.loginBurst)
		s.limiters[key] = l
	}
	return l
}

func (s *Server) authResponse(u *user) (*auth.AuthResponse, error) {
	access, refresh, err := s.tokens.issue(u)
	if err != nil {
		return nil, err
	}
	resp := &auth.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.accessTTL.Seconds()),
		User:         auth.AuthUser{ID: u.ID, Email: u.Email},
	}
	if u.Name != "" {
		resp.User.Name = utils.Ptr(u.Name)
	}
	return resp, nil
}

func (s *Server) signUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignUpRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, codeInvalidParameter, "Email and password are required")
			return
		}
		if len(req.Password) < minPasswordLength {
			writeError(w, http.StatusBadRequest, codeInvalidParameter, "Password does not conform to policy")
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		u, err := s.createUser(req.Email, req.Password, req.Name)
		if errors.Is(err, errUserExists) {
			writeError(w, http.StatusBadRequest, codeUsernameExists, "User already exists")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("sign up failed")
			writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
			return
		}
		s.issueCode(u, purposeVerify)

		resp := auth.SignUpResponse{
			Message:           "User registered. Check your email for the verification code.",
			UserID:            utils.Ptr(u.ID),
			NeedsConfirmation: utils.Ptr(true),
			UserConfirmed:     utils.Ptr(false),
			User:              &auth.SignUpUser{Email: u.Email},
		}
		if u.Name != "" {
			resp.User.Name = utils.Ptr(u.Name)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) confirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ConfirmSignUpRequest
		if !decodeBody(w, r, &req) {
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		u, err := s.userByEmail(req.Email)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeUserNotFound, "User does not exist.")
			return
		}
		if !u.Confirmed {
			if err := s.redeemCode(u, purposeVerify, req.Code); err != nil {
				writeCodeError(w, err)
				return
			}
			u.Confirmed = true
		}
		writeJSON(w, http.StatusOK, auth.ConfirmResponse{Message: "Email confirmed", Confirmed: utils.Ptr(true)})
	}
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		if !s.loginLimiter(req.Email).AllowN(s.now(), 1) {
			writeError(w, http.StatusTooManyRequests, codeTooManyRequests, "Too many login attempts")
			return
		}

		u, err := s.userByEmail(req.Email)
		if err != nil || !checkPasswordHash(req.Password, u.PasswordHash) {
			writeError(w, http.StatusUnauthorized, codeNotAuthorized, "Incorrect username or password.")
			return
		}
		if !u.Confirmed {
			writeError(w, http.StatusBadRequest, codeUserNotConfirmed, "User is not confirmed.")
			return
		}
		if u.PasswordResetRequired {
			writeError(w, http.StatusBadRequest, codePasswordResetRequired, "Password reset required for the user")
			return
		}

		resp, err := s.authResponse(u)
		if err != nil {
			s.logger.Error().Err(err).Msg("issue tokens failed")
			writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) refreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RefreshTokenRequest
		if !decodeBody(w, r, &req) {
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		userID, err := s.tokens.redeem(req.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeNotAuthorized, "Invalid Refresh Token")
			return
		}
		u, err := s.userByID(userID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeNotAuthorized, "Invalid Refresh Token")
			return
		}

		resp, err := s.authResponse(u)
		if err != nil {
			s.logger.Error().Err(err).Msg("issue tokens failed")
			writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// forgotPasswordHandler answers the same way whether or not the user exists.
func (s *Server) forgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ForgotPasswordRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Email == "" {
			writeError(w, http.StatusBadRequest, codeInvalidParameter, "Email is required")
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		if u, err := s.userByEmail(req.Email); err == nil {
			s.issueCode(u, purposeReset)
		}
		writeJSON(w, http.StatusOK, auth.ForgotPasswordResponse{
			Message:        "If an account exists, a reset code has been sent",
			DeliveryMedium: utils.Ptr("EMAIL"),
		})
	}
}

func (s *Server) resetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ResetPasswordRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if len(req.NewPassword) < minPasswordLength {
			writeError(w, http.StatusBadRequest, codeInvalidParameter, "Password does not conform to policy")
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		u, err := s.userByEmail(req.Email)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeUserNotFound, "User does not exist.")
			return
		}
		if err := s.redeemCode(u, purposeReset, req.Code); err != nil {
			writeCodeError(w, err)
			return
		}
		hash, err := hashPassword(req.NewPassword)
		if err != nil {
			s.logger.Error().Err(err).Msg("hash password failed")
			writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
			return
		}
		u.PasswordHash = hash
		u.PasswordResetRequired = false
		s.tokens.revokeUser(u.ID)

		writeJSON(w, http.StatusOK, auth.ResetPasswordResponse{Message: "Password has been reset", Success: utils.Ptr(true)})
	}
}

func (s *Server) resendCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ResendCodeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		u, err := s.userByEmail(req.Email)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeUserNotFound, "User does not exist.")
			return
		}
		if u.Confirmed {
			writeError(w, http.StatusBadRequest, codeInvalidParameter, "User is already confirmed.")
			return
		}
		s.issueCode(u, purposeVerify)
		writeJSON(w, http.StatusOK, auth.ResendCodeResponse{
			Message:        "Verification code sent",
			DeliveryMedium: utils.Ptr("EMAIL"),
		})
	}
}
