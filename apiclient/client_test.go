package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-saverr/apiclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type echoResponse struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Query  string            `json:"query"`
	Body   map[string]string `json:"body"`
	Auth   string            `json:"auth"`
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := echoResponse{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				_ = json.Unmarshal(data, &resp.Body)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func errorServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/path", "://missing-scheme"} {
		_, err := apiclient.New(raw)
		require.ErrorIs(t, err, apiclient.ErrInvalidURL, raw)
		require.Equal(t, "Invalid API configuration", apiclient.Message(err))
	}
}

func TestDo_BuildsRequest(t *testing.T) {
	srv := echoServer(t)
	c, err := apiclient.New(srv.URL + "/dev/")
	require.NoError(t, err)

	var out echoResponse
	err = c.Do(context.Background(), apiclient.Request{
		Op:     "test",
		Method: http.MethodPost,
		Path:   "/auth/login",
		Query:  url.Values{"start_date": {"2026-01-01"}},
		Body:   map[string]string{"email": "a@b.com"},
	}, &out)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, out.Method)
	require.Equal(t, "/dev/auth/login", out.Path)
	require.Equal(t, "start_date=2026-01-01", out.Query)
	require.Equal(t, "a@b.com", out.Body["email"])
	require.Empty(t, out.Auth)
}

func TestDo_BearerFromTokenSource(t *testing.T) {
	srv := echoServer(t)
	c, err := apiclient.New(srv.URL, apiclient.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"})))
	require.NoError(t, err)

	var out echoResponse
	require.NoError(t, c.Do(context.Background(), apiclient.Request{Op: "test", Method: http.MethodGet, Path: "/accounts"}, &out))
	require.Equal(t, "Bearer abc", out.Auth)
}

type failingSource struct{ err error }

func (f failingSource) Token() (*oauth2.Token, error) { return nil, f.err }

func TestDo_TokenSourceFailure(t *testing.T) {
	srv := echoServer(t)
	sentinel := errors.New("signed out")
	c, err := apiclient.New(srv.URL, apiclient.WithTokenSource(failingSource{sentinel}))
	require.NoError(t, err)

	err = c.Do(context.Background(), apiclient.Request{Op: "test", Method: http.MethodGet, Path: "/accounts"}, nil)
	require.ErrorIs(t, err, sentinel)
	var tokenErr *apiclient.TokenError
	require.ErrorAs(t, err, &tokenErr)
	require.Equal(t, "Please sign in to continue", apiclient.Message(err))
}

func TestDo_BodyEncodeError(t *testing.T) {
	srv := echoServer(t)
	c, err := apiclient.New(srv.URL)
	require.NoError(t, err)

	err = c.Do(context.Background(), apiclient.Request{Op: "signUp", Method: http.MethodPost, Path: "/auth/signup", Body: map[string]any{"bad": make(chan int)}}, nil)
	require.ErrorContains(t, err, "[Client.Do] encode signUp body")
	var typeErr *json.UnsupportedTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestDo_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    apiclient.Kind
		message string
	}{
		{"flat known code", 400, `{"error":"Bad Request","message":"User is not confirmed.","code":"UserNotConfirmedException"}`, apiclient.KindNotConfirmed, "Please verify your email address"},
		{"flat not authorized", 401, `{"message":"Incorrect username or password.","code":"NotAuthorizedException"}`, apiclient.KindInvalidCredentials, "Invalid email or password"},
		{"flat error_code", 400, `{"error":"x","message":"Item login required","error_code":"ITEM_LOGIN_REQUIRED"}`, apiclient.KindAPI, "Item login required"},
		{"flat unknown code keeps message", 400, `{"message":"Something odd","code":"WeirdException"}`, apiclient.KindAPI, "Something odd"},
		{"flat error string only", 500, `{"error":"Internal failure"}`, apiclient.KindAPI, "Internal failure"},
		{"nested known code", 400, `{"error":{"message":"Code expired","code":"ExpiredCodeException"}}`, apiclient.KindExpiredCode, "Verification code has expired"},
		{"nested verify wording", 403, `{"error":{"message":"Please verify your email address before logging in","code":"Forbidden"}}`, apiclient.KindNotConfirmed, "Please verify your email address"},
		{"nested already exists wording", 409, `{"error":{"message":"User already exists","code":"Conflict"}}`, apiclient.KindAlreadyExists, "An account with this email already exists"},
		{"reset required", 400, `{"message":"reset","code":"PasswordResetRequiredException"}`, apiclient.KindResetRequired, "Password reset is required"},
		{"rate limited", 429, `{"message":"slow down","code":"TooManyRequestsException"}`, apiclient.KindRateLimited, "Too many attempts. Please try again later"},
		{"limit exceeded", 400, `{"message":"slow down","code":"LimitExceededException"}`, apiclient.KindRateLimited, "Too many attempts. Please try again later"},
		{"code mismatch", 400, `{"message":"bad code","code":"CodeMismatchException"}`, apiclient.KindInvalidCode, "Invalid verification code"},
		{"username exists", 400, `{"message":"exists","code":"UsernameExistsException"}`, apiclient.KindAlreadyExists, "An account with this email already exists"},
		{"bare 401", 401, `unauthorized`, apiclient.KindUnauthorized, "Please sign in to continue"},
		{"401 unknown code", 401, `{"error":"Unauthorized","message":"Invalid or expired token"}`, apiclient.KindUnauthorized, "Please sign in to continue"},
		{"unparseable body", 502, `<html>bad gateway</html>`, apiclient.KindServer, "Server error (code: 502)"},
		{"empty json object", 500, `{}`, apiclient.KindServer, "Server error (code: 500)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := apiclient.New(errorServer(t, tt.status, tt.body).URL)
			require.NoError(t, err)

			err = c.Do(context.Background(), apiclient.Request{Op: "test", Method: http.MethodPost, Path: "/x"}, nil)
			require.Error(t, err)
			require.True(t, apiclient.IsKind(err, tt.kind), "got %v", err)
			require.Equal(t, tt.message, apiclient.Message(err))

			var apiErr *apiclient.Error
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestDo_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"accounts": "not-a-list"}`)
	}))
	t.Cleanup(srv.Close)

	c, err := apiclient.New(srv.URL)
	require.NoError(t, err)

	var out struct {
		Accounts []string `json:"accounts"`
	}
	err = c.Do(context.Background(), apiclient.Request{Op: "test", Method: http.MethodGet, Path: "/accounts"}, &out)
	var decodeErr *apiclient.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "Failed to parse server response", apiclient.Message(err))
}

func TestDo_NetworkError(t *testing.T) {
	srv := echoServer(t)
	c, err := apiclient.New(srv.URL)
	require.NoError(t, err)
	srv.Close()

	err = c.Do(context.Background(), apiclient.Request{Op: "test", Method: http.MethodGet, Path: "/accounts"}, nil)
	var networkErr *apiclient.NetworkError
	require.ErrorAs(t, err, &networkErr)
	require.Contains(t, apiclient.Message(err), "Network error")
}

func TestDo_Metrics(t *testing.T) {
	srv := echoServer(t)
	reg := prometheus.NewRegistry()

	first, err := apiclient.New(srv.URL, apiclient.WithMetrics(reg))
	require.NoError(t, err)
	second, err := apiclient.New(srv.URL, apiclient.WithMetrics(reg))
	require.NoError(t, err)

	req := apiclient.Request{Op: "list_accounts", Method: http.MethodGet, Path: "/accounts"}
	require.NoError(t, first.Do(context.Background(), req, nil))
	require.NoError(t, second.Do(context.Background(), req, nil))

	count, err := testutil.GatherAndCount(reg, "saverr_api_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	problems, err := testutil.GatherAndLint(reg)
	require.NoError(t, err)
	require.Empty(t, problems)
}
