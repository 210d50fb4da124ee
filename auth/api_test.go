package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-saverr/apiclient"
	"github.com/jrsteele09/go-saverr/auth"
	"github.com/jrsteele09/go-saverr/internal/utils"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// setupClient serves canned responses by path and records what the client sent.
func setupClient(t *testing.T, responses map[string]string) (*auth.Client, *[]recordedRequest) {
	t.Helper()
	var recorded []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		_ = json.Unmarshal(data, &rec.Body)
		recorded = append(recorded, rec)

		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	api, err := apiclient.New(srv.URL)
	require.NoError(t, err)
	c, err := auth.NewClient(api)
	require.NoError(t, err)
	return c, &recorded
}

func TestNewClient_RequiresAPI(t *testing.T) {
	_, err := auth.NewClient(nil)
	require.Error(t, err)
}

func TestClient_Login(t *testing.T) {
	c, recorded := setupClient(t, map[string]string{
		auth.RouteLogin: `{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u1","email":"jane@example.com","name":"Jane"}}`,
	})

	resp, err := c.Login(context.Background(), "jane@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "at", resp.AccessToken)
	require.Equal(t, "rt", resp.RefreshToken)
	require.Equal(t, 3600, resp.ExpiresIn)
	require.Equal(t, "Jane", utils.Value(resp.User.Name))

	require.Len(t, *recorded, 1)
	require.Equal(t, http.MethodPost, (*recorded)[0].Method)
	require.Equal(t, "jane@example.com", (*recorded)[0].Body["email"])
	require.Equal(t, "password123", (*recorded)[0].Body["password"])
}

func TestClient_WireFieldNames(t *testing.T) {
	c, recorded := setupClient(t, map[string]string{
		auth.RouteRefresh:       `{"access_token":"at","refresh_token":"rt","expires_in":60,"user":{"id":"u1","email":"a@b.com"}}`,
		auth.RouteResetPassword: `{"message":"ok","success":true}`,
		auth.RouteConfirm:       `{"message":"ok","confirmed":true}`,
	})
	ctx := context.Background()

	_, err := c.RefreshToken(ctx, "rt-old")
	require.NoError(t, err)
	_, err = c.ResetPassword(ctx, "a@b.com", "123456", "newpassword")
	require.NoError(t, err)
	confirm, err := c.ConfirmSignUp(ctx, "a@b.com", "654321")
	require.NoError(t, err)
	require.True(t, utils.Value(confirm.Confirmed))

	require.Equal(t, "rt-old", (*recorded)[0].Body["refresh_token"])
	require.Equal(t, "newpassword", (*recorded)[1].Body["new_password"])
	require.Equal(t, "123456", (*recorded)[1].Body["code"])
	require.Equal(t, "654321", (*recorded)[2].Body["code"])
}

func TestClient_SignUpConfirmationKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"needs_confirmation", `{"message":"ok","needs_confirmation":true}`, true},
		{"confirmation_required", `{"message":"ok","confirmation_required":true}`, true},
		{"explicit false", `{"message":"ok","needs_confirmation":false,"confirmation_required":true}`, false},
		{"absent", `{"message":"ok","user_confirmed":true}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, recorded := setupClient(t, map[string]string{auth.RouteSignUp: tt.body})
			resp, err := c.SignUp(context.Background(), "a@b.com", "password123", "Al")
			require.NoError(t, err)
			require.Equal(t, tt.want, resp.RequiresConfirmation())
			require.Equal(t, "Al", (*recorded)[0].Body["name"])
		})
	}
}

func TestClient_ErrorsAreTyped(t *testing.T) {
	c, _ := setupClient(t, map[string]string{})
	_, err := c.ForgotPassword(context.Background(), "a@b.com")
	require.True(t, apiclient.IsKind(err, apiclient.KindServer))
}

func TestClient_ResendCode(t *testing.T) {
	c, recorded := setupClient(t, map[string]string{
		auth.RouteResendCode: `{"message":"sent","delivery_medium":"EMAIL"}`,
	})
	resp, err := c.ResendCode(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.Equal(t, "EMAIL", utils.Value(resp.DeliveryMedium))
	require.Equal(t, auth.RouteResendCode, (*recorded)[0].Path)
}
