package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/waldur"
)

// fakeIdentityProvider simulates the Keycloak endpoints the device flow
// touches: discovery, device authorization, and the token endpoint. The
// authorized flag controls whether the token endpoint reports a pending
// authorization (400) or issues a token.
type fakeIdentityProvider struct {
	srv        *httptest.Server
	authorized atomic.Bool
}

func newFakeIdentityProvider(t *testing.T) *fakeIdentityProvider {
	t.Helper()
	idp := &fakeIdentityProvider{}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"device_authorization_endpoint":"%s/device","token_endpoint":"%s/token"}`,
			idp.srv.URL, idp.srv.URL)
	})
	mux.HandleFunc("/device", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"device_code":"dev-123","user_code":"ABCD-EFGH",`+
			`"verification_uri":"%s/verify","expires_in":600,"interval":5}`, idp.srv.URL)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", r.Form.Get("grant_type"))
		assert.Equal(t, "dev-123", r.Form.Get("device_code"))

		if !idp.authorized.Load() {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"authorization_pending"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"oidc-token","token_type":"Bearer"}`)
	})

	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

func newTestAuthenticator(t *testing.T, idp *fakeIdentityProvider, userAccess string) *Authenticator {
	t.Helper()

	waldurSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/openportal/get_API_token/", r.URL.Path)
		assert.Equal(t, "Bearer oidc-token", r.Header.Get("Authorization"))
		fmt.Fprintf(w, `{"token":"waldur-token","user_access":"%s","user_email":"nd@example.com"}`, userAccess)
	}))
	t.Cleanup(waldurSrv.Close)

	return NewAuthenticator(Config{
		ClientID:     "homeport-public",
		DiscoveryURL: idp.srv.URL + "/.well-known/openid-configuration",
		VerifySSL:    true,
	}, waldur.NewClient(waldurSrv.URL+"/api/", true))
}

func TestAuthorize_PromptsBeforeUserConfirms(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	a := newTestAuthenticator(t, idp, "staff")

	outcome, err := a.Authorize(context.Background(), "no")
	require.NoError(t, err)
	assert.True(t, outcome.PromptAuthorization)
	assert.Equal(t, idp.srv.URL+"/verify", outcome.VerificationURI)
	assert.Equal(t, "ABCD-EFGH", outcome.UserCode)
}

func TestAuthorize_RetryWhilePending(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	a := newTestAuthenticator(t, idp, "staff")

	_, err := a.Authorize(context.Background(), "no")
	require.NoError(t, err)

	// The user claims "yes" but has not finished the browser step.
	outcome, err := a.Authorize(context.Background(), "yes")
	require.NoError(t, err)
	assert.True(t, outcome.PromptRetry)
	assert.Equal(t, "ABCD-EFGH", outcome.UserCode)
}

func TestAuthorize_StaffSuccess(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	a := newTestAuthenticator(t, idp, "staff")

	_, err := a.Authorize(context.Background(), "no")
	require.NoError(t, err)

	idp.authorized.Store(true)
	outcome, err := a.Authorize(context.Background(), "yes")
	require.NoError(t, err)
	assert.Equal(t,
		"Successfully authorised! You are a staff user. Token waldur-token and Email nd@example.com.",
		outcome.Message)
}

func TestAuthorize_ReadOnlySuccess(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	a := newTestAuthenticator(t, idp, "read-only")

	_, err := a.Authorize(context.Background(), "no")
	require.NoError(t, err)

	idp.authorized.Store(true)
	outcome, err := a.Authorize(context.Background(), "yes")
	require.NoError(t, err)
	assert.Equal(t,
		"Successfully authorised! But you have read-only access. Token waldur-token and Email nd@example.com.",
		outcome.Message)
}

func TestAuthorize_InvalidTokenAtExchange(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	idp.authorized.Store(true)

	waldurSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(waldurSrv.Close)

	a := NewAuthenticator(Config{
		ClientID:     "homeport-public",
		DiscoveryURL: idp.srv.URL + "/.well-known/openid-configuration",
		VerifySSL:    true,
	}, waldur.NewClient(waldurSrv.URL+"/api/", true))

	outcome, err := a.Authorize(context.Background(), "yes")
	require.NoError(t, err)
	assert.Equal(t, "Invalid token.", outcome.Message)
}

func TestAuthorize_SessionReusedAcrossPrompts(t *testing.T) {
	t.Parallel()

	idp := newFakeIdentityProvider(t)
	a := newTestAuthenticator(t, idp, "staff")

	first, err := a.Authorize(context.Background(), "no")
	require.NoError(t, err)
	second, err := a.Authorize(context.Background(), "no")
	require.NoError(t, err)
	assert.Equal(t, first.UserCode, second.UserCode)
}

func TestResolveEndpoints_MissingConfiguration(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator(Config{ClientID: "homeport-public", VerifySSL: true}, nil)
	_, err := a.Authorize(context.Background(), "no")
	assert.Error(t, err)
}
