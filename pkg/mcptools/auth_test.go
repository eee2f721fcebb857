package mcptools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/auth"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/waldur"
)

// newAuthHandler wires a handler against a fake Keycloak and a fake Waldur
// token exchange endpoint. The returned flag flips the token endpoint from
// "authorization pending" to issuing a token.
func newAuthHandler(t *testing.T) (*Handler, *atomic.Bool) {
	t.Helper()

	var authorized atomic.Bool
	var idpURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"device_authorization_endpoint":"%s/device","token_endpoint":"%s/token"}`, idpURL, idpURL)
	})
	mux.HandleFunc("/device", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"device_code":"dev-123","user_code":"ABCD-EFGH",`+
			`"verification_uri":"%s/verify","expires_in":600,"interval":5}`, idpURL)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		if !authorized.Load() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"access_token":"oidc-token"}`)
	})
	idp := httptest.NewServer(mux)
	t.Cleanup(idp.Close)
	idpURL = idp.URL

	waldurSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"token":"waldur-token","user_access":"staff","user_email":"nd@example.com"}`)
	}))
	t.Cleanup(waldurSrv.Close)

	waldurClient := waldur.NewClient(waldurSrv.URL+"/api/", true)
	authenticator := auth.NewAuthenticator(auth.Config{
		ClientID:     "homeport-public",
		DiscoveryURL: idp.URL + "/.well-known/openid-configuration",
		VerifySSL:    true,
	}, waldurClient)

	return NewHandler(waldurClient, nil, authenticator), &authorized
}

func TestGetWaldurAPIToken_PromptsAuthorization(t *testing.T) {
	t.Parallel()

	h, _ := newAuthHandler(t)
	result, err := h.getWaldurAPIToken(context.Background(), callRequest(map[string]any{
		"authorised": "no",
	}))
	require.NoError(t, err)

	params := structuredResult(t, result)["params"].(map[string]any)
	assert.Contains(t, params["message"], "Please authorise yourself in your browser.")
	assert.Contains(t, params["message"], "ABCD-EFGH")
}

func TestGetWaldurAPIToken_RetryWhilePending(t *testing.T) {
	t.Parallel()

	h, _ := newAuthHandler(t)
	result, err := h.getWaldurAPIToken(context.Background(), callRequest(map[string]any{
		"authorised": "yes",
	}))
	require.NoError(t, err)

	params := structuredResult(t, result)["params"].(map[string]any)
	assert.Contains(t, params["message"], "You haven't completed authorisation yet.")
	assert.Contains(t, params["message"], "Then try again with 'yes'.")

	schema := params["requestedSchema"].(map[string]any)
	assert.Equal(t, []string{"retry"}, schema["required"])
}

func TestGetWaldurAPIToken_Success(t *testing.T) {
	t.Parallel()

	h, authorized := newAuthHandler(t)
	authorized.Store(true)

	result, err := h.getWaldurAPIToken(context.Background(), callRequest(map[string]any{
		"authorised": "yes",
	}))
	require.NoError(t, err)
	assert.Equal(t,
		"Successfully authorised! You are a staff user. Token waldur-token and Email nd@example.com.",
		resultText(t, result))
}
