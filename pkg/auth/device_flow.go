// Package auth implements the Keycloak OIDC device-authorization flow and
// the exchange of the resulting OIDC token for a Waldur API token.
//
// Shared OAuth2 client credentials authenticate the application; individual
// users authenticate in their own browser via the device flow and each
// receives their own API token. The flow never polls: after directing the
// user to the verification URI it performs a single token-endpoint check
// when the user reports they have authorized.
package auth

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/waldur"
)

const requestTimeout = 10 * time.Second

// deviceGrantType is the RFC 8628 device code grant.
const deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// Config holds the OIDC client settings for the device flow.
type Config struct {
	ClientID string

	// DiscoveryURL points at the OIDC discovery document. When set, the
	// device and token endpoints are resolved from it; the explicit
	// endpoints below are fallbacks.
	DiscoveryURL   string
	DeviceEndpoint string
	TokenEndpoint  string

	VerifySSL bool
}

// Outcome is the result of one step of the authorization conversation.
// Exactly one of the fields is meaningful: PromptAuthorization asks the
// caller to send the user to the browser; PromptRetry asks the user to
// confirm again after finishing; Message is a terminal result.
type Outcome struct {
	PromptAuthorization bool
	PromptRetry         bool
	VerificationURI     string
	UserCode            string
	Message             string
}

// Authenticator drives the device authorization flow. A single in-flight
// device session is kept across calls so the user can confirm in a later
// tool invocation.
type Authenticator struct {
	config Config
	client *http.Client
	waldur *waldur.Client

	mu      sync.Mutex
	session *oauth2.DeviceAuthResponse
}

// NewAuthenticator creates an authenticator that exchanges completed device
// authorizations for Waldur API tokens via the given client.
func NewAuthenticator(config Config, waldurClient *waldur.Client) *Authenticator {
	transport := http.DefaultTransport
	if !config.VerifySSL {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 - explicit opt-out via VERIFY_SSL
		}
	}
	return &Authenticator{
		config: config,
		client: &http.Client{Timeout: requestTimeout, Transport: transport},
		waldur: waldurClient,
	}
}

// Authorize advances the device flow. authorized is the user's answer to
// "have you completed the browser authorization"; anything but "yes"
// (case-insensitive) starts or re-displays the verification prompt.
func (a *Authenticator) Authorize(ctx context.Context, authorized string) (*Outcome, error) {
	ocfg, err := a.resolveEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	session, err := a.ensureSession(ctx, ocfg)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(authorized, "yes") {
		return &Outcome{
			PromptAuthorization: true,
			VerificationURI:     session.VerificationURI,
			UserCode:            session.UserCode,
		}, nil
	}

	// Single non-polling check of the token endpoint. A 400 means the user
	// has not finished the browser step yet.
	token, retry, err := a.checkOnce(ctx, ocfg, session)
	if err != nil {
		a.clearSession()
		return nil, err
	}
	if retry {
		return &Outcome{
			PromptRetry:     true,
			VerificationURI: session.VerificationURI,
			UserCode:        session.UserCode,
		}, nil
	}
	a.clearSession()

	apiToken, err := a.waldur.ExchangeOIDCToken(ctx, token)
	if err != nil {
		var statusErr *waldur.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusUnauthorized {
			return &Outcome{Message: "Invalid token."}, nil
		}
		return nil, fmt.Errorf("failed to exchange OIDC token: %w", err)
	}

	if apiToken.UserAccess == "staff" {
		return &Outcome{Message: fmt.Sprintf(
			"Successfully authorised! You are a staff user. Token %s and Email %s.",
			apiToken.Token, apiToken.UserEmail)}, nil
	}
	return &Outcome{Message: fmt.Sprintf(
		"Successfully authorised! But you have read-only access. Token %s and Email %s.",
		apiToken.Token, apiToken.UserEmail)}, nil
}

// resolveEndpoints builds the oauth2 config, preferring endpoints from the
// OIDC discovery document.
func (a *Authenticator) resolveEndpoints(ctx context.Context) (*oauth2.Config, error) {
	deviceURL := a.config.DeviceEndpoint
	tokenURL := a.config.TokenEndpoint

	if a.config.DiscoveryURL != "" {
		doc, err := a.fetchDiscovery(ctx)
		if err != nil {
			return nil, err
		}
		deviceURL = doc.DeviceAuthorizationEndpoint
		tokenURL = doc.TokenEndpoint
	}

	if deviceURL == "" || tokenURL == "" {
		return nil, fmt.Errorf("no device authorization or token endpoint configured")
	}

	return &oauth2.Config{
		ClientID: a.config.ClientID,
		Scopes:   []string{"openid", "profile", "email"},
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: deviceURL,
			TokenURL:      tokenURL,
		},
	}, nil
}

type discoveryDocument struct {
	DeviceAuthorizationEndpoint string `json:"device_authorization_endpoint"`
	TokenEndpoint               string `json:"token_endpoint"`
}

func (a *Authenticator) fetchDiscovery(ctx context.Context) (*discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.DiscoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery returned status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	return &doc, nil
}

// ensureSession starts a device authorization if none is in flight.
func (a *Authenticator) ensureSession(ctx context.Context, ocfg *oauth2.Config) (*oauth2.DeviceAuthResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return a.session, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	session, err := ocfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device code: %w", err)
	}

	logger.Infof("Started device authorization (verification uri: %s)", session.VerificationURI)
	a.session = session
	return session, nil
}

func (a *Authenticator) clearSession() {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
}

// checkOnce makes a single device-code token request. retry is true when
// the authorization server reports the user has not authorized yet.
func (a *Authenticator) checkOnce(ctx context.Context, ocfg *oauth2.Config, session *oauth2.DeviceAuthResponse) (string, bool, error) {
	form := url.Values{}
	form.Set("grant_type", deviceGrantType)
	form.Set("device_code", session.DeviceCode)
	form.Set("client_id", ocfg.ClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		ocfg.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", false, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("failed to reach token endpoint: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return "", true, nil
	case resp.StatusCode == http.StatusOK:
		var token struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
			return "", false, fmt.Errorf("failed to decode token response: %w", err)
		}
		return token.AccessToken, false, nil
	default:
		return "", false, fmt.Errorf("authorization error: status %d", resp.StatusCode)
	}
}
