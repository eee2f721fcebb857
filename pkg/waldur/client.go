// Package waldur is a thin client for the Waldur management REST API.
//
// All calls use a 10 second per-request timeout and never retry: a timeout
// or connection failure is surfaced immediately to the caller, which turns
// it into a user-facing message.
package waldur

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/TanyaKushwahaa/claude-mcp-waldur/pkg/logger"
)

// RequestTimeout is the per-call timeout for Waldur API requests.
const RequestTimeout = 10 * time.Second

// MaxPages bounds the pagination walker so a misbehaving server cannot keep
// it looping forever.
const MaxPages = 10000

// StatusError reports a non-2xx response from the Waldur API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("waldur API returned status %d", e.Code)
}

// Client calls the Waldur REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (including the /api/
// suffix). When verifySSL is false, TLS certificate verification is
// disabled; this mirrors deployments with self-signed certificates.
func NewClient(baseURL string, verifySSL bool) *Client {
	transport := http.DefaultTransport
	if !verifySSL {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 - explicit opt-out via VERIFY_SSL
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		http: &http.Client{
			Timeout:   RequestTimeout,
			Transport: transport,
		},
	}
}

// NormalizeToken formats a raw Waldur API token for the Authorization
// header. Idempotent: tokens already carrying the "Token " prefix pass
// through unchanged.
func NormalizeToken(token string) string {
	if strings.HasPrefix(token, "Token ") {
		return token
	}
	return "Token " + token
}

// ListResult is the aggregate of a paginated GET walk.
type ListResult struct {
	TotalCount int               `json:"total_count"`
	Method     string            `json:"method"`
	Data       []json.RawMessage `json:"data"`
}

// JSONString renders the result the way tool callers consume it.
func (r *ListResult) JSONString() (string, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode list result: %w", err)
	}
	return string(out), nil
}

// GetAll walks a list endpoint page by page, appending items until an empty
// page or a 404 is returned. The page parameter always comes from the loop
// counter, overriding any "page" in params.
func (c *Client) GetAll(ctx context.Context, token, resource string, params map[string]any) (*ListResult, error) {
	result := &ListResult{Method: resource, Data: []json.RawMessage{}}

	for page := 1; page <= MaxPages; page++ {
		query := url.Values{}
		for key, value := range params {
			switch v := value.(type) {
			case []string:
				for _, item := range v {
					query.Add(key, item)
				}
			case []any:
				// JSON-decoded payloads carry lists as []any.
				for _, item := range v {
					query.Add(key, fmt.Sprintf("%v", item))
				}
			default:
				query.Add(key, fmt.Sprintf("%v", v))
			}
		}
		query.Set("page", strconv.Itoa(page))

		body, status, err := c.get(ctx, token, resource+"/", query)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			// The API 404s past the last page; treat it as end of data.
			break
		}
		if status != http.StatusOK && status != http.StatusCreated {
			return nil, &StatusError{Code: status}
		}

		parsed := gjson.ParseBytes(body)
		if !parsed.IsArray() {
			return nil, fmt.Errorf("unexpected response format for %s page %d", resource, page)
		}
		items := parsed.Array()
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			result.Data = append(result.Data, json.RawMessage(item.Raw))
		}
	}

	result.TotalCount = len(result.Data)
	return result, nil
}

// LookupUUID resolves the UUID of an entity by its short name. It returns
// ErrNotFound when no entity matches and ErrNoUUIDField when the match has
// no uuid attribute.
func (c *Client) LookupUUID(ctx context.Context, token, entity, shortName string) (string, error) {
	endpoint, ok := EndpointMap[entity]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	query := url.Values{}
	if shortName != "" {
		query.Set("short_name", shortName)
	}

	body, status, err := c.get(ctx, token, endpoint, query)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		if status == http.StatusNotFound {
			return "", ErrNotFound
		}
		return "", &StatusError{Code: status}
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() || len(parsed.Array()) == 0 {
		return "", ErrNotFound
	}
	uuid := parsed.Get("0.uuid")
	if !uuid.Exists() || uuid.String() == "" {
		return "", ErrNoUUIDField
	}
	return uuid.String(), nil
}

// Create sends a POST to a resource collection.
func (c *Client) Create(ctx context.Context, token, resource string, payload map[string]any) error {
	status, err := c.send(ctx, http.MethodPost, token, resource+"/", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &StatusError{Code: status}
	}
	return nil
}

// Update sends a PATCH to a single resource. The uuid only appears in the
// URL; callers must strip it from the payload body beforehand.
func (c *Client) Update(ctx context.Context, token, resource, uuid string, payload map[string]any) error {
	status, err := c.send(ctx, http.MethodPatch, token, resource+"/"+uuid+"/", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &StatusError{Code: status}
	}
	return nil
}

// Delete removes a single resource by UUID.
func (c *Client) Delete(ctx context.Context, token, resource, uuid string) error {
	status, err := c.send(ctx, http.MethodDelete, token, resource+"/"+uuid+"/", nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusAccepted {
		return &StatusError{Code: status}
	}
	return nil
}

// Whoami fetches the caller's identity from the OpenPortal plugin. Used for
// the staff check before write operations.
func (c *Client) Whoami(ctx context.Context, token, email string) (gjson.Result, error) {
	query := url.Values{}
	query.Set("email", email)
	return c.getJSON(ctx, token, "openportal/whoami/", query)
}

// ProjectShortName resolves a project's short name by project and customer
// name via the OpenPortal plugin.
func (c *Client) ProjectShortName(ctx context.Context, token, projectName, customerName string) (gjson.Result, error) {
	query := url.Values{}
	query.Set("project_name", projectName)
	query.Set("customer_name", customerName)
	return c.getJSON(ctx, token, "openportal/project_short_name/", query)
}

// CustomerSpendInfo fetches spending information for a customer.
func (c *Client) CustomerSpendInfo(ctx context.Context, token, customer string) (gjson.Result, error) {
	query := url.Values{}
	query.Set("customer", customer)
	return c.getJSON(ctx, token, "openportal/customer_spend_info/", query)
}

// ProjectUsers lists the users of a project via the OpenPortal plugin.
func (c *Client) ProjectUsers(ctx context.Context, token, projectName string) (gjson.Result, error) {
	query := url.Values{}
	query.Set("project_name", projectName)
	return c.getJSON(ctx, token, "openportal/list_project_users/", query)
}

// APIToken is the result of exchanging an OIDC access token for a Waldur
// API token.
type APIToken struct {
	Token      string `json:"token"`
	UserAccess string `json:"user_access"`
	UserEmail  string `json:"user_email"`
}

// ExchangeOIDCToken trades an OIDC access token for a Waldur API token via
// the OpenPortal plugin.
func (c *Client) ExchangeOIDCToken(ctx context.Context, oidcAccessToken string) (*APIToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"openportal/get_API_token/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create token exchange request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+oidcAccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Waldur: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var token APIToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token exchange response: %w", err)
	}
	return &token, nil
}

func (c *Client) get(ctx context.Context, token, path string, query url.Values) ([]byte, int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", NormalizeToken(token))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to reach Waldur: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, token, path string, query url.Values) (gjson.Result, error) {
	body, status, err := c.get(ctx, token, path, query)
	if err != nil {
		return gjson.Result{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return gjson.Result{}, &StatusError{Code: status}
	}
	return gjson.ParseBytes(body), nil
}

func (c *Client) send(ctx context.Context, method, token, path string, payload map[string]any) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", NormalizeToken(token))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach Waldur: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		logger.Debugf("Failed to drain response body: %v", err)
	}
	return resp.StatusCode, nil
}
