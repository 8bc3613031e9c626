package upbit

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/retry"
)

// Client is a REST client for the Upbit exchange API.
type Client struct {
	baseURL     string
	accessKey   string
	secretKey   string
	httpClient  *http.Client
	retryPolicy retry.Policy
}

// Config holds the configuration for the Upbit client.
type Config struct {
	AccessKey string
	SecretKey string
	BaseURL   string
}

// NewClient creates a new Upbit client.
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.upbit.com"
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: config.AccessKey,
		secretKey: config.SecretKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryPolicy: retry.DefaultPolicy(),
	}
}

// authToken builds the JWT bearer token for a private request. When the
// request carries parameters, Upbit requires a SHA-512 hash of the encoded
// query string inside the claims.
func (c *Client) authToken(query url.Values) (string, error) {
	claims := jwt.MapClaims{
		"access_key": c.accessKey,
		"nonce":      uuid.NewString(),
	}

	if len(query) > 0 {
		hash := sha512.Sum512([]byte(query.Encode()))
		claims["query_hash"] = hex.EncodeToString(hash[:])
		claims["query_hash_alg"] = "SHA512"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign auth token: %w", err)
	}
	return signed, nil
}

// doPublic performs an unauthenticated GET request with retries.
func (c *Client) doPublic(ctx context.Context, path string, query url.Values, out interface{}) error {
	return retry.Do(ctx, c.retryPolicy, func() error {
		req, err := c.buildRequest(ctx, http.MethodGet, path, query, false)
		if err != nil {
			return err
		}
		return c.sendOnce(req, out)
	})
}

// doPrivate performs an authenticated request with retries. Callers that
// must not double-submit (order placement) use doPrivateOnce instead.
func (c *Client) doPrivate(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	return retry.Do(ctx, c.retryPolicy, func() error {
		req, err := c.buildRequest(ctx, method, path, query, true)
		if err != nil {
			return err
		}
		return c.sendOnce(req, out)
	})
}

// doPrivateOnce performs an authenticated request exactly once.
func (c *Client) doPrivateOnce(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	req, err := c.buildRequest(ctx, method, path, query, true)
	if err != nil {
		return err
	}
	return c.sendOnce(req, out)
}

// buildRequest constructs a fresh request. A new request per attempt keeps
// retries safe: the body reader and the auth nonce are both single-use.
func (c *Client) buildRequest(ctx context.Context, method, path string, query url.Values, private bool) (*http.Request, error) {
	endpoint := c.baseURL + path
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(query.Encode())
	} else if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if private {
		token, err := c.authToken(query)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

func (c *Client) sendOnce(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
