// Package supabase talks to a hosted backend-as-a-service platform over its
// storage (/storage/v1) and table (/rest/v1) REST APIs.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/pkg/logger"
)

const (
	storagePrefix = "/storage/v1"
	restPrefix    = "/rest/v1"
)

// Config represents platform connection configuration
type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// Client is a connection handle to the platform. It is safe for concurrent use.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *logger.Logger
}

// APIError is a non-2xx answer from the platform
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("platform returned %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new platform client. URL and ServiceKey are required.
func NewClient(cfg *Config, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", entity.ErrConfig)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("%w: platform url is required", entity.ErrConfig)
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, fmt.Errorf("%w: platform service key is required", entity.ErrConfig)
	}

	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: platform url %q is not absolute", entity.ErrConfig, cfg.URL)
	}

	httpClient := cleanhttp.DefaultClient()
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		serviceKey: cfg.ServiceKey,
		httpClient: httpClient,
		logger:     log,
	}, nil
}

// StorageURL returns the root of the storage API
func (c *Client) StorageURL() string {
	return c.baseURL + storagePrefix
}

// do sends a request and returns the body of a 2xx response.
// Any other status is turned into an *APIError.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Platform request finished",
		logger.String("method", method),
		logger.String("endpoint", endpoint),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, data)
	}

	return data, nil
}

// parseAPIError understands both the storage ({statusCode,error,message})
// and the table ({code,message,details}) error payloads.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}

	var payload struct {
		StatusCode interface{} `json:"statusCode"`
		Error      string      `json:"error"`
		Code       string      `json:"code"`
		Message    string      `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	if payload.Message != "" {
		apiErr.Message = payload.Message
	}
	switch {
	case payload.Code != "":
		apiErr.Code = payload.Code
	case payload.Error != "":
		apiErr.Code = payload.Error
	}

	// storage reports missing objects as 400 with an embedded "404"
	if s, ok := payload.StatusCode.(string); ok && s == "404" {
		apiErr.StatusCode = http.StatusNotFound
	}

	return apiErr
}

// escapePath escapes every segment of an object path, keeping the separators
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
