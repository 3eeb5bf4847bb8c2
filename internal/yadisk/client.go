// Package yadisk provides a client for the Yandex.Disk REST API endpoints a
// backup run needs: token validation, folder creation, upload-link
// requests, and the raw file upload.
//
// Uploading a file is a two-step process:
//  1. GET /v1/disk/resources/upload?path=...&overwrite=true returns an href
//  2. PUT the file bytes to that href (no Authorization header required)
package yadisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-backup/internal/apierr"
)

const (
	// DefaultBaseURL is the Yandex.Disk REST API root.
	DefaultBaseURL = "https://cloud-api.yandex.net/v1/disk"

	// DefaultUploadURL is the upload-initiation endpoint.
	DefaultUploadURL = DefaultBaseURL + "/resources/upload"

	// DefaultWebPrefix is where uploaded files can be browsed.
	DefaultWebPrefix = "https://disk.yandex.ru/client/disk/"

	// defaultTimeout is the HTTP client timeout for API calls. Uploads of
	// large originals can take longer than metadata calls.
	defaultTimeout = 2 * time.Minute
)

// Client talks to Yandex.Disk on behalf of one OAuth token.
type Client struct {
	httpClient *http.Client
	token      string
	baseURL    string
	uploadURL  string
	webPrefix  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the REST API root. If no upload URL has been set it
// follows the new root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL == "" {
			return
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/")
		if c.uploadURL == DefaultUploadURL {
			c.uploadURL = c.baseURL + "/resources/upload"
		}
	}
}

// WithUploadURL overrides the upload-initiation endpoint.
func WithUploadURL(uploadURL string) Option {
	return func(c *Client) {
		if uploadURL != "" {
			c.uploadURL = uploadURL
		}
	}
}

// WithWebPrefix overrides the public browse URL prefix.
func WithWebPrefix(prefix string) Option {
	return func(c *Client) {
		if prefix != "" {
			c.webPrefix = prefix
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a Yandex.Disk client for the given OAuth token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		token:     token,
		baseURL:   DefaultBaseURL,
		uploadURL: DefaultUploadURL,
		webPrefix: DefaultWebPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// uploadLinkResponse is the reply to an upload-initiation request.
type uploadLinkResponse struct {
	Href      string `json:"href"`
	Method    string `json:"method"`
	Templated bool   `json:"templated"`
}

// CheckCredential probes the disk root. Anything but 200 means the token is
// not usable for this run.
func (c *Client) CheckCredential(ctx context.Context) error {
	resp, body, err := c.do(ctx, http.MethodGet, c.baseURL)
	if err != nil {
		return &apierr.TransportError{Op: "disk info", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("statusCode", resp.StatusCode).Str("body", truncate(string(body), 200)).Msg("Yandex.Disk token check failed")
		return &apierr.CredentialInvalidError{StatusCode: resp.StatusCode}
	}
	log.Debug().Msg("Yandex.Disk token validated")
	return nil
}

// CreateFolder creates path on the disk. A folder that already exists
// counts as success. Other failures come back as *apierr.FolderCreateError.
func (c *Client) CreateFolder(ctx context.Context, path string) error {
	endpoint := c.baseURL + "/resources?" + url.Values{"path": {path}}.Encode()
	resp, body, err := c.do(ctx, http.MethodPut, endpoint)
	if err != nil {
		return &apierr.FolderCreateError{Path: path, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		log.Info().Str("folder", path).Msg("Folder created on Yandex.Disk")
		return nil
	case http.StatusConflict:
		log.Info().Str("folder", path).Msg("Folder already exists on Yandex.Disk")
		return nil
	default:
		return &apierr.FolderCreateError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status (body: %s)", truncate(string(body), 200)),
		}
	}
}

// UploadLink requests an upload target for fullPath with overwrite enabled.
func (c *Client) UploadLink(ctx context.Context, fullPath string) (string, error) {
	params := url.Values{
		"path":      {fullPath},
		"overwrite": {"true"},
	}
	resp, body, err := c.do(ctx, http.MethodGet, c.uploadURL+"?"+params.Encode())
	if err != nil {
		return "", &apierr.TransportError{Op: "upload link", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apierr.TransportError{
			Op:         "upload link",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status (body: %s)", truncate(string(body), 200)),
		}
	}

	var link uploadLinkResponse
	if err := json.Unmarshal(body, &link); err != nil {
		return "", &apierr.TransportError{Op: "upload link", StatusCode: resp.StatusCode, Err: fmt.Errorf("parse response: %w", err)}
	}
	if link.Href == "" {
		return "", &apierr.TransportError{Op: "upload link", StatusCode: resp.StatusCode, Err: fmt.Errorf("response has no href")}
	}
	return link.Href, nil
}

// Upload PUTs size bytes from body to an href returned by UploadLink.
func (c *Client) Upload(ctx context.Context, href string, body io.Reader, size int64) error {
	startTime := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, href, body)
	if err != nil {
		return &apierr.TransportError{Op: "upload", Err: fmt.Errorf("build request: %w", err)}
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apierr.TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	log.Debug().Int("statusCode", resp.StatusCode).Int64("bytes", size).Dur("duration", time.Since(startTime)).Msg("Yandex.Disk upload response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apierr.TransportError{
			Op:         "upload",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status (body: %s)", truncate(string(respBody), 200)),
		}
	}
	return nil
}

// BrowseURL returns the web address of a file uploaded to fullPath.
func (c *Client) BrowseURL(fullPath string) string {
	return c.webPrefix + fullPath
}

// --- Internal helpers ---

// do sends an authorized request and returns the response with its body
// already read and closed.
func (c *Client) do(ctx context.Context, method, endpoint string) (*http.Response, []byte, error) {
	startTime := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Str("method", method).Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Yandex.Disk API response")
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().Str("method", method).Int("statusCode", resp.StatusCode).Dur("duration", duration).Msg("Yandex.Disk API response")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, data, nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
