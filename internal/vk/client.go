// Package vk provides a client for the VK API photos.get method, used to
// list the photos in a user's profile album.
//
// The client needs a VK access token with the photos scope. Errors come back
// classified (see internal/apierr):
//  1. Transport failures (connection, non-2xx, malformed body) -> TransportError
//  2. VK error payloads -> ProviderError, kind chosen by error_code
//  3. A listing with zero items -> EmptyResultError
//
// Nothing is retried.
package vk

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
	"github.com/fpang/photo-backup/internal/photo"
)

const (
	// defaultBaseURL is the VK API method root.
	defaultBaseURL = "https://api.vk.com/method"

	// DefaultAPIVersion is the VK API version sent with every request.
	DefaultAPIVersion = "5.131"

	// defaultTimeout is the HTTP client timeout for API calls.
	defaultTimeout = 30 * time.Second

	// pageSize is the photos.get count parameter.
	pageSize = 100

	// profileAlbum selects the user's profile pictures.
	profileAlbum = "profile"
)

// Client lists photos through the VK API.
type Client struct {
	httpClient  *http.Client
	accessToken string
	apiVersion  string
	baseURL     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different method root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
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

// NewClient creates a VK API client. An empty apiVersion uses DefaultAPIVersion.
func NewClient(accessToken, apiVersion string, opts ...Option) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		accessToken: accessToken,
		apiVersion:  apiVersion,
		baseURL:     defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- API response types ---

// photosGetResponse is the photos.get envelope: exactly one of Response or
// Error is set on a well-formed reply.
type photosGetResponse struct {
	Response *photosPage `json:"response,omitempty"`
	Error    *apiErr     `json:"error,omitempty"`
}

type photosPage struct {
	Count int           `json:"count"`
	Items []photo.Photo `json:"items"`
}

type apiErr struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

// ListProfilePhotos returns up to 100 photos from ownerID's profile album,
// newest first, with like counts included.
func (c *Client) ListProfilePhotos(ctx context.Context, ownerID string) ([]photo.Photo, error) {
	log.Info().Str("ownerId", ownerID).Msg("Fetching VK profile photos")

	params := url.Values{
		"owner_id":     {ownerID},
		"album_id":     {profileAlbum},
		"extended":     {"1"},
		"access_token": {c.accessToken},
		"v":            {c.apiVersion},
		"rev":          {"1"},
		"count":        {fmt.Sprint(pageSize)},
	}

	var resp photosGetResponse
	if err := c.get(ctx, "photos.get", params, &resp); err != nil {
		log.Error().Err(err).Str("ownerId", ownerID).Msg("VK photos.get request failed")
		return nil, err
	}

	if resp.Error != nil {
		providerErr := apierr.NewProviderError(resp.Error.Code, resp.Error.Message)
		log.Error().
			Int("errorCode", resp.Error.Code).
			Str("errorMessage", resp.Error.Message).
			Str("kind", providerErr.Kind.String()).
			Str("ownerId", ownerID).
			Msg("VK API error")
		return nil, providerErr
	}

	if resp.Response == nil {
		err := &apierr.TransportError{Op: "photos.get", Err: fmt.Errorf("unexpected response: neither response nor error present")}
		log.Error().Err(err).Str("ownerId", ownerID).Msg("Unexpected VK API response")
		return nil, err
	}

	if len(resp.Response.Items) == 0 {
		log.Warn().Str("ownerId", ownerID).Msg("Profile album has no photos")
		return nil, &apierr.EmptyResultError{OwnerID: ownerID}
	}

	log.Info().Str("ownerId", ownerID).Int("count", len(resp.Response.Items)).Msg("VK profile photos retrieved")
	return resp.Response.Items, nil
}

// --- Internal helpers ---

// get calls a VK API method and decodes the JSON body into out. Any failure
// before a decoded body is available is a TransportError.
func (c *Client) get(ctx context.Context, method string, params url.Values, out any) error {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return &apierr.TransportError{Op: method, Err: fmt.Errorf("build request: %w", err)}
	}

	log.Debug().Str("method", method).Msg("VK API request")
	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("VK API response")
		return &apierr.TransportError{Op: method, Err: err}
	}
	defer httpResp.Body.Close()

	log.Debug().Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Msg("VK API response")

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &apierr.TransportError{Op: method, StatusCode: httpResp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return &apierr.TransportError{
			Op:         method,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("unexpected status (body: %s)", truncate(string(body), 200)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &apierr.TransportError{
			Op:         method,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200)),
		}
	}
	return nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
