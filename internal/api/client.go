package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jbandes/spacepod-go/internal/core"
	"github.com/jbandes/spacepod-go/internal/entry"
)

// HTTPTransport is the production Transport backed by net/http.
type HTTPTransport struct {
	httpClient *http.Client
}

// NewHTTPTransport creates a transport with a generous timeout; APOD images
// can be tens of megabytes.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
}

// Get performs a GET and returns the status code and body.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// Download streams url into a temporary file and returns its path.
func (t *HTTPTransport) Download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ServerError{StatusCode: resp.StatusCode}
	}

	tmp, err := os.CreateTemp("", "spacepod-download-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download interrupted: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// Client is the APOD metadata API client.
type Client struct {
	transport Transport
	baseURL   string
	apiKey    string
	logger    zerolog.Logger
}

// NewClient creates an APOD client. A nil transport selects the HTTP
// transport.
func NewClient(baseURL, apiKey string, transport Transport, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = core.APODBaseURL
	}
	if apiKey == "" {
		apiKey = core.DefaultAPIKey
	}
	if transport == nil {
		transport = NewHTTPTransport()
	}
	return &Client{
		transport: transport,
		baseURL:   baseURL,
		apiKey:    apiKey,
		logger:    logger,
	}
}

// LatestEntries fetches the entries published since startDate, in ascending
// date order. Requesting a range rather than "today" works around the
// upstream returning "no data available" for the current date early in the
// day. A 200 with an empty array yields ErrEmptyResponse.
func (c *Client) LatestEntries(ctx context.Context, startDate core.YearMonthDay) ([]entry.RawEntry, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("start_date", startDate.String())
	// Including end_date returns 400 when it is after today upstream.
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, q.Encode())

	c.logger.Debug().Str("url", c.baseURL).Str("start_date", startDate.String()).Msg("fetching APOD entries")

	status, body, err := c.transport.Get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &ServerError{StatusCode: status}
	}

	var entries []entry.RawEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse APOD response: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyResponse
	}

	c.logger.Debug().Int("count", len(entries)).Msg("APOD response")
	return entries, nil
}

// DownloadAsset fetches the given image URL to a temporary file and returns
// its path. The caller is responsible for validating and moving or removing
// the file.
func (c *Client) DownloadAsset(ctx context.Context, rawURL string) (string, error) {
	c.logger.Debug().Str("url", rawURL).Msg("downloading asset")
	return c.transport.Download(ctx, rawURL)
}
