package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/jbandes/spacepod-go/internal/core"
	"github.com/jbandes/spacepod-go/internal/entry"
)

// OEmbedClient resolves Vimeo watch URLs to thumbnail URLs via the oEmbed
// endpoint. It implements entry.OEmbedLookup.
type OEmbedClient struct {
	transport Transport
	baseURL   string
	logger    zerolog.Logger
}

// NewOEmbedClient creates an oEmbed client. A nil transport selects the
// HTTP transport.
func NewOEmbedClient(baseURL string, transport Transport, logger zerolog.Logger) *OEmbedClient {
	if baseURL == "" {
		baseURL = core.OEmbedBaseURL
	}
	if transport == nil {
		transport = NewHTTPTransport()
	}
	return &OEmbedClient{transport: transport, baseURL: baseURL, logger: logger}
}

// ThumbnailURL asks the oEmbed endpoint for a thumbnail of the given watch
// URL at the configured display size.
func (c *OEmbedClient) ThumbnailURL(ctx context.Context, watchURL string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", &entry.InvalidVideoReferenceError{ID: watchURL}
	}
	q := url.Values{}
	q.Set("url", watchURL)
	q.Set("width", strconv.Itoa(core.OEmbedThumbWidth))
	q.Set("height", strconv.Itoa(core.OEmbedThumbHeight))
	base.RawQuery = q.Encode()

	c.logger.Debug().Str("url", watchURL).Msg("oEmbed lookup")

	status, body, err := c.transport.Get(ctx, base.String())
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &ServerError{StatusCode: status}
	}

	var resp OEmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse oEmbed response: %w", err)
	}
	if resp.ThumbnailURL == "" {
		return "", &entry.InvalidVideoReferenceError{ID: watchURL}
	}
	return resp.ThumbnailURL, nil
}
