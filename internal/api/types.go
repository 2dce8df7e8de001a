// Package api provides the HTTP clients for the APOD metadata service and
// the Vimeo oEmbed thumbnail lookup.
package api

import (
	"context"
	"errors"
	"fmt"
)

// ServerError is returned when an upstream service answers with a non-200
// status.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (HTTP %d)", e.StatusCode)
}

// ErrEmptyResponse is returned when the APOD API answers 200 with an empty
// entry list.
var ErrEmptyResponse = errors.New("empty response from APOD API")

// Transport is the low-level request interface. The production
// implementation is HTTPTransport; tests substitute a recording fake.
type Transport interface {
	// Get performs a GET and returns the status code and response body.
	Get(ctx context.Context, url string) (int, []byte, error)

	// Download fetches url into a temporary file and returns its path.
	// The caller owns the file. A non-200 response is an error.
	Download(ctx context.Context, url string) (string, error)
}

// OEmbedResponse is the subset of the Vimeo oEmbed reply we consume.
type OEmbedResponse struct {
	ThumbnailURL string `json:"thumbnail_url"`
}
