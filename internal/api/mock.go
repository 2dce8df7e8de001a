package api

import (
	"context"
	"os"
	"strings"
	"sync"
)

// MockResponse is a canned Get result served by MockTransport.
type MockResponse struct {
	Status int
	Body   []byte
}

// MockTransport is an in-memory fake suitable for deterministic unit tests.
// Get responses are matched by URL prefix; Download writes fixture bytes to
// a fresh temporary file.
type MockTransport struct {
	mu         sync.Mutex
	Responses  map[string]MockResponse // keyed by URL prefix
	Files      map[string][]byte       // download fixtures keyed by URL prefix
	RequestLog []string
}

// NewMockTransport creates an empty mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Responses: make(map[string]MockResponse),
		Files:     make(map[string][]byte),
	}
}

// Respond registers a canned response for URLs starting with prefix.
func (t *MockTransport) Respond(prefix string, status int, body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Responses[prefix] = MockResponse{Status: status, Body: body}
}

// Serve registers download fixture bytes for URLs starting with prefix.
func (t *MockTransport) Serve(prefix string, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Files[prefix] = data
}

// RequestsMade returns the number of requests (Get and Download) made.
func (t *MockTransport) RequestsMade() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.RequestLog)
}

// Requests returns a copy of the recorded request URLs.
func (t *MockTransport) Requests() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.RequestLog...)
}

// Get serves a canned response matched by URL prefix. Unmatched URLs
// return 404.
func (t *MockTransport) Get(_ context.Context, rawURL string) (int, []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.RequestLog = append(t.RequestLog, rawURL)

	for prefix, resp := range t.Responses {
		if strings.HasPrefix(rawURL, prefix) {
			return resp.Status, resp.Body, nil
		}
	}
	return 404, nil, nil
}

// Download writes the matching fixture to a temp file. Unmatched URLs
// return a ServerError.
func (t *MockTransport) Download(_ context.Context, rawURL string) (string, error) {
	t.mu.Lock()
	t.RequestLog = append(t.RequestLog, rawURL)
	var data []byte
	found := false
	for prefix, d := range t.Files {
		if strings.HasPrefix(rawURL, prefix) {
			data = d
			found = true
			break
		}
	}
	t.mu.Unlock()

	if !found {
		return "", &ServerError{StatusCode: 404}
	}

	tmp, err := os.CreateTemp("", "spacepod-mock-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
