// Package fetcher retrieves raw listing payloads over HTTP.
package fetcher

import (
	"context"
	"fmt"
)

// Fetcher defines the interface for downloading a remote payload.
type Fetcher interface {
	// Fetch retrieves the URL and returns the full response body.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// StatusError reports a non-200 upstream response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
