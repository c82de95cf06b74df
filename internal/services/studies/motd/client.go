// Package motd fetches the message of the day from the placeholder remote
// endpoint.
package motd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the public placeholder API.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com/"

// Message mirrors the remote todo payload; Title carries the message text.
type Message struct {
	UserID    int    `json:"userId"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Fetcher returns the message of the day.
type Fetcher interface {
	MessageOfTheDay(ctx context.Context) (Message, error)
}

// Client calls GET {base}/todos/1. It does not retry or cache.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a client against baseURL. A nil httpClient gets a
// traced default client.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse motd base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("motd base url must be absolute: %q", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		endpoint: base.ResolveReference(&url.URL{Path: "todos/1"}).String(),
		client:   httpClient,
	}, nil
}

// MessageOfTheDay performs one fetch. Every failure is a transport failure.
func (c *Client) MessageOfTheDay(ctx context.Context) (Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return Message{}, apperrors.Wrap(apperrors.CodeTransportFailure, "build motd request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Message{}, apperrors.Wrap(apperrors.CodeTransportFailure, "motd request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Message{}, apperrors.New(apperrors.CodeTransportFailure, fmt.Sprintf("motd returned %s", resp.Status))
	}

	var message Message
	if err := json.NewDecoder(resp.Body).Decode(&message); err != nil {
		return Message{}, apperrors.Wrap(apperrors.CodeTransportFailure, "decode motd response", err)
	}
	return message, nil
}
