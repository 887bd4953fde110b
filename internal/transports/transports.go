package transports

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type Transport interface {
	Submit(ctx context.Context, endpoint *url.URL, body []byte) (*Response, error)
	Handles(endpoint *url.URL) bool
	Name() string
}

// Response is what the remote side answered, passed through untouched. MQTT
// publishes have no status and set only Target.
type Response struct {
	StatusCode int
	Status     string
	Proto      string
	Header     http.Header
	Body       []byte
	Target     string
}

// TransportError means the request never got an answer: dial, DNS, TLS or
// timeout failures. HTTP error statuses are not TransportErrors.
type TransportError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseEndpoint accepts curl-style endpoints and defaults the scheme to http.
func ParseEndpoint(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("endpoint must not be empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", raw)
	}
	return u, nil
}

// Select returns the first transport that handles the endpoint.
func Select(endpoint *url.URL, candidates ...Transport) (Transport, error) {
	for _, t := range candidates {
		if t.Handles(endpoint) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no transport for scheme %q", endpoint.Scheme)
}
