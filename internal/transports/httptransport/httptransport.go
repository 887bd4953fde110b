package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alvaroaleman/sensorconfig/internal/transports"
)

const requestIDHeader = "X-Request-Id"

// New returns a transport issuing exactly one request with the given method
// per Submit. A zero timeout leaves the request unbounded.
func New(log *zap.Logger, method string, timeout time.Duration) transports.Transport {
	return &httpTransport{
		log:    log,
		method: method,
		client: &http.Client{Timeout: timeout},
	}
}

type httpTransport struct {
	log    *zap.Logger
	method string
	client *http.Client
}

func (h *httpTransport) Name() string {
	return "http"
}

func (h *httpTransport) Handles(endpoint *url.URL) bool {
	return endpoint.Scheme == "http" || endpoint.Scheme == "https"
}

func (h *httpTransport) Submit(ctx context.Context, endpoint *url.URL, body []byte) (*transports.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, h.method, endpoint.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	h.log.Debug("Sending request",
		zap.String("method", h.method),
		zap.String("endpoint", endpoint.String()),
		zap.String("request_id", requestID),
		zap.ByteString("body", body),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &transports.TransportError{Op: h.method, Endpoint: endpoint.String(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transports.TransportError{Op: "read response from", Endpoint: endpoint.String(), Err: err}
	}

	h.log.Debug("Received response",
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
	)

	return &transports.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Proto:      resp.Proto,
		Header:     resp.Header,
		Body:       respBody,
		Target:     endpoint.String(),
	}, nil
}
