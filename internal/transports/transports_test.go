package transports

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
		wantErr  bool
	}{
		{raw: "localhost:3000/sensor/config", expected: "http://localhost:3000/sensor/config"},
		{raw: "https://gw.local/sensor/config", expected: "https://gw.local/sensor/config"},
		{raw: "tcp://broker:1883/sensor/config", expected: "tcp://broker:1883/sensor/config"},
		{raw: "", wantErr: true},
		{raw: "http:///sensor/config", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			u, err := ParseEndpoint(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected err=%t, got %v", tc.wantErr, err)
			}
			if err == nil && u.String() != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, u.String())
			}
		})
	}
}

type fakeTransport struct {
	name   string
	scheme string
}

func (f fakeTransport) Submit(context.Context, *url.URL, []byte) (*Response, error) {
	return &Response{}, nil
}

func (f fakeTransport) Handles(u *url.URL) bool { return u.Scheme == f.scheme }

func (f fakeTransport) Name() string { return f.name }

func TestSelect(t *testing.T) {
	u, _ := url.Parse("tcp://broker:1883")
	got, err := Select(u, fakeTransport{"http", "http"}, fakeTransport{"mqtt", "tcp"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Name() != "mqtt" {
		t.Errorf("expected mqtt, got %s", got.Name())
	}

	u, _ = url.Parse("ftp://host")
	if _, err := Select(u, fakeTransport{"http", "http"}); err == nil {
		t.Error("expected error for unhandled scheme")
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	var err error = &TransportError{Op: "PUT", Endpoint: "http://x", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected TransportError to unwrap to inner error")
	}
	if err.Error() != "PUT http://x: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
