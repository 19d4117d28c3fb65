// Package adapters holds the wire-level types shared by the vendor adapters.
// The types mirror the root package ones to avoid circular imports.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// UserAgent is sent on every outbound provider call
const UserAgent = "animago/1.0"

// MaxResponseBytes bounds how much of a provider reply is read into memory
const MaxResponseBytes = 256 << 20

// Common errors
var (
	ErrNetwork          = errors.New("network error")
	ErrTimeout          = errors.New("provider timeout")
	ErrResponseTooLarge = errors.New("provider response too large")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Request represents one provider-agnostic attempt input
type Request struct {
	ImageURL       string
	Prompt         string
	MotionStrength int
}

// RawResponse represents the untouched reply of a provider
type RawResponse struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// ProviderConfig holds configuration for a specific provider
type ProviderConfig struct {
	BaseURL   string        `json:"base_url"`
	APIKey    string        `json:"api_key"`
	SecretKey string        `json:"secret_key,omitempty"`
	Model     string        `json:"model,omitempty"`
	Timeout   time.Duration `json:"timeout"`
}

// Provider is the minimal interface implemented by vendor adapters
type Provider interface {
	// Name returns the provider name
	Name() string

	// Endpoint returns the URL the adapter posts generation requests to
	Endpoint() string

	// BuildParams returns the vendor-specific request body
	BuildParams(req *Request) any

	// Attempt performs one generation call
	Attempt(ctx context.Context, req *Request) (*RawResponse, error)
}

// Clamp bounds v to [lo, hi], using def when v is not positive
func Clamp(v, def, lo, hi int) int {
	if v <= 0 {
		v = def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DoJSON sends body as JSON and reads the whole reply whatever its status
func DoJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body any) (*RawResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	if len(data) > MaxResponseBytes {
		return nil, errors.Wrapf(ErrResponseTooLarge, "more than %d bytes", MaxResponseBytes)
	}

	return &RawResponse{
		StatusCode:  resp.StatusCode,
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Wrapf(ErrTimeout, "%v", ctx.Err())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrapf(ErrTimeout, "%v", err)
	}
	return errors.Wrapf(ErrNetwork, "%v", err)
}
