package animago

import (
	"context"

	"github.com/feitianbubu/animago/adapters"
)

// adapterWrapper wraps an adapters.Provider to implement the main package Provider interface
type adapterWrapper struct {
	provider adapters.Provider
}

// WrapAdapter exposes a vendor adapter as a Provider
func WrapAdapter(p adapters.Provider) Provider {
	return &adapterWrapper{provider: p}
}

// WrapAdapters wraps a list of vendor adapters, keeping their order
func WrapAdapters(ps ...adapters.Provider) []Provider {
	out := make([]Provider, 0, len(ps))
	for _, p := range ps {
		out = append(out, WrapAdapter(p))
	}
	return out
}

// Name returns the provider name
func (w *adapterWrapper) Name() string {
	return w.provider.Name()
}

// Attempt converts the request to the adapter types and performs the call
func (w *adapterWrapper) Attempt(ctx context.Context, req ValidatedRequest, prompt string, profile StyleProfile) (*RawResponse, error) {
	adapterReq := &adapters.Request{
		ImageURL:       req.ImageURL(),
		Prompt:         prompt,
		MotionStrength: profile.MotionStrength,
	}

	resp, err := w.provider.Attempt(ctx, adapterReq)
	if err != nil {
		return nil, err
	}

	return &RawResponse{
		StatusCode:  resp.StatusCode,
		Body:        resp.Body,
		ContentType: resp.ContentType,
	}, nil
}
