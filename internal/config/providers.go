package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/feitianbubu/animago"
	"github.com/feitianbubu/animago/adapters"
	"github.com/feitianbubu/animago/adapters/huggingface"
	"github.com/feitianbubu/animago/adapters/kling"
)

// Providers builds the provider list in fallback order: the Hugging Face
// models as configured, then Kling when its keys are present.
// client may be nil to let each adapter create its own.
func (c *Config) Providers(client *http.Client) ([]animago.Provider, error) {
	var list []adapters.Provider

	for _, model := range c.HuggingFace.Models {
		opts := []huggingface.Option{
			huggingface.WithFrames(c.HuggingFace.Frames, c.HuggingFace.Steps, c.HuggingFace.FPS),
		}
		if client != nil {
			opts = append(opts, huggingface.WithHTTPClient(client))
		}
		p, err := huggingface.New(&adapters.ProviderConfig{
			BaseURL: c.HuggingFace.BaseURL,
			APIKey:  c.HuggingFace.Token,
			Model:   model,
			Timeout: c.Chain.AttemptTimeout,
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("huggingface provider %q: %w", model, err)
		}
		list = append(list, p)
	}

	if c.Kling.Enabled() {
		opts := []kling.Option{kling.WithPollInterval(c.Kling.PollInterval)}
		if client != nil {
			opts = append(opts, kling.WithHTTPClient(client))
		}
		p, err := kling.New(&adapters.ProviderConfig{
			BaseURL:   c.Kling.BaseURL,
			APIKey:    c.Kling.AccessKey,
			SecretKey: c.Kling.SecretKey,
			Model:     c.Kling.Model,
			Timeout:   c.Kling.Timeout,
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("kling provider: %w", err)
		}
		list = append(list, p)
	}

	if len(list) == 0 {
		return nil, animago.ErrNoProviders
	}
	return animago.WrapAdapters(list...), nil
}

// ChainOptions converts the chain section for animago.NewChain.
// Observer and Logger are left for the caller to set.
func (c *Config) ChainOptions() *animago.ChainConfig {
	opts := &animago.ChainConfig{
		AttemptTimeout: c.Chain.AttemptTimeout,
		LoadingPolicy:  animago.LoadingPolicy(c.Chain.LoadingPolicy),
	}
	if c.Kling.Enabled() {
		model := c.Kling.Model
		if model == "" {
			model = kling.DefaultModel
		}
		opts.ProviderTimeouts = map[string]time.Duration{model: c.Kling.AttemptTimeout}
	}
	return opts
}
