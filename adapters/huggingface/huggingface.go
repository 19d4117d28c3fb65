package huggingface

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/feitianbubu/animago/adapters"
)

const (
	// DefaultBaseURL is the serverless Inference API
	DefaultBaseURL = "https://api-inference.huggingface.co"

	ModelSVDXT = "stabilityai/stable-video-diffusion-img2vid-xt"
	ModelSVD   = "stabilityai/stable-video-diffusion-img2vid"

	defaultFrames = 14
	maxFrames     = 25
	defaultSteps  = 20
	maxSteps      = 50
	defaultFPS    = 7
	maxFPS        = 30
)

// DefaultModels is the fallback order used when none is configured
var DefaultModels = []string{ModelSVDXT, ModelSVD}

var aliases = map[string]string{
	"svd-xt": ModelSVDXT,
	"svd":    ModelSVD,
}

// ResolveModel expands a short alias to its repository id
func ResolveModel(name string) string {
	name = strings.TrimSpace(name)
	if full, ok := aliases[strings.ToLower(name)]; ok {
		return full
	}
	return name
}

// Provider implements adapters.Provider for one model hosted on the Inference API
type Provider struct {
	config  *adapters.ProviderConfig
	client  *http.Client
	baseURL string
	model   string
	frames  int
	steps   int
	fps     int
}

// GenerationRequest represents the Inference API request format
type GenerationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters GenerationParameters `json:"parameters"`
}

// GenerationParameters are the video pipeline parameters
type GenerationParameters struct {
	Prompt            string `json:"prompt,omitempty"`
	NumFrames         int    `json:"num_frames"`
	NumInferenceSteps int    `json:"num_inference_steps"`
	FPS               int    `json:"fps"`
	MotionBucketID    int    `json:"motion_bucket_id"`
}

// Option customises a Provider
type Option func(*Provider)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithFrames sets the frame, step and fps counts; values are clamped to the pipeline bounds
func WithFrames(frames, steps, fps int) Option {
	return func(p *Provider) {
		p.frames = adapters.Clamp(frames, defaultFrames, 1, maxFrames)
		p.steps = adapters.Clamp(steps, defaultSteps, 1, maxSteps)
		p.fps = adapters.Clamp(fps, defaultFPS, 1, maxFPS)
	}
}

// New creates a new provider instance for config.Model
func New(config *adapters.ProviderConfig, opts ...Option) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: nil config", adapters.ErrInvalidConfig)
	}

	model := ResolveModel(config.Model)
	if model == "" {
		return nil, fmt.Errorf("%w: model is required", adapters.ErrInvalidConfig)
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	p := &Provider{
		config:  config,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   model,
		frames:  defaultFrames,
		steps:   defaultSteps,
		fps:     defaultFPS,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the model id, which callers see as the video model
func (p *Provider) Name() string {
	return p.model
}

// Endpoint returns the model inference URL
func (p *Provider) Endpoint() string {
	return fmt.Sprintf("%s/models/%s", p.baseURL, p.model)
}

// BuildParams maps the request onto the video pipeline parameters
func (p *Provider) BuildParams(req *adapters.Request) any {
	return &GenerationRequest{
		Inputs: req.ImageURL,
		Parameters: GenerationParameters{
			Prompt:            req.Prompt,
			NumFrames:         p.frames,
			NumInferenceSteps: p.steps,
			FPS:               p.fps,
			MotionBucketID:    req.MotionStrength,
		},
	}
}

// Attempt posts the request and returns the reply unclassified
func (p *Provider) Attempt(ctx context.Context, req *adapters.Request) (*adapters.RawResponse, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + p.config.APIKey,
		"Accept":        "video/mp4, application/json",
	}
	return adapters.DoJSON(ctx, p.client, http.MethodPost, p.Endpoint(), headers, p.BuildParams(req))
}
