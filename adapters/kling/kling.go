package kling

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/feitianbubu/animago/adapters"
)

const (
	// DefaultBaseURL is the Kling open platform
	DefaultBaseURL = "https://api.klingai.com"

	// DefaultModel is used when the config names none
	DefaultModel = "kling-v1"

	// DefaultTimeout bounds each HTTP call, the video download included
	DefaultTimeout = 60 * time.Second

	// DefaultAttemptTimeout is the budget for a whole submit, poll and
	// download cycle. Tasks usually take a few minutes.
	DefaultAttemptTimeout = 5 * time.Minute

	defaultPollInterval = 5 * time.Second
	maxMotionStrength   = 255
)

// Provider implements adapters.Provider for Kling image-to-video generation
type Provider struct {
	config       *adapters.ProviderConfig
	client       *http.Client
	baseURL      string
	accessKey    string
	secretKey    string
	model        string
	pollInterval time.Duration
	now          func() time.Time
}

// GenerationRequest represents Kling-specific request format
type GenerationRequest struct {
	ModelName string  `json:"model_name"`
	Image     string  `json:"image"`
	Prompt    string  `json:"prompt,omitempty"`
	Mode      string  `json:"mode"`
	Duration  string  `json:"duration"`
	CfgScale  float64 `json:"cfg_scale"`
}

// Response represents Kling's response envelope
type Response struct {
	Code      int      `json:"code"`
	Message   string   `json:"message"`
	RequestID string   `json:"request_id"`
	Data      TaskData `json:"data"`
}

// TaskData is the data field shared by the submit and query replies
type TaskData struct {
	TaskID        string     `json:"task_id"`
	TaskStatus    string     `json:"task_status"`
	TaskStatusMsg string     `json:"task_status_msg,omitempty"`
	TaskResult    TaskResult `json:"task_result,omitempty"`
}

// TaskResult contains the generated videos
type TaskResult struct {
	Videos []Video `json:"videos,omitempty"`
}

// Video represents a single video in the response
type Video struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Duration string `json:"duration"`
}

// Option customises a Provider
type Option func(*Provider)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithPollInterval sets how often task status is queried
func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// New creates a new Kling provider instance
func New(config *adapters.ProviderConfig, opts ...Option) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: nil config", adapters.ErrInvalidConfig)
	}

	accessKey := strings.TrimSpace(config.APIKey)
	secretKey := strings.TrimSpace(config.SecretKey)
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("%w: Kling needs both access key and secret key", adapters.ErrInvalidConfig)
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	p := &Provider{
		config:       config,
		client:       &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		accessKey:    accessKey,
		secretKey:    secretKey,
		model:        model,
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return p.model
}

// Endpoint returns the image-to-video task URL
func (p *Provider) Endpoint() string {
	return p.baseURL + "/v1/videos/image2video"
}

// BuildParams converts the request to Kling format.
// The style's motion strength is mapped onto cfg_scale in [0, 1].
func (p *Provider) BuildParams(req *adapters.Request) any {
	return &GenerationRequest{
		ModelName: p.model,
		Image:     req.ImageURL,
		Prompt:    req.Prompt,
		Mode:      "std",
		Duration:  "5",
		CfgScale:  cfgScale(req.MotionStrength),
	}
}

func cfgScale(motion int) float64 {
	if motion <= 0 {
		return 0.5
	}
	if motion > maxMotionStrength {
		motion = maxMotionStrength
	}
	return math.Round(float64(motion)/maxMotionStrength*100) / 100
}

// Attempt submits a task, waits for it and downloads the first video.
// Vendor-level failures are reported as a response with an error body.
func (p *Provider) Attempt(ctx context.Context, req *adapters.Request) (*adapters.RawResponse, error) {
	token, err := createJWTToken(p.accessKey, p.secretKey, p.now())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create JWT token")
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"Accept":        "application/json",
	}

	raw, err := adapters.DoJSON(ctx, p.client, http.MethodPost, p.Endpoint(), headers, p.BuildParams(req))
	if err != nil {
		return nil, err
	}
	submitted, failure := decode(raw)
	if failure != nil {
		return failure, nil
	}

	done, failure, err := p.waitForTask(ctx, headers, submitted.Data.TaskID)
	if err != nil || failure != nil {
		return failure, err
	}

	videos := done.Data.TaskResult.Videos
	if len(videos) == 0 || videos[0].URL == "" {
		return errorResponse("task succeeded without a video"), nil
	}
	return adapters.DoJSON(ctx, p.client, http.MethodGet, videos[0].URL, nil, nil)
}

func (p *Provider) waitForTask(ctx context.Context, headers map[string]string, taskID string) (*Response, *adapters.RawResponse, error) {
	if taskID == "" {
		return nil, errorResponse("no task id in submit response"), nil
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	url := fmt.Sprintf("%s/%s", p.Endpoint(), taskID)
	for {
		select {
		case <-ctx.Done():
			return nil, nil, errors.Wrapf(adapters.ErrTimeout, "kling task %s: %v", taskID, ctx.Err())
		case <-ticker.C:
			raw, err := adapters.DoJSON(ctx, p.client, http.MethodGet, url, headers, nil)
			if err != nil {
				return nil, nil, err
			}
			resp, failure := decode(raw)
			if failure != nil {
				return nil, failure, nil
			}

			switch resp.Data.TaskStatus {
			case "succeed":
				return resp, nil, nil
			case "failed":
				msg := resp.Data.TaskStatusMsg
				if msg == "" {
					msg = "kling task failed"
				}
				return nil, errorResponse(msg), nil
			}
		}
	}
}

// decode parses an envelope, returning the raw reply as failure when it is not a success
func decode(raw *adapters.RawResponse) (*Response, *adapters.RawResponse) {
	if raw.StatusCode < 200 || raw.StatusCode >= 300 {
		return nil, raw
	}
	var resp Response
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return nil, errorResponse("failed to decode response: " + err.Error())
	}
	if resp.Code != 0 {
		return nil, errorResponse(fmt.Sprintf("kling error %d: %s", resp.Code, resp.Message))
	}
	return &resp, nil
}

func errorResponse(msg string) *adapters.RawResponse {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return &adapters.RawResponse{
		StatusCode:  http.StatusBadGateway,
		Body:        body,
		ContentType: "application/json",
	}
}
