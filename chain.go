package animago

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ChainConfig holds configuration for the provider chain.
// ProviderTimeouts overrides AttemptTimeout for the named providers.
type ChainConfig struct {
	AttemptTimeout   time.Duration
	ProviderTimeouts map[string]time.Duration
	LoadingPolicy    LoadingPolicy
	Observer         AttemptObserver
	Logger           *zap.Logger
}

// DefaultChainConfig returns default chain configuration
func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{
		AttemptTimeout: 90 * time.Second,
		LoadingPolicy:  LoadingAbort,
	}
}

// Chain tries providers in priority order until one produces a video
type Chain struct {
	providers []Provider
	config    ChainConfig
	logger    *zap.Logger
}

// NewChain creates a chain over providers; their order is the fallback priority
func NewChain(providers []Provider, config ...*ChainConfig) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	cfg := *DefaultChainConfig()
	if len(config) > 0 && config[0] != nil {
		cfg = *config[0]
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultChainConfig().AttemptTimeout
	}
	switch cfg.LoadingPolicy {
	case LoadingAbort, LoadingContinue:
	case "":
		cfg.LoadingPolicy = LoadingAbort
	default:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "unknown loading policy %q", cfg.LoadingPolicy)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Chain{
		providers: append([]Provider(nil), providers...),
		config:    cfg,
		logger:    logger.With(zap.String("component", "provider_chain")),
	}, nil
}

// ProviderNames returns the provider names in priority order
func (c *Chain) ProviderNames() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Run tries each provider once, in order.
// A non-nil error is returned only when ctx ends before an outcome is reached.
func (c *Chain) Run(ctx context.Context, req ValidatedRequest) (Outcome, error) {
	prompt := ComposePrompt(req.Prompt(), req.Style())
	profile := req.Profile()

	var (
		attempted []string
		failures  []string
		loading   *Retryable
	)

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "generation abandoned")
		}

		name := p.Name()
		attempted = append(attempted, name)

		class, err := c.attempt(ctx, p, req, prompt, profile)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrapf(ctxErr, "generation abandoned during %s", name)
		}
		if err != nil {
			c.logger.Warn("provider attempt failed", zap.String("provider", name), zap.Error(err))
			failures = append(failures, (&APIError{Provider: name, Message: err.Error(), Kind: AttemptResultError}).Error())
			continue
		}

		switch class.Kind {
		case ClassBinarySuccess:
			c.logger.Info("provider produced video",
				zap.String("provider", name),
				zap.Int("bytes", len(class.Payload)),
			)
			return newSuccess(name, class), nil

		case ClassModelLoading:
			c.logger.Info("provider model loading",
				zap.String("provider", name),
				zap.Int("retry_after", class.RetryAfter),
			)
			r := &Retryable{
				Reason:            fmt.Sprintf("model %s is loading", name),
				RetryAfterSeconds: class.RetryAfter,
				Provider:          name,
			}
			if c.config.LoadingPolicy == LoadingAbort {
				return r, nil
			}
			if loading == nil {
				loading = r
			}
			failures = append(failures, (&APIError{Provider: name, Message: "model loading", Kind: class.Kind}).Error())

		default:
			apiErr := &APIError{Provider: name, Message: class.Message, Kind: class.Kind}
			c.logger.Warn("provider attempt failed",
				zap.String("provider", name),
				zap.String("kind", string(class.Kind)),
				zap.String("message", class.Message),
			)
			failures = append(failures, apiErr.Error())
		}
	}

	if loading != nil {
		return loading, nil
	}
	return &Exhausted{AttemptedProviders: attempted, LastErrors: failures}, nil
}

// attempt performs one bounded provider call and classifies its reply
func (c *Chain) attempt(ctx context.Context, p Provider, req ValidatedRequest, prompt string, profile StyleProfile) (Classification, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout(p.Name()))
	defer cancel()

	start := time.Now()
	resp, err := p.Attempt(attemptCtx, req, prompt, profile)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(p.Name(), AttemptResultError, elapsed)
		return Classification{}, err
	}

	class := Classify(resp)
	c.observe(p.Name(), class.Kind, elapsed)
	c.logger.Debug("provider attempt",
		zap.String("provider", p.Name()),
		zap.Int("status", resp.StatusCode),
		zap.String("classification", string(class.Kind)),
		zap.Duration("duration", elapsed),
	)
	return class, nil
}

func (c *Chain) attemptTimeout(provider string) time.Duration {
	if d := c.config.ProviderTimeouts[provider]; d > 0 {
		return d
	}
	return c.config.AttemptTimeout
}

func (c *Chain) observe(provider string, kind ClassKind, elapsed time.Duration) {
	if c.config.Observer != nil {
		c.config.Observer.ObserveAttempt(provider, kind, elapsed)
	}
}
