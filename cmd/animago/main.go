package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/feitianbubu/animago"
	"github.com/feitianbubu/animago/internal/api"
	"github.com/feitianbubu/animago/internal/config"
	"github.com/feitianbubu/animago/internal/logging"
	"github.com/feitianbubu/animago/internal/metrics"
)

const (
	sentryFlushTimeout = 2 * time.Second
	shutdownTimeout    = 30 * time.Second
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     "animago@" + releaseVersion,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			logger.Warn("failed to initialize sentry", zap.Error(err))
		} else {
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	for _, cred := range cfg.Credentials() {
		if cred.Value == "" {
			logger.Warn("credential not set, generation requests will fail", zap.String("env", cred.Name))
			continue
		}
		logger.Info("credential loaded", zap.String("env", cred.Name), zap.String("value", logging.SanitizeToken(cred.Value)))
	}

	if err := run(cfg, logger); err != nil {
		sentry.CaptureException(err)
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	collector := metrics.NewCollector(metrics.DefaultNamespace, logger)

	providers, err := cfg.Providers(nil)
	if err != nil {
		return err
	}

	chainCfg := cfg.ChainOptions()
	chainCfg.Observer = collector
	chainCfg.Logger = logger
	chain, err := animago.NewChain(providers, chainCfg)
	if err != nil {
		return err
	}

	service := animago.NewService(chain, cfg.Credentials(), logger)

	server := api.NewServer(api.ServerConfig{
		Port:           cfg.Server.Port,
		Generator:      service,
		Metrics:        collector,
		Logger:         logger,
		Providers:      chain.ProviderNames(),
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		StartTime:      time.Now(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("animago started",
		zap.String("addr", server.Addr()),
		zap.Strings("providers", chain.ProviderNames()),
		zap.String("loading_policy", cfg.Chain.LoadingPolicy),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string, len(headers))
	for k, v := range headers {
		switch k {
		case "Authorization", "authorization", "Cookie", "cookie":
			filtered[k] = "[REDACTED]"
		default:
			filtered[k] = v
		}
	}
	return filtered
}
