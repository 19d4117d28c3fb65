package animago

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Credential is a secret a configured provider needs before it can be called
type Credential struct {
	Name  string
	Value string
}

// Service runs the full request pipeline: validation, configuration check, provider chain
type Service struct {
	chain       *Chain
	credentials []Credential
	logger      *zap.Logger
}

// NewService creates a service over chain. credentials lists the secrets of
// the providers in the chain. A missing credential is not an error here; it
// is reported per request.
func NewService(chain *Chain, credentials []Credential, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		chain:       chain,
		credentials: append([]Credential(nil), credentials...),
		logger:      logger.With(zap.String("component", "service")),
	}
}

// Generate handles one request. The returned error is a *ConfigurationError,
// a context error when the request was abandoned, or an internal failure.
func (s *Service) Generate(ctx context.Context, req GenerationRequest) (Outcome, error) {
	validated, rejected := Validate(req)
	if rejected != nil {
		s.logger.Info("request rejected", zap.String("reason", string(rejected.Reason)))
		return rejected, nil
	}

	for _, cred := range s.credentials {
		if strings.TrimSpace(cred.Value) == "" {
			return nil, &ConfigurationError{Name: cred.Name, Err: ErrMissingCredential}
		}
	}

	outcome, err := s.chain.Run(ctx, validated)
	if err != nil {
		return nil, err
	}

	s.logger.Info("generation finished",
		zap.String("outcome", outcome.Kind()),
		zap.String("style", string(validated.Style())),
	)
	return outcome, nil
}
