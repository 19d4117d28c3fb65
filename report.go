package animago

import (
	"net/http"
)

// DefaultExhaustedRetryAfter is the retry hint sent when no provider could serve the request
const DefaultExhaustedRetryAfter = 30

const (
	msgExhausted     = "video generation temporarily unavailable, please retry later"
	msgMisconfigured = "service misconfigured: missing credential"
	msgDeadline      = "request deadline exceeded"
	msgInternal      = "internal server error"
)

// Response is the uniform body returned to callers whatever provider served them
type Response struct {
	Success            bool     `json:"success"`
	VideoURL           string   `json:"videoUrl,omitempty"`
	Model              string   `json:"model,omitempty"`
	Error              string   `json:"error,omitempty"`
	RetryAfter         *int     `json:"retryAfter,omitempty"`
	AttemptedProviders []string `json:"attemptedProviders,omitempty"`
	ProviderErrors     []string `json:"providerErrors,omitempty"`
}

// Report maps an outcome to an HTTP status and response body
func Report(outcome Outcome) (int, Response) {
	switch o := outcome.(type) {
	case *Success:
		return http.StatusOK, Response{Success: true, VideoURL: o.Video(), Model: o.Provider()}

	case *Retryable:
		retry := o.RetryAfterSeconds
		if retry <= 0 {
			retry = DefaultLoadingRetryAfter
		}
		return http.StatusServiceUnavailable, Response{
			Error:      o.Reason,
			Model:      o.Provider,
			RetryAfter: &retry,
		}

	case *Exhausted:
		retry := DefaultExhaustedRetryAfter
		return http.StatusServiceUnavailable, Response{
			Error:              msgExhausted,
			RetryAfter:         &retry,
			AttemptedProviders: o.AttemptedProviders,
			ProviderErrors:     o.LastErrors,
		}

	case *Rejected:
		return http.StatusBadRequest, Response{Error: rejectionMessage(o)}

	default:
		return http.StatusInternalServerError, Response{Error: msgInternal}
	}
}

// ReportError maps a pipeline error to an HTTP status and a sanitized body
func ReportError(err error) (int, Response) {
	switch {
	case IsConfigurationError(err):
		return http.StatusInternalServerError, Response{Error: msgMisconfigured}
	case IsDeadlineError(err):
		retry := DefaultExhaustedRetryAfter
		return http.StatusServiceUnavailable, Response{Error: msgDeadline, RetryAfter: &retry}
	default:
		return http.StatusInternalServerError, Response{Error: msgInternal}
	}
}

func rejectionMessage(r *Rejected) string {
	switch r.Reason {
	case RejectMissingImage:
		return "imageUrl is required"
	case RejectUnknownStyle:
		return "animationStyle must be one of smooth, dynamic, cinematic"
	case RejectMalformedBody:
		return "request body must be valid JSON"
	default:
		return string(r.Reason)
	}
}
