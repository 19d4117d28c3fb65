package animago

// Outcome is the terminal result of one generation request.
// It is one of *Success, *Retryable, *Exhausted or *Rejected.
type Outcome interface {
	outcome()
	// Kind returns a short label used in logs and metrics
	Kind() string
}

// Success carries the encoded video of the first provider that produced one
type Success struct {
	video    string
	provider string
}

// newSuccess builds a Success from a classified binary response
func newSuccess(provider string, c Classification) *Success {
	return &Success{
		video:    EncodeDataURL(c.Payload),
		provider: provider,
	}
}

// Video returns the self-contained data URL of the generated video
func (s *Success) Video() string { return s.video }

// Provider returns the name of the provider that produced the video
func (s *Success) Provider() string { return s.provider }

func (*Success) outcome()       {}
func (*Success) Kind() string   { return "success" }
func (*Retryable) outcome()     {}
func (*Retryable) Kind() string { return "retryable" }
func (*Exhausted) outcome()     {}
func (*Exhausted) Kind() string { return "exhausted" }
func (*Rejected) outcome()      {}
func (*Rejected) Kind() string  { return "rejected" }

// Retryable reports a transient provider state the caller should retry after
type Retryable struct {
	Reason            string
	RetryAfterSeconds int
	Provider          string
}

// Exhausted reports that every configured provider failed
type Exhausted struct {
	AttemptedProviders []string
	LastErrors         []string
}

// RejectionKind identifies why a request was rejected before reaching any provider
type RejectionKind string

const (
	RejectMissingImage  RejectionKind = "MissingImage"
	RejectUnknownStyle  RejectionKind = "UnknownStyle"
	RejectMalformedBody RejectionKind = "MalformedBody"
)

// Rejected reports an invalid request
type Rejected struct {
	Reason RejectionKind
	Detail string
}

// Error implements error so a rejection can travel through error returns
func (r *Rejected) Error() string {
	if r.Detail != "" {
		return string(r.Reason) + ": " + r.Detail
	}
	return string(r.Reason)
}
