package animago

// Style represents the named animation style of a request
type Style string

const (
	StyleSmooth    Style = "smooth"
	StyleDynamic   Style = "dynamic"
	StyleCinematic Style = "cinematic"
)

// DefaultStyle is used when a request carries no animationStyle
const DefaultStyle = StyleSmooth

// GenerationRequest represents an inbound image-to-video request
type GenerationRequest struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt,omitempty"`
	Style    Style  `json:"animationStyle,omitempty"`
}

// StyleProfile holds the prompt suffix and motion intensity of one style
type StyleProfile struct {
	Suffix         string
	MotionStrength int
}

// ValidatedRequest is a GenerationRequest that passed Validate.
// It can only be obtained from Validate.
type ValidatedRequest struct {
	imageURL string
	prompt   string
	style    Style
	profile  StyleProfile
}

// ImageURL returns the hosted image reference
func (v ValidatedRequest) ImageURL() string { return v.imageURL }

// Prompt returns the user prompt, empty when none was supplied
func (v ValidatedRequest) Prompt() string { return v.prompt }

// Style returns the resolved animation style
func (v ValidatedRequest) Style() Style { return v.style }

// Profile returns the style profile resolved for the request
func (v ValidatedRequest) Profile() StyleProfile { return v.profile }

// RawResponse represents the unclassified reply of one provider attempt
type RawResponse struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// ClassKind represents the classification of a provider response
type ClassKind string

const (
	ClassBinarySuccess   ClassKind = "binary_success"
	ClassStructuredError ClassKind = "structured_error"
	ClassModelLoading    ClassKind = "model_loading"
	ClassOtherFailure    ClassKind = "other_failure"
)

// Classification is the result of Classify
type Classification struct {
	Kind       ClassKind
	Payload    []byte
	Message    string
	RetryAfter int
}

// LoadingPolicy decides what the chain does when a provider reports that its model is still loading
type LoadingPolicy string

const (
	// LoadingAbort stops the chain and asks the caller to retry the whole request
	LoadingAbort LoadingPolicy = "abort"
	// LoadingContinue moves on to the next provider and only reports the
	// loading signal when every remaining provider fails
	LoadingContinue LoadingPolicy = "continue"
)
