package animago

import "strings"

// Validate checks a request before any configuration lookup or network call
func Validate(req GenerationRequest) (ValidatedRequest, *Rejected) {
	imageURL := strings.TrimSpace(req.ImageURL)
	if imageURL == "" {
		return ValidatedRequest{}, &Rejected{Reason: RejectMissingImage, Detail: "imageUrl is required"}
	}

	style := req.Style
	if style == "" {
		style = DefaultStyle
	}
	profile, ok := Profile(style)
	if !ok {
		return ValidatedRequest{}, &Rejected{
			Reason: RejectUnknownStyle,
			Detail: "animationStyle must be one of smooth, dynamic, cinematic",
		}
	}

	return ValidatedRequest{
		imageURL: imageURL,
		prompt:   req.Prompt,
		style:    style,
		profile:  profile,
	}, nil
}
