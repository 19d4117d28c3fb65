package animago

import "strings"

// ComposePrompt derives the provider-agnostic generation prompt.
// Without a user prompt the result is the style suffix alone; a supplied
// prompt is kept verbatim and the suffix is appended once.
func ComposePrompt(prompt string, style Style) string {
	profile, ok := Profile(style)
	if !ok {
		return prompt
	}

	if strings.TrimSpace(prompt) == "" {
		return profile.Suffix
	}
	if strings.Contains(strings.ToLower(prompt), strings.ToLower(profile.Suffix)) {
		return prompt
	}
	return prompt + ", " + profile.Suffix
}
