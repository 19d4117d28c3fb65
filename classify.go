package animago

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultLoadingRetryAfter is the retry hint used when a loading provider declares no delay
const DefaultLoadingRetryAfter = 20

// MaxLoadingRetryAfter bounds provider-declared loading delays
const MaxLoadingRetryAfter = 300

const maxMessageBody = 256

var loadingMarker = []byte("loading")

// Classify decides what a provider response means.
//
// Checks run in order: a loading notice on a failure status wins over
// error parsing, and a 2xx body that parses as JSON without an error
// field is still the video.
func Classify(resp *RawResponse) Classification {
	if resp == nil {
		return Classification{Kind: ClassOtherFailure, Message: "no response"}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && bytes.Contains(bytes.ToLower(resp.Body), loadingMarker) {
		return Classification{
			Kind:       ClassModelLoading,
			Message:    truncate(resp.Body),
			RetryAfter: loadingDelay(resp.Body),
		}
	}

	if msg, found := structuredError(resp.Body); found {
		return Classification{Kind: ClassStructuredError, Message: msg}
	}

	if ok {
		if len(resp.Body) == 0 {
			return Classification{Kind: ClassOtherFailure, Message: "empty response body"}
		}
		return Classification{Kind: ClassBinarySuccess, Payload: resp.Body}
	}

	return Classification{
		Kind:    ClassOtherFailure,
		Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(resp.Body)),
	}
}

// structuredError extracts the error field of a JSON object body
func structuredError(body []byte) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}
	raw, ok := fields["error"]
	if !ok {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		msg := strings.Join(list, "; ")
		return msg, msg != ""
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message, true
	}

	if string(raw) == "null" || string(raw) == "false" {
		return "", false
	}
	return string(raw), true
}

// loadingDelay reads the provider-declared estimated_time in seconds
func loadingDelay(body []byte) int {
	var hint struct {
		EstimatedTime float64 `json:"estimated_time"`
	}
	if err := json.Unmarshal(body, &hint); err != nil || hint.EstimatedTime <= 0 {
		return DefaultLoadingRetryAfter
	}
	if hint.EstimatedTime > MaxLoadingRetryAfter {
		return MaxLoadingRetryAfter
	}
	return int(math.Ceil(hint.EstimatedTime))
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxMessageBody {
		return s
	}
	cut := maxMessageBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
