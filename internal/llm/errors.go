package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is returned when a provider answers with a non-2xx status.
// Detail is the provider's error message when the body is JSON, else the raw body.
type APIError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error (%s, HTTP %d): %s", e.Provider, e.StatusCode, e.Detail)
}

// ParseError is returned when a 2xx response does not have the expected shape.
// The decode cause, if any, is available through Unwrap.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Could not extract translation from %s API response.", e.Provider)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ContentBlockedError is returned when the provider refuses the prompt for safety reasons.
type ContentBlockedError struct {
	Reason string
}

func (e *ContentBlockedError) Error() string {
	return "Content blocked by API: " + e.Reason
}

// errorDetail extracts a human-readable message from an error response body:
// error.message (or a top-level message) when the body is JSON, the
// compacted JSON otherwise, and the trimmed raw text when it is not JSON at all.
func errorDetail(body []byte) string {
	var parsed struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		text := strings.TrimSpace(string(body))
		if text == "" {
			return "empty response body"
		}
		return text
	}

	if len(parsed.Error) > 0 {
		var inner struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(parsed.Error, &inner) == nil && inner.Message != "" {
			return inner.Message
		}
		var s string
		if json.Unmarshal(parsed.Error, &s) == nil && s != "" {
			return s
		}
	}
	if parsed.Message != "" {
		return parsed.Message
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err == nil {
		return compact.String()
	}
	return strings.TrimSpace(string(body))
}
