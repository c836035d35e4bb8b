package translate

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Result is the outcome of a translation: exactly one of TranslatedText or
// Error is meaningful. A zero Result is a successful empty translation.
type Result struct {
	TranslatedText string
	Error          string
	failed         bool
}

// Success returns a successful result.
func Success(text string) Result {
	return Result{TranslatedText: text}
}

// Failure returns a failed result carrying a user-facing message.
func Failure(msg string) Result {
	if msg == "" {
		msg = "Translation failed"
	}
	return Result{Error: msg, failed: true}
}

// IsSuccess reports whether the translation succeeded.
func (r Result) IsSuccess() bool {
	return !r.failed
}

type resultWire struct {
	TranslatedText *string `json:"translatedText,omitempty"`
	Error          *string `json:"error,omitempty"`
}

// MarshalJSON encodes {"translatedText": ...} or {"error": ...}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.failed {
		return json.Marshal(resultWire{Error: &r.Error})
	}
	return json.Marshal(resultWire{TranslatedText: &r.TranslatedText})
}

// UnmarshalJSON decodes either shape. An error key wins when both are present.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Error != nil:
		*r = Failure(*w.Error)
	case w.TranslatedText != nil:
		*r = Success(*w.TranslatedText)
	default:
		return errors.New("translation result has neither translatedText nor error")
	}
	return nil
}

func (r Result) String() string {
	if r.failed {
		return "error: " + r.Error
	}
	return r.TranslatedText
}

// ConfigurationError is returned when the selected provider has no API key.
type ConfigurationError struct {
	Provider string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s API Key not configured. Please set it in the extension options.", e.Provider)
}

// ResultFromError converts any error into a Failure. A nil error is not a
// failure and yields an empty Success.
func ResultFromError(err error) Result {
	if err == nil {
		return Success("")
	}
	return Failure(err.Error())
}
