// Package message defines the envelope exchanged between the dispatcher and
// page controllers, a router that maps message types to handlers, and a
// connection that correlates requests with their replies.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/ziadkadry99/ewriter/internal/translate"
)

// Type names a message kind.
type Type string

const (
	TypeTranslateText      Type = "TRANSLATE_TEXT"
	TypeToggleEnabled      Type = "TOGGLE_ENABLED"
	TypeTranslationStarted Type = "TRANSLATION_STARTED"
	TypeDisplayTranslation Type = "DISPLAY_TRANSLATION"
	TypeGetShortcutInfo    Type = "GET_SHORTCUT_INFO"
	TypeGetSelection       Type = "GET_SELECTION"
	TypeAck                Type = "ACK"
)

// Envelope is the wire frame. A reply carries ReplyTo set to the request ID
// and either a Payload or an Error.
type Envelope struct {
	ID      uint64          `json:"id"`
	Type    Type            `json:"type"`
	ReplyTo uint64          `json:"reply_to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// IsReply reports whether e answers an earlier request.
func (e Envelope) IsReply() bool {
	return e.ReplyTo != 0
}

// Decode unmarshals the payload into dst. An empty payload leaves dst untouched.
func (e Envelope) Decode(dst any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return nil
}

// TranslateText asks the dispatcher to translate Text. The reply payload is
// a translate.Result.
type TranslateText struct {
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
}

// ToggleEnabled tells a page whether the feature is on.
type ToggleEnabled struct {
	Enabled bool `json:"enabled"`
}

// TranslationStarted tells a page a translation is in flight.
type TranslationStarted struct {
	RequestID uint64 `json:"request_id"`
}

// DisplayTranslation delivers the outcome of the request with RequestID.
type DisplayTranslation struct {
	RequestID uint64           `json:"request_id"`
	Result    translate.Result `json:"result"`
}

// ShortcutInfo is the reply to GET_SHORTCUT_INFO. An empty Shortcut means
// no binding is assigned.
type ShortcutInfo struct {
	Shortcut string `json:"shortcut"`
}

// Selection is the reply to GET_SELECTION.
type Selection struct {
	Text string `json:"text"`
}

// RemoteError is returned by Conn.Request when the peer's handler failed.
type RemoteError struct {
	Type    Type
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}
