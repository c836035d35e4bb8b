package translate

import (
	"fmt"

	"github.com/ziadkadry99/ewriter/internal/settings"
)

const (
	formalInstruction = "Please translate the following Traditional Chinese text into formal, written English suitable for academic or professional contexts. Ensure the translation is accurate, grammatically correct, and maintains a professional tone."
	casualInstruction = "Please translate the following Traditional Chinese text into casual, spoken English, like how a native speaker would chat with a friend. Use common idioms and contractions if appropriate, but keep it natural."

	formalSystem = "You are a professional English translator. Translate Traditional Chinese to formal, written English suitable for academic or professional contexts."
	casualSystem = "You are a native English speaker. Translate Traditional Chinese to casual, spoken English as if chatting with a friend."
)

// BuildPrompt embeds the style instruction and the source text in a single
// prompt. Any style other than casual is treated as formal.
func BuildPrompt(text string, style settings.Style) string {
	instruction := formalInstruction
	if style == settings.StyleCasual {
		instruction = casualInstruction
	}
	return fmt.Sprintf("%s\n\nTraditional Chinese: \"%s\"\n\nEnglish Translation:", instruction, text)
}

// SystemPrompt is the chat system message for providers that take the raw
// text as a separate user message.
func SystemPrompt(style settings.Style) string {
	if style == settings.StyleCasual {
		return casualSystem
	}
	return formalSystem
}
