package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard interactively edits the stored settings, the terminal
// equivalent of the extension's options page.
func RunWizard(ctx context.Context, store *Store) (Settings, error) {
	current, err := store.Load(ctx)
	if err != nil {
		return Settings{}, err
	}

	fmt.Println("English writer settings")
	fmt.Println()

	providers := []Provider{ProviderGemini, ProviderOpenAI}
	providerPrompt := promptui.Select{
		Label:     "Translation provider",
		Items:     []string{"gemini", "openai"},
		CursorPos: indexOf(providers, current.APIProvider),
	}
	idx, _, err := providerPrompt.Run()
	if err != nil {
		return Settings{}, fmt.Errorf("provider selection: %w", err)
	}
	next := current
	next.APIProvider = providers[idx]

	keyPrompt := promptui.Prompt{
		Label: next.APIProvider.DisplayName() + " API key (leave blank to keep current)",
		Mask:  '*',
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" && strings.TrimSpace(next.APIKey()) == "" {
				return errors.New("an API key is required for " + next.APIProvider.DisplayName())
			}
			return nil
		},
	}
	key, err := keyPrompt.Run()
	if err != nil {
		return Settings{}, fmt.Errorf("api key: %w", err)
	}
	if key = strings.TrimSpace(key); key != "" {
		if next.APIProvider == ProviderOpenAI {
			next.OpenAIAPIKey = key
		} else {
			next.GeminiAPIKey = key
		}
	}

	styles := []Style{StyleFormal, StyleCasual}
	stylePrompt := promptui.Select{
		Label: "Writing style",
		Items: []string{
			"formal - written English for academic or professional contexts",
			"casual - spoken English, like chatting with a friend",
		},
		CursorPos: indexOf(styles, current.WritingStyle),
	}
	styleIdx, _, err := stylePrompt.Run()
	if err != nil {
		return Settings{}, fmt.Errorf("style selection: %w", err)
	}
	next.WritingStyle = styles[styleIdx]

	if err := store.Save(ctx, next); err != nil {
		return Settings{}, err
	}

	fmt.Println("\nSettings saved.")
	return next, nil
}

func indexOf[T comparable](items []T, v T) int {
	for i, it := range items {
		if it == v {
			return i
		}
	}
	return 0
}
