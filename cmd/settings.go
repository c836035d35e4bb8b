package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ewriter/internal/settings"
)

var (
	setProvider  string
	setGeminiKey string
	setOpenAIKey string
	setStyle     string
	setEnabled   string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or edit the translation settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored settings (API keys masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, st, err := openSettings(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		current, err := st.Load(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(current.Masked())
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change individual settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		database, st, err := openSettings(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		current, err := st.Load(ctx)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("provider") {
			current.APIProvider = settings.Provider(setProvider)
		}
		if flags.Changed("gemini-key") {
			current.GeminiAPIKey = setGeminiKey
		}
		if flags.Changed("openai-key") {
			current.OpenAIAPIKey = setOpenAIKey
		}
		if flags.Changed("style") {
			s, err := settings.ParseStyle(setStyle)
			if err != nil {
				return err
			}
			current.WritingStyle = s
		}

		if err := st.Save(ctx, current); err != nil {
			return err
		}

		if flags.Changed("enabled") {
			var enabled bool
			switch setEnabled {
			case "true", "on", "yes":
				enabled = true
			case "false", "off", "no":
			default:
				return fmt.Errorf("invalid --enabled %q: use true or false", setEnabled)
			}
			if err := st.SetEnabled(ctx, enabled); err != nil {
				return err
			}
		}

		fmt.Println("Settings saved.")
		return nil
	},
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Edit settings interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, st, err := openSettings(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		saved, err := settings.RunWizard(cmd.Context(), st)
		if err != nil {
			return err
		}
		fmt.Printf("Saved: %s, %s style.\n", saved.APIProvider.DisplayName(), saved.WritingStyle)
		return nil
	},
}

func init() {
	f := settingsSetCmd.Flags()
	f.StringVar(&setProvider, "provider", "", "translation provider: gemini or openai")
	f.StringVar(&setGeminiKey, "gemini-key", "", "Gemini API key")
	f.StringVar(&setOpenAIKey, "openai-key", "", "OpenAI API key")
	f.StringVar(&setStyle, "style", "", "writing style: formal or casual")
	f.StringVar(&setEnabled, "enabled", "", "turn translation on or off")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}
