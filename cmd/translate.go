package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ewriter/internal/progress"
	"github.com/ziadkadry99/ewriter/internal/settings"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

var (
	translateStyle   string
	translateFile    string
	translateWorkers int
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate Traditional Chinese text to English",
	Long: `Translates the given text with the stored provider and style. With --file,
the file is split into paragraphs that are translated concurrently. Without
text or --file, stdin is read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var style *settings.Style
		if translateStyle != "" {
			s, err := settings.ParseStyle(translateStyle)
			if err != nil {
				return err
			}
			style = &s
		}

		database, st, err := openSettings(cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		d := newDispatcher(cfg, st)

		if translateFile == "" && len(args) > 0 {
			out, err := d.TranslateErr(ctx, translate.Request{Text: strings.Join(args, " "), Style: style})
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}

		text, err := readInput(translateFile)
		if err != nil {
			return err
		}
		paragraphs := translate.SplitParagraphs(text)
		if len(paragraphs) == 0 {
			return nil
		}

		results, err := d.TranslateBatch(ctx, paragraphs, style, translateWorkers, progress.NewReporter(os.Stderr))
		if err != nil {
			return err
		}

		failed := 0
		for i, res := range results {
			if i > 0 {
				fmt.Println()
			}
			if !res.IsSuccess() {
				failed++
				fmt.Printf("[paragraph %d failed: %s]\n", i+1, res.Error)
				continue
			}
			fmt.Println(res.TranslatedText)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d paragraphs failed", failed, len(results))
		}
		return nil
	},
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func init() {
	translateCmd.Flags().StringVar(&translateStyle, "style", "", "writing style: formal or casual (default: stored preference)")
	translateCmd.Flags().StringVarP(&translateFile, "file", "f", "", "translate a file paragraph by paragraph (- for stdin)")
	translateCmd.Flags().IntVar(&translateWorkers, "workers", 3, "concurrent requests for --file")
	rootCmd.AddCommand(translateCmd)
}
