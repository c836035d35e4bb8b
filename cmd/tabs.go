package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/ewriter/internal/hub"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

var tabsServer string

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "Inspect and command pages connected to the dispatcher",
}

var tabsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		var tabs []hub.Tab
		if err := callAPI(http.MethodGet, "/api/tabs/", &tabs); err != nil {
			return err
		}
		if len(tabs) == 0 {
			fmt.Println("No pages connected.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tCONNECTED")
		for _, t := range tabs {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.URL, t.ConnectedAt.Local().Format(time.Kitchen))
		}
		return w.Flush()
	},
}

var tabsTranslateCmd = &cobra.Command{
	Use:   "translate-selection <tab-id>",
	Short: "Translate the selection of a page, like the context-menu command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res translate.Result
		if err := callAPI(http.MethodPost, "/api/tabs/"+url.PathEscape(args[0])+"/translate-selection", &res); err != nil {
			return err
		}
		if !res.IsSuccess() {
			return fmt.Errorf("%s", res.Error)
		}
		fmt.Println(res.TranslatedText)
		return nil
	},
}

var tabsToggleCmd = &cobra.Command{
	Use:   "toggle <tab-id>",
	Short: "Turn translation on or off from a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out struct {
			Enabled bool `json:"enabled"`
		}
		if err := callAPI(http.MethodPost, "/api/tabs/"+url.PathEscape(args[0])+"/toggle", &out); err != nil {
			return err
		}
		if out.Enabled {
			fmt.Println("Translation enabled.")
		} else {
			fmt.Println("Translation disabled.")
		}
		return nil
	},
}

// callAPI sends a bodiless request to the dispatcher and decodes the JSON reply.
func callAPI(method, path string, out any) error {
	req, err := http.NewRequest(method, apiBaseURL(cfg, tabsServer)+path, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting dispatcher (is `ewriter serve` running?): %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("dispatcher: %s", apiErr.Error)
		}
		return fmt.Errorf("dispatcher: HTTP %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

func init() {
	tabsCmd.PersistentFlags().StringVar(&tabsServer, "server", "", "dispatcher address (default: listen_addr)")
	tabsCmd.AddCommand(tabsListCmd, tabsTranslateCmd, tabsToggleCmd)
	rootCmd.AddCommand(tabsCmd)
}
