package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query [text...]",
	Short: "Answer one query about the workspace",
	Long: `Run a single query through the engine and print the answer.

Examples:
  # Ask about a file
  agentd query "show me package.json"

  # Point at a different workspace
  agentd query -C /srv/project "what does this service do?"

  # Machine-readable output
  agentd query --json "list the test files"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the full response as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	query := strings.Join(args, " ")
	resp := a.engine.ProcessQuery(cmd.Context(), query)

	if queryJSON {
		enc := jsonEncoder(os.Stdout)
		return enc.Encode(resp)
	}

	if !resp.Complete {
		for _, e := range resp.Errors {
			fmt.Fprintln(os.Stderr, "error:", e)
		}
		return fmt.Errorf("query did not complete")
	}

	fmt.Println(resp.ResponseText)

	if len(resp.ToolsExecuted) > 0 {
		a.logger.Debug("tools executed",
			zap.Strings("tools", resp.ToolsExecuted),
			zap.Duration("processing_time", resp.ProcessingTime),
		)
	}
	return nil
}

// jsonEncoder returns an indenting encoder for CLI output.
func jsonEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}
