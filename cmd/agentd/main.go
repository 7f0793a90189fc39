// Package main implements the agentd CLI: an agentic coding assistant that
// answers queries by driving an LLM through sandboxed workspace tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	workingDir string
	debug      bool

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentd",
	Short: "Agentic coding assistant for your workspace",
	Long: `agentd answers natural-language queries about a workspace by letting an
LLM call sandboxed tools (file I/O, git inspection, shell commands) and
folding their results back into the conversation.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/agentd/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workingDir, "workdir", "C", "", "workspace directory (default current directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
}
