// Package cli defines the cobra commands of symptomctl, a terminal front end
// for running and inspecting symptom checks without AWS.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"symptom-checker/internal/catalog"
)

var version = "dev" // set via ldflags at build time

type rootOptions struct {
	contentPath string
	logLevel    string
}

// NewRootCmd builds the symptomctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "symptomctl",
		Short: "Run oncology symptom checks in the terminal",
		Long: `symptomctl drives the symptom checker engine locally. It uses the
built-in symptom catalog unless --content points at a YAML catalog file.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&opts.contentPath, "content", "", "YAML symptom catalog to use instead of the built-in one")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level written to stderr (debug, info, warn, error)")

	cmd.AddCommand(newSymptomsCmd(opts))
	cmd.AddCommand(newChatCmd(opts))
	return cmd
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return catalog.LoadWithDefaultLogic(f)
}
