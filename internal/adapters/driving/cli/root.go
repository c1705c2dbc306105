// Package cli provides the keepstack command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/keepstack/keepstack/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configPath  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "keepstack",
	Short: "Note indexing and retrieval-grounded chat",
	Long: `Keepstack indexes your notes and their PDF attachments into a local
vector store and answers questions about them over a streaming chat API.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config file (default ~/.keepstack/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
