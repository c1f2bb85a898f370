// Package cli implements the csvtable command-line interface.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvtable/internal/logging"
)

// defaultMaxSize matches the server's CONVERT_MAX_INPUT_SIZE default.
const defaultMaxSize = 5 << 20

var (
	// Global flags
	verbose bool
	maxSize int64
)

// RootCmd is the csvtable command tree.
var RootCmd = &cobra.Command{
	Use:   "csvtable",
	Short: "Convert CSV into HTML tables and WordPress table blocks",
	Long: `csvtable turns comma-separated text into table markup.

It reads a file or standard input, parses it with a forgiving CSV
parser and writes either a plain HTML <table> or a WordPress
table block ready to paste into the block editor.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	RootCmd.PersistentFlags().Int64Var(&maxSize, "max-size", defaultMaxSize, "Maximum input size in bytes (0 disables the limit)")
}

// commandLogger writes to the command's stderr so stdout stays clean for
// markup.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logging.New(cmd.ErrOrStderr(), level, "text")
}
