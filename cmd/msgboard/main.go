// Package main is the entry point for the msgboard CLI.
//
// msgboard can be run either as a library (SDK) or as a standalone binary.
// This CLI provides the standalone server plus a small client for a running
// board.
//
// Usage:
//
//	msgboard serve                      # Start the board with defaults
//	msgboard serve -c msgboard.yaml     # Start the board from a config file
//	msgboard validate -c msgboard.yaml  # Validate configuration
//	msgboard post "hello world"         # Post to a running board
//	msgboard watch                      # Stream live updates
//	msgboard version                    # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "msgboard",
	Short: "A small real-time message board",
	Long: `msgboard is a small real-time message board.

Anyone can post a short message, like or dislike existing messages, and
watch the board update live in the browser or the terminal.

Quick start:
  1. Run: msgboard serve
  2. Open http://localhost:8000 in your browser
  3. Or from another terminal: msgboard post "hello"

Example config:
  port: 8000
  title: Team Wall
  hub:
    queue_size: 16
    send_timeout: 5s`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this msgboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "msgboard %s\n", version)
		_, _ = fmt.Fprintf(out, "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
