package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/msgboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a msgboard configuration file without starting the server.

This command parses the YAML, expands environment variables, applies
defaults and validates all fields. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  msgboard validate -c msgboard.yaml
  msgboard validate --config /etc/msgboard/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	metrics := "disabled"
	if cfg.MetricsEnabled() {
		metrics = "enabled"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Listen:       %s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("  Logging:      %s (%s)\n", cfg.LogLevel, cfg.LogFormat)
	fmt.Printf("  Origins:      %s\n", strings.Join(cfg.CORS.AllowedOrigins, ", "))
	fmt.Printf("  Queue size:   %d\n", cfg.Hub.QueueSize)
	fmt.Printf("  Send timeout: %s\n", cfg.Hub.SendTimeout.Duration())
	fmt.Printf("  Metrics:      %s\n", metrics)

	return nil
}
