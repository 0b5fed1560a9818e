// Command rankctl operates the ranking service from a shell: serving,
// migrating, and recomputing or inspecting a period's ranking.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hsdash/internal/platform/config"
	"hsdash/internal/platform/logging"
)

var rootCmd = &cobra.Command{
	Use:           "rankctl",
	Short:         "Operate the HR and safety ranking service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return logging.InitWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
