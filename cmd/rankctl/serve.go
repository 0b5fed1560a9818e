package main

import (
	"github.com/spf13/cobra"

	"hsdash/internal/app/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the recompute scheduler",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return server.RunWithConfig(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
