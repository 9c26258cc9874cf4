package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KennyGael/Hazard-Atlas/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hazard-atlas",
	Short: "Recall map backend",
	Long:  "Fetches food and drug enforcement records from openFDA, geocodes recall addresses through a throttled queue with a persistent cache, and serves the unified set for an interactive map.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
