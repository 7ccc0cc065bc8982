package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geofeedkit/geofeed/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geofeed",
	Short: "Checks RFC 8805 geofeed CSV files before they are merged",
	Long:  "Validates geofeed files row by row: prefixes must sit inside the allocated supernet and country, region, and city columns must be well formed.",
	// Diagnostics are the output; a failed validation must not also print usage.
	SilenceErrors: true,
	SilenceUsage:  true,
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
		if !errors.Is(err, errValidationFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
