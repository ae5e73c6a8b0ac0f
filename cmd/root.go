package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geology-tools/ls4sm/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ls4sm",
	Short: "Lateral spreading susceptibility zoning toolkit",
	Long:  "Classifies sites into susceptibility zones from liquefaction index and slope, processes tabular and shapefile inputs, and tracks classification runs.",
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
