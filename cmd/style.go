package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geology-tools/ls4sm/internal/style"
)

var styleOutDir string

var styleCmd = &cobra.Command{
	Use:   "style",
	Short: "Write QGIS layer styles",
	Long:  "Writes QML style files for the susceptibility zone layer and the slope layer, matching the zone color palette.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		paths, err := style.WriteStyleFiles(styleOutDir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			zap.L().Info("style written", zap.String("path", p))
		}
		return nil
	},
}

func init() {
	styleCmd.Flags().StringVar(&styleOutDir, "out", ".", "output directory")
	rootCmd.AddCommand(styleCmd)
}
