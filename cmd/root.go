package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AA-Fatima/599-cal/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cal",
	Short: "Free-text food calorie and macro calculator",
	Long:  "Resolves free-text food queries (English and Arabic) against a reference catalog, applies ingredient modifications, and computes calories and macros.",
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
