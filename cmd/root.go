package cmd

import (
	"os"

	"github.com/jrschumacher/rpkica/internal/config"
	"github.com/jrschumacher/rpkica/internal/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rpkica",
	Short: "rpkica CA core",
	Long:  `rpkica — RPKI Certificate Authority core: login session cache and ASPA object lifecycle`,
}

func Execute(c *config.Config) {
	cfg = c
	logger.Info("Starting CLI", "env", cfg.AppEnv)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("CLI error", "error", err)
		os.Exit(1)
	}
}
