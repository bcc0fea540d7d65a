// Package main is the entry point for the rpkica CA core daemon.
package main

import (
	"github.com/jrschumacher/rpkica/cmd"
	"github.com/jrschumacher/rpkica/internal/config"
	"github.com/jrschumacher/rpkica/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	cmd.Execute(cfg)
}
