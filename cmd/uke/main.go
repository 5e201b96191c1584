package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Uke-Messaging/uke-pallet/internal/app"
	"github.com/Uke-Messaging/uke-pallet/pkg/config"
	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
)

// set build metadata
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// load .env file if present
	_ = godotenv.Load(".env")

	flags, err := config.ParseConfigFlags(os.Args[1:])
	if err != nil {
		abort("failed to parse flags", err)
	}

	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		abort("failed to load config file", err)
	}

	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists)
	if err != nil {
		abort("failed to build effective config", err)
	}
	if err := config.ValidateConfig(eff); err != nil {
		abort("invalid configuration", err)
	}

	// initialize logger after config is fully loaded
	logger.Init(eff.Config.Logging.Level, eff.Config.Logging.Format, eff.Config.Logging.Sink)
	defer logger.Sync()
	logger.Info("effective_config_loaded", "source", eff.Source, "addr", eff.Addr, "db_path", eff.DBPath)

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		abort("failed to initialize app", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runErr := a.Run(ctx)
	if runErr != nil {
		logger.Error("app_run_failed", "error", runErr)
	}

	// bounded so teardown cannot hang forever
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_failed", "error", err)
	}
	if runErr != nil {
		logger.Sync()
		os.Exit(1)
	}
}

func abort(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	logger.Error(msg, "error", err)
	logger.Sync()
	os.Exit(1)
}
