package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kenjp1223/dual-camera/cmd/dualcamctl/cli"
	"github.com/kenjp1223/dual-camera/core/ccc/logging"
	"github.com/kenjp1223/dual-camera/core/config"
	"github.com/kenjp1223/dual-camera/core/fusion"
	"github.com/kenjp1223/dual-camera/core/media"
	"github.com/kenjp1223/dual-camera/core/nodeclient"
	"github.com/kenjp1223/dual-camera/core/nodes"
	"github.com/kenjp1223/dual-camera/core/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("DUALCAM_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.CreateLogger(logging.LogLevel(cfg.LogLevel), cfg.LogPath, "dualcamctl")

	database, err := sql.Open("sqlite3", cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	nodeRepo, err := nodes.NewSQLiteNodeRepository(database)
	if err != nil {
		return fmt.Errorf("initializing node repository: %w", err)
	}

	sessionRepo, err := session.NewSQLiteSessionRepository(database)
	if err != nil {
		return fmt.Errorf("initializing session repository: %w", err)
	}

	commandTimeout := 5 * time.Second
	if cfg.CommandTimeoutSecs > 0 {
		commandTimeout = time.Duration(cfg.CommandTimeoutSecs) * time.Second
	}

	prober := media.NewFFmpegProber(logger)

	deps := &cli.Dependencies{
		Config:      cfg,
		Logger:      logger,
		NodeRepo:    nodeRepo,
		SessionRepo: sessionRepo,
		Client:      nodeclient.NewHTTPClient(commandTimeout),
		Pipeline:    fusion.NewFFmpegPipeline(logger, prober),
	}

	return cli.NewRootCmd(deps).Execute()
}
