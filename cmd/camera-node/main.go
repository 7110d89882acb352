package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kenjp1223/dual-camera/cmd/camera-node/handlers"
	"github.com/kenjp1223/dual-camera/core/capture"
	"github.com/kenjp1223/dual-camera/core/ccc/logging"
	"github.com/kenjp1223/dual-camera/core/config"
	"github.com/kenjp1223/dual-camera/core/media"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Save the config in case it was not found or updated
	if err := cfg.SaveConfig(*configPath); err != nil {
		log.Printf("Failed to save configuration: %v", err)
	}

	// Initialize logger
	logger := logging.CreateLogger(logging.LogLevel(cfg.LogLevel), cfg.LogPath, "camera-node")
	logger.Info("Starting camera node", "addr", cfg.NodeAddr, "port", cfg.NodePort)

	devices := capture.DevicePair{
		Cam0: cfg.Cam0Device,
		Cam1: cfg.Cam1Device,
	}

	// Pick the capture backend. The ffmpeg backend records through v4l2
	// subprocesses; the gocv backend reads frames in-process and is meant
	// for hosts where ffmpeg cannot open the devices.
	var launcher capture.Launcher
	switch cfg.CaptureBackend {
	case "gocv":
		launcher = capture.NewGoCVLauncher(logger)
	default:
		ffmpegLauncher := capture.NewFFmpegLauncher()
		if err := ffmpegLauncher.CheckFFmpeg(); err != nil {
			log.Fatalf("ffmpeg is not available: %v", err)
		}
		launcher = ffmpegLauncher
	}

	prober := media.NewFFmpegProber(logger)

	settings := capture.SupervisorSettings{
		DesyncTolerance: cfg.DesyncTolerance,
		GracePeriod:     time.Duration(cfg.GraceSeconds) * time.Second,
	}
	supervisor := capture.NewDualSupervisorWithSettings(logger, devices, cfg.OutputRoot, launcher, prober, settings)

	captureHandler := handlers.NewCaptureHandler(logger, supervisor)

	// Set up Gin router
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	setupRoutes(router, captureHandler)

	addr := fmt.Sprintf("%s:%d", cfg.NodeAddr, cfg.NodePort)
	logger.Info("Node listening", "address", addr)

	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Error("Node failed to start", err)
		os.Exit(1)
	}
}

// setupRoutes configures the HTTP routes
func setupRoutes(router *gin.Engine, captureHandler *handlers.CaptureHandler) {
	api := router.Group("/api")

	api.POST("/capture/prepare", captureHandler.Prepare)
	api.POST("/capture/start", captureHandler.Start)
	api.POST("/capture/stop", captureHandler.Stop)
	api.GET("/capture/status", captureHandler.Status)

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
