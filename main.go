package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/logging"
	"github.com/awion/cryon-soc/public/analyzer"
	"github.com/awion/cryon-soc/public/api"
	"github.com/awion/cryon-soc/public/collector"
	"github.com/awion/cryon-soc/public/metrics"
	"github.com/awion/cryon-soc/public/monitor"
	"github.com/awion/cryon-soc/public/settings"
	"github.com/awion/cryon-soc/public/storage"
	"github.com/awion/cryon-soc/ui"
	"github.com/sirupsen/logrus"
)

const version = "0.2.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	showVersion := flag.Bool("version", false, "Display version information")
	headless := flag.Bool("headless", false, "Run the live monitor without the interactive CLI")
	initConfig := flag.Bool("init", false, "Write a default configuration file and exit")
	flag.Parse()

	// Display version and exit if requested
	if *showVersion {
		fmt.Printf("Cryon SOC v%s\n", version)
		os.Exit(0)
	}

	if *initConfig {
		if err := config.CreateDefaultConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		cfg.Logging.Verbose = true
	}

	if err := run(cfg, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, headless bool) error {
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logCloser.Close()

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize settings
	settingsStore, err := storage.NewSettingsStore(cfg.Settings)
	if err != nil {
		return fmt.Errorf("initializing settings store: %w", err)
	}
	manager := settings.NewManager(settingsStore, logger)
	defer manager.Close()

	if err := manager.Load(ctx); err != nil {
		logger.WithError(err).Warn("starting with default thresholds")
	}

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
	} else {
		logger.Info("prometheus metrics are disabled by configuration")
	}

	// Initialize collector and analyzer
	collectorEngine, err := collector.NewCollector(cfg.Sources, recorder, logger)
	if err != nil {
		return fmt.Errorf("initializing collector: %w", err)
	}
	analyzerEngine := analyzer.NewAnalyzer(manager.Holder(), recorder, logger)

	snapshots := storage.NewStorage()
	interval := time.Duration(cfg.Monitor.Interval) * time.Second
	liveMonitor := monitor.NewMonitor(collectorEngine, analyzerEngine, interval, logger, snapshots)
	defer liveMonitor.Stop()

	var server *api.Server
	if cfg.API.Enabled {
		server = api.NewServer(api.ServerDI{
			Config:   cfg.API,
			Storage:  snapshots,
			Settings: manager,
			Metrics:  recorder,
			Logger:   logger,
		})
		go func() {
			if err := server.Run(); err != nil {
				logger.WithError(err).Error("API server stopped")
			}
		}()
		defer func() {
			if err := server.Shutdown(); err != nil {
				logger.WithError(err).Warn("API server shutdown")
			}
		}()
	}

	logger.WithFields(logrus.Fields{
		"name":     cfg.General.Name,
		"version":  version,
		"headless": headless,
	}).Info("Cryon SOC started")

	if headless {
		if err := liveMonitor.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		logger.Info("received shutdown signal")
		return nil
	}

	// One pass up front so the API and the menu have data
	liveMonitor.RunOnce(ctx)

	cliUI := ui.NewCLI(snapshots, liveMonitor, manager, os.Stdin, os.Stdout)
	done := make(chan error, 1)
	go func() { done <- cliUI.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("reading commands: %w", err)
		}
	case <-ctx.Done():
		fmt.Println("\nReceived interrupt, shutting down...")
	}

	logger.Info("Cryon SOC terminated")
	return nil
}
