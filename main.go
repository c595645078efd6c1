package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"oiflow/config"
	"oiflow/logger"
	"oiflow/notifier"
	"oiflow/pipeline"
	"oiflow/reader/nse"
	"oiflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Storage.S3.Region, cfg.Metrics.Namespace)
	}

	runID := uuid.New().String()
	appEnv := config.AppEnvironment()
	log.WithFields(logger.Fields{
		"service":     cfg.Oiflow.Name,
		"version":     cfg.Oiflow.Version,
		"environment": appEnv,
		"run_id":      runID,
		"symbols":     cfg.Source.Nse.Symbols,
	}).Info("starting oiflow run")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	var tg notifier.Notifier
	if cfg.Notify.Telegram.Enabled {
		tg = notifier.NewTelegram(cfg.Notify.Telegram)
	} else if config.IsProductionLike(appEnv) {
		log.WithComponent("main").Warn("Telegram notifications disabled in a production-like environment")
	} else {
		log.WithComponent("main").Info("Telegram notifications disabled; alerts will only be logged")
	}

	var archiver *writer.SnapshotArchiver
	if cfg.Storage.S3.Enabled {
		archiver, err = writer.NewSnapshotArchiver(ctx, cfg)
		if err != nil {
			log.WithError(err).Error("failed to create snapshot archiver")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("S3 storage disabled; skipping snapshot archive")
	}

	session, err := nse.NewSession(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("failed to initialize NSE session")
		if tg != nil {
			if nerr := tg.Notify(ctx, "oiflow run aborted: session bootstrap failed: "+err.Error(), true); nerr != nil {
				log.WithError(nerr).Error("failed to deliver bootstrap failure notification")
			}
		}
		os.Exit(1)
	}

	runner := pipeline.NewRunner(session, cfg, tg, archiver)
	runner.RunAll(ctx, cfg.Source.Nse.Symbols)

	logger.WriteRunReport(ctx, log)
	log.WithFields(logger.Fields{"run_id": runID}).Info("oiflow run finished")
}
