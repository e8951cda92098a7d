package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"pdp-variant-extractor/adapters"
	"pdp-variant-extractor/extractor"
	"pdp-variant-extractor/internal/config"
	"pdp-variant-extractor/internal/types"
	"pdp-variant-extractor/utils"
)

// runTimeout bounds a whole extraction run; individual waits use config.Timeout
const runTimeout = 30 * time.Minute

func main() {
	// Setup logging
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	// Also loads .env, so LOG_LEVEL may come from there
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level from LOG_LEVEL env if present
	logger.SetLevel(logrus.InfoLevel)
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	}

	log := logger.WithField("run_id", uuid.New().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	log.Infof("Extracting variations from %s (backend: %s)", cfg.TargetURL, cfg.Backend)
	startTime := time.Now()

	var rows int
	err = utils.WithSurface(ctx, cfg, log, func(surface types.RenderSurface) error {
		e := extractor.NewVariantExtractor(surface, adapters.NewHollisterAdapter(log), cfg, log)
		n, err := e.ExtractToCSV(ctx, cfg.OutputPath)
		rows = n
		return err
	})
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}

	log.Infof("Extraction completed in %v", time.Since(startTime))
	log.Infof("Total variations written: %d", rows)
}
