package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"llrscan/adapters/rng"
	"llrscan/app"
	"llrscan/internal"
	"llrscan/internal/config"

	"github.com/joho/godotenv"
)

// main runs one luminosity scan configured entirely from the environment.
// CONFIG_FILE points at an optional YAML overlay; PLOT=true also renders plots.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	logger := internal.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			log.Fatalf("Failed to load %s: %v", path, err)
		}
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := app.NewScanService(cfg, rng.NewSeededAdapter(), logger)
	report, err := svc.RunLuminosityScan(ctx, app.ScanRequest{Plot: os.Getenv("PLOT") == "true"})
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	logger.Info("Pcut=%g ntoys=%d ext=%s", cfg.Scan.ProbabilityCut, cfg.Scan.ToyCount, report.Extension)
	for _, p := range report.ArrayPaths {
		logger.Info("wrote %s", p)
	}
}
