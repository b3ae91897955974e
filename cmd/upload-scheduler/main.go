// Command upload-scheduler publishes one video at start and then one per
// day at the configured time until it is interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lllllllleong/dailyuploadflow/internal/app"
	"github.com/Lllllllleong/dailyuploadflow/internal/config"
	"github.com/Lllllllleong/dailyuploadflow/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: $CONFIG_FILE or ./config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("Upload scheduler stopped with an error.", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefaultFile()
	}
	if err != nil {
		return err
	}

	log, closeLog, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("Upload scheduler starting.",
		"source", cfg.Source.Kind, "ledger", cfg.Ledger.Kind,
		"provider", cfg.Enrichment.Provider, "schedule", cfg.Schedule.Time)

	// Start returns after cancellation once the run in flight has finished.
	if err := a.Scheduler.Start(ctx, a.OnResult); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Upload scheduler stopped.")
	return nil
}
