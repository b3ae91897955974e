// Command upload-now runs the pipeline once and exits, or with -status
// prints how many videos are processed and pending.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lllllllleong/dailyuploadflow/internal/app"
	"github.com/Lllllllleong/dailyuploadflow/internal/config"
	"github.com/Lllllllleong/dailyuploadflow/internal/logging"
	"github.com/Lllllllleong/dailyuploadflow/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: $CONFIG_FILE or ./config.yaml)")
	statusOnly := flag.Bool("status", false, "print processed and pending counts without uploading")
	flag.Parse()

	code, err := run(*configPath, *statusOnly)
	if err != nil {
		slog.Error("upload-now failed.", "error", err)
	}
	os.Exit(code)
}

func run(configPath string, statusOnly bool) (int, error) {
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
		return 1, err
	}
	log, closeLog, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return 1, err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return 1, err
	}
	defer a.Close()

	if statusOnly {
		st, err := a.Status(ctx, time.Now())
		if err != nil {
			return 1, err
		}
		fmt.Println(renderStatus(st))
		return 0, nil
	}

	out, ran := a.Scheduler.RunOnce(ctx)
	if !ran {
		return 1, fmt.Errorf("another run is in progress")
	}
	a.OnResult(out)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out.Response()); err != nil {
		return 1, err
	}
	if out.Status == pipeline.StatusFailed {
		return 1, nil
	}
	return 0, nil
}
