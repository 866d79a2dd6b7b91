package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"etfbot/internal/app"
	botcfg "etfbot/internal/config"
	"etfbot/internal/logger"
)

const usage = `usage: etfbot <command> [args]

commands:
  run                 start scheduler mode (one cycle per day at schedule.run_at)
  once                execute a single trading cycle now
  replay              print the replay-derived account state
  report [out.html]   render the equity curve (default reports/equity.html)
  correct <manifest>  apply a ledger-correction manifest (yaml)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	cfgPath := os.Getenv("ETFBOT_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := botcfg.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("initialising log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config loaded (env=%s, trade_db=%s, price_db=%s)", cfg.App.Env, cfg.Data.TradeDB, cfg.Data.PriceDB)

	a, err := app.NewApp(cfg, cfgPath)
	if err != nil {
		log.Fatalf("initialising app failed: %v", err)
	}
	defer a.Close()

	switch os.Args[1] {
	case "run":
		err = a.Run(ctx)
	case "once":
		err = a.RunOnce(ctx)
	case "replay":
		err = a.Replay(ctx)
	case "report":
		out := "reports/equity.html"
		if len(os.Args) > 2 {
			out = os.Args[2]
		}
		err = a.Report(ctx, out)
	case "correct":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = a.Correct(ctx, os.Args[2])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
