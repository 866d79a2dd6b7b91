// Package app wires the stores and engines together and drives the daily
// trading cycle.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"etfbot/internal/config"
	"etfbot/internal/decision"
	"etfbot/internal/equity"
	"etfbot/internal/ledger"
	"etfbot/internal/logger"
	"etfbot/internal/marketdata"
	"etfbot/internal/report"
	"etfbot/internal/scheduler"
)

type App struct {
	cfgMu sync.RWMutex
	cfg   *config.Config

	configPath string

	db        *ledger.DB
	trades    *ledger.Store
	prices    *marketdata.Store
	snapshots *equity.SnapshotStore
	guard     *equity.Guard
	source    decision.Source
}

// NewApp builds the application from a loaded config. configPath is kept so
// the scheduler mode can watch the file for edits between cycles.
func NewApp(cfg *config.Config, configPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(cfg, configPath)
}

func (a *App) config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// Run starts scheduler mode: one cycle per day at the configured time, with
// the config file watched for edits. A failed cycle is logged and the loop
// keeps going; the missing snapshot for that date is the operator signal.
func (a *App) Run(ctx context.Context) error {
	cfg := a.config()

	watcher, err := a.watchConfig()
	if err != nil {
		logger.Warnf("config watch unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	sched := scheduler.NewDailyScheduler(ctx, cfg.Schedule.RunAt, cfg.Schedule.RunImmediately)
	sched.Name = "trading"
	sched.Start(func() error {
		return a.RunOnce(ctx)
	})
	return nil
}

// watchConfig reloads the config file on write events. The swapped-in config
// takes effect at the next cycle; a cycle in flight keeps the snapshot it
// started with.
func (a *App) watchConfig() (*fsnotify.Watcher, error) {
	if a.configPath == "" {
		return nil, fmt.Errorf("no config path to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(a.configPath); err != nil {
		watcher.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := config.Load(a.configPath)
				if err != nil {
					logger.Errorf("config reload failed (%s): %v", evt.Name, err)
					continue
				}
				a.cfgMu.Lock()
				a.cfg = cfg
				a.cfgMu.Unlock()
				logger.SetLevel(cfg.App.LogLevel)
				logger.Infof("config reloaded from %s, applies from next cycle", evt.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("config watcher error: %v", err)
			}
		}
	}()
	return watcher, nil
}

// Replay prints the replay-derived account state as of now. Diagnostic
// command; mutates nothing.
func (a *App) Replay(ctx context.Context) error {
	res, err := a.replayNow(ctx)
	if err != nil {
		return err
	}
	logger.Infof("replayed state: cash=%.2f initial=%.2f (inferred=%v)",
		res.Cash, res.InitialCash, res.InferredInitialCash)
	for code, qty := range res.Positions {
		logger.Infof("replayed position: %s qty=%.6f", code, qty)
	}
	if len(res.ImpreciseCosts) > 0 {
		logger.Warnf("trades with unrecoverable costs (treated as 0): %v", res.ImpreciseCosts)
	}
	return nil
}

// Report writes the equity-curve HTML to outPath.
func (a *App) Report(ctx context.Context, outPath string) error {
	return report.WriteEquityCurve(ctx, a.snapshots, outPath)
}

// Correct applies a ledger-correction manifest.
func (a *App) Correct(ctx context.Context, manifestPath string) error {
	cfg := a.config()
	applier, err := equity.NewApplier(a.db, a.snapshots, a.trades, a.guard, cfg.Trading.InitialCapital)
	if err != nil {
		return err
	}
	manifest, err := equity.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	return applier.Apply(ctx, manifest)
}

func (a *App) Close() {
	if a.prices != nil {
		if err := a.prices.Close(); err != nil {
			logger.Warnf("closing price db: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warnf("closing trade db: %v", err)
		}
	}
}
