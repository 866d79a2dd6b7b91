package app

import (
	"time"

	"etfbot/internal/config"
	"etfbot/internal/decision"
	"etfbot/internal/equity"
	"etfbot/internal/ledger"
	"etfbot/internal/marketdata"
)

func provideLedgerDB(cfg *config.Config) (*ledger.DB, error) {
	return ledger.Open(cfg.Data.TradeDB)
}

func provideTradeStore(db *ledger.DB) (*ledger.Store, error) {
	return ledger.NewStore(db)
}

func providePriceStore(cfg *config.Config) (*marketdata.Store, error) {
	return marketdata.Open(cfg.Data.PriceDB)
}

func provideSnapshotStore(db *ledger.DB) (*equity.SnapshotStore, error) {
	return equity.NewSnapshotStore(db)
}

func provideGuard(cfg *config.Config, trades *ledger.Store, snapshots *equity.SnapshotStore, prices *marketdata.Store) *equity.Guard {
	return equity.NewGuard(cfg.Guard, cfg.Trading.InitialCapital, trades, snapshots, prices)
}

// provideDecisionSource builds the rule engine, and when an external
// collaborator command is configured, wraps both in the ensemble under the
// configured merge mode. No command means the rule engine decides alone.
func provideDecisionSource(cfg *config.Config) decision.Source {
	rule := decision.NewRuleSource(decision.NewRuleEngine(cfg.Decision.Rule))
	if cfg.Decision.Command == "" {
		return rule
	}
	primary := decision.NewExternalSource(
		cfg.Decision.Command,
		cfg.Decision.Args,
		time.Duration(cfg.Decision.TimeoutSec)*time.Second,
	)
	return decision.NewEnsembleSource(cfg.Decision.EnsembleMode, primary, rule)
}

func newApp(cfg *config.Config, configPath string, db *ledger.DB, trades *ledger.Store, prices *marketdata.Store, snapshots *equity.SnapshotStore, guard *equity.Guard, source decision.Source) *App {
	return &App{
		cfg:        cfg,
		configPath: configPath,
		db:         db,
		trades:     trades,
		prices:     prices,
		snapshots:  snapshots,
		guard:      guard,
		source:     source,
	}
}
