//go:build wireinject

package app

import (
	"github.com/google/wire"

	"etfbot/internal/config"
)

func buildAppWithWire(cfg *config.Config, configPath string) (*App, error) {
	wire.Build(
		provideLedgerDB,
		provideTradeStore,
		providePriceStore,
		provideSnapshotStore,
		provideGuard,
		provideDecisionSource,
		newApp,
	)
	return nil, nil
}
