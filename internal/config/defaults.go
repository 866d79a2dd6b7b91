package config

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultTradeDB          = "data/trade_history.db"
	defaultPriceDB          = "data/etf_data.db"
	defaultInitialCapital   = 100000
	defaultBasePositionPct  = 0.2
	defaultMinPositionPct   = 0.05
	defaultMaxPositionPct   = 0.3
	defaultMaxTradeCashPct  = 0.5
	defaultMaxInstrumentPct = 0.3
	defaultMinTradeNotional = 1.0
	defaultSlippageBps      = 2
	defaultCommissionBps    = 5
	defaultQuickTPRatio     = 0.5
	defaultTrailingStopPct  = 0.05
	defaultTrailingStepPct  = 0.01
	defaultMaxDailyChange   = 5.0
	defaultCashTolerance    = 5.0
	defaultQtyTolerance     = 1e-6
	defaultEnsembleMode     = "consensus"
	defaultDecisionTimeout  = 30
	defaultBreakoutN        = 20
	defaultRSIPeriod        = 2
	defaultRSILow           = 10
	defaultRSIHigh          = 95
	defaultRunAt            = "15:10"
)

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.Data.TradeDB == "" {
		c.Data.TradeDB = defaultTradeDB
	}
	if c.Data.PriceDB == "" {
		c.Data.PriceDB = defaultPriceDB
	}
	if c.Trading.InitialCapital <= 0 {
		c.Trading.InitialCapital = defaultInitialCapital
	}
	if c.Trading.BasePositionPct <= 0 {
		c.Trading.BasePositionPct = defaultBasePositionPct
	}
	if c.Trading.MinPositionPct <= 0 {
		c.Trading.MinPositionPct = defaultMinPositionPct
	}
	if c.Trading.MaxPositionPct <= 0 {
		c.Trading.MaxPositionPct = defaultMaxPositionPct
	}
	if c.Trading.MaxTradeCashPct <= 0 {
		c.Trading.MaxTradeCashPct = defaultMaxTradeCashPct
	}
	if c.Trading.MaxInstrumentPct <= 0 {
		c.Trading.MaxInstrumentPct = defaultMaxInstrumentPct
	}
	if c.Trading.MinTradeNotional <= 0 {
		c.Trading.MinTradeNotional = defaultMinTradeNotional
	}
	if c.Trading.SlippageBps < 0 {
		c.Trading.SlippageBps = defaultSlippageBps
	}
	if c.Trading.CommissionBps < 0 {
		c.Trading.CommissionBps = defaultCommissionBps
	}
	if c.Risk.QuickTPSellRatio <= 0 {
		c.Risk.QuickTPSellRatio = defaultQuickTPRatio
	}
	if c.Risk.TrailingStopPct <= 0 {
		c.Risk.TrailingStopPct = defaultTrailingStopPct
	}
	if c.Risk.TrailingStepPct <= 0 {
		c.Risk.TrailingStepPct = defaultTrailingStepPct
	}
	if c.Guard.MaxDailyChangePct <= 0 {
		c.Guard.MaxDailyChangePct = defaultMaxDailyChange
	}
	if c.Guard.CashTolerance <= 0 {
		c.Guard.CashTolerance = defaultCashTolerance
	}
	if c.Guard.QuantityTolerance <= 0 {
		c.Guard.QuantityTolerance = defaultQtyTolerance
	}
	if c.Decision.EnsembleMode == "" {
		c.Decision.EnsembleMode = defaultEnsembleMode
	}
	if c.Decision.TimeoutSec <= 0 {
		c.Decision.TimeoutSec = defaultDecisionTimeout
	}
	if c.Decision.Rule.BreakoutN <= 0 {
		c.Decision.Rule.BreakoutN = defaultBreakoutN
	}
	if c.Decision.Rule.RSIPeriod <= 0 {
		c.Decision.Rule.RSIPeriod = defaultRSIPeriod
	}
	if c.Decision.Rule.RSILow <= 0 {
		c.Decision.Rule.RSILow = defaultRSILow
	}
	if c.Decision.Rule.RSIHigh <= 0 {
		c.Decision.Rule.RSIHigh = defaultRSIHigh
	}
	if c.Schedule.RunAt == "" {
		c.Schedule.RunAt = defaultRunAt
	}
}
