package config

// Config is the full configuration surface of the bot. Values arrive from a
// YAML file, with environment variables (including a .env overlay) taking
// precedence for deployment overrides.
type Config struct {
	App      AppConfig      `toml:"app"`
	Data     DataConfig     `toml:"data"`
	Pools    PoolsConfig    `toml:"pools"`
	Trading  TradingConfig  `toml:"trading"`
	Risk     RiskConfig     `toml:"risk"`
	Guard    GuardConfig    `toml:"guard"`
	Decision DecisionConfig `toml:"decision"`
	Schedule ScheduleConfig `toml:"schedule"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

type DataConfig struct {
	TradeDB string `toml:"trade_db"`
	PriceDB string `toml:"price_db"`
}

// PoolsConfig splits the instrument universe into a core pool and an observe
// pool. The observe pool is only traded on days where no core instrument
// produced a buy signal.
type PoolsConfig struct {
	Core    []string `toml:"core"`
	Observe []string `toml:"observe"`
}

// TradingConfig drives position sizing and transaction cost modelling.
// All *_bps values are basis points (1 bps = 0.01%).
type TradingConfig struct {
	InitialCapital  float64 `toml:"initial_capital"`
	DynamicPosition bool    `toml:"dynamic_position"`
	BasePositionPct float64 `toml:"base_position_pct"`
	MinPositionPct  float64 `toml:"min_position_pct"`
	MaxPositionPct  float64 `toml:"max_position_pct"`

	// MaxTradeCashPct caps any single buy at this fraction of current cash,
	// regardless of what the sizing logic asked for.
	MaxTradeCashPct float64 `toml:"max_trade_cash_pct"`
	// MaxInstrumentPct caps the total post-trade value of one instrument at
	// this fraction of live portfolio equity (cash + holdings).
	MaxInstrumentPct float64 `toml:"max_instrument_pct"`
	// MinTradeNotional is the threshold below which a sized buy becomes a no-op.
	MinTradeNotional float64 `toml:"min_trade_notional"`

	SlippageBps   float64 `toml:"slippage_bps"`
	CommissionBps float64 `toml:"commission_bps"`
	SellTaxBps    float64 `toml:"sell_tax_bps"`
}

// BuyCostRate returns the combined cost rate applied to buy notionals.
func (t TradingConfig) BuyCostRate() float64 {
	return (t.SlippageBps + t.CommissionBps) / 10000.0
}

// SellCostRate returns the combined cost rate applied to sell notionals.
// Sells carry a tax-like component that buys do not.
func (t TradingConfig) SellCostRate() float64 {
	return (t.SlippageBps + t.CommissionBps + t.SellTaxBps) / 10000.0
}

type RiskConfig struct {
	HardStopLossPct  float64 `toml:"hard_stop_loss_pct"`
	QuickTPTrigger   float64 `toml:"quick_tp_trigger_pct"`
	QuickTPSellRatio float64 `toml:"quick_tp_sell_ratio"`
	TrailingEnabled  bool    `toml:"trailing_enabled"`
	TrailingStopPct  float64 `toml:"trailing_stop_pct"`
	TrailingStepPct  float64 `toml:"trailing_step_pct"`
}

type GuardConfig struct {
	MaxDailyChangePct float64 `toml:"max_daily_change_pct"`
	AllowOverwrite    bool    `toml:"allow_overwrite"`
	CashTolerance     float64 `toml:"cash_tolerance"`
	QuantityTolerance float64 `toml:"quantity_tolerance"`
}

type DecisionConfig struct {
	EnsembleMode string `toml:"ensemble_mode"` // "consensus" | "ai_lead"

	// Command is an optional external collaborator invoked per instrument; its
	// stdout must be one JSON decision object. Empty means rule engine only.
	Command    string   `toml:"command"`
	Args       []string `toml:"args"`
	TimeoutSec int      `toml:"timeout_sec"`

	Rule RuleConfig `toml:"rule"`
}

type RuleConfig struct {
	BreakoutN int     `toml:"breakout_n"`
	RSIPeriod int     `toml:"rsi_period"`
	RSILow    float64 `toml:"rsi_low"`
	RSIHigh   float64 `toml:"rsi_high"`
}

type ScheduleConfig struct {
	RunAt          string `toml:"run_at"` // local wall-clock "HH:MM"
	RunImmediately bool   `toml:"run_immediately"`
}
