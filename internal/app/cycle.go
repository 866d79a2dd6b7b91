package app

import (
	"context"
	"fmt"
	"time"

	"etfbot/internal/account"
	"etfbot/internal/config"
	"etfbot/internal/decision"
	"etfbot/internal/equity"
	"etfbot/internal/executor"
	"etfbot/internal/ledger"
	"etfbot/internal/logger"
	"etfbot/internal/risk"
)

// closesWindow is how much daily history the rule engine gets. Enough for the
// slowest indicator plus slack for holidays.
const closesWindow = 120

// RunOnce executes one full trading cycle as of now: restore state from the
// trade log, price everything, run exits, run decisions (core pool first,
// observe pool gated behind it), verify the log against the live state, then
// let the guard decide whether today's equity may be persisted. Any guard or
// consistency failure aborts before the snapshot write.
func (a *App) RunOnce(ctx context.Context) error {
	cfg := a.config()
	now := time.Now()
	date := now.Format(equity.DateLayout)
	logger.Infof("cycle start for %s", date)

	trades, err := a.trades.ListUpTo(ctx, now)
	if err != nil {
		return fmt.Errorf("load trade log: %w", err)
	}
	state, replayRes := account.Restore(trades, now, cfg.Trading.InitialCapital)
	if replayRes.InferredInitialCash {
		logger.Infof("starting cash %.2f inferred from first trade (configured %.2f)",
			replayRes.InitialCash, cfg.Trading.InitialCapital)
	}
	if len(replayRes.ImpreciseCosts) > 0 {
		logger.Warnf("replay is imprecise: %d trades have no recoverable cost", len(replayRes.ImpreciseCosts))
	}

	codes := a.universe(cfg, state)
	a.prices.Preheat(ctx, codes)

	prices, missing, err := a.resolvePrices(ctx, codes, now)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		logger.Warnf("no usable price for: %v", missing)
	}

	exec := executor.New(cfg.Trading, state, a.trades)
	riskEngine := risk.New(cfg.Risk, exec)
	if err := riskEngine.Scan(ctx, prices); err != nil {
		return fmt.Errorf("risk scan: %w", err)
	}

	if err := a.runDecisions(ctx, cfg, exec, prices, now); err != nil {
		return err
	}

	eq, unpriced := state.Equity(prices)
	logger.Infof("equity breakdown: cash=%.2f holdings=%.2f total=%.2f positions=%d",
		state.Cash, eq-state.Cash, eq, len(state.Positions))

	// Independent replay of the full log, including trades just appended,
	// compared against what the execution engine thinks happened.
	cutoff := time.Now()
	allTrades, err := a.trades.ListUpTo(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("reload trade log: %w", err)
	}
	replayCheck := ledger.Replay(allTrades, cutoff, cfg.Trading.InitialCapital)
	if _, err := equity.CheckConsistency(replayCheck, state, prices, cfg.Guard); err != nil {
		return fmt.Errorf("cycle aborted: %w", err)
	}

	res, err := a.guard.Check(ctx, equity.GuardInput{
		Date:              date,
		ProposedEquity:    eq,
		MissingPriceCodes: unpriced,
		CurrentCash:       state.Cash,
		AllowOverwrite:    cfg.Guard.AllowOverwrite,
	})
	if err != nil {
		return fmt.Errorf("guard: %w", err)
	}
	if !res.OK {
		return fmt.Errorf("cycle aborted, guard rejected snapshot for %s: %s", date, res.Reason)
	}
	if err := a.snapshots.Write(ctx, date, eq, cfg.Guard.AllowOverwrite); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	logger.Infof("cycle complete: %s equity=%.2f", date, eq)
	return nil
}

// universe is every code the cycle must price: both pools plus anything
// already held (a position may have left the pools).
func (a *App) universe(cfg *config.Config, state *account.State) []string {
	seen := make(map[string]bool)
	var codes []string
	add := func(code string) {
		if code != "" && !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	for _, c := range cfg.Pools.Core {
		add(c)
	}
	for _, c := range cfg.Pools.Observe {
		add(c)
	}
	for c := range state.Positions {
		add(c)
	}
	return codes
}

func (a *App) resolvePrices(ctx context.Context, codes []string, asOf time.Time) (map[string]float64, []string, error) {
	prices := make(map[string]float64, len(codes))
	var missing []string
	for _, code := range codes {
		px, ok, err := a.prices.LatestClose(ctx, code, asOf)
		if err != nil {
			return nil, nil, fmt.Errorf("price lookup %s: %w", code, err)
		}
		if !ok {
			missing = append(missing, code)
			continue
		}
		prices[code] = px
	}
	return prices, missing, nil
}

// runDecisions asks the decision source about every pool instrument and
// executes the answers. Core pool goes first; if any core instrument yields a
// buy signal, the observe pool is skipped entirely this cycle. That is the
// documented priority policy: core conviction outranks speculative adds.
func (a *App) runDecisions(ctx context.Context, cfg *config.Config, exec *executor.Engine, prices map[string]float64, asOf time.Time) error {
	coreBuy := false
	for _, code := range cfg.Pools.Core {
		d, err := a.decideOne(ctx, code, prices[code], asOf)
		if err != nil {
			logger.Errorf("decision for %s failed, holding: %v", code, err)
			continue
		}
		if d.Action == decision.Buy {
			coreBuy = true
		}
		if _, err := exec.Execute(ctx, code, d, prices[code], prices); err != nil {
			return fmt.Errorf("execute %s: %w", code, err)
		}
	}

	if coreBuy {
		logger.Infof("core pool produced a buy signal, observe pool skipped this cycle")
		return nil
	}
	for _, code := range cfg.Pools.Observe {
		d, err := a.decideOne(ctx, code, prices[code], asOf)
		if err != nil {
			logger.Errorf("decision for %s failed, holding: %v", code, err)
			continue
		}
		if _, err := exec.Execute(ctx, code, d, prices[code], prices); err != nil {
			return fmt.Errorf("execute %s: %w", code, err)
		}
	}
	return nil
}

func (a *App) decideOne(ctx context.Context, code string, px float64, asOf time.Time) (decision.Decision, error) {
	closes, err := a.prices.Closes(ctx, code, asOf, closesWindow)
	if err != nil {
		return decision.Decision{}, err
	}
	d, err := a.source.Decide(ctx, code, closes)
	if err != nil {
		return decision.Decision{}, err
	}
	d = decision.Sanitize(d, px)
	logger.Infof("decision %s: %s conf=%.2f (%s)", code, d.Action, d.Confidence, d.Reasoning)
	return d, nil
}

func (a *App) replayNow(ctx context.Context) (ledger.ReplayResult, error) {
	cfg := a.config()
	now := time.Now()
	trades, err := a.trades.ListUpTo(ctx, now)
	if err != nil {
		return ledger.ReplayResult{}, fmt.Errorf("load trade log: %w", err)
	}
	return ledger.Replay(trades, now, cfg.Trading.InitialCapital), nil
}
