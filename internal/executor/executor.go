// Package executor applies buy/sell/hold decisions to the live account state
// and appends the resulting trades to the ledger. It is the only code allowed
// to mutate account.State.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"etfbot/internal/account"
	"etfbot/internal/config"
	"etfbot/internal/decision"
	"etfbot/internal/ledger"
	"etfbot/internal/logger"
)

// TradeAppender is the slice of the ledger store the engine needs.
type TradeAppender interface {
	Append(ctx context.Context, t ledger.Trade) error
}

type Engine struct {
	cfg   config.TradingConfig
	state *account.State
	log   TradeAppender

	// now is swapped out in tests for deterministic trade timestamps.
	now func() time.Time
}

func New(cfg config.TradingConfig, state *account.State, log TradeAppender) *Engine {
	return &Engine{cfg: cfg, state: state, log: log, now: time.Now}
}

func (e *Engine) State() *account.State { return e.state }

// Execute applies one decision for one instrument at the given market price
// and returns the resulting cash balance. Infeasible trades are clamped down
// to a feasible size, or to a no-op, never an error; the clamp reasons end up
// in the trade note. prices is the full current price map, needed for the
// portfolio-wide exposure cap on buys.
func (e *Engine) Execute(ctx context.Context, code string, d decision.Decision, price float64, prices map[string]float64) (float64, error) {
	switch d.Action {
	case decision.Buy:
		return e.buy(ctx, code, d, price, prices)
	case decision.Sell:
		return e.sell(ctx, code, d, price)
	default:
		return e.state.Cash, nil
	}
}

func (e *Engine) buy(ctx context.Context, code string, d decision.Decision, price float64, prices map[string]float64) (float64, error) {
	if price <= 0 {
		logger.Warnf("executor: buy %s skipped, invalid price %.4f", code, price)
		return e.state.Cash, nil
	}
	cash := e.state.Cash
	var clamps []string

	frac := e.cfg.BasePositionPct
	if e.cfg.DynamicPosition && d.Confidence > 0 {
		frac = e.cfg.BasePositionPct * d.Confidence
	}
	if d.PositionPct > 0 {
		frac = d.PositionPct
	}
	if frac < e.cfg.MinPositionPct {
		frac = e.cfg.MinPositionPct
	}
	if frac > e.cfg.MaxPositionPct {
		frac = e.cfg.MaxPositionPct
	}

	notional := cash * frac
	if tradeCap := cash * e.cfg.MaxTradeCashPct; notional > tradeCap {
		notional = tradeCap
		clamps = append(clamps, fmt.Sprintf("per-trade cash cap %.2f", tradeCap))
	}
	// The largest notional whose total outflow (notional + cost) stays within cash.
	if affordable := cash / (1 + e.cfg.BuyCostRate()); notional > affordable {
		notional = affordable
		clamps = append(clamps, fmt.Sprintf("affordable cap %.2f", affordable))
	}

	// Total exposure ceiling per instrument, measured against live portfolio
	// equity, applies when adding to an existing position.
	if pos := e.state.Positions[code]; pos != nil && e.cfg.MaxInstrumentPct > 0 {
		equity, missing := e.state.Equity(prices)
		if len(missing) > 0 {
			logger.Warnf("executor: buy %s skipped, cannot price portfolio (missing %v)", code, missing)
			return e.state.Cash, nil
		}
		ceiling := equity * e.cfg.MaxInstrumentPct
		headroom := ceiling - pos.Quantity*price
		if headroom <= 0 {
			logger.Infof("executor: buy %s skipped, instrument at exposure ceiling %.2f", code, ceiling)
			return e.state.Cash, nil
		}
		if notional > headroom {
			notional = headroom
			clamps = append(clamps, fmt.Sprintf("instrument exposure cap %.2f, headroom %.2f", ceiling, headroom))
		}
	}

	if notional <= e.cfg.MinTradeNotional {
		logger.Infof("executor: buy %s becomes no-op, notional %.2f below threshold", code, notional)
		return e.state.Cash, nil
	}

	qty := notional / price
	cost := notional * e.cfg.BuyCostRate()
	outflow := notional + cost
	if outflow > cash {
		// Float rounding on the affordable cap; shave the quantity instead of
		// letting cash go negative.
		qty = (cash - cost) / price
		notional = qty * price
		cost = notional * e.cfg.BuyCostRate()
		outflow = notional + cost
		if qty <= ledger.QtyEpsilon || notional <= e.cfg.MinTradeNotional {
			return e.state.Cash, nil
		}
	}

	e.state.Cash = cash - outflow
	pos := e.state.Positions[code]
	if pos == nil {
		pos = &account.Position{
			Code:          code,
			Quantity:      qty,
			AvgEntry:      price,
			HighWaterMark: price,
			OpenedAt:      e.now(),
		}
		e.state.Positions[code] = pos
	} else {
		pos.AvgEntry = (pos.Quantity*pos.AvgEntry + qty*price) / (pos.Quantity + qty)
		pos.Quantity += qty
		if price > pos.HighWaterMark {
			pos.HighWaterMark = price
		}
	}
	if d.StopLoss > 0 {
		pos.StopLoss = d.StopLoss
	}
	if d.TakeProfit > 0 {
		pos.TakeProfit = d.TakeProfit
	}

	t := ledger.Trade{
		Timestamp:  e.now(),
		Code:       code,
		Action:     ledger.ActionBuy,
		Price:      price,
		Quantity:   qty,
		GrossValue: notional,
		Cost:       cost,
		CashAfter:  e.state.Cash,
		Note:       buildNote(d.Reasoning, cost, frac, clamps),
	}
	if err := e.log.Append(ctx, t); err != nil {
		return e.state.Cash, fmt.Errorf("append buy trade for %s: %w", code, err)
	}
	logger.Infof("executor: buy %s qty=%.4f px=%.4f notional=%.2f cost=%.2f cash=%.2f",
		code, qty, price, notional, cost, e.state.Cash)
	return e.state.Cash, nil
}

func (e *Engine) sell(ctx context.Context, code string, d decision.Decision, price float64) (float64, error) {
	pos := e.state.Positions[code]
	if pos == nil || pos.Quantity <= ledger.QtyEpsilon {
		logger.Infof("executor: sell %s skipped, no position", code)
		return e.state.Cash, nil
	}
	if price <= 0 {
		logger.Warnf("executor: sell %s skipped, invalid price %.4f", code, price)
		return e.state.Cash, nil
	}

	ratio := d.SellRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	qty := pos.Quantity * ratio
	if pos.Quantity-qty <= ledger.QtyEpsilon {
		qty = pos.Quantity
	}
	if qty <= ledger.QtyEpsilon {
		return e.state.Cash, nil
	}

	notional := qty * price
	cost := notional * e.cfg.SellCostRate()
	e.state.Cash += notional - cost
	pos.Quantity -= qty
	if pos.Quantity <= ledger.QtyEpsilon {
		delete(e.state.Positions, code)
	}

	t := ledger.Trade{
		Timestamp:  e.now(),
		Code:       code,
		Action:     ledger.ActionSell,
		Price:      price,
		Quantity:   qty,
		GrossValue: notional,
		Cost:       cost,
		CashAfter:  e.state.Cash,
		Note:       buildNote(d.Reasoning, cost, ratio, nil),
	}
	if err := e.log.Append(ctx, t); err != nil {
		return e.state.Cash, fmt.Errorf("append sell trade for %s: %w", code, err)
	}
	logger.Infof("executor: sell %s qty=%.4f px=%.4f notional=%.2f cost=%.2f cash=%.2f",
		code, qty, price, notional, cost, e.state.Cash)
	return e.state.Cash, nil
}

// buildNote assembles the human-readable audit note. The "cost: X.XX" field is
// load-bearing: replay of rows lacking the cost column recovers cost from it.
func buildNote(reasoning string, cost, frac float64, clamps []string) string {
	parts := []string{}
	if reasoning = strings.TrimSpace(reasoning); reasoning != "" {
		parts = append(parts, reasoning)
	}
	parts = append(parts, fmt.Sprintf("cost: %.2f", cost))
	parts = append(parts, fmt.Sprintf("frac: %.4f", frac))
	for _, c := range clamps {
		parts = append(parts, "clamped: "+c)
	}
	return strings.Join(parts, " | ")
}
