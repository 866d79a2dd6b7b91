// Package risk scans open positions each cycle and forces exits through the
// execution engine: hard stop-loss, one-shot quick take-profit, trailing stop
// ratchet and the static stop/take-profit levels attached to a position.
package risk

import (
	"context"
	"fmt"
	"sort"

	"etfbot/internal/account"
	"etfbot/internal/config"
	"etfbot/internal/decision"
	"etfbot/internal/executor"
	"etfbot/internal/ledger"
	"etfbot/internal/logger"
)

type Engine struct {
	cfg  config.RiskConfig
	exec *executor.Engine
}

func New(cfg config.RiskConfig, exec *executor.Engine) *Engine {
	return &Engine{cfg: cfg, exec: exec}
}

// Scan walks every open position in code order and applies the exit rules by
// priority. A hard stop or a triggered stop/take-profit is terminal for that
// position this cycle; a quick take-profit is partial, so evaluation continues
// on the residual position. Positions without a usable price are skipped.
func (r *Engine) Scan(ctx context.Context, prices map[string]float64) error {
	st := r.exec.State()
	codes := make([]string, 0, len(st.Positions))
	for code := range st.Positions {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		pos := st.Positions[code]
		if pos == nil || pos.Quantity <= ledger.QtyEpsilon {
			continue
		}
		px := prices[code]
		if px <= 0 {
			logger.Warnf("risk: %s has no usable price, exit checks skipped this cycle", code)
			continue
		}
		if err := r.scanPosition(ctx, pos, px, prices); err != nil {
			return err
		}
	}
	return nil
}

func (r *Engine) scanPosition(ctx context.Context, pos *account.Position, px float64, prices map[string]float64) error {
	code := pos.Code
	if pos.AvgEntry <= 0 {
		logger.Warnf("risk: %s has no entry price, exit checks skipped", code)
		return nil
	}
	pnl := (px - pos.AvgEntry) / pos.AvgEntry

	// 1. Hard stop-loss. Full exit, terminal.
	if r.cfg.HardStopLossPct > 0 && decimalLTE(pnl, -r.cfg.HardStopLossPct) {
		return r.forceSell(ctx, code, px, 1,
			fmt.Sprintf("hard stop-loss: pnl %.2f%% <= -%.2f%%", pnl*100, r.cfg.HardStopLossPct*100), prices)
	}

	// 2. Quick take-profit. Partial and one-shot; the residual position keeps
	// going through the remaining rules in the same cycle.
	if r.cfg.QuickTPTrigger > 0 && !pos.QuickTPDone && decimalGTE(pnl, r.cfg.QuickTPTrigger) {
		pos.QuickTPDone = true
		err := r.forceSell(ctx, code, px, r.cfg.QuickTPSellRatio,
			fmt.Sprintf("quick take-profit: pnl %.2f%% >= %.2f%%, selling %.0f%%",
				pnl*100, r.cfg.QuickTPTrigger*100, r.cfg.QuickTPSellRatio*100), prices)
		if err != nil {
			return err
		}
		pos = r.exec.State().Positions[code]
		if pos == nil || pos.Quantity <= ledger.QtyEpsilon {
			return nil
		}
	}

	// 3. Trailing stop. The high-water mark only ratchets up, and only when
	// price clears it by the step fraction; the stop derived from it is never
	// lowered once set.
	if r.cfg.TrailingEnabled {
		if shouldRatchetAnchor(px, pos.HighWaterMark, r.cfg.TrailingStepPct) {
			pos.HighWaterMark = px
		}
		if candidate := trailingStopFor(pos.HighWaterMark, r.cfg.TrailingStopPct); shouldRaiseStop(candidate, pos.StopLoss) {
			logger.Debugf("risk: %s trailing stop %.4f -> %.4f (hwm %.4f)", code, pos.StopLoss, candidate, pos.HighWaterMark)
			pos.StopLoss = candidate
		}
		if pos.StopLoss > 0 && decimalLTE(px, pos.StopLoss) {
			return r.forceSell(ctx, code, px, 1,
				fmt.Sprintf("trailing stop: price %.4f <= stop %.4f (hwm %.4f)", px, pos.StopLoss, pos.HighWaterMark), prices)
		}
	}

	// 4. Static levels from the originating decision. Take-profit wins when
	// both sides are somehow crossed at once.
	if pos.TakeProfit > 0 && decimalGTE(px, pos.TakeProfit) {
		return r.forceSell(ctx, code, px, 1,
			fmt.Sprintf("take-profit: price %.4f >= target %.4f", px, pos.TakeProfit), prices)
	}
	if pos.StopLoss > 0 && decimalLTE(px, pos.StopLoss) {
		return r.forceSell(ctx, code, px, 1,
			fmt.Sprintf("stop-loss: price %.4f <= stop %.4f", px, pos.StopLoss), prices)
	}
	return nil
}

func (r *Engine) forceSell(ctx context.Context, code string, px, ratio float64, reason string, prices map[string]float64) error {
	logger.Infof("risk: forcing sell of %s: %s", code, reason)
	d := decision.Decision{
		Action:     decision.Sell,
		Confidence: 1,
		Reasoning:  reason,
		SellRatio:  ratio,
	}
	_, err := r.exec.Execute(ctx, code, d, px, prices)
	return err
}
