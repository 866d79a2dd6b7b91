package config

import (
	"fmt"
	"strings"
	"time"
)

func validate(c *Config) error {
	t := c.Trading
	if t.MinPositionPct > t.MaxPositionPct {
		return fmt.Errorf("trading: min_position_pct %.4f > max_position_pct %.4f", t.MinPositionPct, t.MaxPositionPct)
	}
	if t.BasePositionPct > 1 || t.MaxPositionPct > 1 || t.MaxTradeCashPct > 1 || t.MaxInstrumentPct > 1 {
		return fmt.Errorf("trading: position fractions must be within (0,1]")
	}
	r := c.Risk
	if r.QuickTPSellRatio <= 0 || r.QuickTPSellRatio > 1 {
		return fmt.Errorf("risk: quick_tp_sell_ratio must be within (0,1]")
	}
	if r.TrailingEnabled && r.TrailingStepPct >= r.TrailingStopPct {
		return fmt.Errorf("risk: trailing_step_pct %.4f must be below trailing_stop_pct %.4f", r.TrailingStepPct, r.TrailingStopPct)
	}
	switch strings.ToLower(c.Decision.EnsembleMode) {
	case "consensus", "ai_lead":
	default:
		return fmt.Errorf("decision: unknown ensemble_mode %q", c.Decision.EnsembleMode)
	}
	if _, err := time.Parse("15:04", c.Schedule.RunAt); err != nil {
		return fmt.Errorf("schedule: run_at must be HH:MM, got %q", c.Schedule.RunAt)
	}
	seen := make(map[string]bool)
	for _, code := range append(append([]string{}, c.Pools.Core...), c.Pools.Observe...) {
		code = strings.TrimSpace(code)
		if code == "" {
			return fmt.Errorf("pools: empty instrument code")
		}
		if seen[code] {
			return fmt.Errorf("pools: instrument %s listed twice", code)
		}
		seen[code] = true
	}
	return nil
}
