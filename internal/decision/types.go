// Package decision defines the structured buy/sell/hold decision the trading
// core consumes, and the tolerant parsing/validation layer that turns opaque
// collaborator output (an LLM, a rule engine, or an ensemble of both) into it.
package decision

import "strings"

type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
	Hold Action = "hold"
)

// Decision is the per-instrument, per-cycle instruction handed to the
// execution engine. The core does not care how it was produced.
type Decision struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"` // [0,1]
	Reasoning  string  `json:"reasoning"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	// SellRatio selects a partial exit; 0 is treated as 1.0 (full exit).
	SellRatio float64 `json:"sell_ratio,omitempty"`
	// PositionPct overrides the sizing fraction when > 0; it is still clamped
	// to the configured band by the executor.
	PositionPct float64 `json:"position_pct,omitempty"`
}

// HoldDecision is the safe default when a source fails or is skipped.
func HoldDecision(reason string) Decision {
	return Decision{Action: Hold, Confidence: 0.5, Reasoning: reason}
}

func NormalizeAction(raw string) Action {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy":
		return Buy
	case "sell":
		return Sell
	default:
		return Hold
	}
}
