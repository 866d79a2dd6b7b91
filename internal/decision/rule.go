package decision

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"etfbot/internal/config"
)

// RuleEngine produces decisions from daily closes using plain technical
// rules: a short-period RSI for mean-reversion extremes, an N-day breakout
// for momentum entries and a MACD dead cross as the sell confirmation.
type RuleEngine struct {
	cfg config.RuleConfig
}

func NewRuleEngine(cfg config.RuleConfig) *RuleEngine {
	return &RuleEngine{cfg: cfg}
}

func (r *RuleEngine) Decide(closes []float64) Decision {
	need := r.cfg.BreakoutN + 1
	if macdNeed := 26 + 9; macdNeed > need {
		need = macdNeed
	}
	if len(closes) < need {
		return HoldDecision(fmt.Sprintf("rule: only %d closes, need %d", len(closes), need))
	}

	rsiSeries := talib.Rsi(closes, r.cfg.RSIPeriod)
	rsi := rsiSeries[len(rsiSeries)-1]
	last := closes[len(closes)-1]

	// Highest close of the N days before today.
	window := closes[len(closes)-1-r.cfg.BreakoutN : len(closes)-1]
	high := window[0]
	for _, c := range window {
		if c > high {
			high = c
		}
	}

	_, _, hist := talib.Macd(closes, 12, 26, 9)
	histNow := hist[len(hist)-1]
	histPrev := hist[len(hist)-2]

	switch {
	case rsi <= r.cfg.RSILow:
		return Decision{
			Action:     Buy,
			Confidence: 0.7,
			Reasoning:  fmt.Sprintf("rule: RSI(%d)=%.1f <= %.1f oversold", r.cfg.RSIPeriod, rsi, r.cfg.RSILow),
		}
	case last > high:
		return Decision{
			Action:     Buy,
			Confidence: 0.6,
			Reasoning:  fmt.Sprintf("rule: close %.4f breaks %d-day high %.4f", last, r.cfg.BreakoutN, high),
		}
	case rsi >= r.cfg.RSIHigh:
		return Decision{
			Action:     Sell,
			Confidence: 0.7,
			Reasoning:  fmt.Sprintf("rule: RSI(%d)=%.1f >= %.1f overbought", r.cfg.RSIPeriod, rsi, r.cfg.RSIHigh),
		}
	case histNow < 0 && histPrev >= 0:
		return Decision{
			Action:     Sell,
			Confidence: 0.55,
			Reasoning:  "rule: MACD histogram crossed below zero",
		}
	}
	return HoldDecision("rule: no signal")
}
