package equity

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"etfbot/internal/account"
	"etfbot/internal/config"
	"etfbot/internal/ledger"
	"etfbot/internal/logger"
)

// Diff is one instrument's divergence between replayed and live state.
type Diff struct {
	Code      string
	LiveQty   float64
	ReplayQty float64
	QtyDiff   float64
	Price     float64
	ValueDiff float64
}

// ConsistencyReport is the outcome of comparing the replayed account against
// the live in-memory one after a cycle.
type ConsistencyReport struct {
	OK         bool
	CashLive   float64
	CashReplay float64
	CashDiff   float64
	Diffs      []Diff
}

func (r ConsistencyReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cash live=%.2f replay=%.2f diff=%.2f\n", r.CashLive, r.CashReplay, r.CashDiff)
	for _, d := range r.Diffs {
		fmt.Fprintf(&b, "%s: qty live=%.6f replay=%.6f diff=%.6f px=%.4f value_diff=%.2f\n",
			d.Code, d.LiveQty, d.ReplayQty, d.QtyDiff, d.Price, d.ValueDiff)
	}
	return strings.TrimRight(b.String(), "\n")
}

// CheckConsistency replays the trade log and compares the result against the
// live account the execution engine actually produced this cycle. A mismatch
// beyond tolerance means the engine mutated state and logged something else,
// and the cycle must abort before that poisons future guard baselines.
func CheckConsistency(replay ledger.ReplayResult, live *account.State, prices map[string]float64, cfg config.GuardConfig) (ConsistencyReport, error) {
	report := ConsistencyReport{
		OK:         true,
		CashLive:   live.Cash,
		CashReplay: replay.Cash,
		CashDiff:   live.Cash - replay.Cash,
	}
	if math.Abs(report.CashDiff) > cfg.CashTolerance {
		report.OK = false
	}

	codes := make(map[string]bool)
	for code := range live.Positions {
		codes[code] = true
	}
	for code := range replay.Positions {
		codes[code] = true
	}
	ordered := make([]string, 0, len(codes))
	for code := range codes {
		ordered = append(ordered, code)
	}
	sort.Strings(ordered)

	for _, code := range ordered {
		var liveQty float64
		if pos := live.Positions[code]; pos != nil {
			liveQty = pos.Quantity
		}
		replayQty := replay.Positions[code]
		diff := liveQty - replayQty
		if math.Abs(diff) <= cfg.QuantityTolerance {
			continue
		}
		px := prices[code]
		report.OK = false
		report.Diffs = append(report.Diffs, Diff{
			Code:      code,
			LiveQty:   liveQty,
			ReplayQty: replayQty,
			QtyDiff:   diff,
			Price:     px,
			ValueDiff: diff * px,
		})
	}

	if !report.OK {
		logger.Errorf("replay consistency check failed:")
		logger.InfoBlock(report.String())
		return report, fmt.Errorf("live account diverged from trade-log replay (cash diff %.2f, %d instrument diffs)",
			report.CashDiff, len(report.Diffs))
	}
	logger.Debugf("replay consistency check passed (cash diff %.4f)", report.CashDiff)
	return report, nil
}
