package ledger

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// ReplayResult is the account state reconstructed from the trade log alone.
type ReplayResult struct {
	Cash      float64
	Positions map[string]float64

	// InitialCash is the starting cash the walk began from, and
	// InferredInitialCash reports whether it was recovered from the first
	// trade row rather than taken from configuration.
	InitialCash         float64
	InferredInitialCash bool

	// ImpreciseCosts lists trade IDs whose cost could not be recovered from
	// either the cost column or the note, and was replayed as zero. A
	// non-empty list means the replayed cash may understate true costs.
	ImpreciseCosts []string
}

// Legacy rows carry the cost only inside the free-text note, with either an
// English or a localized label.
var noteCostPattern = regexp.MustCompile(`(?:cost|成本)[:：]\s*([0-9]+(?:\.[0-9]+)?)`)

// ParseNoteCost extracts a transaction cost embedded in a trade note.
func ParseNoteCost(note string) (float64, bool) {
	m := noteCostPattern.FindStringSubmatch(note)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func tradeCost(t Trade) (cost float64, known bool) {
	if t.Cost > 0 {
		return t.Cost, true
	}
	if v, ok := ParseNoteCost(t.Note); ok {
		return v, true
	}
	return 0, false
}

// InferInitialCash inverts the first trade's cached CashAfter to recover the
// cash balance the account actually started from. The configured initial
// capital has historically drifted from the real starting point after manual
// repairs, so the ledger itself is the more trustworthy source.
func InferInitialCash(first Trade) (float64, bool) {
	if first.GrossValue <= 0 || first.CashAfter <= 0 {
		return 0, false
	}
	cost, _ := tradeCost(first)
	switch first.Action {
	case ActionBuy:
		// cash_after = cash_before - (gross + cost)
		return first.CashAfter + first.GrossValue + cost, true
	case ActionSell:
		// cash_after = cash_before + (gross - cost)
		return first.CashAfter - first.GrossValue + cost, true
	}
	return 0, false
}

// Replay reconstructs cash and net position quantities by chronologically
// applying every trade with timestamp <= cutoff. It is a pure function of its
// inputs and is the single authoritative derivation of account state; startup
// recovery, the snapshot guard baseline and the post-cycle consistency check
// all go through it.
func Replay(trades []Trade, cutoff time.Time, configuredInitialCash float64) ReplayResult {
	filtered := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if !t.Timestamp.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	res := ReplayResult{
		Cash:        configuredInitialCash,
		InitialCash: configuredInitialCash,
		Positions:   make(map[string]float64),
	}
	if len(filtered) == 0 {
		return res
	}
	if inferred, ok := InferInitialCash(filtered[0]); ok {
		res.Cash = inferred
		res.InitialCash = inferred
		res.InferredInitialCash = true
	}

	for _, t := range filtered {
		cost, known := tradeCost(t)
		if !known {
			res.ImpreciseCosts = append(res.ImpreciseCosts, t.ID)
		}
		switch t.Action {
		case ActionBuy:
			res.Cash -= t.GrossValue + cost
			res.Positions[t.Code] += t.Quantity
		case ActionSell:
			res.Cash += t.GrossValue - cost
			res.Positions[t.Code] -= t.Quantity
		}
	}

	for code, qty := range res.Positions {
		if math.Abs(qty) <= QtyEpsilon {
			delete(res.Positions, code)
		}
	}
	return res
}
