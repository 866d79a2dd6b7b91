// Package account holds the in-memory mutable ledger used during a live run.
// State is only ever mutated by the execution engine; everything else reads.
package account

import (
	"sort"
	"time"

	"etfbot/internal/ledger"
)

// Position is one open holding. Risk levels and the high-water mark are
// run-time state: they are rebuilt with defaults when the account is restored
// from the trade log.
type Position struct {
	Code          string
	Quantity      float64
	AvgEntry      float64
	StopLoss      float64 // 0 means unset
	TakeProfit    float64 // 0 means unset
	HighWaterMark float64
	// QuickTPDone marks that the one-shot quick take-profit already fired for
	// this position. It is not persisted: a process restart mid-day re-arms
	// the quick take-profit and it may fire a second time. Known gap, kept
	// deliberately — persisting it would add a second mutable source of truth
	// next to the append-only trade log.
	QuickTPDone bool
	OpenedAt    time.Time
}

// MarketValue returns the mark-to-market value at px, or 0 when px is invalid.
func (p *Position) MarketValue(px float64) float64 {
	if p == nil || px <= 0 {
		return 0
	}
	return p.Quantity * px
}

type State struct {
	Cash      float64
	Positions map[string]*Position
}

func NewState(initialCash float64) *State {
	return &State{
		Cash:      initialCash,
		Positions: make(map[string]*Position),
	}
}

// Equity returns cash plus the mark-to-market value of all open positions,
// along with the codes whose price was missing or invalid. Callers must treat
// a non-empty missing list as "this equity figure is not trustworthy".
func (s *State) Equity(prices map[string]float64) (total float64, missing []string) {
	total = s.Cash
	codes := make([]string, 0, len(s.Positions))
	for code := range s.Positions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		pos := s.Positions[code]
		px := prices[code]
		if px <= 0 {
			missing = append(missing, code)
			continue
		}
		total += pos.Quantity * px
	}
	return total, missing
}

// HoldingsValue returns the mark-to-market value of open positions only.
func (s *State) HoldingsValue(prices map[string]float64) float64 {
	total, _ := s.Equity(prices)
	return total - s.Cash
}

// Restore rebuilds the live account state from the trade log. Cash and net
// quantities come from ledger.Replay (the single source of truth); the
// weighted-average entry price is reconstructed by walking the same trades,
// reducing cost basis at average on sells so that partial exits leave the
// average entry untouched.
func Restore(trades []ledger.Trade, cutoff time.Time, configuredInitialCash float64) (*State, ledger.ReplayResult) {
	res := ledger.Replay(trades, cutoff, configuredInitialCash)

	// The walk is order-sensitive (a sell reduces basis at the then-current
	// average), so sort defensively like Replay does instead of trusting the
	// caller's slice order.
	ordered := make([]ledger.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.Timestamp.After(cutoff) {
			ordered = append(ordered, t)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	type basis struct {
		qty  float64
		cost float64
	}
	bases := make(map[string]*basis)
	opened := make(map[string]time.Time)
	for _, t := range ordered {
		switch t.Action {
		case ledger.ActionBuy:
			b := bases[t.Code]
			if b == nil {
				b = &basis{}
				bases[t.Code] = b
				opened[t.Code] = t.Timestamp
			}
			b.qty += t.Quantity
			b.cost += t.Quantity * t.Price
		case ledger.ActionSell:
			b := bases[t.Code]
			if b == nil || b.qty <= ledger.QtyEpsilon {
				continue
			}
			avg := b.cost / b.qty
			b.qty -= t.Quantity
			b.cost -= t.Quantity * avg
			if b.qty <= ledger.QtyEpsilon {
				delete(bases, t.Code)
				delete(opened, t.Code)
			}
		}
	}

	st := NewState(res.Cash)
	for code, qty := range res.Positions {
		avg := 0.0
		if b := bases[code]; b != nil && b.qty > ledger.QtyEpsilon {
			avg = b.cost / b.qty
		}
		st.Positions[code] = &Position{
			Code:          code,
			Quantity:      qty,
			AvgEntry:      avg,
			HighWaterMark: avg,
			OpenedAt:      opened[code],
		}
	}
	return st, res
}
