package ledger

import "time"

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Trade is one immutable row of the append-only trade log. Hold decisions are
// never recorded.
//
// CashAfter is a cache of the account cash balance at insertion time. It is
// kept for diagnostics and for inferring the true starting cash from the first
// row, but it must never be treated as authoritative later on: replay from
// genesis is the only trusted derivation of cash state.
type Trade struct {
	ID         string
	Timestamp  time.Time
	Code       string
	Action     Action
	Price      float64
	Quantity   float64
	GrossValue float64
	// Cost is the transaction cost as an explicit column. Historical rows
	// predate the column and carry the cost only inside Note ("cost: 12.34");
	// replay falls back to parsing it from there.
	Cost      float64
	CashAfter float64
	Note      string
}

// QtyEpsilon is the tolerance below which a position quantity is considered
// zero and dropped rather than kept as dust.
const QtyEpsilon = 1e-9
