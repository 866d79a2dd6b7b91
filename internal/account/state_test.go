package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etfbot/internal/ledger"
)

func ts(day int) time.Time {
	return time.Date(2026, 3, day, 15, 0, 0, 0, time.UTC)
}

func trade(day int, code string, action ledger.Action, price, qty, cost, cashAfter float64) ledger.Trade {
	return ledger.Trade{
		Timestamp:  ts(day),
		Code:       code,
		Action:     action,
		Price:      price,
		Quantity:   qty,
		GrossValue: price * qty,
		Cost:       cost,
		CashAfter:  cashAfter,
	}
}

func TestRestoreWeightedAverageEntry(t *testing.T) {
	log := []ledger.Trade{
		trade(1, "AAA", ledger.ActionBuy, 10, 100, 0, 99000),
		trade(2, "AAA", ledger.ActionBuy, 12, 50, 0, 98400),
	}
	st, _ := Restore(log, ts(10), 100000)

	pos := st.Positions["AAA"]
	require.NotNil(t, pos)
	assert.InDelta(t, 150, pos.Quantity, 1e-9)
	assert.InDelta(t, (100*10.0+50*12.0)/150, pos.AvgEntry, 1e-9)
	assert.InDelta(t, pos.AvgEntry, pos.HighWaterMark, 1e-9)
	assert.Equal(t, ts(1), pos.OpenedAt)
}

func TestRestoreSellKeepsAverageEntry(t *testing.T) {
	// Buy 1000 at 10, sell 400 at 12 with cost 2: cash 94798, 600 left at
	// the original average.
	log := []ledger.Trade{
		trade(1, "AAA", ledger.ActionBuy, 10, 1000, 0, 90000),
		trade(2, "AAA", ledger.ActionSell, 12, 400, 2, 94798),
	}
	st, res := Restore(log, ts(10), 100000)

	assert.InDelta(t, 94798, st.Cash, 1e-9)
	assert.True(t, res.InferredInitialCash)

	pos := st.Positions["AAA"]
	require.NotNil(t, pos)
	assert.InDelta(t, 600, pos.Quantity, 1e-9)
	assert.InDelta(t, 10.0, pos.AvgEntry, 1e-9)
}

func TestRestoreUnsortedLogGetsSameAverage(t *testing.T) {
	// Slice order reversed relative to time: the sell must still be applied
	// after both buys, leaving the blended average untouched.
	log := []ledger.Trade{
		trade(3, "AAA", ledger.ActionSell, 12, 50, 0, 98900),
		trade(2, "AAA", ledger.ActionBuy, 12, 50, 0, 98400),
		trade(1, "AAA", ledger.ActionBuy, 10, 100, 0, 99000),
	}
	st, _ := Restore(log, ts(10), 100000)

	pos := st.Positions["AAA"]
	require.NotNil(t, pos)
	assert.InDelta(t, 100, pos.Quantity, 1e-9)
	assert.InDelta(t, (100*10.0+50*12.0)/150, pos.AvgEntry, 1e-9)
	assert.Equal(t, ts(1), pos.OpenedAt)
}

func TestRestoreClosedPositionGone(t *testing.T) {
	log := []ledger.Trade{
		trade(1, "AAA", ledger.ActionBuy, 10, 100, 0, 99000),
		trade(2, "AAA", ledger.ActionSell, 11, 100, 0, 100100),
	}
	st, _ := Restore(log, ts(10), 100000)
	assert.Empty(t, st.Positions)
}

func TestEquityReportsMissingPrices(t *testing.T) {
	st := NewState(1000)
	st.Positions["AAA"] = &Position{Code: "AAA", Quantity: 10, AvgEntry: 5}
	st.Positions["BBB"] = &Position{Code: "BBB", Quantity: 20, AvgEntry: 3}

	total, missing := st.Equity(map[string]float64{"AAA": 6})
	assert.InDelta(t, 1000+60, total, 1e-9)
	assert.Equal(t, []string{"BBB"}, missing)

	total, missing = st.Equity(map[string]float64{"AAA": 6, "BBB": 4})
	assert.InDelta(t, 1000+60+80, total, 1e-9)
	assert.Empty(t, missing)
	assert.InDelta(t, 140, st.HoldingsValue(map[string]float64{"AAA": 6, "BBB": 4}), 1e-9)
}

func TestMarketValueInvalidPrice(t *testing.T) {
	pos := &Position{Code: "AAA", Quantity: 10}
	assert.Zero(t, pos.MarketValue(0))
	assert.Zero(t, pos.MarketValue(-1))
	assert.InDelta(t, 50, pos.MarketValue(5), 1e-9)
}
