package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(day int) time.Time {
	return time.Date(2026, 3, day, 15, 0, 0, 0, time.UTC)
}

func buyTrade(day int, code string, price, qty, cost, cashAfter float64) Trade {
	return Trade{
		ID:         "t-buy-" + code + string(rune('0'+day)),
		Timestamp:  ts(day),
		Code:       code,
		Action:     ActionBuy,
		Price:      price,
		Quantity:   qty,
		GrossValue: price * qty,
		Cost:       cost,
		CashAfter:  cashAfter,
	}
}

func sellTrade(day int, code string, price, qty, cost, cashAfter float64) Trade {
	return Trade{
		ID:         "t-sell-" + code + string(rune('0'+day)),
		Timestamp:  ts(day),
		Code:       code,
		Action:     ActionSell,
		Price:      price,
		Quantity:   qty,
		GrossValue: price * qty,
		Cost:       cost,
		CashAfter:  cashAfter,
	}
}

func TestReplayEmptyLogUsesConfiguredCash(t *testing.T) {
	res := Replay(nil, ts(10), 100000)
	assert.Equal(t, 100000.0, res.Cash)
	assert.False(t, res.InferredInitialCash)
	assert.Empty(t, res.Positions)
}

func TestReplayBuyAndSell(t *testing.T) {
	log := []Trade{
		buyTrade(1, "AAA", 10, 1000, 0, 90000),
		sellTrade(2, "AAA", 12, 400, 2.0, 94798),
	}
	res := Replay(log, ts(10), 100000)

	// Initial cash inferred from the first buy: 90000 + 10000 + 0.
	assert.True(t, res.InferredInitialCash)
	assert.InDelta(t, 100000, res.InitialCash, 1e-9)
	assert.InDelta(t, 94798, res.Cash, 1e-9)
	assert.InDelta(t, 600, res.Positions["AAA"], 1e-9)
}

func TestReplayDeterminism(t *testing.T) {
	log := []Trade{
		buyTrade(1, "AAA", 10, 1000, 5, 89995),
		buyTrade(2, "BBB", 20, 100, 1, 87994),
		sellTrade(3, "AAA", 11, 500, 3, 93491),
	}
	first := Replay(log, ts(10), 50000)
	second := Replay(log, ts(10), 50000)
	assert.Equal(t, first.Cash, second.Cash)
	assert.Equal(t, first.Positions, second.Positions)
}

func TestReplayAdditivity(t *testing.T) {
	log := []Trade{
		buyTrade(1, "AAA", 10, 1000, 0, 90000),
		buyTrade(3, "BBB", 20, 200, 4, 85996),
		sellTrade(5, "AAA", 11, 300, 2, 89294),
	}
	mid := Replay(log, ts(3), 100000)
	full := Replay(log, ts(10), 100000)

	// Apply the remaining trade to the midpoint state by hand.
	cash := mid.Cash + (11*300 - 2)
	assert.InDelta(t, full.Cash, cash, 1e-9)
	assert.InDelta(t, full.Positions["AAA"], mid.Positions["AAA"]-300, 1e-9)
	assert.InDelta(t, full.Positions["BBB"], mid.Positions["BBB"], 1e-9)
}

func TestReplayCutoffFilters(t *testing.T) {
	log := []Trade{
		buyTrade(1, "AAA", 10, 1000, 0, 90000),
		buyTrade(8, "AAA", 10, 1000, 0, 80000),
	}
	res := Replay(log, ts(5), 100000)
	assert.InDelta(t, 1000, res.Positions["AAA"], 1e-9)
	assert.InDelta(t, 90000, res.Cash, 1e-9)
}

func TestReplayNoteCostFallback(t *testing.T) {
	buy := buyTrade(1, "AAA", 10, 1000, 0, 89990)
	buy.Note = "opening position | cost: 10.00"
	res := Replay([]Trade{buy}, ts(5), 0)

	require.True(t, res.InferredInitialCash)
	// 89990 + 10000 + 10 inferred, minus 10000 gross minus 10 cost.
	assert.InDelta(t, 100000, res.InitialCash, 1e-9)
	assert.InDelta(t, 89990, res.Cash, 1e-9)
	assert.Empty(t, res.ImpreciseCosts)
}

func TestReplayLocalizedNoteCost(t *testing.T) {
	v, ok := ParseNoteCost("建仓 成本: 12.34 其他说明")
	require.True(t, ok)
	assert.InDelta(t, 12.34, v, 1e-9)

	v, ok = ParseNoteCost("cost: 7.5")
	require.True(t, ok)
	assert.InDelta(t, 7.5, v, 1e-9)

	_, ok = ParseNoteCost("no cost recorded here")
	assert.False(t, ok)
}

func TestReplayUnknownCostFlagged(t *testing.T) {
	buy := buyTrade(1, "AAA", 10, 1000, 0, 90000)
	buy.Note = "legacy row without cost"
	res := Replay([]Trade{buy}, ts(5), 0)

	require.Len(t, res.ImpreciseCosts, 1)
	assert.Equal(t, buy.ID, res.ImpreciseCosts[0])
	// Cost replayed as zero.
	assert.InDelta(t, 90000, res.Cash, 1e-9)
}

func TestReplayCostColumnWinsOverNote(t *testing.T) {
	buy := buyTrade(1, "AAA", 10, 1000, 7, 89993)
	buy.Note = "cost: 999.99"
	res := Replay([]Trade{buy}, ts(5), 0)
	assert.InDelta(t, 89993, res.Cash, 1e-9)
}

func TestReplayDropsDustPositions(t *testing.T) {
	log := []Trade{
		buyTrade(1, "AAA", 10, 1000, 0, 90000),
		sellTrade(2, "AAA", 10, 1000, 0, 100000),
	}
	res := Replay(log, ts(5), 100000)
	_, held := res.Positions["AAA"]
	assert.False(t, held, "fully closed position must not linger as dust")
}

func TestInferInitialCashRejectsCorruptFirstRow(t *testing.T) {
	bad := buyTrade(1, "AAA", 10, 1000, 0, 0) // cash_after missing
	_, ok := InferInitialCash(bad)
	assert.False(t, ok)

	bad = buyTrade(1, "AAA", 0, 0, 0, 90000) // no gross value
	_, ok = InferInitialCash(bad)
	assert.False(t, ok)

	res := Replay([]Trade{bad}, ts(5), 42000)
	assert.False(t, res.InferredInitialCash)
	assert.InDelta(t, 42000, res.InitialCash, 1e-9)
}

func TestInferInitialCashFromFirstSell(t *testing.T) {
	sell := sellTrade(1, "AAA", 12, 400, 2, 104798)
	got, ok := InferInitialCash(sell)
	require.True(t, ok)
	// cash_before = cash_after - gross + cost = 104798 - 4800 + 2.
	assert.InDelta(t, 100000, got, 1e-9)
}
