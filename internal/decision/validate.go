package decision

import "fmt"

// Sanitize applies price-aware sanity rules to a parsed decision and returns
// the (possibly downgraded) decision. It never errors a cycle: a decision that
// cannot be acted on safely degrades to hold with the reason recorded.
func Sanitize(d Decision, currentPrice float64) Decision {
	if d.Action == Hold {
		return d
	}
	if currentPrice <= 0 {
		return HoldDecision(fmt.Sprintf("no valid current price, original action %s dropped", d.Action))
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	if d.SellRatio < 0 || d.SellRatio > 1 {
		d.SellRatio = 1
	}
	if d.Action == Buy {
		// Risk levels on the wrong side of the price are noise from the
		// collaborator; drop them rather than arming nonsense exits.
		if d.StopLoss >= currentPrice {
			d.StopLoss = 0
		}
		if d.TakeProfit > 0 && d.TakeProfit <= currentPrice {
			d.TakeProfit = 0
		}
	}
	return d
}
