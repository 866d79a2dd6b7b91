package decision

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Parse turns raw collaborator output into a Decision. LLM output is messy in
// practice: markdown fences, a wrapping object, "decision" instead of
// "action", confidence on a 0-100 scale. All of that is tolerated; anything
// that still fails to yield a recognizable decision object is an error.
func Parse(raw string) (Decision, error) {
	raw = stripFences(raw)
	if raw == "" {
		return Decision{}, fmt.Errorf("decision payload is empty")
	}
	if !gjson.Valid(raw) {
		return Decision{}, fmt.Errorf("decision payload is not valid json")
	}
	node := gjson.Parse(raw)
	if node.IsArray() {
		arr := node.Array()
		if len(arr) == 0 {
			return Decision{}, fmt.Errorf("decision array is empty")
		}
		node = arr[0]
	}
	if !node.IsObject() {
		return Decision{}, fmt.Errorf("decision payload must be a json object")
	}
	if inner := node.Get("decision"); inner.Exists() && inner.IsObject() {
		node = inner
	}

	action := node.Get("action").String()
	if action == "" {
		// Some models answer {"decision": "buy", ...} with a scalar.
		action = node.Get("decision").String()
	}
	if strings.TrimSpace(action) == "" {
		return Decision{}, fmt.Errorf("decision payload has no action field")
	}

	d := Decision{
		Action:      NormalizeAction(action),
		Confidence:  normalizeConfidence(node.Get("confidence").Float()),
		Reasoning:   strings.TrimSpace(node.Get("reasoning").String()),
		StopLoss:    node.Get("stop_loss").Float(),
		TakeProfit:  node.Get("take_profit").Float(),
		SellRatio:   node.Get("sell_ratio").Float(),
		PositionPct: node.Get("position_pct").Float(),
	}
	return d, nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	if idx := strings.LastIndex(raw, "```"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}

func normalizeConfidence(v float64) float64 {
	switch {
	case v > 1 && v <= 100:
		return v / 100
	case v < 0:
		return 0
	case v > 100:
		return 1
	default:
		return v
	}
}
