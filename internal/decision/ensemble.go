package decision

import "fmt"

// Ensemble modes. In consensus mode the two sources must agree on a non-hold
// action for it to go through; in ai_lead mode the primary source wins and
// the rule source only vetoes by downgrading confidence.
const (
	ModeConsensus = "consensus"
	ModeAILead    = "ai_lead"
)

// Merge combines a primary decision with a rule decision under the given
// mode. The merged reasoning records both inputs so the trade note explains
// itself later.
func Merge(mode string, primary, rule Decision) Decision {
	switch mode {
	case ModeAILead:
		return mergeAILead(primary, rule)
	default:
		return mergeConsensus(primary, rule)
	}
}

func mergeConsensus(primary, rule Decision) Decision {
	if primary.Action == rule.Action && primary.Action != Hold {
		out := primary
		out.Confidence = (primary.Confidence + rule.Confidence) / 2
		out.Reasoning = fmt.Sprintf("consensus %s: %s | %s", primary.Action, primary.Reasoning, rule.Reasoning)
		return out
	}
	return HoldDecision(fmt.Sprintf("no consensus: primary=%s rule=%s", primary.Action, rule.Action))
}

func mergeAILead(primary, rule Decision) Decision {
	out := primary
	if primary.Action != Hold && rule.Action != Hold && rule.Action != primary.Action {
		// Disagreement halves conviction but does not block the trade.
		out.Confidence = primary.Confidence / 2
		out.Reasoning = fmt.Sprintf("%s (rule disagrees: %s)", primary.Reasoning, rule.Reasoning)
	}
	return out
}
