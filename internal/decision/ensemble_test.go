package decision

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etfbot/internal/config"
)

func TestMergeConsensusAgreement(t *testing.T) {
	primary := Decision{Action: Buy, Confidence: 0.8, Reasoning: "model says buy"}
	rule := Decision{Action: Buy, Confidence: 0.6, Reasoning: "breakout"}

	merged := Merge(ModeConsensus, primary, rule)
	assert.Equal(t, Buy, merged.Action)
	assert.InDelta(t, 0.7, merged.Confidence, 1e-9)
	assert.Contains(t, merged.Reasoning, "model says buy")
	assert.Contains(t, merged.Reasoning, "breakout")
}

func TestMergeConsensusDisagreementHolds(t *testing.T) {
	merged := Merge(ModeConsensus,
		Decision{Action: Buy, Confidence: 0.9},
		Decision{Action: Sell, Confidence: 0.9})
	assert.Equal(t, Hold, merged.Action)
	assert.Contains(t, merged.Reasoning, "no consensus")

	// Agreeing on hold is still a hold, not a trade.
	merged = Merge(ModeConsensus,
		Decision{Action: Hold}, Decision{Action: Hold})
	assert.Equal(t, Hold, merged.Action)
}

func TestMergeAILeadKeepsPrimary(t *testing.T) {
	merged := Merge(ModeAILead,
		Decision{Action: Buy, Confidence: 0.8, Reasoning: "conviction entry"},
		Decision{Action: Hold, Confidence: 0.5})
	assert.Equal(t, Buy, merged.Action)
	assert.InDelta(t, 0.8, merged.Confidence, 1e-9)
}

func TestMergeAILeadDisagreementHalvesConfidence(t *testing.T) {
	merged := Merge(ModeAILead,
		Decision{Action: Buy, Confidence: 0.8, Reasoning: "entry"},
		Decision{Action: Sell, Confidence: 0.7, Reasoning: "overbought"})
	assert.Equal(t, Buy, merged.Action)
	assert.InDelta(t, 0.4, merged.Confidence, 1e-9)
	assert.Contains(t, merged.Reasoning, "rule disagrees")
}

type stubSource struct {
	d   Decision
	err error
}

func (s *stubSource) Name() string { return "stub" }
func (s *stubSource) Decide(context.Context, string, []float64) (Decision, error) {
	return s.d, s.err
}

func ruleCfg() config.RuleConfig {
	return config.RuleConfig{BreakoutN: 20, RSIPeriod: 2, RSILow: 10, RSIHigh: 95}
}

// Enough closes for the MACD warm-up, trending gently upward but ending on a
// small dip so neither RSI extreme nor the breakout fires.
func flatCloses() []float64 {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 10 + 0.05*float64(i)
	}
	closes[59] = closes[58] - 0.02
	return closes
}

func TestEnsembleSourcePrimaryFailureFallsBackToRule(t *testing.T) {
	rule := NewRuleSource(NewRuleEngine(ruleCfg()))
	src := NewEnsembleSource(ModeConsensus, &stubSource{err: fmt.Errorf("upstream down")}, rule)

	d, err := src.Decide(context.Background(), "AAA", flatCloses())
	require.NoError(t, err)
	assert.Equal(t, Hold, d.Action)
}

func TestEnsembleSourceMergesBothAnswers(t *testing.T) {
	rule := NewRuleSource(NewRuleEngine(ruleCfg()))
	src := NewEnsembleSource(ModeAILead, &stubSource{d: Decision{Action: Buy, Confidence: 0.9, Reasoning: "stub"}}, rule)

	d, err := src.Decide(context.Background(), "AAA", flatCloses())
	require.NoError(t, err)
	assert.Equal(t, Buy, d.Action)
}
