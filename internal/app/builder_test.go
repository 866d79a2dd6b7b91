package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etfbot/internal/config"
	"etfbot/internal/decision"
)

func TestProvideDecisionSourceRuleOnly(t *testing.T) {
	cfg := &config.Config{}
	cfg.Decision.EnsembleMode = decision.ModeConsensus
	cfg.Decision.Rule = config.RuleConfig{BreakoutN: 20, RSIPeriod: 2, RSILow: 10, RSIHigh: 95}

	src := provideDecisionSource(cfg)
	assert.Equal(t, "rule", src.Name())
}

func TestProvideDecisionSourceWrapsExternalCommand(t *testing.T) {
	cfg := &config.Config{}
	cfg.Decision.EnsembleMode = decision.ModeAILead
	cfg.Decision.Command = "sh"
	cfg.Decision.Args = []string{"-c", `echo '{"action": "buy", "confidence": 0.9}'`}
	cfg.Decision.TimeoutSec = 5
	cfg.Decision.Rule = config.RuleConfig{BreakoutN: 20, RSIPeriod: 2, RSILow: 10, RSIHigh: 95}

	src := provideDecisionSource(cfg)
	assert.Equal(t, "ensemble(ai_lead)", src.Name())

	// Enough flat-ish history for the rule side; the external buy leads.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 10 + 0.05*float64(i)
	}
	closes[59] = closes[58] - 0.02
	d, err := src.Decide(context.Background(), "AAA", closes)
	require.NoError(t, err)
	assert.Equal(t, decision.Buy, d.Action)
}
