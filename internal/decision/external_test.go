package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shSource(script string) *ExternalSource {
	return NewExternalSource("sh", []string{"-c", script}, 5*time.Second)
}

func TestExternalSourceParsesCommandOutput(t *testing.T) {
	src := shSource(`echo '{"action": "buy", "confidence": 0.8, "reasoning": "external entry"}'`)
	d, err := src.Decide(context.Background(), "AAA", []float64{10, 10.5})
	require.NoError(t, err)
	assert.Equal(t, Buy, d.Action)
	assert.InDelta(t, 0.8, d.Confidence, 1e-9)
	assert.Equal(t, "external entry", d.Reasoning)
}

func TestExternalSourceReceivesRequestOnStdin(t *testing.T) {
	// The command only answers if the request payload names the instrument.
	src := shSource(`grep -q '"code":"AAA"' && echo '{"action": "sell", "confidence": 0.6}'`)
	d, err := src.Decide(context.Background(), "AAA", []float64{10, 9.5})
	require.NoError(t, err)
	assert.Equal(t, Sell, d.Action)
}

func TestExternalSourceStripsFences(t *testing.T) {
	src := shSource("printf '```json\\n{\"action\": \"hold\"}\\n```\\n'")
	d, err := src.Decide(context.Background(), "AAA", nil)
	require.NoError(t, err)
	assert.Equal(t, Hold, d.Action)
}

func TestExternalSourceRejectsSchemaViolations(t *testing.T) {
	src := shSource(`echo '{"confidence": 0.5}'`)
	_, err := src.Decide(context.Background(), "AAA", nil)
	assert.Error(t, err, "missing action must fail schema validation")

	src = shSource(`echo 'not json'`)
	_, err = src.Decide(context.Background(), "AAA", nil)
	assert.Error(t, err)
}

func TestExternalSourceCommandFailure(t *testing.T) {
	src := shSource(`echo 'advisor unavailable' >&2; exit 3`)
	_, err := src.Decide(context.Background(), "AAA", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "advisor unavailable")
}

func TestEnsembleSourceDegradesWhenExternalFails(t *testing.T) {
	rule := NewRuleSource(NewRuleEngine(ruleCfg()))
	src := NewEnsembleSource(ModeConsensus, shSource("exit 1"), rule)

	d, err := src.Decide(context.Background(), "AAA", flatCloses())
	require.NoError(t, err)
	assert.Equal(t, Hold, d.Action)
}
