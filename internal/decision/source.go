package decision

import "context"

// Source produces a decision for one instrument from its daily closes.
// Implementations include the local rule engine and any external
// collaborator whose output passes through Parse/Sanitize.
type Source interface {
	Name() string
	Decide(ctx context.Context, code string, closes []float64) (Decision, error)
}

// RuleSource adapts RuleEngine to the Source interface.
type RuleSource struct {
	engine *RuleEngine
}

func NewRuleSource(engine *RuleEngine) *RuleSource {
	return &RuleSource{engine: engine}
}

func (s *RuleSource) Name() string { return "rule" }

func (s *RuleSource) Decide(_ context.Context, _ string, closes []float64) (Decision, error) {
	return s.engine.Decide(closes), nil
}

// EnsembleSource merges an external primary source with the rule engine. A
// primary failure degrades to the rule decision alone rather than failing the
// instrument.
type EnsembleSource struct {
	mode    string
	primary Source
	rule    *RuleSource
}

func NewEnsembleSource(mode string, primary Source, rule *RuleSource) *EnsembleSource {
	return &EnsembleSource{mode: mode, primary: primary, rule: rule}
}

func (s *EnsembleSource) Name() string { return "ensemble(" + s.mode + ")" }

func (s *EnsembleSource) Decide(ctx context.Context, code string, closes []float64) (Decision, error) {
	ruleDecision, err := s.rule.Decide(ctx, code, closes)
	if err != nil {
		return Decision{}, err
	}
	primaryDecision, err := s.primary.Decide(ctx, code, closes)
	if err != nil {
		return ruleDecision, nil
	}
	return Merge(s.mode, primaryDecision, ruleDecision), nil
}
