// Package scoring produces spam probability scores for incoming callers.
//
// Scores are probability-like values in [0,1]. All scorers are deterministic:
// the same (number, context) input always yields the same score.
package scoring

import "strings"

// Rule type discriminators. Rules are read-only inputs managed outside this
// package.
const (
	RuleBlacklist = "BLACKLIST"
	RuleWhitelist = "WHITELIST"
)

// Rule is a weighted heuristic applied during rule-based scoring.
type Rule struct {
	Type    string
	Value   string
	Weight  float64
	Enabled bool
}

// Context is the ephemeral per-evaluation input to scoring. Never persisted.
type Context struct {
	Anonymous       bool
	FrequencyLast7d int
	LastDurationSec int
	Rules           []Rule
}

// Scorer scores a normalized number against a call context.
// Implementations must return values in [0,1] and be deterministic.
type Scorer interface {
	Score(number string, ctx Context) float64
}

// defaultPremiumPrefixes are known-bad premium-rate prefixes.
var defaultPremiumPrefixes = []string{"+390", "+39899", "+39199"}

// RuleScorer is the deterministic heuristic scorer.
type RuleScorer struct {
	premiumPrefixes []string
}

// NewRuleScorer returns a rule scorer with the given premium-rate prefixes.
// Pass nil for the built-in defaults.
func NewRuleScorer(premiumPrefixes []string) *RuleScorer {
	if premiumPrefixes == nil {
		premiumPrefixes = defaultPremiumPrefixes
	}
	return &RuleScorer{premiumPrefixes: premiumPrefixes}
}

// Score applies the heuristic signals: anonymity, premium prefixes, 7-day
// frequency, then configured blacklist/whitelist rules. Clamped to [0,1].
func (r *RuleScorer) Score(number string, ctx Context) float64 {
	s := 0.0
	if ctx.Anonymous {
		s += 0.6
	}
	if number != "" {
		for _, prefix := range r.premiumPrefixes {
			if strings.HasPrefix(number, prefix) {
				s += 0.3
				break
			}
		}
	}
	if ctx.FrequencyLast7d > 3 {
		s += 0.2
	}
	for _, rule := range ctx.Rules {
		if !rule.Enabled || number == "" || !strings.Contains(number, rule.Value) {
			continue
		}
		switch rule.Type {
		case RuleBlacklist:
			s += rule.Weight
		case RuleWhitelist:
			s -= rule.Weight
		}
	}
	return clamp(s)
}

// LearnedScorer is the stub for a trained model. It returns 0 until a real
// model is plugged in behind the same Scorer contract.
type LearnedScorer struct{}

func (LearnedScorer) Score(string, Context) float64 { return 0.0 }

// EnsembleScorer combines the rule and learned scorers by weighted sum.
type EnsembleScorer struct {
	rule     Scorer
	learned  Scorer
	wRule    float64
	wLearned float64
}

// NewEnsembleScorer builds the ensemble. Default weights are 0.8 rule /
// 0.2 learned.
func NewEnsembleScorer(rule, learned Scorer, wRule, wLearned float64) *EnsembleScorer {
	return &EnsembleScorer{rule: rule, learned: learned, wRule: wRule, wLearned: wLearned}
}

func (e *EnsembleScorer) Score(number string, ctx Context) float64 {
	return clamp(e.wRule*e.rule.Score(number, ctx) + e.wLearned*e.learned.Score(number, ctx))
}

func clamp(s float64) float64 {
	if s < 0.0 {
		return 0.0
	}
	if s > 1.0 {
		return 1.0
	}
	return s
}
