package scoring

import (
	"math"
	"testing"
)

func TestRuleScorer_Signals(t *testing.T) {
	scorer := NewRuleScorer(nil)

	tests := []struct {
		name   string
		number string
		ctx    Context
		want   float64
	}{
		{"no signals", "+4912345", Context{}, 0.0},
		{"anonymous only", "", Context{Anonymous: true}, 0.6},
		{"premium prefix only", "+39899123", Context{}, 0.3},
		{"high frequency only", "+4912345", Context{FrequencyLast7d: 4}, 0.2},
		{"frequency at threshold is not high", "+4912345", Context{FrequencyLast7d: 3}, 0.0},
		{"anonymous plus frequency plus premium saturates", "+39199555", Context{Anonymous: true, FrequencyLast7d: 10}, 1.0},
		{
			"blacklist rule adds weight",
			"+39333555",
			Context{Rules: []Rule{{Type: RuleBlacklist, Value: "333", Weight: 0.4, Enabled: true}}},
			0.4,
		},
		{
			"whitelist rule subtracts and clamps at zero",
			"+39333555",
			Context{Rules: []Rule{{Type: RuleWhitelist, Value: "333", Weight: 0.9, Enabled: true}}},
			0.0,
		},
		{
			"disabled rule ignored",
			"+39333555",
			Context{Rules: []Rule{{Type: RuleBlacklist, Value: "333", Weight: 0.4, Enabled: false}}},
			0.0,
		},
		{
			"rule not matching number ignored",
			"+39444555",
			Context{Rules: []Rule{{Type: RuleBlacklist, Value: "333", Weight: 0.4, Enabled: true}}},
			0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.number, tt.ctx)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("Score(%q) = %f, want %f", tt.number, got, tt.want)
			}
		})
	}
}

func TestRuleScorer_AlwaysInRange(t *testing.T) {
	scorer := NewRuleScorer(nil)
	contexts := []Context{
		{Anonymous: true, FrequencyLast7d: 100, Rules: []Rule{
			{Type: RuleBlacklist, Value: "3", Weight: 5.0, Enabled: true},
		}},
		{Rules: []Rule{{Type: RuleWhitelist, Value: "3", Weight: 5.0, Enabled: true}}},
		{},
	}
	for _, ctx := range contexts {
		for _, num := range []string{"", "+390333", "3331234"} {
			s := scorer.Score(num, ctx)
			if s < 0.0 || s > 1.0 {
				t.Errorf("Score(%q, %+v) = %f out of [0,1]", num, ctx, s)
			}
		}
	}
}

func TestRuleScorer_Deterministic(t *testing.T) {
	scorer := NewRuleScorer(nil)
	ctx := Context{Anonymous: true, FrequencyLast7d: 5}
	first := scorer.Score("+390123", ctx)
	for i := 0; i < 10; i++ {
		if got := scorer.Score("+390123", ctx); got != first {
			t.Fatalf("score changed between calls: %f vs %f", got, first)
		}
	}
}

func TestEnsembleScorer(t *testing.T) {
	ensemble := NewEnsembleScorer(NewRuleScorer(nil), LearnedScorer{}, 0.8, 0.2)

	// Saturated rule score with the zero learned stub: 0.8*1.0 + 0.2*0.0.
	got := ensemble.Score("+390123", Context{Anonymous: true, FrequencyLast7d: 10})
	if math.Abs(got-0.8) > 0.0001 {
		t.Errorf("saturated ensemble = %f, want 0.8", got)
	}

	// Anonymous with no other signal: 0.8*0.6.
	got = ensemble.Score("", Context{Anonymous: true})
	if math.Abs(got-0.48) > 0.0001 {
		t.Errorf("anonymous ensemble = %f, want 0.48", got)
	}
}

type fixedScorer struct{ v float64 }

func (f fixedScorer) Score(string, Context) float64 { return f.v }

func TestEnsembleScorer_Clamped(t *testing.T) {
	ensemble := NewEnsembleScorer(fixedScorer{1.0}, fixedScorer{1.0}, 0.9, 0.9)
	if got := ensemble.Score("x", Context{}); got != 1.0 {
		t.Errorf("ensemble = %f, want clamped 1.0", got)
	}
}
