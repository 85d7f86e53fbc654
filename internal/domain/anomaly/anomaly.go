// Package anomaly flags statistically implausible attempts at
// ingestion time.
package anomaly

import "github.com/focusup/backend/internal/domain/model"

// Rule is a fixed threshold predicate for one game: an attempt is
// suspicious when score exceeds MinScore and elapsed time is below
// MaxTimeMs. A rule with MinScore < 0 ignores the score entirely.
type Rule struct {
	MinScore  float64
	MaxTimeMs float64
}

// matches evaluates the rule against raw, pre-rounding values.
func (r Rule) matches(score, timeMs float64) bool {
	if r.MinScore < 0 {
		return timeMs < r.MaxTimeMs
	}
	return score > r.MinScore && timeMs < r.MaxTimeMs
}

// Classifier decides whether an attempt is suspicious. Implementations
// must be pure, total, and deterministic.
type Classifier interface {
	Classify(game model.Game, score, timeMs float64) bool
}

// ThresholdClassifier implements Classifier with a fixed per-game rule
// table. Games without a rule are never suspicious.
type ThresholdClassifier struct {
	rules map[model.Game]Rule
}

// NewThresholdClassifier creates a classifier with the default rule
// table, adjustable through options.
func NewThresholdClassifier(opts ...Option) *ThresholdClassifier {
	c := &ThresholdClassifier{
		rules: map[model.Game]Rule{
			model.GameAttention: {MinScore: 1000, MaxTimeMs: 100},
			model.GameReaction:  {MinScore: -1, MaxTimeMs: 50},
			model.GameMemory:    {MinScore: 500, MaxTimeMs: 200},
			// "focus" is not in the enumerated game set; the rule is
			// retained as a named fallback and is unreachable through
			// validated submissions.
			model.Game("focus"): {MinScore: 800, MaxTimeMs: 150},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify reports whether an attempt looks implausible for its game.
// Unknown game identifiers are never suspicious.
func (c *ThresholdClassifier) Classify(game model.Game, score, timeMs float64) bool {
	rule, ok := c.rules[game]
	if !ok {
		return false
	}
	return rule.matches(score, timeMs)
}
