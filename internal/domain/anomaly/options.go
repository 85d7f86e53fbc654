package anomaly

import "github.com/focusup/backend/internal/domain/model"

// Option applies a configuration option to the ThresholdClassifier.
type Option func(*ThresholdClassifier)

// WithRule overrides or adds the rule for a game.
func WithRule(game model.Game, rule Rule) Option {
	return func(c *ThresholdClassifier) {
		if game != "" && rule.MaxTimeMs > 0 {
			c.rules[game] = rule
		}
	}
}

// WithoutRule removes the rule for a game, making it never suspicious.
func WithoutRule(game model.Game) Option {
	return func(c *ThresholdClassifier) {
		delete(c.rules, game)
	}
}
