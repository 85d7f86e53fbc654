package simulate

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/focusup/backend/internal/domain/model"
)

// Submission mirrors the POST /api/scores request schema.
type Submission struct {
	UserID     string  `json:"userId"`
	Game       string  `json:"game"`
	Score      float64 `json:"score"`
	TimeMs     float64 `json:"timeMs"`
	Accuracy   float64 `json:"accuracy"`
	Difficulty string  `json:"difficulty"`
}

const randomFloatDivisor = 1000000

// randomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// Score and time ranges per game, tuned so a small slice of reaction
// submissions lands under the suspicion threshold on purpose.
const (
	reactionTimeMin    = 120.0
	reactionTimeRange  = 400.0
	cheaterReactionMax = 45.0
	cheaterFraction    = 50 // one in N reaction attempts
)

var difficulties = []string{"easy", "medium", "hard"}

// generateSubmission produces one plausible attempt for a random user
// and game.
func generateSubmission(userIDs []string) Submission {
	games := model.Games()
	game := games[randomInt(len(games))]

	sub := Submission{
		UserID:     userIDs[randomInt(len(userIDs))],
		Game:       string(game),
		Accuracy:   50 + randomFloat()*50,
		Difficulty: difficulties[randomInt(len(difficulties))],
	}

	switch game {
	case model.GameReaction:
		// Score is inverse to reaction time; sprinkle in impossible
		// times to exercise the anomaly path.
		sub.TimeMs = reactionTimeMin + randomFloat()*reactionTimeRange
		if randomInt(cheaterFraction) == 0 {
			sub.TimeMs = randomFloat() * cheaterReactionMax
		}
		sub.Score = 1000 - sub.TimeMs
	case model.GameAttention:
		sub.Score = randomFloat() * 100
		sub.TimeMs = 10000 + randomFloat()*50000
	case model.GameNumericMemory:
		sub.Score = 3 + randomFloat()*17
		sub.TimeMs = 5000 + randomFloat()*60000
	case model.GameVerbalMemory:
		sub.Score = randomFloat() * 200
		sub.TimeMs = 20000 + randomFloat()*120000
	default: // memory
		sub.Score = randomFloat() * 400
		sub.TimeMs = 3000 + randomFloat()*30000
	}
	return sub
}

// generateSubmissions builds n attempts spread across userIDs.
func generateSubmissions(n int, userIDs []string) []Submission {
	subs := make([]Submission, n)
	for i := range subs {
		subs[i] = generateSubmission(userIDs)
	}
	return subs
}

// userName derives a readable synthetic identity for user i.
func userName(i int) (name, email string) {
	return fmt.Sprintf("player-%04d", i), fmt.Sprintf("player-%04d@simulated.focusup.dev", i)
}
