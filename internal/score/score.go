// Package score produces the cosmetic "AI detectability" percentage shown
// next to each result. It is a bounded random simulation, not a detector, and
// must never be presented as a real measurement.
package score

import (
	"math"
	"math/rand/v2"
	"sync"
	"unicode/utf8"

	"humanizer/internal/models"
)

// Bounds of every score returned.
const (
	MinScore = 5
	MaxScore = 35
)

// Simulator computes scores from an injected random source.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Simulator seeded from the runtime's random source.
func New() *Simulator {
	return NewWithRand(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewWithRand returns a Simulator drawing from rng. rng need not be safe for
// concurrent use.
func NewWithRand(rng *rand.Rand) *Simulator {
	return &Simulator{rng: rng}
}

// Score returns an integer in [MinScore, MaxScore]. Higher intensity lowers
// the expected score. withLength adds up to 5 points for longer output and is
// set for remotely rewritten text only.
func (s *Simulator) Score(text string, intensity models.Intensity, withLength bool) int {
	s.mu.Lock()
	base := 15 + s.rng.Float64()*20
	noise := (s.rng.Float64() - 0.5) * 10
	s.mu.Unlock()

	raw := base - intensity.Fraction()*15 + noise
	if withLength {
		raw += math.Min(float64(utf8.RuneCountInString(text))/500, 1) * 5
	}

	return int(math.Round(math.Max(MinScore, math.Min(MaxScore, raw))))
}
