package battle

import (
	"math/rand"
	"time"
)

// Rand is the randomness the battle core draws from. *rand.Rand satisfies it;
// tests inject seeded or scripted sources.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded source. A zero seed uses the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
