package timeline

import (
	"math/rand"
	"sync"
	"time"
)

// A Jitter perturbs step delays, for runs where visual realism matters more
// than reproducibility.
type Jitter interface {
	Apply(d time.Duration) time.Duration
}

// RandomJitter stretches each delay by up to a fixed fraction, drawn from a
// seedable source. The same seed always produces the same run.
type RandomJitter struct {
	lock     sync.Mutex
	rnd      *rand.Rand
	fraction float64
}

// NewRandomJitter creates a RandomJitter. Fraction 0.25 means a delay can
// grow by up to 25%.
func NewRandomJitter(seed int64, fraction float64) *RandomJitter {
	return &RandomJitter{
		rnd:      rand.New(rand.NewSource(seed)),
		fraction: fraction,
	}
}

// Apply stretches d. Zero delays stay zero so immediate steps remain
// immediate.
func (j *RandomJitter) Apply(d time.Duration) time.Duration {
	if d == 0 {
		return 0
	}

	j.lock.Lock()
	defer j.lock.Unlock()

	stretch := 1 + j.fraction*j.rnd.Float64()

	return time.Duration(float64(d) * stretch)
}
