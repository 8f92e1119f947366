// Package stub is a stand-in oracle: it waits, then answers at random with
// a fixed match rate.
package stub

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/bryanwahyu/canscan/internal/domain/scans"
)

const (
	DefaultDelay     = 3 * time.Second
	DefaultMatchRate = 0.3
)

type Oracle struct {
	delay     time.Duration
	matchRate float64

	mu         sync.Mutex
	randSource *rand.Rand
}

// NewOracle builds a stub. seed 0 seeds from the clock.
func NewOracle(delay time.Duration, matchRate float64, seed int64) *Oracle {
	if delay < 0 {
		delay = 0
	}
	if matchRate < 0 {
		matchRate = 0
	}
	if matchRate > 1 {
		matchRate = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Oracle{
		delay:      delay,
		matchRate:  matchRate,
		randSource: rand.New(rand.NewSource(seed)),
	}
}

func (o *Oracle) Analyze(ctx context.Context, img scans.Image) (bool, error) {
	if o.delay > 0 {
		t := time.NewTimer(o.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return false, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.randSource.Float64() < o.matchRate, nil
}
