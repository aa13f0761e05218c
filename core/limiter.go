package core

import (
	"fmt"
	"sync"
)

// RoundLimiter enforces a maximum number of tool rounds per generation.
type RoundLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewRoundLimiter creates a limiter allowing max rounds. max <= 0 allows none.
func NewRoundLimiter(max int) *RoundLimiter {
	if max < 0 {
		max = 0
	}

	return &RoundLimiter{max: max}
}

// Increment records a round and returns an error once the bound is exceeded.
func (rl *RoundLimiter) Increment() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.count++
	if rl.count > rl.max {
		return fmt.Errorf("exceeded max tool rounds: %d", rl.max)
	}

	return nil
}

// Count returns the number of rounds recorded.
func (rl *RoundLimiter) Count() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return rl.count
}

// Remaining returns how many rounds are left before hitting the bound.
func (rl *RoundLimiter) Remaining() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.count >= rl.max {
		return 0
	}

	return rl.max - rl.count
}
