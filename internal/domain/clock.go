package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps processed_at on grid products.
var clock = clockwork.NewRealClock()

// SetClock replaces the product clock. nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// Now reads the product clock.
func Now() time.Time { return clock.Now() }
