package engine

import "time"

// Clock abstracts wall time so tests can drive latency bookkeeping
// deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
