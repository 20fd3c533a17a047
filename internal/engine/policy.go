package engine

// DefaultMaxAttempts bounds how many tries a player gets per turn.
const DefaultMaxAttempts = 3

// Decision is the retry policy's verdict after one attempt.
type Decision int

const (
	Accept Decision = iota
	Retry
	Forfeit
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Retry:
		return "retry"
	case Forfeit:
		return "forfeit"
	}
	return "unknown"
}

// RetryPolicy bounds the per-turn attempt budget. A transient failure gets
// another try against an unchanged position; exhausting the budget forfeits
// the match for the acting player.
type RetryPolicy struct {
	MaxAttempts int
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return DefaultMaxAttempts
}

// Decide returns the verdict after attempt number attempt (1-based).
func (p RetryPolicy) Decide(attempt int, failed bool) Decision {
	if !failed {
		return Accept
	}
	if attempt >= p.maxAttempts() {
		return Forfeit
	}
	return Retry
}
