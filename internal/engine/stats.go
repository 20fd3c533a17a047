package engine

import "github.com/null-channel/ai-arena/internal/games"

// Collector accumulates the turn log for one match. Each engine instance
// exclusively owns its collector, so there is no locking.
type Collector struct {
	records []TurnRecord
}

// Record appends one resolved turn.
func (c *Collector) Record(r TurnRecord) {
	c.records = append(c.records, r)
}

// Finalize returns the ordered log and the per-player aggregates. The
// aggregation is a pure reduction over the records; calling it again yields
// the same result.
func (c *Collector) Finalize(agents [2]string) ([]TurnRecord, [2]StatsSummary) {
	stats := [2]StatsSummary{
		{Player: games.PlayerOne, Agent: agents[0]},
		{Player: games.PlayerTwo, Agent: agents[1]},
	}
	var attempts [2]int
	for _, rec := range c.records {
		s := &stats[rec.Player]
		s.TurnsTaken++
		for _, a := range rec.Attempts {
			attempts[rec.Player]++
			s.TotalLatencyMS += a.LatencyMS
			switch a.Outcome {
			case AttemptValid:
				s.ValidMoves++
			case AttemptInvalid, AttemptMalformed:
				s.InvalidAttempts++
			case AttemptTimeout:
				s.Timeouts++
			case AttemptBackendError:
				s.BackendErrors++
			}
			if a.Usage != nil {
				s.PromptTokens += a.Usage.PromptTokens
				s.CompletionTokens += a.Usage.CompletionTokens
			}
		}
	}
	for i := range stats {
		if attempts[i] > 0 {
			stats[i].AvgLatencyMS = float64(stats[i].TotalLatencyMS) / float64(attempts[i])
		}
	}
	return c.records, stats
}
