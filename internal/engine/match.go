// Package engine drives one match of a turn-based game between two agents.
// The engine is generic over game rules and agent backends: it validates
// every candidate move against the game's legal set, gives transient agent
// failures a bounded number of retries before forfeiting, and produces a
// complete, replayable turn log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/null-channel/ai-arena/internal/games"
	"github.com/null-channel/ai-arena/internal/metrics"
)

const (
	// DefaultMoveTimeout is the per-attempt deadline for one agent decision.
	DefaultMoveTimeout = 30 * time.Second
	// DefaultMaxTurns aborts games that never reach a terminal state.
	DefaultMaxTurns = 200
)

// Options tune one match. The zero value gets the defaults.
type Options struct {
	// MaxAttempts is the per-turn attempt budget before the acting player
	// forfeits. Default DefaultMaxAttempts.
	MaxAttempts int
	// MoveTimeout is the deadline for a single agent decision. Default
	// DefaultMoveTimeout.
	MoveTimeout time.Duration
	// MaxTurns bounds the match length. Default DefaultMaxTurns.
	MaxTurns int
	// StartingPlayer takes the first turn. Default PlayerOne; batch runs
	// override it to alternate starts across repetitions.
	StartingPlayer games.PlayerSlot
	// MatchID overrides the generated identifier when set.
	MatchID string
	// Clock is a test seam; nil means the system clock.
	Clock Clock
	// Logger receives per-turn events. The zero value is silent.
	Logger zerolog.Logger
}

// Engine runs one match to completion. Within a match execution is strictly
// sequential: there is exactly one outstanding agent call at any time.
type Engine struct {
	game   games.Game
	agents [2]Agent
	policy RetryPolicy
	opts   Options
	id     string
	clock  Clock
	log    zerolog.Logger
}

// New wires an engine for one match between the two seated agents.
func New(game games.Game, one, two Agent, opts Options) (*Engine, error) {
	if game == nil {
		return nil, &ConfigError{Reason: "game is nil"}
	}
	if one == nil || two == nil {
		return nil, &ConfigError{Reason: "both seats need an agent"}
	}
	if !opts.StartingPlayer.Valid() {
		return nil, &ConfigError{Reason: fmt.Sprintf("starting player %d unknown", opts.StartingPlayer)}
	}
	if opts.MoveTimeout <= 0 {
		opts.MoveTimeout = DefaultMoveTimeout
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	id := opts.MatchID
	if id == "" {
		id = NewMatchID(game)
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Engine{
		game:   game,
		agents: [2]Agent{one, two},
		policy: RetryPolicy{MaxAttempts: opts.MaxAttempts},
		opts:   opts,
		id:     id,
		clock:  clock,
		log:    opts.Logger.With().Str("match_id", id).Str("game", game.Spec().ID).Logger(),
	}, nil
}

// MatchID returns the identifier the match runs under.
func (e *Engine) MatchID() string { return e.id }

// NewMatchID builds a match identifier from the game's short prefix and the
// first 8 characters of a UUID, e.g. ttt_1a2b3c4d.
func NewMatchID(g games.Game) string {
	prefix := "match"
	if p, ok := g.(interface{ MatchIDPrefix() string }); ok && p.MatchIDPrefix() != "" {
		prefix = p.MatchIDPrefix()
	}
	return prefix + "_" + uuid.NewString()[:8]
}

// Run plays the match. Recoverable agent failures are consumed by the retry
// policy and only surface in the result; a non-nil error means the match
// itself failed (game contract violation, turn limit, cancellation) and the
// returned result carries whatever was recorded up to that point.
func (e *Engine) Run(ctx context.Context) (*MatchResult, error) {
	started := e.clock.Now()
	result := &MatchResult{
		MatchID: e.id,
		GameID:  e.game.Spec().ID,
		Players: [2]PlayerInfo{
			{Slot: games.PlayerOne, Agent: e.agents[games.PlayerOne].Name()},
			{Slot: games.PlayerTwo, Agent: e.agents[games.PlayerTwo].Name()},
		},
		StartedAt: started,
	}
	collector := &Collector{}
	state := e.game.InitialState()
	current := e.opts.StartingPlayer
	var history []PlayedMove

	e.log.Info().
		Str("player_one", e.agents[games.PlayerOne].Name()).
		Str("player_two", e.agents[games.PlayerTwo].Name()).
		Str("starting_player", current.String()).
		Msg("match started")

	turn := 0
	for {
		if err := ctx.Err(); err != nil {
			return e.finish(result, collector, started, Outcome{}, err)
		}
		if e.game.IsTerminal(state) {
			return e.finish(result, collector, started, e.verdict(state), nil)
		}
		legal := e.game.LegalMoves(state, current)
		if len(legal) == 0 {
			return e.finish(result, collector, started, e.stalemate(state, current), nil)
		}
		if turn >= e.opts.MaxTurns {
			return e.finish(result, collector, started, Outcome{},
				fmt.Errorf("%w: %d turns without a terminal state", ErrTurnLimit, turn))
		}
		turn++

		record, move, err := e.playTurn(ctx, turn, current, state, legal, history)
		if err != nil {
			return e.finish(result, collector, started, Outcome{}, err)
		}
		if record.Forfeited {
			collector.Record(record)
			e.log.Warn().Int("turn", turn).Str("player", current.String()).Msg("attempts exhausted, player forfeits")
			return e.finish(result, collector, started, ForfeitOutcome(current), nil)
		}

		next, err := e.game.Apply(state, current, move)
		if err != nil {
			return e.finish(result, collector, started, Outcome{},
				&ContractViolationError{Game: result.GameID, Err: err})
		}
		state = next
		if view, verr := e.game.StateView(state, current); verr == nil {
			record.StateAfter = view
		}
		collector.Record(record)
		history = append(history, PlayedMove{TurnIndex: turn, Player: current, Move: record.AcceptedMove})
		current = current.Other()
	}
}

// playTurn runs the attempt loop for one turn slot. It returns a forfeited
// record when the policy exhausts the budget; a non-nil error aborts the
// match.
func (e *Engine) playTurn(ctx context.Context, turnIndex int, player games.PlayerSlot, state games.State, legal []games.Move, history []PlayedMove) (TurnRecord, games.Move, error) {
	agent := e.agents[player]
	record := TurnRecord{TurnIndex: turnIndex, Player: player, Agent: agent.Name()}

	view, err := e.game.StateView(state, player)
	if err != nil {
		return record, nil, &ContractViolationError{Game: e.game.Spec().ID, Err: err}
	}
	req := &MoveRequest{
		MatchID:    e.id,
		TurnIndex:  turnIndex,
		Player:     player,
		State:      view,
		LegalMoves: moveStrings(legal),
		History:    history,
		MoveSchema: e.game.MoveSchema(),
	}

	for attempt := 1; ; attempt++ {
		resp, latency, err := e.callAgent(ctx, agent, req)
		a := Attempt{Index: attempt, LatencyMS: latency.Milliseconds()}
		var move games.Move
		if err == nil {
			a.Response = resp.Raw
			a.Diagnostics = resp.Diagnostics
			a.Usage = resp.Usage
			move, err = Validate(e.game, legal, resp.Raw)
		}
		if err == nil {
			a.Outcome = AttemptValid
			record.Attempts = append(record.Attempts, a)
			record.Move = move
			record.MoveRaw = resp.Raw
			record.AcceptedMove = move.String()
			metrics.RecordAttempt(e.game.Spec().ID, string(AttemptValid))
			e.log.Debug().Int("turn", turnIndex).Str("player", player.String()).
				Int("attempt", attempt).Str("move", record.AcceptedMove).Msg("move accepted")
			return record, move, nil
		}
		if !recoverable(err) {
			return record, nil, err
		}
		a.Outcome = outcomeFor(err)
		a.Error = err.Error()
		record.Attempts = append(record.Attempts, a)
		metrics.RecordAttempt(e.game.Spec().ID, string(a.Outcome))
		e.log.Warn().Int("turn", turnIndex).Str("player", player.String()).
			Int("attempt", attempt).Str("outcome", string(a.Outcome)).Str("reason", a.Error).
			Msg("attempt failed")

		if e.policy.Decide(attempt, true) == Forfeit {
			record.Forfeited = true
			return record, nil, nil
		}
	}
}

// callAgent runs one attempt under the per-move deadline. The reply channel
// is buffered so a late answer from a hung agent is dropped rather than
// leaking the goroutine; the context cancels the underlying transport.
func (e *Engine) callAgent(ctx context.Context, agent Agent, req *MoveRequest) (*MoveResponse, time.Duration, error) {
	actx, cancel := context.WithTimeout(ctx, e.opts.MoveTimeout)
	defer cancel()

	type reply struct {
		resp *MoveResponse
		err  error
	}
	replies := make(chan reply, 1)
	start := e.clock.Now()
	go func() {
		resp, err := agent.PerformTurn(actx, req)
		replies <- reply{resp: resp, err: err}
	}()

	select {
	case r := <-replies:
		latency := e.clock.Now().Sub(start)
		if r.err != nil {
			if ctx.Err() != nil {
				return nil, latency, ctx.Err()
			}
			if errors.Is(r.err, context.DeadlineExceeded) {
				return nil, latency, &TimeoutError{Deadline: e.opts.MoveTimeout}
			}
			return nil, latency, &BackendError{Agent: agent.Name(), Err: r.err}
		}
		if r.resp == nil {
			return nil, latency, &BackendError{Agent: agent.Name(), Err: errors.New("nil response")}
		}
		return r.resp, latency, nil
	case <-actx.Done():
		latency := e.clock.Now().Sub(start)
		if ctx.Err() != nil {
			return nil, latency, ctx.Err()
		}
		return nil, latency, &TimeoutError{Deadline: e.opts.MoveTimeout}
	}
}

func (e *Engine) verdict(state games.State) Outcome {
	if w, ok := e.game.Winner(state); ok {
		return WinOutcome(w)
	}
	return DrawOutcome()
}

// stalemate resolves a position where the player to move has no legal move
// but the game does not call the position terminal. Draw, unless the game
// arbitrates its own stalemates.
func (e *Engine) stalemate(state games.State, p games.PlayerSlot) Outcome {
	if arb, ok := e.game.(games.StalemateArbiter); ok {
		if w, ok := arb.Stalemate(state, p); ok {
			return WinOutcome(w)
		}
	}
	return DrawOutcome()
}

func (e *Engine) finish(result *MatchResult, c *Collector, started time.Time, outcome Outcome, err error) (*MatchResult, error) {
	result.Turns, result.Stats = c.Finalize([2]string{
		e.agents[games.PlayerOne].Name(),
		e.agents[games.PlayerTwo].Name(),
	})
	for _, t := range result.Turns {
		if !t.Forfeited {
			result.TotalTurns++
		}
	}
	result.DurationMS = e.clock.Now().Sub(started).Milliseconds()
	seconds := float64(result.DurationMS) / 1000

	if err != nil {
		result.Error = err.Error()
		metrics.RecordMatch(result.GameID, "error", seconds)
		e.log.Error().Err(err).Int("turns", result.TotalTurns).Msg("match failed")
		return result, err
	}
	result.Outcome = outcome
	metrics.RecordMatch(result.GameID, string(outcome.Kind), seconds)
	e.log.Info().Str("outcome", outcome.String()).Int("turns", result.TotalTurns).
		Int64("duration_ms", result.DurationMS).Msg("match finished")
	return result, nil
}

func moveStrings(legal []games.Move) []string {
	out := make([]string, len(legal))
	for i, m := range legal {
		out[i] = m.String()
	}
	return out
}
