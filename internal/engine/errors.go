package engine

import (
	"errors"
	"fmt"
	"time"
)

// InvalidMoveError means the candidate decoded into a real move that is not
// in the legal set for the current position.
type InvalidMoveError struct {
	Move   string
	Reason string
}

func (e *InvalidMoveError) Error() string {
	return fmt.Sprintf("invalid move %s: %s", e.Move, e.Reason)
}

// MalformedResponseError means the agent's payload could not be decoded into
// a move at all.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %s", e.Reason)
}

// TimeoutError means one attempt exceeded the per-move deadline.
type TimeoutError struct {
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent did not answer within %s", e.Deadline)
}

// BackendError wraps a provider or transport failure surfaced by the agent.
type BackendError struct {
	Agent string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("agent %s backend error: %v", e.Agent, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ContractViolationError means the game rejected a move the validator had
// already approved, or otherwise misbehaved. The match aborts; neither
// player forfeits.
type ContractViolationError struct {
	Game string
	Err  error
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("game %s contract violation: %v", e.Game, e.Err)
}

func (e *ContractViolationError) Unwrap() error { return e.Err }

// ConfigError means a match could not be constructed as specified.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// ErrTurnLimit aborts matches whose game never reaches a terminal state.
var ErrTurnLimit = errors.New("turn limit exceeded")

// recoverable reports whether the error counts against the turn's attempt
// budget instead of aborting the match.
func recoverable(err error) bool {
	switch err.(type) {
	case *InvalidMoveError, *MalformedResponseError, *TimeoutError, *BackendError:
		return true
	}
	return false
}

// outcomeFor classifies a recoverable attempt error for the turn log.
func outcomeFor(err error) AttemptOutcome {
	switch err.(type) {
	case *InvalidMoveError:
		return AttemptInvalid
	case *MalformedResponseError:
		return AttemptMalformed
	case *TimeoutError:
		return AttemptTimeout
	}
	return AttemptBackendError
}
