package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/null-channel/ai-arena/internal/engine"
)

const scriptInitTimeout = 2 * time.Second

const maxScriptLogs = 100

// ScriptAgent runs a user-supplied JavaScript choose(request) function in a
// sandboxed goja runtime. The script sees the move request with its wire
// field names (state, legal_moves, expected_move_schema) and returns either
// a move object or a JSON string. Top-level script state persists across
// turns, so scripts can carry strategy between moves.
type ScriptAgent struct {
	name    string
	runtime *goja.Runtime
	choose  goja.Callable
	mu      sync.Mutex

	// Log lines from the current turn, surfaced as attempt diagnostics.
	logs []string
}

// NewScriptAgent compiles the script and resolves its choose() function.
func NewScriptAgent(name, source string) (*ScriptAgent, error) {
	a := &ScriptAgent{
		name:    name,
		runtime: goja.New(),
	}
	a.sandbox()

	ctx, cancel := context.WithTimeout(context.Background(), scriptInitTimeout)
	defer cancel()
	err := a.run(ctx, func() error {
		if _, err := a.runtime.RunString(source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}

	fn := a.runtime.Get("choose")
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return nil, fmt.Errorf("agent %s: choose() function is not defined", name)
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("agent %s: choose is not a function", name)
	}
	a.choose = callable

	return a, nil
}

// sandbox wires log/console.log into the diagnostics buffer and blocks the
// globals a script could use to reach outside the match.
func (a *ScriptAgent) sandbox() {
	a.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		if len(a.logs) < maxScriptLogs {
			a.logs = append(a.logs, strings.Join(parts, " "))
		}
		return goja.Undefined()
	})

	console := a.runtime.NewObject()
	console.Set("log", a.runtime.Get("log"))
	a.runtime.Set("console", console)

	a.runtime.Set("require", goja.Undefined())
	a.runtime.Set("fetch", goja.Undefined())
	a.runtime.Set("XMLHttpRequest", goja.Undefined())
	a.runtime.Set("eval", goja.Undefined())
	a.runtime.Set("Function", goja.Undefined())
}

func (a *ScriptAgent) Name() string {
	return a.name
}

func (a *ScriptAgent) PerformTurn(ctx context.Context, req *engine.MoveRequest) (*engine.MoveResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Round-trip through JSON so the script sees the wire field names.
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal move request: %w", err)
	}
	var request map[string]any
	if err := json.Unmarshal(payload, &request); err != nil {
		return nil, fmt.Errorf("unmarshal move request: %w", err)
	}

	a.logs = a.logs[:0]

	var result goja.Value
	err = a.run(ctx, func() error {
		v, err := a.choose(goja.Undefined(), a.runtime.ToValue(request))
		if err != nil {
			return fmt.Errorf("choose() error: %w", err)
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := exportMove(result)
	if err != nil {
		return nil, err
	}

	return &engine.MoveResponse{
		Raw:         raw,
		Diagnostics: strings.Join(a.logs, "\n"),
	}, nil
}

// exportMove converts the script's return value into the raw move payload.
// Strings pass through verbatim since scripts may emit JSON text
// themselves; everything else is marshaled.
func exportMove(v goja.Value) (json.RawMessage, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return json.RawMessage(""), nil
	}
	if s, ok := v.Export().(string); ok {
		return json.RawMessage(s), nil
	}
	b, err := json.Marshal(v.Export())
	if err != nil {
		return nil, fmt.Errorf("marshal choose() result: %w", err)
	}
	return json.RawMessage(b), nil
}

// run executes fn on a goroutine and interrupts the runtime if ctx expires
// first. goja cannot be preempted any other way.
func (a *ScriptAgent) run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		a.runtime.Interrupt("script execution timeout")
		// Let the interrupt land so the runtime is not left mid-execution.
		select {
		case <-done:
		case <-time.After(200 * time.Millisecond):
		}
		a.runtime.ClearInterrupt()
		return ctx.Err()
	}
}
