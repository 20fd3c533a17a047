package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/null-channel/ai-arena/internal/engine"
)

// RandomAgent picks uniformly from the legal move set. With a fixed seed it
// is a reproducible baseline opponent for calibration and smoke tests.
type RandomAgent struct {
	name string
	rng  *rand.Rand
	mu   sync.Mutex
}

// NewRandomAgent creates a random agent. Seed zero draws from the clock.
func NewRandomAgent(name string, seed int64) *RandomAgent {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomAgent{
		name: name,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (a *RandomAgent) Name() string {
	return a.name
}

func (a *RandomAgent) PerformTurn(ctx context.Context, req *engine.MoveRequest) (*engine.MoveResponse, error) {
	if len(req.LegalMoves) == 0 {
		return nil, fmt.Errorf("no legal moves to choose from")
	}

	a.mu.Lock()
	pick := req.LegalMoves[a.rng.Intn(len(req.LegalMoves))]
	a.mu.Unlock()

	raw, err := moveJSON(pick, req.MoveSchema)
	if err != nil {
		return nil, err
	}
	return &engine.MoveResponse{Raw: raw}, nil
}

// moveJSON converts a legal move's display form back into schema-shaped
// JSON. Moves print either as "k=v" pairs (row=1 col=2) or as a bare value
// (rock) that maps onto the schema's single property.
func moveJSON(display string, schema json.RawMessage) (json.RawMessage, error) {
	obj := map[string]any{}
	pairs := true
	for _, field := range strings.Fields(display) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			pairs = false
			break
		}
		if n, err := strconv.Atoi(v); err == nil {
			obj[k] = n
		} else {
			obj[k] = v
		}
	}

	if !pairs || len(obj) == 0 {
		prop, err := soleSchemaProperty(schema)
		if err != nil {
			return nil, err
		}
		obj = map[string]any{prop: display}
	}

	return json.Marshal(obj)
}

func soleSchemaProperty(schema json.RawMessage) (string, error) {
	var s struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return "", fmt.Errorf("parse move schema: %w", err)
	}
	if len(s.Properties) != 1 {
		return "", fmt.Errorf("cannot map bare move onto schema with %d properties", len(s.Properties))
	}
	for name := range s.Properties {
		return name, nil
	}
	return "", nil
}
