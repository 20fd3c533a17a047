// Package agents builds the move-producing players that sit on either side
// of a match: LLM-backed (OpenAI, Anthropic, Ollama), scripted (JavaScript),
// and seeded-random baselines.
package agents

import (
	"fmt"
	"os"
	"strings"

	"github.com/null-channel/ai-arena/internal/engine"
	"github.com/null-channel/ai-arena/internal/llm"
)

// Kind selects an agent implementation.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindOllama    Kind = "ollama"
	KindScript    Kind = "script"
	KindRandom    Kind = "random"
)

// displayNames holds the casing used in default agent names and reports.
var displayNames = map[Kind]string{
	KindOpenAI:    "OpenAI",
	KindAnthropic: "Anthropic",
	KindOllama:    "Ollama",
	KindScript:    "Script",
	KindRandom:    "Random",
}

// ParseKind normalizes a kind string ("OpenAI", " ollama ") to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := displayNames[k]; !ok {
		return "", fmt.Errorf("unknown agent kind %q", s)
	}
	return k, nil
}

// SecretSource resolves provider credentials. Implemented by
// secrets.Resolver; tests substitute fakes.
type SecretSource interface {
	// APIKey returns the API key for a provider, honoring the named
	// profile when non-empty.
	APIKey(provider, profile string) (string, error)
	// BaseURL returns the endpoint override for a provider, or "" when
	// the provider default applies.
	BaseURL(provider, profile string) (string, error)
}

// Config describes one agent seat.
type Config struct {
	// Name overrides the default "{Kind}_{seat}" display name.
	Name string
	Kind Kind
	// Model names the provider model for LLM kinds.
	Model       string
	Temperature float64
	// Seed pins sampling and the random baseline. Zero means unseeded.
	Seed int64
	// SecretProfile selects a credentials profile; empty walks the
	// default resolution chain.
	SecretProfile string
	// ScriptPath is the JavaScript source file for script agents.
	ScriptPath string
}

// DisplayName returns the configured name, or the "{Kind}_{seat}" default
// for the given 1-based seat.
func (c Config) DisplayName(seat int) string {
	if c.Name != "" {
		return c.Name
	}
	display, ok := displayNames[c.Kind]
	if !ok {
		display = string(c.Kind)
	}
	return fmt.Sprintf("%s_%d", display, seat)
}

// Build creates the agent for one seat (1-based). LLM kinds pull their
// credentials from source.
func Build(cfg Config, seat int, source SecretSource) (engine.Agent, error) {
	name := cfg.DisplayName(seat)

	switch cfg.Kind {
	case KindOpenAI, KindAnthropic:
		if cfg.Model == "" {
			return nil, fmt.Errorf("agent %s: kind %s requires a model", name, cfg.Kind)
		}
		if source == nil {
			return nil, fmt.Errorf("agent %s: no secret source configured", name)
		}
		key, err := source.APIKey(string(cfg.Kind), cfg.SecretProfile)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		base, err := source.BaseURL(string(cfg.Kind), cfg.SecretProfile)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		var client llm.Client
		if cfg.Kind == KindOpenAI {
			client = llm.NewOpenAI(llm.Config{APIKey: key, BaseURL: base})
		} else {
			client = llm.NewAnthropic(llm.Config{APIKey: key, BaseURL: base})
		}
		return NewLLMAgent(name, client, cfg), nil

	case KindOllama:
		if cfg.Model == "" {
			return nil, fmt.Errorf("agent %s: kind %s requires a model", name, cfg.Kind)
		}
		if source == nil {
			return nil, fmt.Errorf("agent %s: no secret source configured", name)
		}
		base, err := source.BaseURL(string(cfg.Kind), cfg.SecretProfile)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		return NewLLMAgent(name, llm.NewOllama(llm.Config{BaseURL: base}), cfg), nil

	case KindScript:
		if cfg.ScriptPath == "" {
			return nil, fmt.Errorf("agent %s: script kind requires a script path", name)
		}
		src, err := os.ReadFile(cfg.ScriptPath)
		if err != nil {
			return nil, fmt.Errorf("agent %s: read script: %w", name, err)
		}
		return NewScriptAgent(name, string(src))

	case KindRandom:
		return NewRandomAgent(name, cfg.Seed), nil

	default:
		return nil, fmt.Errorf("unknown agent kind %q", cfg.Kind)
	}
}

// BuildPair builds the two seats of a match.
func BuildPair(one, two Config, source SecretSource) (engine.Agent, engine.Agent, error) {
	first, err := Build(one, 1, source)
	if err != nil {
		return nil, nil, err
	}
	second, err := Build(two, 2, source)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}
