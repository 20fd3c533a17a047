// Package batch sequences many matches from a list of match specs and
// collects their results into an ordered report.
package batch

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/null-channel/ai-arena/internal/agents"
	"github.com/null-channel/ai-arena/internal/engine"
	"github.com/null-channel/ai-arena/internal/games"
	"github.com/null-channel/ai-arena/internal/llm"
)

// Spec describes one configured pairing.
type Spec struct {
	Game        string
	GameParams  map[string]any
	AgentOne    agents.Config
	AgentTwo    agents.Config
	Repetitions int
	// Order decides who opens each repetition.
	Order       Order
	Description string
}

// Entry is one report row: a single repetition of a single spec. Result can
// be partial (fatal mid-match errors) or nil (the match never constructed);
// Err is set in both cases.
type Entry struct {
	SpecIndex  int
	Repetition int
	Spec       Spec
	Result     *engine.MatchResult
	Err        error
}

// Cost estimates the provider cost of the entry from its token usage and
// the spec's model names.
func (e *Entry) Cost() decimal.Decimal {
	if e.Result == nil {
		return decimal.Zero
	}
	models := [2]string{e.Spec.AgentOne.Model, e.Spec.AgentTwo.Model}
	total := decimal.Zero
	for i, s := range e.Result.Stats {
		usage := llm.Usage{PromptTokens: s.PromptTokens, CompletionTokens: s.CompletionTokens}
		total = total.Add(llm.CostFor(models[i], usage))
	}
	return total
}

// Report is the ordered outcome of a batch run. Entries follow
// spec-then-repetition order regardless of the worker count.
type Report struct {
	Entries   []Entry
	StartedAt time.Time
	Duration  time.Duration
}

// Failed counts entries that ended with an error.
func (r *Report) Failed() int {
	failed := 0
	for i := range r.Entries {
		if r.Entries[i].Err != nil {
			failed++
		}
	}
	return failed
}

// TotalCost sums the estimated cost of every entry.
func (r *Report) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for i := range r.Entries {
		total = total.Add(r.Entries[i].Cost())
	}
	return total
}

// Options configures the runner. Zero values mean: one worker, engine
// defaults for the match options.
type Options struct {
	Workers     int
	MaxAttempts int
	MoveTimeout time.Duration
	MaxTurns    int
	Secrets     agents.SecretSource
	Logger      zerolog.Logger
}

// Runner executes batches of match specs.
type Runner struct {
	opts Options
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Runner{opts: opts}
}

type job struct {
	index      int // report slot
	specIndex  int
	repetition int
	spec       Spec
}

// Run executes every spec x repetition and returns the ordered report. A
// failing entry never aborts the rest of the batch; cancelling ctx stops
// dispatch and marks unfinished entries with the context error.
func (r *Runner) Run(ctx context.Context, specs []Spec) *Report {
	var jobs []job
	for si, spec := range specs {
		reps := spec.Repetitions
		if reps <= 0 {
			reps = 1
		}
		for rep := 0; rep < reps; rep++ {
			jobs = append(jobs, job{index: len(jobs), specIndex: si, repetition: rep, spec: spec})
		}
	}

	report := &Report{
		Entries:   make([]Entry, len(jobs)),
		StartedAt: time.Now(),
	}

	// Results land in pre-indexed slots, so workers never contend on
	// ordering.
	queue := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case j, ok := <-queue:
					if !ok {
						return
					}
					entry := Entry{SpecIndex: j.specIndex, Repetition: j.repetition, Spec: j.spec}
					entry.Result, entry.Err = r.runOne(ctx, j.spec, j.repetition)
					report.Entries[j.index] = entry
				case <-ctx.Done():
					return
				}
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case queue <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	// Entries the workers never reached still need their identity and a
	// cause.
	for i := range report.Entries {
		if report.Entries[i].Result == nil && report.Entries[i].Err == nil {
			report.Entries[i] = Entry{
				SpecIndex:  jobs[i].specIndex,
				Repetition: jobs[i].repetition,
				Spec:       jobs[i].spec,
				Err:        ctx.Err(),
			}
		}
	}

	report.Duration = time.Since(report.StartedAt)
	return report
}

func (r *Runner) runOne(ctx context.Context, spec Spec, rep int) (*engine.MatchResult, error) {
	game, err := games.New(spec.Game, spec.GameParams)
	if err != nil {
		return nil, err
	}

	// Agents are rebuilt per repetition: scripts restart clean and seeded
	// agents advance by the repetition offset instead of replaying the
	// same match.
	one, two, err := agents.BuildPair(seedFor(spec.AgentOne, rep), seedFor(spec.AgentTwo, rep), r.opts.Secrets)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(game, one, two, engine.Options{
		MaxAttempts:    r.opts.MaxAttempts,
		MoveTimeout:    r.opts.MoveTimeout,
		MaxTurns:       r.opts.MaxTurns,
		StartingPlayer: spec.Order.startingPlayer(rep),
		Logger:         r.opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	return eng.Run(ctx)
}

// seedFor offsets a non-zero agent seed by the repetition index.
func seedFor(cfg agents.Config, rep int) agents.Config {
	if cfg.Seed != 0 {
		cfg.Seed += int64(rep)
	}
	return cfg
}

// Order is the starting-player policy across repetitions.
type Order string

const (
	// OrderFixed opens every repetition with player one.
	OrderFixed Order = "fixed"
	// OrderSwap opens every repetition with player two.
	OrderSwap Order = "swap"
	// OrderAlternate flips the opener each repetition.
	OrderAlternate Order = "alternate"
	// OrderRandom draws the opener per repetition.
	OrderRandom Order = "random"
)

// ParseOrder normalizes an order policy string. Empty means fixed.
func ParseOrder(s string) (Order, error) {
	switch o := Order(normalize(s)); o {
	case "":
		return OrderFixed, nil
	case OrderFixed, OrderSwap, OrderAlternate, OrderRandom:
		return o, nil
	default:
		return "", fmt.Errorf("unknown order policy %q", s)
	}
}

func (o Order) startingPlayer(rep int) games.PlayerSlot {
	switch o {
	case OrderSwap:
		return games.PlayerTwo
	case OrderAlternate:
		if rep%2 == 1 {
			return games.PlayerTwo
		}
		return games.PlayerOne
	case OrderRandom:
		// The package-level source is safe for concurrent workers.
		return games.PlayerSlot(rand.Intn(2))
	default:
		return games.PlayerOne
	}
}
