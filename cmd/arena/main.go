package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/null-channel/ai-arena/internal/agents"
	"github.com/null-channel/ai-arena/internal/api"
	"github.com/null-channel/ai-arena/internal/batch"
	"github.com/null-channel/ai-arena/internal/engine"
	"github.com/null-channel/ai-arena/internal/report"
	"github.com/null-channel/ai-arena/internal/secrets"
	"github.com/null-channel/ai-arena/internal/store"
)

var (
	gameFlag  = flag.String("game", "", "run one match of this game (tictactoe, connectfour, rps)")
	csvFlag   = flag.String("f", "", "run a batch of matches from this CSV file")
	serveFlag = flag.String("serve", "", "serve the HTTP API on this address, e.g. :8080")

	agentOneKind    = flag.String("agent-one-kind", "random", "agent one kind (openai, anthropic, ollama, script, random)")
	agentOneModel   = flag.String("agent-one-model", "", "agent one model name")
	agentOneTemp    = flag.Float64("agent-one-temp", 0.7, "agent one sampling temperature")
	agentOneSeed    = flag.Int64("agent-one-seed", 0, "agent one seed, 0 means unseeded")
	agentOneProfile = flag.String("agent-one-profile", "", "agent one secrets profile")
	agentOneScript  = flag.String("agent-one-script", "", "agent one JavaScript file (script kind)")

	agentTwoKind    = flag.String("agent-two-kind", "random", "agent two kind (openai, anthropic, ollama, script, random)")
	agentTwoModel   = flag.String("agent-two-model", "", "agent two model name")
	agentTwoTemp    = flag.Float64("agent-two-temp", 0.7, "agent two sampling temperature")
	agentTwoSeed    = flag.Int64("agent-two-seed", 0, "agent two seed, 0 means unseeded")
	agentTwoProfile = flag.String("agent-two-profile", "", "agent two secrets profile")
	agentTwoScript  = flag.String("agent-two-script", "", "agent two JavaScript file (script kind)")

	gameParams = flag.String("game-params", "", "comma separated game parameters, e.g. board_size=4,win_length=3")
	orderFlag  = flag.String("order", "fixed", "starting order across repetitions (fixed, swap, alternate, random)")
	reps       = flag.Int("reps", 1, "repetitions of the one-off match")
	workersN   = flag.Int("workers", 1, "concurrent matches in batch mode")

	maxAttempts = flag.Int("max-attempts", engine.DefaultMaxAttempts, "attempts per turn before forfeit")
	moveTimeout = flag.Duration("move-timeout", engine.DefaultMoveTimeout, "deadline for one agent decision")
	maxTurns    = flag.Int("max-turns", engine.DefaultMaxTurns, "turn limit before aborting a match")

	dbPath      = flag.String("db", "", "SQLite file for results (empty disables persistence)")
	secretsPath = flag.String("secrets", "", "secrets file (default $XDG_CONFIG_HOME/ai_arena/secrets.toml)")

	logLevel    = flag.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	logJSON     = flag.Bool("log-json", false, "log JSON instead of console output")
	verbose     = flag.Bool("verbose", false, "shorthand for -log-level debug")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	if *showVersion {
		info := api.GetVersionInfo()
		fmt.Printf("arena %s (commit %s, built %s)\n", info.ArenaVersion, info.GitCommit, info.BuildTime)
		return
	}

	log := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, log)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("arena failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger) error {
	resolver, err := secrets.Load(*secretsPath, log)
	if err != nil {
		return err
	}

	var st *store.Store
	if *dbPath != "" {
		st, err = store.New(*dbPath)
		if err != nil {
			return fmt.Errorf("open result store: %w", err)
		}
		defer st.Close()
	}

	switch {
	case *serveFlag != "":
		return runServe(ctx, log, st, resolver)
	case *csvFlag != "" || *gameFlag != "":
		return runMatches(ctx, log, st, resolver)
	}
	flag.Usage()
	return errors.New("nothing to run: pass -game, -f or -serve")
}

func runMatches(ctx context.Context, log zerolog.Logger, st *store.Store, resolver *secrets.Resolver) error {
	specs, source, err := loadSpecs()
	if err != nil {
		return err
	}
	if *csvFlag != "" {
		report.WriteBatchHeader(os.Stdout, source, len(specs))
	}

	runner := batch.NewRunner(batch.Options{
		Workers:     *workersN,
		MaxAttempts: *maxAttempts,
		MoveTimeout: *moveTimeout,
		MaxTurns:    *maxTurns,
		Secrets:     resolver,
		Logger:      log,
	})
	rep := runner.Run(ctx, specs)

	for i := range rep.Entries {
		e := &rep.Entries[i]
		if e.Result != nil {
			report.WriteMatch(os.Stdout, e.Result)
		}
		if e.Err != nil {
			log.Error().Err(e.Err).
				Int("spec", e.SpecIndex+1).
				Int("repetition", e.Repetition+1).
				Str("game", e.Spec.Game).
				Msg("match failed")
		}
	}
	if len(rep.Entries) > 1 {
		report.WriteBatchReport(os.Stdout, rep)
	}

	if st != nil {
		// Persist with a fresh context so an interrupted run still keeps
		// its finished entries.
		if _, err := st.SaveReport(context.Background(), source, rep); err != nil {
			return fmt.Errorf("persist results: %w", err)
		}
		log.Info().Str("db", *dbPath).Int("entries", len(rep.Entries)).Msg("results saved")
	}

	if failed := rep.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d matches failed", failed, len(rep.Entries))
	}
	return nil
}

func loadSpecs() ([]batch.Spec, string, error) {
	if *csvFlag != "" && *gameFlag != "" {
		return nil, "", errors.New("pass either -game or -f, not both")
	}
	if *csvFlag != "" {
		specs, err := batch.LoadCSV(*csvFlag)
		if err != nil {
			return nil, "", err
		}
		return specs, filepath.Base(*csvFlag), nil
	}

	params, err := parseGameParams(*gameParams)
	if err != nil {
		return nil, "", err
	}
	order, err := batch.ParseOrder(*orderFlag)
	if err != nil {
		return nil, "", err
	}
	one, err := agentFromFlags("one", *agentOneKind, *agentOneModel, *agentOneTemp, *agentOneSeed, *agentOneProfile, *agentOneScript)
	if err != nil {
		return nil, "", err
	}
	two, err := agentFromFlags("two", *agentTwoKind, *agentTwoModel, *agentTwoTemp, *agentTwoSeed, *agentTwoProfile, *agentTwoScript)
	if err != nil {
		return nil, "", err
	}

	spec := batch.Spec{
		Game:        *gameFlag,
		GameParams:  params,
		AgentOne:    one,
		AgentTwo:    two,
		Repetitions: *reps,
		Order:       order,
	}
	return []batch.Spec{spec}, "cli", nil
}

func agentFromFlags(seat, kind, model string, temp float64, seed int64, profile, script string) (agents.Config, error) {
	k, err := agents.ParseKind(kind)
	if err != nil {
		return agents.Config{}, fmt.Errorf("agent %s: %w", seat, err)
	}
	return agents.Config{
		Kind:          k,
		Model:         model,
		Temperature:   temp,
		Seed:          seed,
		SecretProfile: profile,
		ScriptPath:    script,
	}, nil
}

func parseGameParams(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	params := make(map[string]any)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("malformed game parameter %q, want key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func runServe(ctx context.Context, log zerolog.Logger, st *store.Store, resolver *secrets.Resolver) error {
	srv := api.NewServer(api.Config{
		Store:       st,
		Secrets:     resolver,
		MaxAttempts: *maxAttempts,
		MoveTimeout: *moveTimeout,
		MaxTurns:    *maxTurns,
		Logger:      log,
	})

	httpServer := &http.Server{
		Addr:              *serveFlag,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind synchronously so address errors surface before we report ready.
	ln, err := net.Listen("tcp", *serveFlag)
	if err != nil {
		return fmt.Errorf("bind %s: %w", *serveFlag, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Bool("store", st != nil).Msg("arena api listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("arena api stopped")
	return nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(*logLevel); err == nil && l != zerolog.NoLevel {
		level = l
	}
	if *verbose {
		level = zerolog.DebugLevel
	}
	var out io.Writer = os.Stderr
	if !*logJSON {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
