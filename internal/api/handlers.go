package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/null-channel/ai-arena/internal/agents"
	"github.com/null-channel/ai-arena/internal/engine"
	"github.com/null-channel/ai-arena/internal/games"
	"github.com/null-channel/ai-arena/internal/llm"
	"github.com/null-channel/ai-arena/internal/store"
)

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		ArenaVersion: ArenaVersion,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /api/v1/games
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GamesResponse{
		Games:        games.List(),
		ArenaVersion: ArenaVersion,
	})
}

// POST /api/v1/matches
func (s *Server) handleRunMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest,
			NewError(ErrTypeValidation, "invalid JSON").WithCause(err))
		return
	}
	if req.Game == "" {
		s.writeError(w, r, http.StatusUnprocessableEntity,
			NewError(ErrTypeValidation, "game is required").WithContext("field", "game"))
		return
	}

	game, err := games.New(req.Game, req.Params)
	if err != nil {
		if strings.Contains(err.Error(), "unknown game") {
			s.writeError(w, r, http.StatusNotFound,
				NewError(ErrTypeGameNotFound, err.Error()).WithContext("game", req.Game))
			return
		}
		s.writeError(w, r, http.StatusUnprocessableEntity,
			NewError(ErrTypeValidation, err.Error()).WithContext("game", req.Game))
		return
	}

	cfgOne, err := agentConfig(req.AgentOne)
	if err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity,
			NewError(ErrTypeInvalidSpec, err.Error()).WithContext("seat", "agent_one"))
		return
	}
	cfgTwo, err := agentConfig(req.AgentTwo)
	if err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity,
			NewError(ErrTypeInvalidSpec, err.Error()).WithContext("seat", "agent_two"))
		return
	}
	one, two, err := agents.BuildPair(cfgOne, cfgTwo, s.secrets)
	if err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity,
			NewError(ErrTypeInvalidSpec, "agent configuration rejected").WithCause(err))
		return
	}

	opts := engine.Options{
		MaxAttempts: s.cfg.MaxAttempts,
		MoveTimeout: s.cfg.MoveTimeout,
		MaxTurns:    s.cfg.MaxTurns,
		Logger:      s.log,
	}
	if req.MaxAttempts > 0 {
		opts.MaxAttempts = req.MaxAttempts
	}
	if req.MoveTimeoutMS > 0 {
		opts.MoveTimeout = time.Duration(req.MoveTimeoutMS) * time.Millisecond
	}
	if req.MaxTurns > 0 {
		opts.MaxTurns = req.MaxTurns
	}
	if req.StartingPlayer != nil {
		opts.StartingPlayer = *req.StartingPlayer
	}

	eng, err := engine.New(game, one, two, opts)
	if err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity,
			NewError(ErrTypeInvalidSpec, "match configuration rejected").WithCause(err))
		return
	}

	result, err := eng.Run(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError,
			NewError(ErrTypeMatchFailed, "match aborted").
				WithCause(err).
				WithContext("match_id", eng.MatchID()))
		return
	}

	if s.store != nil {
		if _, serr := s.store.SaveMatch(r.Context(), result, nil); serr != nil {
			s.log.Error().Err(serr).Str("match_id", result.MatchID).Msg("failed to persist match")
		}
	}

	s.writeJSON(w, http.StatusOK, MatchResponse{
		Match:        result,
		Cost:         matchCost(req, result).String(),
		ArenaVersion: ArenaVersion,
	})
}

// GET /api/v1/matches
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, http.StatusServiceUnavailable,
			NewError(ErrTypeStoreDisabled, "no result store configured"))
		return
	}
	limit := clampInt(qInt(r, "limit", 50), 1, 200)
	offset := clampInt(qInt(r, "offset", 0), 0, 1_000_000)
	game := r.URL.Query().Get("game")

	matches, total, err := s.store.ListMatches(r.Context(), game, limit, offset)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError,
			NewError(ErrTypeInternal, "failed to list matches").WithCause(err))
		return
	}
	s.writeJSON(w, http.StatusOK, MatchListResponse{
		Matches:      matches,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
		ArenaVersion: ArenaVersion,
	})
}

// GET /api/v1/matches/{id}
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, http.StatusServiceUnavailable,
			NewError(ErrTypeStoreDisabled, "no result store configured"))
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := s.store.GetMatch(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound,
			NewError(ErrTypeMatchNotFound, "match not found").WithContext("id", id))
		return
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError,
			NewError(ErrTypeInternal, "failed to fetch match").WithCause(err))
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// GET /api/v1/batches
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, http.StatusServiceUnavailable,
			NewError(ErrTypeStoreDisabled, "no result store configured"))
		return
	}
	limit := clampInt(qInt(r, "limit", 20), 1, 100)
	batches, err := s.store.ListBatches(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError,
			NewError(ErrTypeInternal, "failed to list batches").WithCause(err))
		return
	}
	s.writeJSON(w, http.StatusOK, BatchListResponse{
		Batches:      batches,
		ArenaVersion: ArenaVersion,
	})
}

// agentConfig maps one request seat onto an agent config.
func agentConfig(spec AgentSpec) (agents.Config, error) {
	kind, err := agents.ParseKind(spec.Kind)
	if err != nil {
		return agents.Config{}, err
	}
	temperature := 0.7
	if spec.Temperature != nil {
		temperature = *spec.Temperature
	}
	return agents.Config{
		Name:          spec.Name,
		Kind:          kind,
		Model:         spec.Model,
		Temperature:   temperature,
		Seed:          spec.Seed,
		SecretProfile: spec.SecretProfile,
		ScriptPath:    spec.ScriptPath,
	}, nil
}

// matchCost estimates the provider spend of one finished match.
func matchCost(req MatchRequest, result *engine.MatchResult) decimal.Decimal {
	models := [2]string{req.AgentOne.Model, req.AgentTwo.Model}
	total := decimal.Zero
	for i, st := range result.Stats {
		usage := llm.Usage{PromptTokens: st.PromptTokens, CompletionTokens: st.CompletionTokens}
		total = total.Add(llm.CostFor(models[i], usage))
	}
	return total
}
