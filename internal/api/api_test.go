package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/null-channel/ai-arena/internal/store"
)

func newTestServer(t *testing.T, withStore bool) *Server {
	t.Helper()
	cfg := Config{Logger: zerolog.Nop()}
	if withStore {
		st, err := store.New(":memory:")
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		cfg.Store = st
	}
	return NewServer(cfg)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	w := doJSON(t, srv, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Arena-Version"); got == "" {
		t.Error("expected X-Arena-Version header")
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
}

func TestGamesEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	w := doJSON(t, srv, "GET", "/api/v1/games", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp GamesResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Games) < 3 {
		t.Errorf("expected at least 3 games, got %d", len(resp.Games))
	}
	if resp.ArenaVersion == "" {
		t.Error("expected arena version in response")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	w := doJSON(t, srv, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "# HELP") {
		t.Error("expected Prometheus exposition output")
	}
}

func TestRunMatchEndpoint(t *testing.T) {
	srv := newTestServer(t, true)

	req := MatchRequest{
		Game:     "tictactoe",
		AgentOne: AgentSpec{Kind: "random", Seed: 7},
		AgentTwo: AgentSpec{Kind: "random", Seed: 8},
	}
	w := doJSON(t, srv, "POST", "/api/v1/matches", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp MatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Match == nil {
		t.Fatal("expected a match in the response")
	}
	if resp.Match.GameID != "tictactoe" {
		t.Errorf("expected game tictactoe, got %s", resp.Match.GameID)
	}
	if resp.Match.Outcome.Kind == "" {
		t.Error("expected a decided outcome")
	}
	if resp.Match.TotalTurns == 0 {
		t.Error("expected turns played")
	}
	if resp.Cost != "0" {
		t.Errorf("random agents should cost nothing, got %s", resp.Cost)
	}

	// The match must have been persisted.
	lw := doJSON(t, srv, "GET", "/api/v1/matches", nil)
	if lw.Code != http.StatusOK {
		t.Fatalf("expected status 200 listing matches, got %d", lw.Code)
	}
	var list MatchListResponse
	if err := json.NewDecoder(lw.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if list.Total != 1 || len(list.Matches) != 1 {
		t.Fatalf("expected 1 stored match, got total %d len %d", list.Total, len(list.Matches))
	}
	if list.Matches[0].ID != resp.Match.MatchID {
		t.Errorf("stored id %s does not match response id %s", list.Matches[0].ID, resp.Match.MatchID)
	}

	// And be fetchable by id.
	gw := doJSON(t, srv, "GET", "/api/v1/matches/"+resp.Match.MatchID, nil)
	if gw.Code != http.StatusOK {
		t.Fatalf("expected status 200 fetching match, got %d", gw.Code)
	}
	var rec store.MatchRecord
	if err := json.NewDecoder(gw.Body).Decode(&rec); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if rec.Game != "tictactoe" {
		t.Errorf("expected stored game tictactoe, got %s", rec.Game)
	}
}

func TestRunMatchScriptAgent(t *testing.T) {
	script := `
		function choose(request) {
			var parts = request.legal_moves[0].split(" ");
			var move = {};
			for (var i = 0; i < parts.length; i++) {
				var kv = parts[i].split("=");
				move[kv[0]] = parseInt(kv[1], 10);
			}
			return move;
		}
	`
	path := filepath.Join(t.TempDir(), "first.js")
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	srv := newTestServer(t, false)
	req := MatchRequest{
		Game:     "tictactoe",
		AgentOne: AgentSpec{Kind: "script", ScriptPath: path},
		AgentTwo: AgentSpec{Kind: "script", ScriptPath: path},
	}
	w := doJSON(t, srv, "POST", "/api/v1/matches", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp MatchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Match.Outcome.Kind == "" {
		t.Error("expected the scripted match to finish")
	}
	for _, stat := range resp.Match.Stats {
		if stat.InvalidAttempts != 0 {
			t.Errorf("first-legal-move script should never play an illegal move, got %d", stat.InvalidAttempts)
		}
	}
}

func TestRunMatchValidation(t *testing.T) {
	srv := newTestServer(t, false)

	// Invalid JSON
	req := httptest.NewRequest("POST", "/api/v1/matches", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for invalid JSON, got %d", w.Code)
	}
	var arenaErr ArenaError
	if err := json.NewDecoder(w.Body).Decode(&arenaErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if arenaErr.Type != ErrTypeValidation {
		t.Errorf("expected type %s, got %s", ErrTypeValidation, arenaErr.Type)
	}
	if w.Header().Get("X-Error-Category") != string(CategoryValidation) {
		t.Errorf("expected validation category header, got %q", w.Header().Get("X-Error-Category"))
	}

	// Missing game
	w = doJSON(t, srv, "POST", "/api/v1/matches", MatchRequest{
		AgentOne: AgentSpec{Kind: "random"},
		AgentTwo: AgentSpec{Kind: "random"},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422 for missing game, got %d", w.Code)
	}

	// Unknown game
	w = doJSON(t, srv, "POST", "/api/v1/matches", MatchRequest{
		Game:     "quidditch",
		AgentOne: AgentSpec{Kind: "random"},
		AgentTwo: AgentSpec{Kind: "random"},
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown game, got %d", w.Code)
	}
	arenaErr = ArenaError{}
	if err := json.NewDecoder(w.Body).Decode(&arenaErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if arenaErr.Type != ErrTypeGameNotFound {
		t.Errorf("expected type %s, got %s", ErrTypeGameNotFound, arenaErr.Type)
	}

	// Unknown agent kind
	w = doJSON(t, srv, "POST", "/api/v1/matches", MatchRequest{
		Game:     "tictactoe",
		AgentOne: AgentSpec{Kind: "alphazero"},
		AgentTwo: AgentSpec{Kind: "random"},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422 for unknown kind, got %d", w.Code)
	}

	// LLM agent without a secret source
	w = doJSON(t, srv, "POST", "/api/v1/matches", MatchRequest{
		Game:     "tictactoe",
		AgentOne: AgentSpec{Kind: "openai", Model: "gpt-4o"},
		AgentTwo: AgentSpec{Kind: "random"},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422 without credentials, got %d", w.Code)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	srv := newTestServer(t, true)

	w := doJSON(t, srv, "GET", "/api/v1/matches/ttt_missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	var arenaErr ArenaError
	if err := json.NewDecoder(w.Body).Decode(&arenaErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if arenaErr.Type != ErrTypeMatchNotFound {
		t.Errorf("expected type %s, got %s", ErrTypeMatchNotFound, arenaErr.Type)
	}
}

func TestStoreDisabled(t *testing.T) {
	srv := newTestServer(t, false)

	for _, path := range []string{"/api/v1/matches", "/api/v1/matches/some-id", "/api/v1/batches"} {
		w := doJSON(t, srv, "GET", path, nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected status 503 without a store, got %d", path, w.Code)
		}
	}
}
