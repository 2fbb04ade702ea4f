package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/benbeisheim/minichess-backend/internal/model"
	"github.com/benbeisheim/minichess-backend/internal/service"
)

func newTestApp() *fiber.App {
	gs := service.NewGameService(service.NewGameManager(model.PolicySimplified))
	return NewApp(AppConfig{AllowedOrigins: []string{"http://localhost:5173"}}, gs)
}

func do(t *testing.T, app *fiber.App, method, target, playerID, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if playerID != "" {
		req.Header.Set("X-Player-ID", playerID)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, raw
}

func createGame(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, raw := do(t, app, http.MethodPost, "/api/game/create", "alice", "")
	if status != fiber.StatusCreated {
		t.Fatalf("create: %d %s", status, raw)
	}
	var created struct {
		GameID string `json:"gameId"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"alice", "bob"} {
		if status, raw := do(t, app, http.MethodPost, "/api/game/join/"+created.GameID, p, ""); status != fiber.StatusOK {
			t.Fatalf("join %s: %d %s", p, status, raw)
		}
	}
	return created.GameID
}

func TestRequiresPlayerID(t *testing.T) {
	app := newTestApp()
	status, raw := do(t, app, http.MethodPost, "/api/game/create", "", "")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", status, raw)
	}
	if !strings.Contains(string(raw), `"error"`) {
		t.Fatalf("expected error body, got %s", raw)
	}

	// query parameter is accepted in place of the header
	if status, raw := do(t, app, http.MethodPost, "/api/game/create?playerId=alice", "", ""); status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d %s", status, raw)
	}
}

func TestPossibleMovesRoute(t *testing.T) {
	app := newTestApp()
	gameID := createGame(t, app)

	status, raw := do(t, app, http.MethodGet, "/api/game/"+gameID+"/moves?x=0&y=6", "alice", "")
	if status != fiber.StatusOK {
		t.Fatalf("moves: %d %s", status, raw)
	}
	var body struct {
		From  model.Position   `json:"from"`
		Moves []model.Position `json:"moves"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Moves) != 2 || body.Moves[0] != (model.Position{X: 0, Y: 4}) || body.Moves[1] != (model.Position{X: 0, Y: 5}) {
		t.Fatalf("moves %v", body.Moves)
	}

	if status, _ := do(t, app, http.MethodGet, "/api/game/"+gameID+"/moves?x=9&y=0", "alice", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 off board, got %d", status)
	}
	if status, _ := do(t, app, http.MethodGet, "/api/game/"+gameID+"/moves?x=a", "alice", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad query, got %d", status)
	}
	if status, _ := do(t, app, http.MethodGet, "/api/game/nope/moves?x=0&y=6", "alice", ""); status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestMoveRoute(t *testing.T) {
	app := newTestApp()
	gameID := createGame(t, app)
	moveURL := "/api/game/" + gameID + "/move"

	tests := []struct {
		name   string
		player string
		body   string
		want   int
	}{
		{"not your turn", "bob", `{"from":{"x":4,"y":1},"to":{"x":4,"y":3}}`, fiber.StatusUnprocessableEntity},
		{"outsider", "carol", `{"from":{"x":4,"y":6},"to":{"x":4,"y":4}}`, fiber.StatusForbidden},
		{"illegal", "alice", `{"from":{"x":4,"y":6},"to":{"x":5,"y":5}}`, fiber.StatusUnprocessableEntity},
		{"off board", "alice", `{"from":{"x":4,"y":6},"to":{"x":4,"y":12}}`, fiber.StatusBadRequest},
		{"malformed", "alice", `{"from":`, fiber.StatusBadRequest},
		{"legal", "alice", `{"from":{"x":4,"y":6},"to":{"x":4,"y":4}}`, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, raw := do(t, app, http.MethodPost, moveURL, tt.player, tt.body); status != tt.want {
				t.Fatalf("expected %d, got %d %s", tt.want, status, raw)
			}
		})
	}

	status, raw := do(t, app, http.MethodGet, "/api/game/"+gameID, "bob", "")
	if status != fiber.StatusOK {
		t.Fatalf("state: %d %s", status, raw)
	}
	var state model.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatal(err)
	}
	if state.ToMove != model.PlayerColorBlack {
		t.Fatalf("expected black to move, got %s", state.ToMove)
	}
	if got, ok := state.Board.At(model.Position{X: 4, Y: 4}); !ok || got.Type != model.Pawn {
		t.Fatalf("pawn not on (4,4):\n%s", state.Board)
	}
}

func TestSelectRoute(t *testing.T) {
	app := newTestApp()
	gameID := createGame(t, app)

	status, raw := do(t, app, http.MethodPost, "/api/game/"+gameID+"/select", "alice", `{"x":1,"y":7}`)
	if status != fiber.StatusOK {
		t.Fatalf("select: %d %s", status, raw)
	}
	var state model.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatal(err)
	}
	if state.SelectedSquare == nil || len(state.LegalMoves) != 2 {
		t.Fatalf("selection not made: %s", raw)
	}
}

func TestJoinFullGame(t *testing.T) {
	app := newTestApp()
	gameID := createGame(t, app)
	if status, raw := do(t, app, http.MethodPost, "/api/game/join/"+gameID, "carol", ""); status != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d %s", status, raw)
	}
	if status, _ := do(t, app, http.MethodGet, "/api/game/missing", "carol", ""); status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestMatchmakingRoutes(t *testing.T) {
	app := newTestApp()
	if status, raw := do(t, app, http.MethodPost, "/api/game/matchmaking/join", "alice", ""); status != fiber.StatusOK {
		t.Fatalf("join: %d %s", status, raw)
	}
	if status, _ := do(t, app, http.MethodPost, "/api/game/matchmaking/join", "alice", ""); status != fiber.StatusConflict {
		t.Fatalf("expected 409 on double join, got %d", status)
	}
	if status, _ := do(t, app, http.MethodPost, "/api/game/matchmaking/leave", "alice", ""); status != fiber.StatusOK {
		t.Fatalf("leave: %d", status)
	}
	if status, _ := do(t, app, http.MethodPost, "/api/game/matchmaking/leave", "alice", ""); status != fiber.StatusNotFound {
		t.Fatalf("expected 404 leaving twice, got %d", status)
	}
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	app := newTestApp()
	if status, _ := do(t, app, http.MethodGet, "/ws/game/abc", "alice", ""); status != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", status)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrInvalidCoordinate, fiber.StatusBadRequest},
		{service.ErrGameNotFound, fiber.StatusNotFound},
		{model.ErrGameFull, fiber.StatusConflict},
		{model.ErrNotYourPiece, fiber.StatusUnprocessableEntity},
		{fiber.ErrUpgradeRequired, fiber.StatusUpgradeRequired},
		{io.EOF, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestSeatsSurviveLaterRequests(t *testing.T) {
	app := newTestApp()
	gameID := createGame(t, app)

	// unrelated traffic reuses fiber's request buffers
	for _, id := range []string{"carol", "car", "malry", "dave", "erin-with-a-longer-id"} {
		do(t, app, http.MethodGet, "/api/game/"+gameID, id, "")
		do(t, app, http.MethodGet, "/api/game/"+gameID+"?playerId="+id, "", "")
		do(t, app, http.MethodPost, "/api/game/join/"+gameID, id, "")
	}

	status, raw := do(t, app, http.MethodGet, "/api/game/"+gameID, "bob", "")
	if status != fiber.StatusOK {
		t.Fatalf("state: %d %s", status, raw)
	}
	var state model.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatal(err)
	}
	if state.Players.White.ID != "alice" || state.Players.Black.ID != "bob" {
		t.Fatalf("seats white=%q black=%q", state.Players.White.ID, state.Players.Black.ID)
	}

	move := `{"from":{"x":4,"y":6},"to":{"x":4,"y":4}}`
	if status, raw := do(t, app, http.MethodPost, "/api/game/"+gameID+"/move", "malry", move); status != fiber.StatusForbidden {
		t.Fatalf("outsider move: expected 403, got %d %s", status, raw)
	}
	if status, raw := do(t, app, http.MethodPost, "/api/game/"+gameID+"/move", "alice", move); status != fiber.StatusOK {
		t.Fatalf("seated move: expected 200, got %d %s", status, raw)
	}
}

func TestMatchmakingStatusRoute(t *testing.T) {
	gm := service.NewGameManager(model.PolicySimplified)
	app := NewApp(AppConfig{AllowedOrigins: []string{"http://localhost:5173"}}, service.NewGameService(gm))
	statusURL := "/api/game/matchmaking/status"

	if status, raw := do(t, app, http.MethodGet, statusURL, "alice", ""); status != fiber.StatusNotFound {
		t.Fatalf("expected 404 before queueing, got %d %s", status, raw)
	}
	for _, p := range []string{"alice", "bob"} {
		if status, raw := do(t, app, http.MethodPost, "/api/game/matchmaking/join", p, ""); status != fiber.StatusOK {
			t.Fatalf("join %s: %d %s", p, status, raw)
		}
	}
	status, raw := do(t, app, http.MethodGet, statusURL, "alice", "")
	if status != fiber.StatusOK || !strings.Contains(string(raw), `"queued"`) {
		t.Fatalf("expected queued, got %d %s", status, raw)
	}

	if !gm.MatchPending() {
		t.Fatal("expected a match")
	}

	type matchStatus struct {
		Status string            `json:"status"`
		GameID string            `json:"gameId"`
		Color  model.PlayerColor `json:"color"`
	}
	var got [2]matchStatus
	for i, p := range []string{"alice", "bob"} {
		status, raw := do(t, app, http.MethodGet, statusURL, p, "")
		if status != fiber.StatusOK {
			t.Fatalf("status %s: %d %s", p, status, raw)
		}
		if err := json.Unmarshal(raw, &got[i]); err != nil {
			t.Fatal(err)
		}
	}
	if got[0].Status != "matched" || got[0].GameID == "" || got[0].GameID != got[1].GameID {
		t.Fatalf("statuses %+v", got)
	}
	if got[0].Color != model.PlayerColorWhite || got[1].Color != model.PlayerColorBlack {
		t.Fatalf("colors %s/%s", got[0].Color, got[1].Color)
	}

	// the announced game is playable by the paired players
	move := `{"from":{"x":4,"y":6},"to":{"x":4,"y":4}}`
	if status, raw := do(t, app, http.MethodPost, "/api/game/"+got[0].GameID+"/move", "alice", move); status != fiber.StatusOK {
		t.Fatalf("move in matched game: %d %s", status, raw)
	}
}
