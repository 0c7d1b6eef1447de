package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/geo"
	"github.com/wricardo/geocard/game/service"
)

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", WithPlayerToken("tok"))

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.token != "tok" {
		t.Errorf("Expected default token tok, got %s", client.token)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_ToolsRegistered(t *testing.T) {
	client := NewClient("http://unused")

	response := client.GetMCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	data, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("Failed to encode response: %v", err)
	}

	for _, name := range []string{
		"create_game", "list_games", "get_game", "my_inventory",
		"select_round_card", "play_action_card", "start_guessing", "submit_guess",
		"resolve_round", "next_round", "list_presets", "game_history", "game_instructions",
	} {
		if !strings.Contains(string(data), `"name":"`+name+`"`) {
			t.Errorf("Tool %s not listed", name)
		}
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "g1"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var result map[string]interface{}
	if err := client.apiCall(context.Background(), "GET", "/api/games/g1", "tok", nil, &result); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if result["id"] != "g1" {
		t.Errorf("Expected id g1, got %v", result["id"])
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api/health", "", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"plain body", "Internal Server Error", "API error: 500"},
		{"json error", `{"error":"game already over","code":410}`, "game already over"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL)
			err := client.apiCall(context.Background(), "GET", "/api/games", "", nil, nil)
			if err == nil {
				t.Fatal("Expected error for HTTP 500 response")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected %q in error message, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestClient_createGame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/games" {
			t.Errorf("Expected POST /api/games, got %s %s", r.Method, r.URL.Path)
		}
		var req service.CreateGameRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.PlayerTokens) != 2 || req.Preset != "quick" {
			t.Errorf("Unexpected request %+v", req)
		}

		resp := service.GameInfo{
			ID:    "game-123",
			Rules: &engine.Rules{Name: "Quick", MaxRounds: 3},
			Snapshot: engine.Snapshot{
				Status:            engine.AwaitingRoundCard,
				CurrentScreen:     engine.ScreenRoundCard,
				CurrentRound:      1,
				MaxRounds:         3,
				CurrentTurnPlayer: "ada",
				Players:           []engine.Player{{ID: "ada", DisplayName: "Ada"}, {ID: "bo", DisplayName: "Bo"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	result, err := client.handleCreateGame(context.Background(), callRequest("create_game", map[string]interface{}{
		"player_tokens": []interface{}{"tok-ada", "tok-bo"},
		"preset":        "quick",
	}))
	if err != nil {
		t.Fatalf("createGame failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"game-123", "Round: 1/3", "Turn player: ada", "Bo (bo)"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_createGame_RequiresPlayers(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleCreateGame(context.Background(), callRequest("create_game", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected tool error without lobby or tokens")
	}
}

func TestClient_tokenFallback(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		json.NewEncoder(w).Encode(service.InventoryView{
			PlayerID:    "ada",
			RoundCards:  []cards.HeldRoundCard{{ID: "rc-1", Kind: cards.World}},
			ActionCards: []cards.ActionCard{{ID: cards.BlurScreen, Type: cards.Punishment, Description: "Blur"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithPlayerToken("default-tok"))
	ctx := context.Background()

	result, err := client.handleInventory(ctx, callRequest("my_inventory", map[string]interface{}{"game_id": "g1"}))
	if err != nil {
		t.Fatalf("inventory failed: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "rc-1") || !strings.Contains(text, "needs target_player_id") {
		t.Errorf("Unexpected inventory text: %s", text)
	}

	if _, err := client.handleInventory(ctx, callRequest("my_inventory", map[string]interface{}{"game_id": "g1", "token": "other"})); err != nil {
		t.Fatalf("inventory failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "Bearer default-tok" || seen[1] != "Bearer other" {
		t.Errorf("Unexpected tokens %v", seen)
	}
}

func TestClient_roundControlSendsToken(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]string{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path] = r.Header.Get("Authorization")
		mu.Unlock()
		if strings.HasSuffix(r.URL.Path, "/resolve") {
			json.NewEncoder(w).Encode(service.RoundOutcome{Result: engine.RoundResult{Round: 1, Winner: "ada"}})
			return
		}
		json.NewEncoder(w).Encode(engine.Snapshot{Status: engine.AwaitingRoundCard, CurrentRound: 1})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithPlayerToken("default-tok"))
	ctx := context.Background()

	if _, err := client.handleResolveRound(ctx, callRequest("resolve_round", map[string]interface{}{"game_id": "g1", "token": "turn-tok"})); err != nil {
		t.Fatalf("resolve_round failed: %v", err)
	}
	if _, err := client.handleNextRound(ctx, callRequest("next_round", map[string]interface{}{"game_id": "g1"})); err != nil {
		t.Fatalf("next_round failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got := seen["/api/games/g1/resolve"]; got != "Bearer turn-tok" {
		t.Errorf("Expected turn token on resolve, got %q", got)
	}
	if got := seen["/api/games/g1/next-round"]; got != "Bearer default-tok" {
		t.Errorf("Expected default token on next-round, got %q", got)
	}
}

func TestClient_submitGuess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/games/g1/guess" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var body map[string]float64
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(service.GuessResult{
			Guess: engine.Guess{Coordinate: geo.Coordinate{Lat: body["lat"], Lng: body["lng"]}, Sequence: 4},
			Outcome: &service.RoundOutcome{Result: engine.RoundResult{
				Round:           2,
				RoundCard:       cards.Flash,
				Winner:          "ada",
				WinningDistance: 1500,
				Guesses: map[string]engine.Guess{
					"ada": {Distance: 1500},
					"bo":  {Distance: 250000},
				},
			}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithPlayerToken("tok"))

	result, err := client.handleSubmitGuess(context.Background(), callRequest("submit_guess", map[string]interface{}{
		"game_id": "g1",
		"lat":     48.85,
		"lng":     2.35,
	}))
	if err != nil {
		t.Fatalf("submitGuess failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Guess #4", "48.8500", "Winner: ada at 1.5 km", "bo: 250.0 km"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}

	result, _ = client.handleSubmitGuess(context.Background(), callRequest("submit_guess", map[string]interface{}{"game_id": "g1"}))
	if !result.IsError {
		t.Error("Expected tool error without coordinates")
	}
}

func TestFormatSnapshot(t *testing.T) {
	snap := &engine.Snapshot{
		Status:        engine.GameOver,
		CurrentScreen: engine.ScreenGameOver,
		CurrentRound:  5,
		MaxRounds:     5,
		Players:       []engine.Player{{ID: "ada", DisplayName: "Ada"}},
		PlayerInfo: map[string]engine.PlayerInfo{
			"ada": {RoundWins: 3, HasGuessed: true},
		},
		LastRoundWinner:          "ada",
		LastRoundWinningDistance: 420,
		GameWinner:               "ada",
	}

	text := formatSnapshot(snap)
	for _, want := range []string{"GAME_OVER", "3 wins", "[guessed]", "420 m", "winner: ada"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in snapshot text, got: %s", want, text)
		}
	}

	if got := formatSnapshot(nil); got != "No game state available" {
		t.Errorf("Unexpected nil snapshot text %q", got)
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callRequest("game_instructions", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	expectedContent := []string{
		"Geocard rules",
		"HOW TO WIN:",
		"winner of each round picks the next one",
		"ROUND FLOW:",
		"world - 60 seconds",
		"flash - 30 seconds",
		"punish",
		"GAME END:",
	}
	for _, content := range expectedContent {
		if !strings.Contains(text, content) {
			t.Errorf("Expected '%s' in instructions", content)
		}
	}
}
