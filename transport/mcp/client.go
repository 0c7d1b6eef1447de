package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/service"
)

// Client exposes the REST API as MCP tools. Each tool call becomes one HTTP
// request.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPlayerToken sets the token used when a tool call carries none.
func WithPlayerToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// NewClient creates a Client for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Geocard",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Geocard over MCP. Every tool call is forwarded to the REST API.

HOW TO WIN:
Each round a hidden location is drawn. Guess where it is on the map; the
closest guess wins the round. The player with the most round wins takes the game.

TOOLS:
- create_game: Start a game from a lobby or a list of player tokens
- list_games / get_game: Inspect live games
- my_inventory: Your round cards, action cards and active effects
- select_round_card: Turn player picks the round card (world or flash)
- play_action_card: Play reveal (on yourself) or punish (on a target)
- start_guessing: Turn player closes the action window
- submit_guess: Guess a latitude/longitude
- resolve_round / next_round: Move the game forward
- list_presets: Rule presets for create_game
- game_history: Finished games
- game_instructions: Full rules

Player tools take a token argument; without one the client's own token is used.`),
	)
	c.registerTools()
}

func withGameID() mcp.ToolOption {
	return mcp.WithString("game_id", mcp.Required(), mcp.Description("Game ID"))
}

func withToken() mcp.ToolOption {
	return mcp.WithString("token", mcp.Description("Player token (optional when the client was started with one)"))
}

func (c *Client) registerTools() {
	tools := []server.ServerTool{
		{Tool: mcp.NewTool("create_game",
			mcp.WithDescription("Create a new game from a lobby or from an ordered list of player tokens"),
			mcp.WithString("lobby_id", mcp.Description("Lobby whose roster becomes the player list")),
			mcp.WithArray("player_tokens",
				mcp.Description("Player tokens in turn order, used when lobby_id is empty"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithString("preset", mcp.Description("Rule preset id (optional)")),
			mcp.WithString("game_id", mcp.Description("Game ID to use (optional)")),
		), Handler: c.handleCreateGame},
		{Tool: mcp.NewTool("list_games",
			mcp.WithDescription("List all live games"),
		), Handler: c.handleListGames},
		{Tool: mcp.NewTool("get_game",
			mcp.WithDescription("Get the public state of a game"),
			withGameID(),
		), Handler: c.handleGetGame},
		{Tool: mcp.NewTool("my_inventory",
			mcp.WithDescription("Show the calling player's cards and active effects"),
			withGameID(), withToken(),
		), Handler: c.handleInventory},

		{Tool: mcp.NewTool("select_round_card",
			mcp.WithDescription("Pick the round card for this round. Only the turn player may do this."),
			withGameID(), withToken(),
			mcp.WithString("card_id", mcp.Required(), mcp.Description("ID of a round card from my_inventory")),
		), Handler: c.handleSelectRoundCard},
		{Tool: mcp.NewTool("play_action_card",
			mcp.WithDescription("Play an action card while the action window is open"),
			withGameID(), withToken(),
			mcp.WithString("card_id", mcp.Required(), mcp.Enum("reveal", "punish"), mcp.Description("Action card to play")),
			mcp.WithString("target_player_id", mcp.Description("Player to punish (required for punish)")),
		), Handler: c.handlePlayActionCard},
		{Tool: mcp.NewTool("start_guessing",
			mcp.WithDescription("Close the action window and open guessing. Only the turn player may do this."),
			withGameID(), withToken(),
		), Handler: c.handleStartGuessing},
		{Tool: mcp.NewTool("submit_guess",
			mcp.WithDescription("Submit or replace your guess for the current round"),
			withGameID(), withToken(),
			mcp.WithNumber("lat", mcp.Required(), mcp.Min(-90), mcp.Max(90), mcp.Description("Latitude in degrees")),
			mcp.WithNumber("lng", mcp.Required(), mcp.Min(-180), mcp.Max(180), mcp.Description("Longitude in degrees")),
		), Handler: c.handleSubmitGuess},
		{Tool: mcp.NewTool("resolve_round",
			mcp.WithDescription("Resolve the round with the guesses submitted so far. Only the turn player may do this."),
			withGameID(), withToken(),
		), Handler: c.handleResolveRound},
		{Tool: mcp.NewTool("next_round",
			mcp.WithDescription("Start the next round, or finish the game after the last one"),
			withGameID(), withToken(),
		), Handler: c.handleNextRound},

		{Tool: mcp.NewTool("list_presets",
			mcp.WithDescription("List available rule presets"),
		), Handler: c.handleListPresets},
		{Tool: mcp.NewTool("game_history",
			mcp.WithDescription("List finished games, newest first"),
			mcp.WithNumber("limit", mcp.Min(1), mcp.Description("Maximum number of games (default 10)")),
		), Handler: c.handleGameHistory},
		{Tool: mcp.NewTool("game_instructions",
			mcp.WithDescription("Get the rules of the game and how to play it through these tools"),
		), Handler: c.handleGameInstructions},
	}
	c.mcpServer.AddTools(tools...)
}

// GetMCPServer returns the server to hand to a transport.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall sends one request and decodes the JSON response into out. An
// error response is returned as the API's own message.
func (c *Client) apiCall(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// tokenFor picks the call's token or falls back to the client's.
func (c *Client) tokenFor(args map[string]interface{}) string {
	if t := stringArg(args, "token"); t != "" {
		return t
	}
	return c.token
}

func gamePath(gameID, suffix string) string {
	return "/api/games/" + url.PathEscape(gameID) + suffix
}

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	req := service.CreateGameRequest{
		GameID:  stringArg(args, "game_id"),
		LobbyID: stringArg(args, "lobby_id"),
		Preset:  stringArg(args, "preset"),
	}
	if raw, ok := args["player_tokens"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				req.PlayerTokens = append(req.PlayerTokens, s)
			}
		}
	}
	if req.LobbyID == "" && len(req.PlayerTokens) == 0 {
		return mcp.NewToolResultError("lobby_id or player_tokens is required"), nil
	}

	var game service.GameInfo
	if err := c.apiCall(ctx, "POST", "/api/games", "", req, &game); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameInfo(&game)), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Count int                 `json:"count"`
		Games []*service.GameInfo `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", "/api/games", "", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Games) == 0 {
		return mcp.NewToolResultText("No live games"), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Live games (%d):\n", len(resp.Games)))
	for _, g := range resp.Games {
		result.WriteString(fmt.Sprintf("- %s: %s, round %d/%d, %d players\n",
			g.ID, g.Snapshot.Status, g.Snapshot.CurrentRound, g.Snapshot.MaxRounds, len(g.Snapshot.Players)))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID := stringArg(arguments(request), "game_id")
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	var game service.GameInfo
	if err := c.apiCall(ctx, "GET", gamePath(gameID, ""), "", nil, &game); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameInfo(&game)), nil
}

func (c *Client) handleInventory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID := stringArg(args, "game_id")
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	var inv service.InventoryView
	if err := c.apiCall(ctx, "GET", gamePath(gameID, "/inventory"), c.tokenFor(args), nil, &inv); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatInventory(&inv)), nil
}

func (c *Client) handleSelectRoundCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, cardID := stringArg(args, "game_id"), stringArg(args, "card_id")
	if gameID == "" || cardID == "" {
		return mcp.NewToolResultError("game_id and card_id are required"), nil
	}

	var snap engine.Snapshot
	body := map[string]string{"card_id": cardID}
	if err := c.apiCall(ctx, "POST", gamePath(gameID, "/round-card"), c.tokenFor(args), body, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handlePlayActionCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, cardID := stringArg(args, "game_id"), stringArg(args, "card_id")
	if gameID == "" || cardID == "" {
		return mcp.NewToolResultError("game_id and card_id are required"), nil
	}

	body := map[string]string{"card_id": cardID}
	if target := stringArg(args, "target_player_id"); target != "" {
		body["target_player_id"] = target
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", gamePath(gameID, "/action-card"), c.tokenFor(args), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("Played %s", result.Effect.Card))
	if result.Effect.Target != "" && result.Effect.Target != result.Effect.Source {
		out.WriteString(fmt.Sprintf(" on %s", result.Effect.Target))
	}
	out.WriteString("\n")
	if result.Effect.Continent != "" {
		out.WriteString(fmt.Sprintf("The location is in %s\n", result.Effect.Continent))
	}
	if result.Effect.DurationSeconds > 0 {
		out.WriteString(fmt.Sprintf("Effect lasts %ds\n", result.Effect.DurationSeconds))
	}
	out.WriteString("\n")
	out.WriteString(formatSnapshot(&result.Snapshot))
	return mcp.NewToolResultText(out.String()), nil
}

func (c *Client) handleStartGuessing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID := stringArg(args, "game_id")
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "POST", gamePath(gameID, "/guessing"), c.tokenFor(args), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleSubmitGuess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID := stringArg(args, "game_id")
	lat, latOK := args["lat"].(float64)
	lng, lngOK := args["lng"].(float64)
	if gameID == "" || !latOK || !lngOK {
		return mcp.NewToolResultError("game_id, lat and lng are required"), nil
	}

	var result service.GuessResult
	body := map[string]float64{"lat": lat, "lng": lng}
	if err := c.apiCall(ctx, "POST", gamePath(gameID, "/guess"), c.tokenFor(args), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("Guess #%d recorded at (%.4f, %.4f)\n",
		result.Guess.Sequence, result.Guess.Coordinate.Lat, result.Guess.Coordinate.Lng))
	if result.Outcome != nil {
		out.WriteString("\nAll guesses are in.\n")
		out.WriteString(formatRoundResult(&result.Outcome.Result))
	}
	return mcp.NewToolResultText(out.String()), nil
}

func (c *Client) handleResolveRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID := stringArg(args, "game_id")
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	var outcome service.RoundOutcome
	if err := c.apiCall(ctx, "POST", gamePath(gameID, "/resolve"), c.tokenFor(args), nil, &outcome); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoundResult(&outcome.Result)), nil
}

func (c *Client) handleNextRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID := stringArg(args, "game_id")
	if gameID == "" {
		return mcp.NewToolResultError("game_id is required"), nil
	}

	var snap engine.Snapshot
	if err := c.apiCall(ctx, "POST", gamePath(gameID, "/next-round"), c.tokenFor(args), nil, &snap); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snap)), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Presets []*service.PresetInfo `json:"presets"`
	}
	if err := c.apiCall(ctx, "GET", "/api/presets", "", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available presets:\n")
	for _, p := range resp.Presets {
		result.WriteString(fmt.Sprintf("- %s: %s (%d rounds, %ds action window)\n",
			p.PresetID, p.Name, p.MaxRounds, p.ActionWindowSeconds))
		if p.Description != "" {
			result.WriteString(fmt.Sprintf("  %s\n", p.Description))
		}
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 10
	if l, ok := arguments(request)["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	var resp struct {
		Games []engine.Summary `json:"games"`
	}
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/history?limit=%d", limit), "", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Games) == 0 {
		return mcp.NewToolResultText("No finished games"), nil
	}

	var result strings.Builder
	for _, s := range resp.Games {
		result.WriteString(formatSummary(&s))
		result.WriteString("\n")
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Geocard rules

HOW TO WIN:
Every round hides a real-world location. Players guess its coordinates and the
closest guess wins the round. After the last round the player with the most
round wins is the winner; ties go to the lower total distance.

ROUND FLOW:
1. ROUNDCARD: the turn player picks a round card from my_inventory.
   • world - 60 seconds to guess
   • flash - 30 seconds to guess
2. ACTIONCARD: everyone may play one action card.
   • reveal - shows you the continent of the location
   • punish - blurs a target player's screen for 15 seconds
   The window closes when the turn player calls start_guessing or it times out.
3. GUESS: everyone calls submit_guess. A new guess replaces your previous one.
   The round resolves as soon as all players have guessed, when the timer runs
   out, or when someone calls resolve_round.
4. REVEAL: the target and the winner are shown. Call next_round to continue.

TURN ORDER:
The first player in the roster picks the first round card. After that the
winner of each round picks the next one.

GAME END:
The game ends after the preset's number of rounds, or when any player has used
all of their round cards.

TOOLS:
• create_game, list_games, get_game, my_inventory
• select_round_card, play_action_card, start_guessing, submit_guess
• resolve_round, next_round, list_presets, game_history

Each player starts with one world and one flash round card.`

	return mcp.NewToolResultText(instructions), nil
}

func formatGameInfo(game *service.GameInfo) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Game: %s\n", game.ID))
	if game.Rules != nil {
		result.WriteString(fmt.Sprintf("Rules: %s (%d rounds)\n", game.Rules.Name, game.Rules.MaxRounds))
	}
	if !game.CreatedAt.IsZero() {
		result.WriteString(fmt.Sprintf("Created: %s\n", game.CreatedAt.Format("2006-01-02 15:04:05")))
	}
	result.WriteString("\n")
	result.WriteString(formatSnapshot(&game.Snapshot))
	if game.Summary != nil {
		result.WriteString("\n")
		result.WriteString(formatSummary(game.Summary))
	}
	return result.String()
}

func formatSnapshot(snap *engine.Snapshot) string {
	if snap == nil {
		return "No game state available"
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Status: %s | Screen: %s | Round: %d/%d\n",
		snap.Status, snap.CurrentScreen, snap.CurrentRound, snap.MaxRounds))
	if snap.CurrentTurnPlayer != "" {
		result.WriteString(fmt.Sprintf("Turn player: %s\n", snap.CurrentTurnPlayer))
	}
	if snap.ActiveRoundCard != nil {
		result.WriteString(fmt.Sprintf("Round card: %s (%ds)\n",
			snap.ActiveRoundCard.Title, snap.ActiveRoundCard.Modifiers.TimeSeconds))
	}
	if snap.GuessWindow != nil {
		result.WriteString(fmt.Sprintf("Guess window: %ds\n", snap.GuessWindow.Seconds))
	}
	if snap.Message != "" {
		result.WriteString(snap.Message + "\n")
	}

	result.WriteString("\nPlayers:\n")
	for _, p := range snap.Players {
		info := snap.PlayerInfo[p.ID]
		guessed := ""
		if info.HasGuessed {
			guessed = " [guessed]"
		}
		result.WriteString(fmt.Sprintf("- %s (%s): %d wins, %d round cards, %d action cards%s\n",
			p.DisplayName, p.ID, info.RoundWins, info.RoundCardsLeft, info.ActionCardsLeft, guessed))
		for _, e := range info.ActiveEffects {
			result.WriteString(fmt.Sprintf("    effect: %s from %s\n", e.Card, e.Source))
		}
	}

	if snap.LastRoundWinner != "" {
		result.WriteString(fmt.Sprintf("\nLast round won by %s at %s\n",
			snap.LastRoundWinner, formatDistance(snap.LastRoundWinningDistance)))
	}
	if snap.GameWinner != "" {
		result.WriteString(fmt.Sprintf("\nGAME OVER - winner: %s\n", snap.GameWinner))
	}
	return result.String()
}

func formatInventory(inv *service.InventoryView) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Player: %s\n", inv.PlayerID))
	if inv.IsTurnPlayer {
		result.WriteString("It is your turn.\n")
	}

	result.WriteString("\nRound cards:\n")
	if len(inv.RoundCards) == 0 {
		result.WriteString("  (none)\n")
	}
	for _, rc := range inv.RoundCards {
		result.WriteString(fmt.Sprintf("  %s  %s\n", rc.ID, rc.Kind))
	}

	result.WriteString("\nAction cards:\n")
	if len(inv.ActionCards) == 0 {
		result.WriteString("  (none)\n")
	}
	for _, ac := range inv.ActionCards {
		target := ""
		if ac.NeedsTarget() {
			target = " (needs target_player_id)"
		}
		result.WriteString(fmt.Sprintf("  %s: %s%s\n", ac.ID, ac.Description, target))
	}

	for _, e := range inv.ActiveEffects {
		if e.Continent != "" {
			result.WriteString(fmt.Sprintf("\nRevealed continent: %s\n", e.Continent))
		}
	}
	if inv.CanPlayAction {
		result.WriteString("\nYou can play an action card now.\n")
	}
	if inv.HasGuessed {
		result.WriteString("\nYou have guessed this round.\n")
	}
	return result.String()
}

func formatRoundResult(r *engine.RoundResult) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Round %d (%s) resolved\n", r.Round, r.RoundCard))
	result.WriteString(fmt.Sprintf("Target: (%.4f, %.4f)\n", r.Target.Lat, r.Target.Lng))
	if r.Winner == "" {
		result.WriteString("No winner this round\n")
	} else {
		result.WriteString(fmt.Sprintf("Winner: %s at %s\n", r.Winner, formatDistance(r.WinningDistance)))
	}

	ids := make([]string, 0, len(r.Guesses))
	for id := range r.Guesses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r.Guesses[ids[i]].Distance < r.Guesses[ids[j]].Distance })
	for _, id := range ids {
		result.WriteString(fmt.Sprintf("- %s: %s\n", id, formatDistance(r.Guesses[id].Distance)))
	}
	return result.String()
}

func formatSummary(s *engine.Summary) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Game %s: winner %s after %d rounds\n", s.SessionID, s.Winner, s.RoundsPlayed))
	for _, p := range s.Players {
		result.WriteString(fmt.Sprintf("- %s: %d wins, %s total, %d XP\n",
			p.DisplayName, p.RoundWins, formatDistance(p.TotalDistance), p.XP))
	}
	return result.String()
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}
