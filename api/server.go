package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/geocard/auth"
	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/service"
	"github.com/wricardo/geocard/game/session"
	"github.com/wricardo/geocard/lobby"
	"github.com/wricardo/geocard/platform/log"
	"github.com/wricardo/geocard/transport/websocket"
)

const maxBodyBytes = 1 << 20

// History reads archived games.
type History interface {
	Get(ctx context.Context, sessionID string) (*engine.Summary, error)
	List(ctx context.Context, limit int) ([]engine.Summary, error)
}

// Lobbies stores the rosters games are created from.
type Lobbies interface {
	Set(lobbyID string, tokens []string) error
	Remove(lobbyID string)
}

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	history History
	lobbies Lobbies
	isGone  func(error) bool
	router  *mux.Router
}

// Option configures the server
type Option func(*Server)

// WithHistory serves archived games under /api/history.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithLobbies serves lobby rosters under /api/lobbies.
func WithLobbies(l Lobbies) Option {
	return func(s *Server) { s.lobbies = l }
}

// WithNotFound adds sentinels, such as the archive's, that map to 404.
func WithNotFound(sentinels ...error) Option {
	return func(s *Server) {
		prev := s.isGone
		s.isGone = func(err error) bool {
			for _, sentinel := range sentinels {
				if errors.Is(err, sentinel) {
					return true
				}
			}
			return prev(err)
		}
	}
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		isGone:  func(error) bool { return false },
		router:  mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Game management
	api.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleDeleteGame).Methods("DELETE")
	api.HandleFunc("/games/{id}/inventory", s.handleInventory).Methods("GET")

	// Round flow
	api.HandleFunc("/games/{id}/round-card", s.handleSelectRoundCard).Methods("POST")
	api.HandleFunc("/games/{id}/action-card", s.handlePlayActionCard).Methods("POST")
	api.HandleFunc("/games/{id}/guessing", s.handleStartGuessing).Methods("POST")
	api.HandleFunc("/games/{id}/guess", s.handleSubmitGuess).Methods("POST")
	api.HandleFunc("/games/{id}/resolve", s.handleForceResolve).Methods("POST")
	api.HandleFunc("/games/{id}/next-round", s.handleNextRound).Methods("POST")

	// Lobbies
	api.HandleFunc("/lobbies/{id}", s.handlePutLobby).Methods("PUT")
	api.HandleFunc("/lobbies/{id}", s.handleDeleteLobby).Methods("DELETE")

	// Presets and finished games
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	api.HandleFunc("/history", s.handleListHistory).Methods("GET")
	api.HandleFunc("/history/{id}", s.handleGetHistory).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// respondServiceError maps domain errors to status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError && s.isGone(err) {
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Error("[API] %v", err)
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, lobby.ErrLobbyNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrGameAlreadyOver):
		return http.StatusGone
	case errors.Is(err, engine.ErrInvalidTransition),
		errors.Is(err, engine.ErrAlreadyConsumed),
		errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// bearerToken returns the player token from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// requireToken writes 401 and returns false when no token was sent.
func requireToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing bearer token")
		return "", false
	}
	return token, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// Game Management Handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req service.CreateGameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	game, err := s.service.CreateGame(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, game)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := games[:0]
		for _, g := range games {
			if strings.EqualFold(string(g.Snapshot.Status), status) {
				filtered = append(filtered, g)
			}
		}
		games = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"games": games,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.service.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	token, ok := requireToken(w, r)
	if !ok {
		return
	}
	gameID := mux.Vars(r)["id"]

	if err := s.service.DeleteGame(r.Context(), gameID, token); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Game %s deleted", gameID),
	})
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	token, ok := requireToken(w, r)
	if !ok {
		return
	}

	inv, err := s.service.GetInventory(r.Context(), mux.Vars(r)["id"], token)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, inv)
}

// Round Flow Handlers

func (s *Server) handleSelectRoundCard(w http.ResponseWriter, r *http.Request) {
	token, ok := requireToken(w, r)
	if !ok {
		return
	}
	var req struct {
		CardID string `json:"card_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CardID == "" {
		respondError(w, http.StatusBadRequest, "card_id is required")
		return
	}

	snap, err := s.service.SelectRoundCard(r.Context(), mux.Vars(r)["id"], token, req.CardID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePlayActionCard(w http.ResponseWriter, r *http.Request) {
	token, ok := requireToken(w, r)
	if !ok {
		return
	}
	var req struct {
		CardID         string `json:"card_id"`
		TargetPlayerID string `json:"target_player_id,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CardID == "" {
		respondError(w, http.StatusBadRequest, "card_id is required")
		return
	}

	result, err := s.service.PlayActionCard(r.Context(), mux.Vars(r)["id"], token, req.CardID, req.TargetPlayerID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStartGuessing(w http.ResponseWriter, r *http.Request) {
	token, ok := requireToken(w, r)
	if !ok {
		return
	}

	snap, err := s.service.StartGuessing(r.Context(), mux.Vars(r)["id"], token)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSubmitGuess(w http.ResponseWriter, r *http.Request) {
	token, ok := requireToken(w, r)
	if !ok {
		return
	}
	var req struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lng == nil {
		respondError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	result, err := s.service.SubmitGuess(r.Context(), mux.Vars(r)["id"], token, *req.Lat, *req.Lng)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleForceResolve(w http.ResponseWriter, r *http.Request) {
	token, ok := requireToken(w, r)
	if !ok {
		return
	}

	outcome, err := s.service.ForceResolve(r.Context(), mux.Vars(r)["id"], token)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	token, ok := requireToken(w, r)
	if !ok {
		return
	}

	snap, err := s.service.NextRound(r.Context(), mux.Vars(r)["id"], token)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// Lobby Handlers

func (s *Server) handlePutLobby(w http.ResponseWriter, r *http.Request) {
	if s.lobbies == nil {
		respondError(w, http.StatusNotFound, "lobbies are not enabled")
		return
	}
	var req struct {
		PlayerTokens []string `json:"player_tokens"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	lobbyID := mux.Vars(r)["id"]
	if err := s.lobbies.Set(lobbyID, req.PlayerTokens); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lobby_id": lobbyID,
		"players":  len(req.PlayerTokens),
	})
}

func (s *Server) handleDeleteLobby(w http.ResponseWriter, r *http.Request) {
	if s.lobbies == nil {
		respondError(w, http.StatusNotFound, "lobbies are not enabled")
		return
	}
	lobbyID := mux.Vars(r)["id"]
	s.lobbies.Remove(lobbyID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Lobby %s deleted", lobbyID),
	})
}

// Preset and History Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(presets),
		"presets": presets,
	})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotFound, "game history is not enabled")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	games, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if games == nil {
		games = []engine.Summary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"games": games,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotFound, "game history is not enabled")
		return
	}

	summary, err := s.history.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	if gameID == "" {
		http.Error(w, "game parameter required", http.StatusBadRequest)
		return
	}

	game, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		http.Error(w, "Invalid game", http.StatusNotFound)
		return
	}

	s.hub.Serve(w, r, game.ID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connections := 0
	for _, n := range s.hub.Subscribers(r.Context()) {
		connections += n
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": connections,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if r.URL.Path == "/ws" {
			// the upgrader needs the raw writer
			next.ServeHTTP(w, r)
			log.Debug("[HTTP] %s %s upgraded", r.Method, r.URL.Path)
			return
		}
		next.ServeHTTP(rec, r)
		log.Debug("[HTTP] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
