package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/service"
)

// APIError is a non-2xx response from the game server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsConflict reports whether err is a 409, which for a bot means the game
// moved on before its request landed.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

type Client struct {
	baseURL string
	client  *http.Client
	// getTries bounds retries of idempotent reads.
	getTries   uint
	newBackOff func() backoff.BackOff
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		getTries: 5,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse %s response: %w", path, err)
		}
	}
	return nil
}

// get retries network failures and 5xx responses.
func (c *Client) get(ctx context.Context, path, token string, out interface{}) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.do(ctx, http.MethodGet, path, token, nil, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxTries(c.getTries))
	return err
}

func gamePath(gameID, suffix string) string {
	return "/api/games/" + url.PathEscape(gameID) + suffix
}

func (c *Client) CreateGame(ctx context.Context, req service.CreateGameRequest) (*service.GameInfo, error) {
	var game service.GameInfo
	if err := c.do(ctx, http.MethodPost, "/api/games", "", req, &game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &game, nil
}

func (c *Client) GetGame(ctx context.Context, gameID string) (*service.GameInfo, error) {
	var game service.GameInfo
	if err := c.get(ctx, gamePath(gameID, ""), "", &game); err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &game, nil
}

func (c *Client) Inventory(ctx context.Context, gameID, token string) (*service.InventoryView, error) {
	var inv service.InventoryView
	if err := c.get(ctx, gamePath(gameID, "/inventory"), token, &inv); err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return &inv, nil
}

func (c *Client) SelectRoundCard(ctx context.Context, gameID, token, cardID string) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	body := map[string]string{"card_id": cardID}
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, "/round-card"), token, body, &snap); err != nil {
		return nil, fmt.Errorf("select round card: %w", err)
	}
	return &snap, nil
}

func (c *Client) PlayActionCard(ctx context.Context, gameID, token, cardID, target string) (*service.ActionResult, error) {
	var result service.ActionResult
	body := map[string]string{"card_id": cardID}
	if target != "" {
		body["target_player_id"] = target
	}
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, "/action-card"), token, body, &result); err != nil {
		return nil, fmt.Errorf("play action card: %w", err)
	}
	return &result, nil
}

func (c *Client) StartGuessing(ctx context.Context, gameID, token string) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, "/guessing"), token, nil, &snap); err != nil {
		return nil, fmt.Errorf("start guessing: %w", err)
	}
	return &snap, nil
}

func (c *Client) SubmitGuess(ctx context.Context, gameID, token string, lat, lng float64) (*service.GuessResult, error) {
	var result service.GuessResult
	body := map[string]float64{"lat": lat, "lng": lng}
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, "/guess"), token, body, &result); err != nil {
		return nil, fmt.Errorf("submit guess: %w", err)
	}
	return &result, nil
}

func (c *Client) ForceResolve(ctx context.Context, gameID, token string) (*service.RoundOutcome, error) {
	var outcome service.RoundOutcome
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, "/resolve"), token, nil, &outcome); err != nil {
		return nil, fmt.Errorf("resolve round: %w", err)
	}
	return &outcome, nil
}

func (c *Client) NextRound(ctx context.Context, gameID, token string) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, "/next-round"), token, nil, &snap); err != nil {
		return nil, fmt.Errorf("next round: %w", err)
	}
	return &snap, nil
}
