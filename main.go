// Command geocard runs the Geocard game server and its companion tools.
//
// Commands:
//  1. "serve" (default) – runs the HTTP server exposing the REST API, WebSocket updates and an /mcp endpoint
//  2. "mcp" – runs an MCP stdio server, starting an internal HTTP API if none is reachable
//  3. "token" – issues a signed player token
//  4. "validate" – checks the rule presets
//  5. "bot" – plays a game with bot players over the REST API
//
// Settings come from the environment (and a .env file); flags override them.
// See platform/config for the variables.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/geocard/api"
	"github.com/wricardo/geocard/auth"
	"github.com/wricardo/geocard/bot"
	"github.com/wricardo/geocard/game/archive"
	gameconfig "github.com/wricardo/geocard/game/config"
	"github.com/wricardo/geocard/game/coords"
	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/service"
	"github.com/wricardo/geocard/game/session"
	"github.com/wricardo/geocard/lobby"
	"github.com/wricardo/geocard/platform/config"
	"github.com/wricardo/geocard/platform/log"
	"github.com/wricardo/geocard/platform/otel"
	"github.com/wricardo/geocard/transport/mcp"
	"github.com/wricardo/geocard/transport/websocket"
	"github.com/wricardo/geocard/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Geocard Game Server"
)

const devTokenPrefix = "dev-"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "geocard",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "error, warn, info or debug (default from LOG_LEVEL)"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := config.LoadDotEnv(); err != nil {
				log.Warn("Error loading .env file: %v", err)
			}
			level := cmd.String("log-level")
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			lvl, err := log.ParseLogLevel(level)
			if err != nil {
				return ctx, err
			}
			log.SetLevel(lvl)
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			tokenCommand(),
			validateCommand(),
			botCommand(),
		},
		Action: runServe,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP server with REST API, WebSocket and MCP endpoint",
		Flags:  serveFlags(),
		Action: runServe,
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host"},
		&cli.StringFlag{Name: "presets-dir", Usage: "Directory containing rule presets"},
		&cli.StringFlag{Name: "default-preset", Usage: "Preset used when a game names none"},
		&cli.StringFlag{Name: "archive", Usage: "Archive URL for finished games (memory://, file://, sqlite://, postgres://)"},
		&cli.StringSliceFlag{Name: "dev-player", Usage: "Register a player for local play without JWT; the token is dev-<name>"},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "Run an MCP stdio server against the REST API",
		Flags: append(serveFlags(),
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "External API server to use when reachable"},
			&cli.StringFlag{Name: "token", Usage: "Player token used when a tool call carries none"},
		),
		Action: runStdioMCP,
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a signed player token (needs GEOCARD_JWT_SECRET)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "player-id", Required: true, Usage: "Stable player id"},
			&cli.StringFlag{Name: "name", Usage: "Display name"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "Token lifetime"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return cli.Exit("GEOCARD_JWT_SECRET is not set", 1)
			}
			issuer, err := auth.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer)
			if err != nil {
				return err
			}
			name := cmd.String("name")
			if name == "" {
				name = cmd.String("player-id")
			}
			token, err := issuer.Issue(auth.Identity{PlayerID: cmd.String("player-id"), DisplayName: name}, cmd.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, token)
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate the rule presets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "Preset directory (default GEOCARD_PRESETS_DIR)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("dir")
			if dir == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				dir = cfg.PresetsDir
			}
			results, err := validate.ValidateDir(dir)
			if err != nil {
				return err
			}
			if !validate.Report(os.Stdout, results) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func botCommand() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Play a game with bot players over the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringSliceFlag{Name: "token", Usage: "Token of a seat the bot plays (repeatable)"},
			&cli.StringFlag{Name: "game", Usage: "Join an existing game instead of creating one"},
			&cli.StringFlag{Name: "lobby", Usage: "Create the game from this lobby"},
			&cli.StringFlag{Name: "preset", Usage: "Rule preset for a new game"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Strategy seed"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between bot moves"},
			&cli.IntFlag{Name: "max-steps", Value: 1000, Usage: "Maximum state polls"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tokens := cmd.StringSlice("token")
			if len(tokens) == 0 {
				return cli.Exit("at least one --token is required", 1)
			}

			runner := bot.NewRunner(bot.NewClient(cmd.String("url")), bot.NewContinentStrategy(uint64(cmd.Int("seed"))), tokens)
			runner.Delay = cmd.Duration("delay")
			runner.MaxSteps = int(cmd.Int("max-steps"))

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			var (
				summary *engine.Summary
				err     error
			)
			if gameID := cmd.String("game"); gameID != "" {
				summary, err = runner.Play(ctx, gameID)
			} else {
				summary, err = runner.Run(ctx, service.CreateGameRequest{
					LobbyID: cmd.String("lobby"),
					Preset:  cmd.String("preset"),
				})
			}
			if err != nil {
				return err
			}

			out := os.Stdout
			fmt.Fprintf(out, "Game %s won by %s after %d rounds\n", summary.SessionID, summary.Winner, summary.RoundsPlayed)
			for _, p := range summary.Players {
				fmt.Fprintf(out, "  %-12s wins=%d distance=%.1fkm xp=%d\n", p.DisplayName, p.RoundWins, p.TotalDistance/1000, p.XP)
			}
			return nil
		},
	}
}

// serverConfig loads the environment config and applies flag overrides.
func serverConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("presets-dir") {
		cfg.PresetsDir = cmd.String("presets-dir")
	}
	if cmd.IsSet("default-preset") {
		cfg.DefaultPreset = cmd.String("default-preset")
	}
	if cmd.IsSet("archive") {
		cfg.ArchiveURL = cmd.String("archive")
	}
	if cmd.IsSet("ngrok") {
		cfg.NgrokEnabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.NgrokDomain = cmd.String("ngrok-domain")
	}
	return cfg, cfg.Validate()
}

// services is everything the HTTP server is built from.
type services struct {
	cfg      *config.Config
	game     service.GameService
	sessions *session.Manager
	presets  *gameconfig.Manager
	hub      *websocket.Hub
	archive  archive.Store
	roster   *lobby.MemoryRoster
}

// initializeServices wires the session and preset managers, identity,
// coordinates and archive into the game service.
func initializeServices(ctx context.Context, cfg *config.Config, devPlayers []string) (*services, error) {
	presets, err := gameconfig.NewManager(cfg.PresetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset manager: %w", err)
	}
	if cfg.DefaultPreset != "" {
		if err := presets.SetDefault(cfg.DefaultPreset); err != nil {
			return nil, fmt.Errorf("default preset %q: %w", cfg.DefaultPreset, err)
		}
	}

	identities, err := identityResolver(cfg, devPlayers)
	if err != nil {
		return nil, err
	}

	store, err := archive.Open(ctx, cfg.ArchiveURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	svc := &services{
		cfg:      cfg,
		sessions: session.NewManager(),
		presets:  presets,
		hub:      websocket.NewHub(),
		archive:  store,
		roster:   lobby.NewMemoryRoster(),
	}

	opts := []service.Option{
		service.WithNotifier(svc.hub),
		service.WithArchiver(store),
		service.WithRoster(svc.roster),
	}
	if cfg.RoundTimers {
		opts = append(opts, service.WithRoundTimers(nil))
	}
	svc.game = service.NewGameService(svc.sessions, presets, identities, coordinateSource(cfg), opts...)
	return svc, nil
}

// identityResolver verifies JWTs when a secret is configured. Without one,
// only the --dev-player identities can play.
func identityResolver(cfg *config.Config, devPlayers []string) (service.IdentityResolver, error) {
	if cfg.JWTSecret != "" {
		r, err := auth.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("failed to create token resolver: %w", err)
		}
		return r, nil
	}

	r := auth.NewMemoryResolver()
	for _, name := range devPlayers {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id := strings.ToLower(name)
		r.Register(devTokenPrefix+id, auth.Identity{PlayerID: id, DisplayName: name})
		log.Info("Dev player %s: token %s%s", name, devTokenPrefix, id)
	}
	if len(devPlayers) == 0 {
		log.Warn("No GEOCARD_JWT_SECRET and no --dev-player: no token will resolve")
	}
	return r, nil
}

// coordinateSource uses Street View when a key is configured and random
// coordinates otherwise.
func coordinateSource(cfg *config.Config) engine.CoordinateSource {
	sampler := coords.NewSampler()
	if cfg.StreetViewAPIKey == "" {
		log.Info("STREETVIEW_API_KEY not set, using random coordinates")
		return coords.NewRandomSource(sampler)
	}

	src := coords.NewResilientSource(coords.NewStreetViewSource(cfg.StreetViewAPIKey, sampler))
	if cfg.LocationAttempts > 0 {
		src.MaxAttempts = cfg.LocationAttempts
	}
	return src
}

// handler mounts the API and the /mcp endpoint.
func (s *services) handler(baseURL string) http.Handler {
	apiServer := api.NewServer(s.game, s.hub,
		api.WithHistory(s.archive),
		api.WithLobbies(s.roster),
		api.WithNotFound(archive.ErrNotFound),
	)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runServe starts the HTTP server and blocks until a shutdown signal.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := serverConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, "geocard")
	if err != nil {
		log.Warn("Tracing disabled: %v", err)
	}

	svc, err := initializeServices(ctx, cfg, cmd.StringSlice("dev-player"))
	if err != nil {
		return err
	}

	go svc.hub.Run(ctx)
	go sessionCleanupRoutine(ctx, svc.sessions, cfg)
	go presetReloadRoutine(ctx, svc.presets, cfg.DefaultPreset)

	host := cmd.String("host")
	if host == "" {
		host = "localhost"
	}
	addr := fmt.Sprintf("%s:%d", host, cfg.Port)
	handler := svc.handler(fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info("%s v%s listening on %s", AppName, Version, addr)
		log.Info("REST API: http://%s/api", addr)
		log.Info("WebSocket: ws://%s/ws?game=<game_id>", addr)
		log.Info("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg, handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err = <-serveErr:
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}
	wg.Wait()

	if err := svc.archive.Close(shutdownCtx); err != nil {
		log.Error("Archive close error: %v", err)
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("Tracing shutdown error: %v", err)
		}
	}
	log.Info("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, cfg *config.Config, handler http.Handler) {
	authToken := os.Getenv("NGROK_AUTHTOKEN")
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		log.Warn("Ngrok enabled but no auth token provided (use NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Info("Using custom ngrok domain: %s", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error("Failed to start ngrok tunnel: %v", err)
		return
	}

	ngrokServer := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		ngrokServer.Close()
	}()

	ngrokURL := tun.URL()
	log.Info("Ngrok tunnel established: %s", ngrokURL)
	log.Info("  REST API (ngrok): %s/api", ngrokURL)
	log.Info("  WebSocket (ngrok): %s/ws?game=<game_id>", ngrokURL)

	if err := ngrokServer.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Ngrok server error: %v", err)
	}
	log.Info("Ngrok tunnel closed")
}

// sessionCleanupRoutine drops idle sessions and finished games that have
// been over for the configured delay.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, cfg *config.Config) {
	if cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(cfg.SessionIdleTimeout); removed > 0 {
				log.Info("Cleaned up %d idle sessions", removed)
			}
			if removed := manager.CleanupFinishedSessions(cfg.FinishedGameDelay); removed > 0 {
				log.Info("Cleaned up %d finished games", removed)
			}
		}
	}
}

// presetReloadRoutine re-reads the presets directory on SIGHUP.
func presetReloadRoutine(ctx context.Context, presets *gameconfig.Manager, defaultPreset string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := reloadPresets(presets, defaultPreset); err != nil {
				log.Error("[PRESETS] reload failed: %v", err)
				continue
			}
			log.Info("[PRESETS] reloaded")
		}
	}
}

func reloadPresets(presets *gameconfig.Manager, defaultPreset string) error {
	if err := presets.Reload(); err != nil {
		return err
	}
	if defaultPreset == "" {
		return nil
	}
	return presets.SetDefault(defaultPreset)
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --url when it
// answers, otherwise it starts an internal API on a loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	externalURL := strings.TrimRight(cmd.String("url"), "/")
	baseURL := externalURL

	log.Info("Checking for external API server at %s...", externalURL)
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode == http.StatusOK {
		resp.Body.Close()
		log.Info("External API server found at %s, using it for MCP", externalURL)
	} else {
		if resp != nil {
			resp.Body.Close()
		}
		log.Info("No external API server found, starting internal HTTP server")

		cfg, err := serverConfig(cmd)
		if err != nil {
			return err
		}
		svc, err := initializeServices(ctx, cfg, cmd.StringSlice("dev-player"))
		if err != nil {
			return err
		}
		defer svc.archive.Close(context.Background())

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		hubCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go svc.hub.Run(hubCtx)
		go sessionCleanupRoutine(hubCtx, svc.sessions, cfg)

		httpServer := &http.Server{Handler: svc.handler(baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		log.Info("Internal HTTP server on %s", baseURL)
	}

	var opts []mcp.ClientOption
	if token := cmd.String("token"); token != "" {
		opts = append(opts, mcp.WithPlayerToken(token))
	}
	mcpClient := mcp.NewClient(baseURL, opts...)

	log.Info("MCP stdio server ready (API at %s)", baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
