// Command blockfall-server runs the Blockfall game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (or the matching environment variables) control host/port, the
// preset directory, logging, session expiry and optional ngrok tunneling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/blockfall/api"
	"github.com/wricardo/blockfall/game/config"
	"github.com/wricardo/blockfall/game/service"
	"github.com/wricardo/blockfall/game/session"
	"github.com/wricardo/blockfall/logging"
	"github.com/wricardo/blockfall/transport/mcp"
	"github.com/wricardo/blockfall/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Blockfall Server"
)

// serverConfig is the resolved command line
type serverConfig struct {
	Host        string
	Port        int
	ConfigDir   string
	LogMode     logging.Mode
	SessionTTL  time.Duration
	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string
}

func (c serverConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// services holds everything the transports share
type services struct {
	game     service.GameService
	sessions *session.Manager
	hub      *websocket.Hub
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "blockfall-server",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "log", Value: "dev", Usage: "Log mode: dev, prod or silent", Sources: cli.EnvVars("LOG_MODE")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Remove sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, reusing or starting an HTTP API",
				Action:  stdioAction,
			},
		},
		Action: serverAction,
	}
}

// configFromCommand resolves flags and environment into a serverConfig
func configFromCommand(cmd *cli.Command) (serverConfig, error) {
	mode, err := logging.ParseMode(cmd.String("log"))
	if err != nil {
		return serverConfig{}, err
	}
	return serverConfig{
		Host:        cmd.String("host"),
		Port:        cmd.Int("port"),
		ConfigDir:   cmd.String("config-dir"),
		LogMode:     mode,
		SessionTTL:  cmd.Duration("session-ttl"),
		Ngrok:       cmd.Bool("ngrok"),
		NgrokAuth:   cmd.String("ngrok-auth"),
		NgrokDomain: cmd.String("ngrok-domain"),
	}, nil
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := configFromCommand(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogMode, os.Stderr)
	logger.Info("starting", "app", AppName, "version", Version, "mode", "server")

	svc, err := initializeServices(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	return runHTTPServer(ctx, cfg, svc, logger)
}

func stdioAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := configFromCommand(cmd)
	if err != nil {
		return err
	}
	// stdout carries the protocol
	logger := logging.New(cfg.LogMode, os.Stderr)
	logger.Info("starting", "app", AppName, "version", Version, "mode", "stdio-mcp")

	svc, err := initializeServices(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	return runStdioMCP(ctx, cfg, svc, logger)
}

// initializeServices wires the config and session managers, the hub and the
// game service. Every session engine publishes to the hub.
func initializeServices(cfg serverConfig, logger *slog.Logger) (*services, error) {
	configManager, err := config.NewManager(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	hub := websocket.NewHub(logger)
	sessionManager := session.NewManager(
		session.WithEngineOptions(service.NotifyingEngineOptions(hub)),
		session.WithLogger(logger),
	)
	gameService := service.NewGameService(sessionManager, configManager, logger)
	hub.SetCommandHandler(wsCommandHandler(gameService))

	return &services{game: gameService, sessions: sessionManager, hub: hub}, nil
}

// wsCommandHandler runs WebSocket command frames through the game service.
// Lifecycle names are accepted alongside game commands.
func wsCommandHandler(gs service.GameService) websocket.CommandHandler {
	return func(ctx context.Context, sessionID, command string) (interface{}, error) {
		var (
			result *service.CommandResult
			err    error
		)
		switch command {
		case "start":
			result, err = gs.Start(ctx, sessionID)
		case "stop":
			result, err = gs.Stop(ctx, sessionID)
		case "restart":
			result, err = gs.Restart(ctx, sessionID)
		default:
			result, err = gs.Command(ctx, sessionID, command)
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

// newHandler combines the REST API and the /mcp JSON-RPC endpoint
func newHandler(svc *services, mcpClient *mcp.Client, logger *slog.Logger) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(svc.game, svc.hub, logger))

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
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

// runHTTPServer serves REST, WebSocket and /mcp until ctx is done, then shuts
// down gracefully and stops every session's gravity.
func runHTTPServer(ctx context.Context, cfg serverConfig, svc *services, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go svc.hub.Run(ctx)
	go sessionCleanupRoutine(ctx, svc.sessions, logger, time.Hour, cfg.SessionTTL)

	addr := cfg.addr()
	handler := newHandler(svc, mcp.NewClient("http://"+addr), logger)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			"addr", addr,
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			cancel()
		}
	}()

	if cfg.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveNgrok(ctx, cfg, handler, logger); err != nil {
				logger.Error("ngrok tunnel failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	svc.sessions.StopAll()

	wg.Wait()
	logger.Info("server stopped")

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// serveNgrok exposes handler through an ngrok tunnel until ctx is done
func serveNgrok(ctx context.Context, cfg serverConfig, handler http.Handler, logger *slog.Logger) error {
	if cfg.NgrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		return fmt.Errorf("failed to start ngrok tunnel: %w", err)
	}

	url := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", url,
		"api", url+"/api",
		"ws", url+"/ws?session=<session_id>",
		"mcp", url+"/mcp")

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		return err
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, logger *slog.Logger, every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("cleaned up expired sessions", "removed", removed)
			}
		}
	}
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening
// on the configured address; otherwise it starts an internal one on a random
// loopback port.
func runStdioMCP(ctx context.Context, cfg serverConfig, svc *services, logger *slog.Logger) error {
	externalURL := "http://" + cfg.addr()
	baseURL := externalURL

	if !apiAvailable(externalURL) {
		logger.Info("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		go svc.hub.Run(ctx)
		httpServer := &http.Server{Handler: api.NewServer(svc.game, svc.hub, logger)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer func() {
			httpServer.Close()
			svc.sessions.StopAll()
		}()
	} else {
		logger.Info("external API server found", "url", externalURL)
	}

	logger.Info("MCP stdio server ready", "api", baseURL)
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

// apiAvailable reports whether a Blockfall API answers at baseURL
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
