package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cct-server/api"
	"cct-server/auth"
	"cct-server/config"
	"cct-server/loghandler"
	"cct-server/session"
	"cct-server/storage"
	"cct-server/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Print("No .env file found; using environment variables.")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, loghandler.ParseLevel(cfg.LogLevel))))

	if err := cfg.Trial.Validate(); err != nil {
		slog.Error("invalid default trial config", "tag", "main", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database unavailable", "tag", "main", "err", err)
		os.Exit(1)
	}
	defer store.Close()
	if store == nil {
		slog.Info("DATABASE_URL is not set; trial results will not be archived", "tag", "main")
	}

	verifier, err := auth.NewVerifier(cfg.AuthBaseURL)
	if err != nil {
		slog.Error("auth setup failed", "tag", "main", "err", err)
		os.Exit(1)
	}
	if verifier == nil {
		slog.Info("AUTH_BASE_URL is not set; participants are anonymous", "tag", "main")
	} else {
		slog.Info("auth configured", "tag", "main", "baseURL", cfg.AuthBaseURL)
	}

	slog.Info("configuration", "tag", "main",
		"port", cfg.Port, "root", cfg.StaticRoot, "cards", cfg.Trial.NumCards,
		"lossCards", cfg.Trial.NumLossCards, "gain", cfg.Trial.GainValue, "loss", cfg.Trial.LossValue, "hot", cfg.Trial.Hot)

	srv := newServer(cfg, store, verifier)
	go srv.hub.Run(ctx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("plugin hosting service listening", "tag", "main", "addr", httpServer.Addr, "service", cfg.ServiceName)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "tag", "main", "err", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down", "tag", "main")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "tag", "main", "err", err)
	}
	if err := srv.sessions.Shutdown(shutdownCtx); err != nil {
		slog.Warn("session shutdown", "tag", "main", "err", err)
	}
}

type server struct {
	handler  http.Handler
	hub      *ws.Hub
	sessions *session.Manager
}

// newServer wires the session manager, websocket hub and asset routes.
// store and verifier may be nil.
func newServer(cfg *config.Config, store *storage.Store, verifier *auth.Verifier) *server {
	var (
		sink      session.ResultSink
		archive   api.ResultLister
		apiTokens api.TokenVerifier
		wsTokens  ws.TokenVerifier
	)
	if store != nil {
		sink, archive = store, store
	}
	if verifier != nil {
		apiTokens, wsTokens = verifier, verifier
	}

	sessions := session.NewManager(sink)
	hub := ws.NewHub(cfg, sessions, wsTokens)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.ServeWS)
	api.NewHandler(cfg, archive, apiTokens).Routes(mux)

	return &server{handler: api.CORS(mux), hub: hub, sessions: sessions}
}
