package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/inamate/transformlab/internal/auth"
	"github.com/inamate/transformlab/internal/collab"
	"github.com/inamate/transformlab/internal/config"
	"github.com/inamate/transformlab/internal/db"
	"github.com/inamate/transformlab/internal/db/dbgen"
	mw "github.com/inamate/transformlab/internal/middleware"
	"github.com/inamate/transformlab/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := dbgen.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	sessionService := session.NewService(queries, cfg.GridUnit, cfg.HistoryLimit)
	sessionHandler := session.NewHandler(sessionService)

	hub := collab.NewHub(sessionService.LoadDocument, sessionService.SaveDocument, collab.HubConfig{
		GridUnit:     cfg.GridUnit,
		HistoryLimit: cfg.HistoryLimit,
		SaveInterval: cfg.SaveInterval,
	})
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"database unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Stateless composition (public, used by the playground)
	r.HandleFunc("/compose", sessionHandler.Compose).Methods("POST")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/sessions", sessionHandler.List).Methods("GET")
	api.HandleFunc("/sessions", sessionHandler.Create).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}", sessionHandler.Get).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}", sessionHandler.Delete).Methods("DELETE")
	api.HandleFunc("/sessions/{sessionId}/snapshots/latest", sessionHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/state", sessionHandler.State).Methods("GET")

	// WebSocket endpoint
	originPatterns := cfg.OriginPatterns()
	r.HandleFunc("/ws/session/{sessionId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, sessionService, originPatterns)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty sessions
		slog.Info("saving all sessions...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "gridUnit", cfg.GridUnit, "historyLimit", cfg.HistoryLimit)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, sessions *session.Service, originPatterns []string) {
	sessionID := mux.Vars(r)["sessionId"]

	var userID string
	var displayName string

	// Playground session allows anonymous access
	if sessionID == session.PlaygroundID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Auth via query param for stored sessions
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if err := sessions.Authorize(r.Context(), sessionID, userID); err != nil {
			switch {
			case errors.Is(err, session.ErrNotFound):
				http.Error(w, "session not found", http.StatusNotFound)
			case errors.Is(err, session.ErrForbidden):
				http.Error(w, "not the session owner", http.StatusForbidden)
			default:
				slog.Error("authorize session", "error", err, "session", sessionID)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, sessionID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
