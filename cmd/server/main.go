package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skagen/thronehex/internal/auth"
	"github.com/skagen/thronehex/internal/config"
	"github.com/skagen/thronehex/internal/handler"
	"github.com/skagen/thronehex/internal/logger"
	"github.com/skagen/thronehex/internal/manager"
	"github.com/skagen/thronehex/internal/middleware"
	"github.com/skagen/thronehex/internal/repository/postgres"
	redisrepo "github.com/skagen/thronehex/internal/repository/redis"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("databaseURL", cfg.DatabaseURL).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Database migration failed")
	}

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Repos
	snapshotRepo := postgres.NewSnapshotRepo(db)
	eventRepo := postgres.NewEventRepo(db)

	// Auth
	sessions := auth.NewSessionManager(cfg.JWTSecret)

	// Game manager and WebSocket hub
	games := manager.New(snapshotRepo, eventRepo, redisClient, cfg.GroqAPIKey)
	wsHub := handler.NewHub()
	handler.BindManager(wsHub, games)

	// Handlers
	gameHandler := handler.NewGameHandler(games, sessions)
	wsHandler := handler.NewWSHandler(wsHub, sessions, games)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(sessions)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Lobby routes (public; joining issues the session token)
	mux.HandleFunc("POST /api/v1/games", gameHandler.CreateGame)
	mux.HandleFunc("GET /api/v1/games", gameHandler.ListGames)
	mux.HandleFunc("GET /api/v1/games/{id}", gameHandler.GetGame)
	mux.HandleFunc("POST /api/v1/games/{id}/join", gameHandler.JoinGame)
	mux.HandleFunc("POST /api/v1/games/{id}/ai", gameHandler.AddAI)
	mux.HandleFunc("GET /api/v1/stats", gameHandler.GetStats)

	// Gameplay routes (session required)
	api := http.NewServeMux()
	api.HandleFunc("POST /games/{id}/start", gameHandler.StartGame)
	api.HandleFunc("POST /games/{id}/leave", gameHandler.LeaveGame)
	api.HandleFunc("POST /games/{id}/moves", gameHandler.MakeMove)
	api.HandleFunc("POST /games/{id}/starvation", gameHandler.StarvationChoice)
	api.HandleFunc("DELETE /games/{id}", gameHandler.DeleteGame)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS(cfg.AllowedOrigins), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Recover unfinished games from their snapshots after a restart.
	if n, err := games.Recover(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover games (non-fatal)")
	} else if n > 0 {
		log.Info().Int("games", n).Msg("Recovered games from snapshots")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	if err := games.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Game manager shutdown error")
	}
	log.Info().Msg("Server stopped")
}
