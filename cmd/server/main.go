package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/cxkit/inqueue-voice-service/internal/config"
	"github.com/cxkit/inqueue-voice-service/internal/handler"
	"github.com/cxkit/inqueue-voice-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server hosts the in-queue callback and voicemail webhook surfaces.
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer builds the router and all handlers from the configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		log.Printf("failed to initialize zap logger, falling back to std log: %v", err)
	}

	router := mux.NewRouter()

	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		return nil, err
	}
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}, nil
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

func main() {
	// Load .env for local development; deployment sets real env vars.
	if err := godotenv.Load(); err != nil {
		log.Printf("info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := config.Load()

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	defer logger.Sync()

	logger.Base().Info("server initialized",
		zap.String("port", cfg.Port),
		zap.String("base_url", cfg.PublicBaseURL))

	if err := server.Start(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
