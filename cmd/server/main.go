package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"chatloop/internal/auth"
	"chatloop/internal/capabilities"
	"chatloop/internal/config"
	"chatloop/internal/handler"
	"chatloop/internal/middleware"
	"chatloop/internal/repository"
	serviceLLM "chatloop/internal/service/llm"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Mirror logs to LOG_DIR when set
	var logOut io.Writer
	if cfg.LogDir != "" {
		f, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}

	logger := config.NewLogger(cfg.Environment, logOut)
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"max_steps", cfg.MaxSteps,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bearer auth is optional; a nil verifier disables the middleware
	var verifier auth.JWTVerifier
	if cfg.AuthJWKSURL != "" {
		v, err := auth.NewJWTVerifier(cfg.AuthJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer v.Close()
		verifier = v
	} else {
		logger.Warn("AUTH_JWKS_URL not set, authentication disabled")
	}

	stores, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer stores.Close()

	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}

	llmServices, err := serviceLLM.SetupServices(cfg, stores.Conversations, stores.Turns, capabilityRegistry, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM services: %v", err)
	}

	chatHandler := handler.NewChatHandler(
		llmServices.Conversation,
		llmServices.Orchestrator,
		llmServices.TurnBuilder,
		logger,
	)
	modelsHandler := handler.NewModelsHandler(cfg, logger, capabilityRegistry)

	logger.Info("services initialized",
		"provider", llmServices.Model.Provider,
		"model", llmServices.Model.Model,
		"tools", len(llmServices.Tools.Definitions()),
	)

	// Go 1.22+ enhanced patterns
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.HandleFunc("GET /api/models", modelsHandler.GetCapabilities)
	mux.HandleFunc("POST /api/chat", chatHandler.Chat)
	mux.HandleFunc("GET /api/chats", chatHandler.ListChats)
	mux.HandleFunc("POST /api/chats", chatHandler.CreateChat)
	mux.HandleFunc("GET /api/chats/{id}", chatHandler.GetChat)
	mux.HandleFunc("GET /api/chats/{id}/turns", chatHandler.GetTurns)

	// Applied in reverse order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.AuthMiddleware(verifier, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS must run before auth to answer OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"x-vercel-ai-data-stream"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := newHTTPServer(":"+cfg.Port, h)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
