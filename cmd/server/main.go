package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"polaris/internal/auth"
	"polaris/internal/blob"
	"polaris/internal/bus"
	"polaris/internal/capabilities"
	"polaris/internal/config"
	"polaris/internal/handler"
	"polaris/internal/llm/anthropic"
	"polaris/internal/middleware"
	"polaris/internal/repository/postgres"
	"polaris/internal/service/agent"
	"polaris/internal/service/agent/tools/external"
	serviceChat "polaris/internal/service/chat"
	serviceFilestore "polaris/internal/service/filestore"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up file logging: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	projectRepo := postgres.NewProjectRepository(repoConfig)
	nodeRepo := postgres.NewNodeRepository(repoConfig)
	conversationRepo := postgres.NewConversationRepository(repoConfig)
	messageRepo := postgres.NewMessageRepository(repoConfig)

	// Blob storage for binary file payloads
	blobStore := blob.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageBucket, logger)

	// Cancel signal bus
	busClient, err := bus.NewClient(cfg.NATSURL, cfg.NATSToken, logger)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer busClient.Close()

	// Model capability catalog
	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}

	// Model client
	modelClient := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AgentModel)

	// Web scrape client (optional; the tool is disabled without a key)
	var scrapeClient external.ScrapeClient
	if cfg.FirecrawlAPIKey != "" {
		scrapeClient = external.NewFirecrawlClient(cfg.FirecrawlAPIKey)
	} else {
		logger.Warn("FIRECRAWL_API_KEY not set, scrapeUrls tool disabled")
	}

	// Services
	projectService := serviceFilestore.NewProjectService(projectRepo, logger)
	treeService := serviceFilestore.NewTreeService(nodeRepo, projectRepo, blobStore, logger)
	ledgerService := serviceChat.NewLedgerService(conversationRepo, messageRepo, logger)

	// Agent pipeline and its runner
	pipeline := agent.NewPipeline(
		ledgerService,
		treeService,
		modelClient,
		scrapeClient,
		capabilityRegistry,
		cfg.AgentModel,
		cfg.TitleModel,
		cfg.SettleDelay,
		logger,
	)
	runner := agent.NewRunner(pipeline, logger)
	coordinator := agent.NewCoordinator(ledgerService, busClient, logger)

	// Cancel signals land here from every instance; unknown message IDs are
	// runs living elsewhere.
	if err := busClient.SubscribeCancel(runner.Cancel); err != nil {
		log.Fatalf("Failed to subscribe to cancel signals: %v", err)
	}

	// Handlers
	projectHandler := handler.NewProjectHandler(projectService, ledgerService, runner, logger)
	fileHandler := handler.NewFileHandler(treeService, projectService, logger)
	conversationHandler := handler.NewConversationHandler(ledgerService, projectService, logger)
	messageHandler := handler.NewMessageHandler(ledgerService, projectService, coordinator, runner, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.Health)

	// Project routes
	mux.HandleFunc("GET /api/projects", projectHandler.ListProjects)
	mux.HandleFunc("POST /api/projects", projectHandler.CreateProject)
	mux.HandleFunc("GET /api/projects/{id}", projectHandler.GetProject)

	// File tree routes
	mux.HandleFunc("GET /api/projects/{id}/files", fileHandler.ListProjectFiles)
	mux.HandleFunc("GET /api/projects/{id}/children", fileHandler.ListChildren)
	mux.HandleFunc("POST /api/files", fileHandler.CreateFile)
	mux.HandleFunc("POST /api/files/batch", fileHandler.CreateFiles)
	mux.HandleFunc("POST /api/folders", fileHandler.CreateFolder)
	mux.HandleFunc("GET /api/files/{id}", fileHandler.GetNode)
	mux.HandleFunc("PATCH /api/files/{id}", fileHandler.UpdateNode)
	mux.HandleFunc("DELETE /api/files/{id}", fileHandler.DeleteNode)

	// Conversation routes
	mux.HandleFunc("POST /api/projects/{id}/conversations", conversationHandler.CreateConversation)
	mux.HandleFunc("GET /api/projects/{id}/conversations", conversationHandler.ListConversations)
	mux.HandleFunc("GET /api/conversations/{id}/messages", conversationHandler.ListMessages)

	// Message routes
	mux.HandleFunc("POST /api/messages", messageHandler.SendMessage)
	mux.HandleFunc("POST /api/messages/cancel", messageHandler.CancelMessages)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS -> Recovery -> Auth -> Routes
	root = middleware.Auth(jwtVerifier, logger)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Serve until interrupted, then drain in-flight requests and agent runs.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}

		runner.Shutdown()
		logger.Info("server stopped")
	}
}
