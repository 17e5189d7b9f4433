package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/arturoeanton/go-rag-qa/internal/bootstrap"
	"github.com/arturoeanton/go-rag-qa/internal/handler"
	"github.com/arturoeanton/go-rag-qa/internal/mcp"
	"github.com/arturoeanton/go-rag-qa/internal/middleware"
	"github.com/arturoeanton/go-rag-qa/pkg/config"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	slog.Info("🚀 Starting RAG QA",
		"port", cfg.Port,
		"database", cfg.DSN(),
		"ollama_embed", cfg.OllamaEmbedURL,
		"ollama_chat", cfg.OllamaChatURL,
		"similarity", cfg.Similarity,
		"mcp_enabled", cfg.MCPEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Store, index, gateways, services ─────────────────────────────────
	components, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer components.Close()
	ragService := components.RAG

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GenerateTimeout + cfg.EmbedTimeout,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  []string{cfg.FrontendURL},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		ExposeHeaders: []string{middleware.RequestIDHeader},
	}))

	// Request IDs + structured access log
	app.Use(middleware.AuditMiddleware())

	api := app.Group("/api/v1")

	handler.NewHealthHandler(cfg.AppName, ragService).Register(api)
	handler.NewRAGHandler(ragService).Register(api)
	handler.NewJobsHandler(ctx, handler.NewJobTracker(), components.Batch).Register(api)

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(ragService, cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(ctx); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
