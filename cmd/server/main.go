package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/ai"
	"github.com/sistec/enquiry-backend/internal/config"
	"github.com/sistec/enquiry-backend/internal/database"
	"github.com/sistec/enquiry-backend/internal/handler"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/notify"
	"github.com/sistec/enquiry-backend/internal/repository"
	"github.com/sistec/enquiry-backend/internal/router"
	"github.com/sistec/enquiry-backend/internal/service"
	"github.com/sistec/enquiry-backend/internal/validator"
	"github.com/sistec/enquiry-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log, closeReporter := logger.WithRollbar(log, cfg.RollbarToken, cfg.AppEnv)
	defer closeReporter()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("ai_provider", cfg.AIProvider).
		Bool("dedup", cfg.DedupAnswers).
		Str("resolve_policy", cfg.ResolvePolicy).
		Msg("Starting enquiry backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Schema ────────────────────────────────────────────────────────
	if cfg.AutoMigrate {
		if err := database.MigrateUp(cfg.DatabaseURL, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	queryRepo := repository.NewQueryRepository(pool)
	sessionRepo := repository.NewSessionRepository(rdb)
	bus := notify.NewRedisBus(rdb, log)

	// ─── Initialize Services ──────────────────────────────────────────
	persona := cfg.AIPersona
	if persona == "" {
		persona = ai.DefaultPersona(cfg.CollegeName)
	}

	userService := service.NewUserService(userRepo, cfg.BcryptCost)
	authService := service.NewAuthService(cfg, sessionRepo)
	chatService := service.NewChatService(queryRepo, newAsker(cfg, log), bus, service.ChatConfig{
		Persona:  persona,
		Deadline: cfg.AIDeadline,
		Dedup:    cfg.DedupAnswers,
	}, log)
	moderationService := service.NewModerationService(queryRepo, bus, cfg.ResolvePolicy, log)

	notifyWorker := worker.NewNotifyWorker(rdb, newMailer(cfg, log), cfg.AdminNotifyEmails, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(userService, authService, cfg.CookieSecure, log),
		Chat:   handler.NewChatHandler(chatService, log),
		Admin:  handler.NewAdminHandler(moderationService, log),
		WS:     handler.NewWSHandler(bus, moderationService, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(notifyWorker.Backlog, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	workers.Add(1)
	go func() {
		defer workers.Done()
		notifyWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// newAsker picks the answer provider.
func newAsker(cfg *config.Config, log zerolog.Logger) ai.Asker {
	if cfg.AIProvider == config.AIProviderFAQ {
		log.Info().Msg("Using keyword FAQ answers; unmatched questions go to admins")
		return ai.NewFAQ(ai.DefaultFAQ)
	}

	return ai.NewGeminiClient(ai.GeminiConfig{
		APIKey:      cfg.AIAPIKey,
		Model:       cfg.AIModel,
		BaseURL:     cfg.AIBaseURL,
		Timeout:     cfg.AITimeout,
		MaxAttempts: cfg.AIMaxAttempts,
		Backoff: ai.Backoff{
			Base:      cfg.AIBackoffBase,
			Max:       cfg.AIBackoffMax,
			MaxJitter: time.Second,
		},
		HTTPClient: &http.Client{},
	}, log)
}

func newMailer(cfg *config.Config, log zerolog.Logger) notify.Mailer {
	if cfg.SendgridAPIKey == "" {
		return notify.NewLogMailer(log)
	}
	return notify.NewSendgridMailer(cfg.SendgridAPIKey, cfg.CollegeName+" Enquiry", cfg.MailFrom)
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
