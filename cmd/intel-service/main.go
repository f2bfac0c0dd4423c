package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/nexpharm/pharmacy-intel/internal/intel/assistant"
	"github.com/nexpharm/pharmacy-intel/internal/intel/chat"
	"github.com/nexpharm/pharmacy-intel/internal/intel/client"
	"github.com/nexpharm/pharmacy-intel/internal/intel/consumers"
	"github.com/nexpharm/pharmacy-intel/internal/intel/events"
	"github.com/nexpharm/pharmacy-intel/internal/intel/handler"
	"github.com/nexpharm/pharmacy-intel/internal/intel/repository"
	"github.com/nexpharm/pharmacy-intel/internal/intel/service"
	"github.com/nexpharm/pharmacy-intel/pkg/config"
	"github.com/nexpharm/pharmacy-intel/pkg/database"
	"github.com/nexpharm/pharmacy-intel/pkg/httputil"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"github.com/nexpharm/pharmacy-intel/pkg/messaging"
	"golang.org/x/sync/errgroup"
)

const serviceName = "intel-service"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().
		Str("feeds_mode", cfg.Feeds.Mode).
		Str("assistant_mode", cfg.Assistant.Mode).
		Msg("starting Intel Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Feed source
	var (
		feeds service.FeedSource
		db    *database.DB
	)
	switch cfg.Feeds.Mode {
	case config.FeedModeSQL:
		db, err = database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to feed database")
		}
		defer db.Close()

		if cfg.Database.Driver == "sqlite3" {
			if err := repository.EnsureSchema(ctx, db); err != nil {
				log.Fatal().Err(err).Msg("failed to prepare feed schema")
			}
		}
		feeds = repository.NewFeedRepository(db, cfg.Feeds.ExpiryWindowDays)
	default:
		feeds = client.NewBackendClient(cfg.Feeds.BackendURL, cfg.Feeds.RequestTimeout, log.WithComponent("feeds"))
	}

	// Assistant. The local responder is always built so POST /chatbot works
	// in both modes.
	responder := assistant.NewResponder(feeds, log.WithComponent("assistant"))
	if cfg.Assistant.GeminiAPIKey != "" {
		gemini, err := assistant.NewGeminiPredictor(ctx, cfg.Assistant.GeminiAPIKey, cfg.Assistant.GeminiModel, log)
		if err != nil {
			log.Warn().Err(err).Msg("gemini unavailable, using keyword intent prediction")
		} else {
			defer gemini.Close()
			responder = responder.WithPredictor(gemini)
		}
	}

	var chatAssistant service.Assistant = responder
	if cfg.Assistant.Mode == config.AssistantModeHTTP {
		chatAssistant = client.NewBackendClient(cfg.Assistant.URL, cfg.Assistant.Timeout, log.WithComponent("assistant"))
	}

	// Messaging is optional
	rmq, err := messaging.Connect(&cfg.RabbitMQ, log)
	if err != nil {
		if cfg.Server.Environment == config.EnvProduction {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		log.Warn().Err(err).Msg("RabbitMQ unreachable, running without events")
		rmq = nil
	}
	if rmq != nil {
		defer rmq.Close()
	}

	var publisher *events.IntelEventPublisher
	if rmq != nil {
		publisher, err = events.NewIntelEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}

		managerConsumer, err := consumers.NewManagerNotificationConsumer(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create manager notification consumer")
		}
		if err := managerConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start manager notification consumer")
		}
	}

	// Services and handlers
	intelService := service.NewIntelService(feeds, chatAssistant, publisher, log)
	chatStore := chat.NewStore(chatAssistant, cfg.Chat.SessionTTL, log)

	intelHandler := handler.NewIntelHandler(intelService, log)
	chatHandler := handler.NewChatHandler(chatStore, responder, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":        "healthy",
			"service":       serviceName,
			"database":      db.Health(r.Context()),
			"rabbitmq":      rmq.Health(),
			"chat_sessions": chatStore.Len(),
		})
	})

	// API routes
	r.Route("/api/v1/intel", func(r chi.Router) {
		r.Get("/dashboard", intelHandler.GetDashboard)

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", intelHandler.GetInventory)
			r.Get("/exposure", intelHandler.GetExposure)
			r.Get("/status/{stock}", intelHandler.GetStockStatus)
			r.Post("/{medicine}/reorder", intelHandler.Reorder)
			r.Post("/{medicine}/alternatives", intelHandler.Alternatives)
		})

		r.Get("/alerts", intelHandler.GetAlerts)
		r.Get("/forecast/{medicine}", intelHandler.GetForecast)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/sessions", chatHandler.CreateSession)
			r.Get("/sessions/{id}", chatHandler.GetSession)
			r.Delete("/sessions/{id}", chatHandler.DeleteSession)
			r.Post("/sessions/{id}/messages", chatHandler.SendMessage)
			r.Get("/quick-actions", chatHandler.QuickActions)
		})
		r.Post("/chatbot", chatHandler.Query)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/executive.pdf", intelHandler.ExportExecutiveReport)
			r.Get("/reorder.xlsx", intelHandler.ExportReorderReport)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		chatStore.Run(gctx, time.Minute)
		return nil
	})

	// Wait for interrupt signal or a failed worker
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-gctx.Done():
		}

		log.Info().Msg("shutting down server")

		// Cancel context to stop consumers and the session sweeper
		cancel()

		// Graceful shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
