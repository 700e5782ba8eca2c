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

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/travel-insurance-bot/internal/agent"
	"github.com/kitbuilder587/travel-insurance-bot/internal/config"
	"github.com/kitbuilder587/travel-insurance-bot/internal/httpapi"
	"github.com/kitbuilder587/travel-insurance-bot/internal/insurer"
	"github.com/kitbuilder587/travel-insurance-bot/internal/insurer/ancileo"
	insurerMock "github.com/kitbuilder587/travel-insurance-bot/internal/insurer/mock"
	"github.com/kitbuilder587/travel-insurance-bot/internal/llm"
	llmMock "github.com/kitbuilder587/travel-insurance-bot/internal/llm/mock"
	"github.com/kitbuilder587/travel-insurance-bot/internal/llm/openrouter"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
	"github.com/kitbuilder587/travel-insurance-bot/internal/repository/cached"
	"github.com/kitbuilder587/travel-insurance-bot/internal/repository/postgres"
	"github.com/kitbuilder587/travel-insurance-bot/internal/service"
	"github.com/kitbuilder587/travel-insurance-bot/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .env не обязателен, в проде переменные приходят из окружения
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := db.Migrate(ctx)
	if err != nil {
		return err
	}
	logger.Info("database ready", zap.Int64("schema_version", version))

	m := metrics.New(nil)

	repo := cached.NewProfileRepo(postgres.NewProfileRepo(db), cfg.Cache.TTL, logger, m)
	defer repo.Close()

	engine := service.NewProfileEngine(repo, logger, m)

	llmClient := newLLMClient(cfg, logger)
	coordinator := agent.NewCoordinator(agent.NewAllAgents(llmClient, logger, m), logger).
		WithAgentTimeout(cfg.Timeouts.Agent)

	conversation := service.NewConversationService(service.ConversationDeps{
		Engine:      engine,
		Coordinator: service.NewCoordinatorAdapter(coordinator),
		Needs:       service.NewNeedsAdapter(agent.NewNeedsAgent(llmClient, logger, m)),
		Insurer:     newInsurer(cfg, logger),
		Payments:    insurerMock.NewPaymentGateway(),
		Logger:      logger,
		Metrics:     m,
		Config:      service.ConversationConfig{TurnTimeout: cfg.Timeouts.Turn},
	})

	bot, err := telegram.New(telegram.BotConfig{
		Token:             cfg.Telegram.Token,
		Debug:             cfg.Log.Level == "debug",
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	}, conversation, logger, m)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("telegram bot: %w", err)
		}
		return nil
	})

	if cfg.HTTP.Addr != "" {
		api := httpapi.NewServer(engine, db, httpapi.Config{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute * 10,
		}, logger, m)
		defer api.Close()

		srv := &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      api.Routes(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		g.Go(func() error {
			logger.Info("http api listening", zap.String("addr", cfg.HTTP.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

func newLLMClient(cfg *config.Config, logger *zap.Logger) llm.Client {
	if cfg.LLM.Provider == config.ProviderOpenRouter {
		return openrouter.New(openrouter.Config{
			APIKey:  cfg.LLM.OpenRouter.APIKey,
			Model:   cfg.LLM.OpenRouter.Model,
			BaseURL: cfg.LLM.OpenRouter.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger)
	}
	logger.Warn("using mock LLM, messages will not be understood")
	return llmMock.New()
}

func newInsurer(cfg *config.Config, logger *zap.Logger) insurer.Client {
	if cfg.Insurer.Provider == config.ProviderAncileo {
		return ancileo.New(ancileo.Config{
			APIKey:  cfg.Insurer.Ancileo.APIKey,
			BaseURL: cfg.Insurer.Ancileo.BaseURL,
			Market:  cfg.Insurer.Market,
			Timeout: cfg.Insurer.Ancileo.Timeout,
		}, logger)
	}
	logger.Warn("using mock insurer")
	return insurerMock.New()
}
