package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"path/filepath"
	"time"

	"estate_crm/internal/config"
	"estate_crm/internal/entities"
	"estate_crm/internal/infrastructure"
	"estate_crm/internal/interfaces/http"
	"estate_crm/internal/interview"
	"estate_crm/internal/repository"
	"estate_crm/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// loadConfig reads the env file and sets up logging
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, err
	}
	infrastructure.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func connect(ctx context.Context, cfg *config.Config) (*infrastructure.PostgresClient, error) {
	pg, err := infrastructure.NewPostgresClient(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return pg, nil
}

// newEmbedder returns a nil interface when no API key is configured
func newEmbedder(cfg *config.Config) usecases.Embedder {
	e, err := infrastructure.NewEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cfg.EmbeddingDimension)
	if err != nil {
		log.Warn().Err(err).Msg("embeddings disabled, matching falls back to name search")
		return nil
	}
	return e
}

func newScorer(cfg *config.Config) interview.Scorer {
	heuristic := interview.NewHeuristicScorer()
	client, err := infrastructure.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIChatModel)
	if err != nil {
		log.Warn().Err(err).Msg("LLM scoring disabled, using keyword scorer")
		return heuristic
	}
	return interview.FallbackScorer{
		Primary:   infrastructure.NewLLMScorer(client),
		Secondary: heuristic,
		OnError: func(err error) {
			log.Warn().Err(err).Msg("LLM scoring failed, using keyword scorer")
		},
	}
}

func loadScript(cfg *config.Config) (*interview.Script, error) {
	if cfg.InterviewScriptPath == "" {
		return interview.DefaultScript()
	}
	return interview.LoadScript(cfg.InterviewScriptPath)
}

func migrateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pg, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pg.Close()
	log.Info().Msg("database schema is up to date")
	return nil
}

func embedAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	embedder := newEmbedder(cfg)
	if embedder == nil {
		return errors.New("OPENAI_API_KEY is required to compute embeddings")
	}
	pg, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pg.Close()

	matching := usecases.NewMatchingService(
		repository.NewAreaRepository(pg.Pool),
		repository.NewUnitTypeRepository(pg.Pool),
		repository.NewEmbeddingRepository(pg.Pool),
		embedder,
		cfg.MatchMinSimilarity,
	)
	areas, unitTypes, err := matching.IndexAll(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("areas", areas).Int("unit_types", unitTypes).Msg("embeddings refreshed")
	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.TracingEnabled {
		shutdown, err := infrastructure.InitTracing(cfg.JaegerEndpoint)
		if err != nil {
			log.Warn().Err(err).Msg("tracing disabled")
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					log.Warn().Err(err).Msg("failed to flush traces")
				}
			}()
		}
	}

	pg, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pg.Close()

	// Repositories
	userRepo := repository.NewUserRepository(pg.Pool)
	areaRepo := repository.NewAreaRepository(pg.Pool)
	unitTypeRepo := repository.NewUnitTypeRepository(pg.Pool)
	unitRepo := repository.NewUnitRepository(pg.Pool)
	customerRepo := repository.NewCustomerRepository(pg.Pool)
	requestRepo := repository.NewRequestRepository(pg.Pool)
	appRepo := repository.NewApplicationRepository(pg.Pool)
	interviewRepo := repository.NewInterviewRepository(pg.Pool)
	sessionRepo := repository.NewCustomerSessionRepository(pg.Pool)
	embeddingRepo := repository.NewEmbeddingRepository(pg.Pool)
	configRepo := repository.NewConfigRepository(pg.Pool)
	dashboardRepo := repository.NewDashboardRepository(pg.Pool)

	notifier := infrastructure.NewTelegramNotifier(cfg.TelegramBotToken, cfg.PublicBaseURL)

	// Usecases
	authUsecase := usecases.NewAuthUsecase(userRepo, areaRepo, cfg.JWTSecret, cfg.JWTTTL)
	if cfg.SupervisorPassword != "" {
		if err := authUsecase.EnsureSupervisor(ctx, cfg.SupervisorEmail, cfg.SupervisorPassword); err != nil {
			log.Warn().Err(err).Msg("failed to ensure supervisor account")
		}
	}

	script, err := loadScript(cfg)
	if err != nil {
		return fmt.Errorf("failed to load interview script: %w", err)
	}
	machine := interview.NewMachine(script, cfg.InterviewPassScore)
	interviewUsecase := usecases.NewInterviewUsecase(machine, newScorer(cfg), interviewRepo, appRepo, userRepo, notifier)

	matching := usecases.NewMatchingService(areaRepo, unitTypeRepo, embeddingRepo, newEmbedder(cfg), cfg.MatchMinSimilarity)
	pool := usecases.NewEmbeddingPool(matching, cfg.EmbeddingWorkers, cfg.EmbeddingQueueSize)
	pool.Start()
	defer pool.Stop()

	catalogUsecase := usecases.NewCatalogUsecase(areaRepo, unitTypeRepo, unitRepo, pool)
	requestUsecase := usecases.NewRequestUsecase(requestRepo, customerRepo, userRepo, areaRepo, unitTypeRepo, notifier)
	dashboardUsecase := usecases.NewDashboardUsecase(userRepo, appRepo, dashboardRepo, embeddingRepo, configRepo, notifier)

	limiter := infrastructure.NewMessageRateLimiter(cfg.IntakeRate, cfg.IntakeBurst)
	go limiter.Run(ctx)
	messageService := usecases.NewMessageService(sessionRepo, customerRepo, requestUsecase, matching, configRepo, pool, limiter)
	messageService.RegisterMessenger(infrastructure.WebMessenger{})

	services := http.Services{
		Auth:      authUsecase,
		Catalog:   catalogUsecase,
		Requests:  requestUsecase,
		Dashboard: dashboardUsecase,
		Interview: interviewUsecase,
		Messages:  messageService,
		Matching:  matching,
	}

	// WhatsApp intake line
	if cfg.WhatsAppEnabled {
		wa, err := startWhatsApp(ctx, cfg, messageService)
		if err != nil {
			log.Error().Err(err).Msg("whatsapp disabled")
		} else {
			defer wa.Disconnect()
			services.WhatsApp = wa
		}
	}

	// HTTP server
	middleware := http.NewMiddleware(authUsecase, authUsecase)
	go middleware.CleanupLimiters(ctx, 10*time.Minute)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	http.SetupRoutes(r, http.NewHandler(services), middleware)

	srv := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown")
	}
	return nil
}

// startWhatsApp links the intake device and feeds its messages to the chatbot
func startWhatsApp(ctx context.Context, cfg *config.Config, messages *usecases.MessageService) (*infrastructure.WhatsAppClient, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.WhatsAppDBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create whatsapp store dir: %w", err)
	}
	wa, err := infrastructure.NewWhatsAppClient(ctx, cfg.WhatsAppDBPath)
	if err != nil {
		return nil, err
	}
	messages.RegisterMessenger(wa)
	wa.OnMessage(func(ctx context.Context, phone, name, text string) {
		_, err := messages.ProcessMessage(ctx, entities.Message{
			From:     phone,
			Name:     name,
			Content:  text,
			Platform: entities.SourceWhatsApp,
		})
		if err != nil {
			log.Warn().Err(err).Str("phone", phone).Msg("whatsapp message not processed")
		}
	})
	if err := wa.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect whatsapp: %w", err)
	}
	return wa, nil
}
