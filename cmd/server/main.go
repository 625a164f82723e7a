package main

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pipelineiq-backend/internal/config"
	"pipelineiq-backend/internal/db"
	"pipelineiq-backend/internal/handler"
	"pipelineiq-backend/internal/repository"
	"pipelineiq-backend/internal/server"
	"pipelineiq-backend/internal/service"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Firebase Auth (optional)
	var firebaseAuth *auth.Client
	if cfg.FirebaseProjectID != "" {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, firebaseOptions(cfg)...)
		if err != nil {
			logger.Error("failed to init firebase app", "err", err)
			os.Exit(1)
		}
		client, err := app.Auth(ctx)
		if err != nil {
			logger.Error("failed to init firebase auth", "err", err)
			os.Exit(1)
		}
		firebaseAuth = client
	}

	// repositories
	userRepo := repository.UserRepository{DB: pg}
	teamRepo := repository.TeamRepository{DB: pg}
	dealRepo := repository.DealRepository{DB: pg}
	statusRepo := repository.StatusRepository{DB: pg}
	leadSourceRepo := repository.LeadSourceRepository{DB: pg}
	taskRepo := repository.TaskRepository{DB: pg}
	settingsRepo := repository.SettingsRepository{DB: pg}
	analyticsRepo := repository.AnalyticsRepository{DB: pg}

	if err := statusRepo.SeedDefaults(ctx); err != nil {
		logger.Error("failed to seed pipeline statuses", "err", err)
		os.Exit(1)
	}
	if err := leadSourceRepo.SeedDefaults(ctx); err != nil {
		logger.Error("failed to seed lead sources", "err", err)
		os.Exit(1)
	}

	// services
	authSvc := service.AuthService{Config: cfg, Users: userRepo, Logger: logger, FirebaseAuth: firebaseAuth}
	accessSvc := service.AccessService{Members: userRepo, Logger: logger}
	dealSvc := service.DealService{Deals: dealRepo, Statuses: statusRepo}

	var generator service.TextGenerator
	if cfg.GenAIAPIKey != "" {
		gen, err := service.NewGenAIGenerator(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			logger.Error("failed to init genai client", "err", err)
			os.Exit(1)
		}
		generator = gen
	} else {
		logger.Warn("GENAI_API_KEY not set, assistant disabled")
		generator = disabledGenerator{}
	}
	assistantSvc := service.NewAssistantService(generator, dealRepo, taskRepo, logger)

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	authHandler := handler.AuthHandler{Service: &authSvc}
	dealHandler := handler.DealHandler{Deals: dealRepo, Service: dealSvc, Access: accessSvc}
	exportHandler := handler.ExportHandler{Deals: dealRepo, Access: accessSvc}
	statusHandler := handler.StatusHandler{Statuses: statusRepo, Deals: dealRepo}
	leadSourceHandler := handler.LeadSourceHandler{Sources: leadSourceRepo}
	taskHandler := handler.TaskHandler{Tasks: taskRepo, Access: accessSvc}
	analyticsHandler := handler.AnalyticsHandler{
		Deals:    dealRepo,
		Stats:    analyticsRepo,
		Statuses: statusRepo,
		Settings: settingsRepo,
		Access:   accessSvc,
	}
	assistantHandler := handler.AssistantHandler{Assistant: assistantSvc, Access: accessSvc}
	memberHandler := handler.MemberHandler{Users: userRepo, Teams: teamRepo}
	settingsHandler := handler.SettingsHandler{Settings: settingsRepo}

	router := server.NewRouter(cfg, logger,
		healthHandler, authHandler, dealHandler, exportHandler,
		statusHandler, leadSourceHandler, taskHandler, analyticsHandler,
		assistantHandler, memberHandler, settingsHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

type disabledGenerator struct{}

func (disabledGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	return "", service.ErrAssistantDisabled
}

func firebaseOptions(cfg config.Config) []option.ClientOption {
	if cfg.FirebaseCredFile == "" {
		return nil
	}

	cred := cfg.FirebaseCredFile
	// Allow inline JSON or base64-encoded JSON in env to avoid writing a file.
	if strings.HasPrefix(strings.TrimSpace(cred), "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cred))}
	}
	if decoded, err := base64.StdEncoding.DecodeString(cred); err == nil && strings.HasPrefix(strings.TrimSpace(string(decoded)), "{") {
		return []option.ClientOption{option.WithCredentialsJSON(decoded)}
	}

	return []option.ClientOption{option.WithCredentialsFile(cred)}
}
