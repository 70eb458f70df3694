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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Pokatocz/quest-and-check/docs"
	"github.com/Pokatocz/quest-and-check/internal/config"
	"github.com/Pokatocz/quest-and-check/internal/database"
	"github.com/Pokatocz/quest-and-check/internal/handlers"
	"github.com/Pokatocz/quest-and-check/internal/logging"
	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/realtime"
	"github.com/Pokatocz/quest-and-check/internal/repository"
	"github.com/Pokatocz/quest-and-check/internal/scheduler"
	"github.com/Pokatocz/quest-and-check/internal/services"
	"github.com/Pokatocz/quest-and-check/internal/storage"
)

const (
	hubWorkers      = 64
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(cfg.Log, cfg.Environment)
	defer logging.Flush()

	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub, err := realtime.NewHub(hubWorkers)
	if err != nil {
		return err
	}
	defer hub.Close()

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		bridge := realtime.NewRedisBridge(client, cfg.Redis.Channel, hub)
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("failed to start redis bridge: %w", err)
		}
	}

	store := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.BaseURL, cfg.Storage.SigningSecret)

	profileRepo := repository.NewProfileRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	exportKey := cfg.ExportSigningKey
	if exportKey == "" {
		exportKey = cfg.JWT.Secret
	}

	roles := services.NewRoleResolver(teamRepo, memberRepo, profileRepo)
	tokenService := services.NewTokenService(tokenRepo, profileRepo, cfg.JWT.Secret)
	authService := services.NewAuthService(profileRepo, tokenService, cfg.JWT.TokenTTL)
	teamService := services.NewTeamService(teamRepo, memberRepo, profileRepo, roles, hub)
	taskService := services.NewTaskService(taskRepo, roles, store, hub, services.EvidencePolicy{
		MinPhotos:    cfg.Evidence.MinPhotos,
		MaxPhotos:    cfg.Evidence.MaxPhotos,
		MaxPhotoSize: cfg.Evidence.MaxPhotoSize,
	})
	leaderboardService := services.NewLeaderboardService(taskRepo, profileRepo, roles)
	exportService := services.NewExportService(taskRepo, leaderboardService, roles, exportKey)
	messageService := services.NewMessageService(messageRepo, profileRepo, roles, store, hub)

	jobs, err := scheduler.NewManager(taskService, tokenService, cfg.ReservationTTL)
	if err != nil {
		return err
	}
	if err := jobs.RegisterJobs(); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	authMiddleware := middleware.NewAuthMiddleware(tokenService, cfg.TestMode)
	routes := &handlers.Routes{
		Auth:        handlers.NewAuthHandler(authService, taskService),
		Tokens:      handlers.NewTokenHandler(tokenService),
		Teams:       handlers.NewTeamHandler(teamService),
		Tasks:       handlers.NewTaskHandler(taskService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		Export:      handlers.NewExportHandler(exportService),
		Messages:    handlers.NewMessageHandler(messageService, cfg.Evidence.MaxPhotoSize),
		Events:      handlers.NewEventsHandler(hub, teamService, leaderboardService),
		Storage:     handlers.NewStorageHandler(store),
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", middleware.TestUserHeader)

	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(), cors.New(corsConfig))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.PersistAuthorization(true)))
	routes.Register(router.Group("/api/v1"), authMiddleware.RequireAuth())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	srv.RegisterOnShutdown(routes.Events.Close)

	serveErr := make(chan error, 1)
	go func() {
		logging.Logger.WithField("addr", srv.Addr).Info("starting quest-and-check server")
		if cfg.TestMode {
			logging.Logger.Warn("TEST MODE ENABLED - X-Test-User-ID header bypasses authentication")
		}
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
