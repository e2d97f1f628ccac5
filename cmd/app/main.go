package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"superwinnings_backend/internal/api"
	"superwinnings_backend/internal/middleware"
	"superwinnings_backend/internal/repository"
	"superwinnings_backend/internal/service"
	"superwinnings_backend/pkg/auth"
	"superwinnings_backend/pkg/logger"
	"superwinnings_backend/pkg/momo"
	"superwinnings_backend/pkg/sms"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.Migrate(context.Background()); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	jwtAuth := auth.NewJWTAuth(cfg.JWT)
	smsClient := sms.NewClient(cfg.SMS)
	collectionClient := momo.NewCollectionClient(cfg.Momo)
	disbursementClient := momo.NewDisbursementClient(cfg.Momo)

	authService := service.NewAuthService(repo, smsClient, jwtAuth)
	quizService := service.NewQuizService(repo)
	paymentService := service.NewPaymentService(repo, collectionClient, disbursementClient, cfg.Payment)
	adminService := service.NewAdminService(repo)

	authz := middleware.NewAuthorization(authService, cfg.OperatorKey)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	a := router.Group("/api/v1")
	api.NewAuthRoutes(a, authService)
	api.NewQuizRoutes(a, quizService, jwtAuth)
	api.NewSubscriptionRoutes(a, paymentService, jwtAuth, authz)
	api.NewAdminRoutes(a, adminService, authz)

	if cfg.Rewards.Schedule != "" {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(cfg.Rewards.Schedule, func() {
			summary, err := paymentService.RewardWinners(context.Background())
			if err != nil {
				zapLogger.Error("nightly reward run failed", zap.Error(err))
				return
			}
			zapLogger.Info("nightly reward run finished",
				zap.String("message", summary.Message),
				zap.Int("winners", len(summary.Results)))
		})
		if err != nil {
			zapLogger.Fatal("Invalid rewards schedule", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
		zapLogger.Info("Reward scheduler started", zap.String("schedule", cfg.Rewards.Schedule))
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
