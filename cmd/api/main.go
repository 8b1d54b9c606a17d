package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/AxonC/PrescriptionManagementApi/internal/config"
	"github.com/AxonC/PrescriptionManagementApi/internal/email"
	"github.com/AxonC/PrescriptionManagementApi/internal/handler"
	authHandler "github.com/AxonC/PrescriptionManagementApi/internal/handler/auth"
	bloodworkHandler "github.com/AxonC/PrescriptionManagementApi/internal/handler/bloodwork"
	institutionHandler "github.com/AxonC/PrescriptionManagementApi/internal/handler/institution"
	medicationHandler "github.com/AxonC/PrescriptionManagementApi/internal/handler/medication"
	prescriptionHandler "github.com/AxonC/PrescriptionManagementApi/internal/handler/prescription"
	rbacHandler "github.com/AxonC/PrescriptionManagementApi/internal/handler/rbac"
	"github.com/AxonC/PrescriptionManagementApi/internal/middleware"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository/postgres"
	"github.com/AxonC/PrescriptionManagementApi/internal/router"
	authService "github.com/AxonC/PrescriptionManagementApi/internal/service/auth"
	bloodworkService "github.com/AxonC/PrescriptionManagementApi/internal/service/bloodwork"
	institutionService "github.com/AxonC/PrescriptionManagementApi/internal/service/institution"
	medicationService "github.com/AxonC/PrescriptionManagementApi/internal/service/medication"
	prescriptionService "github.com/AxonC/PrescriptionManagementApi/internal/service/prescription"
	rbacService "github.com/AxonC/PrescriptionManagementApi/internal/service/rbac"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{Level: logger.InfoLevel, TimeFormat: time.RFC3339})
	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	institutionRepo := postgres.NewInstitutionRepository(base)
	rbacRepo := postgres.NewRBACRepository(base)
	medicationRepo := postgres.NewMedicationRepository(base)
	prescriptionRepo := postgres.NewPrescriptionRepository(base)
	bloodworkRepo := postgres.NewBloodworkRepository(base)
	tokenRepo := postgres.NewRegistrationTokenRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	emailService := email.NewService(email.Config{
		Host:        cfg.Email.Host,
		Port:        cfg.Email.Port,
		Username:    cfg.Email.Username,
		Password:    cfg.Email.Password,
		FromAddress: cfg.Email.From,
	})

	auth := authService.NewService(userRepo, tokenRepo, rbacRepo,
		cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryMinutes)*time.Minute, log)
	rbac := rbacService.NewService(rbacRepo, log)
	institutions := institutionService.NewService(institutionRepo, userRepo, tokenRepo,
		emailService, cfg.Signup.BaseURL, log)
	medications := medicationService.NewService(medicationRepo)
	prescriptions := prescriptionService.NewService(prescriptionRepo, bloodworkRepo,
		medicationRepo, institutionRepo, userRepo, outboxRepo, log)
	bloodwork := bloodworkService.NewService(bloodworkRepo, outboxRepo, log)

	authMW := middleware.NewAuthMiddleware(auth, rbac)

	r := router.NewRouter(
		authMW,
		authHandler.NewHandler(auth, rbac),
		institutionHandler.NewHandler(institutions, rbac, authMW),
		rbacHandler.NewHandler(rbac, authMW),
		prescriptionHandler.NewHandler(prescriptions, authMW),
		bloodworkHandler.NewHandler(bloodwork, authMW),
		medicationHandler.NewHandler(medications, authMW),
		handler.NewHandler(),
		&zl,
		router.Config{
			RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst: cfg.RateLimit.Burst,
			CORSConfig:     middleware.CORSConfigFor(cfg.CORS.AllowedOrigins),
			MetricsPrefix:  "prescription_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err, "forced shutdown")
	}

	log.Info("server stopped")
}
