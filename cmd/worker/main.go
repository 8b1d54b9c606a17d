package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/AxonC/PrescriptionManagementApi/internal/config"
	"github.com/AxonC/PrescriptionManagementApi/internal/email"
	"github.com/AxonC/PrescriptionManagementApi/internal/repository/postgres"
	"github.com/AxonC/PrescriptionManagementApi/internal/service/notification"
	"github.com/AxonC/PrescriptionManagementApi/pkg/logger"
	"github.com/AxonC/PrescriptionManagementApi/pkg/messaging/redis"
	"github.com/AxonC/PrescriptionManagementApi/pkg/metrics"
	"github.com/AxonC/PrescriptionManagementApi/pkg/worker"
)

// workerConfig is loaded from the environment; the worker runs headless in
// containers where a config file is inconvenient.
type workerConfig struct {
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseUser     string `envconfig:"DATABASE_USER" required:"true"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseName     string `envconfig:"DATABASE_NAME" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	EmailHost     string `envconfig:"EMAIL_HOST" required:"true"`
	EmailPort     int    `envconfig:"EMAIL_PORT" default:"587"`
	EmailUsername string `envconfig:"EMAIL_USERNAME"`
	EmailPassword string `envconfig:"EMAIL_PASSWORD"`
	EmailFrom     string `envconfig:"EMAIL_FROM" required:"true"`

	OutboxBatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxRetryAttempts int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	OutboxRetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"5s"`

	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"24h"`

	TokenRetention       time.Duration `envconfig:"TOKEN_RETENTION" default:"168h"`
	TokenCleanupInterval time.Duration `envconfig:"TOKEN_CLEANUP_INTERVAL" default:"1h"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":8081"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{Level: logger.InfoLevel, TimeFormat: time.RFC3339})

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Name:     cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()
	broker, err := redis.NewBroker(redis.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &zl)
	if err != nil {
		log.Fatal(err, "failed to create redis broker")
	}
	defer broker.Close()

	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)
	prescriptionRepo := postgres.NewPrescriptionRepository(base)
	tokenRepo := postgres.NewRegistrationTokenRepository(base)

	workerMetrics := metrics.NewMetrics("prescription_api", "worker")

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.OutboxBatchSize,
		PollInterval:  cfg.OutboxPollInterval,
		RetryAttempts: cfg.OutboxRetryAttempts,
		RetryDelay:    cfg.OutboxRetryDelay,
	}, log, workerMetrics)

	emailService := email.NewService(email.Config{
		Host:        cfg.EmailHost,
		Port:        cfg.EmailPort,
		Username:    cfg.EmailUsername,
		Password:    cfg.EmailPassword,
		FromAddress: cfg.EmailFrom,
	})
	notifications := notification.NewService(prescriptionRepo, emailService, workerMetrics, log)
	reminders := worker.NewReminderJob(notifications, cfg.ReminderInterval, log)
	tokenCleanup := worker.NewTokenCleanupJob(tokenRepo, cfg.TokenRetention, cfg.TokenCleanupInterval, log)

	serveMetrics(cfg.MetricsAddr, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	go reminders.Start(ctx)
	go tokenCleanup.Start(ctx)
	processor.Start(ctx)
}

// serveMetrics exposes liveness, readiness and prometheus metrics.
func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatal(err, "metrics server failed")
		}
	}()
}
