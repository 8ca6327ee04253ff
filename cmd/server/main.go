package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/customer-intel/internal/activity"
	"github.com/ignite/customer-intel/internal/alerting"
	"github.com/ignite/customer-intel/internal/api"
	"github.com/ignite/customer-intel/internal/churn"
	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/dormancy"
	"github.com/ignite/customer-intel/internal/facts"
	"github.com/ignite/customer-intel/internal/orchestrator"
	"github.com/ignite/customer-intel/internal/pkg/distlock"
	"github.com/ignite/customer-intel/internal/repository/postgres"
	"github.com/ignite/customer-intel/internal/satisfaction"
	"github.com/ignite/customer-intel/internal/segmentation"
	"github.com/ignite/customer-intel/internal/sentiment"
	"github.com/ignite/customer-intel/internal/value"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis unreachable, falling back to Postgres advisory locks: %v", err)
			redisClient = nil
		}
	}

	pipeline, snapshots, alertRepo := buildPipeline(cfg, db, redisClient)

	handlers := api.NewHandlers(snapshots, alertRepo, pipeline)
	health := api.NewHealthChecker(db, redisClient)
	router := api.SetupRoutes(handlers, health, cfg.Server.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.Printf("API server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

func openDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// buildPipeline wires the analyzer chain against Postgres and Redis.
func buildPipeline(cfg *config.Config, db *sql.DB, redisClient *redis.Client) (*orchestrator.Pipeline, *postgres.SnapshotRepo, *postgres.AlertRepo) {
	clock := facts.SystemClock{}

	factRepo := postgres.NewFactRepo(db)
	profiles := postgres.NewProfileRepo(db)
	snapshots := postgres.NewSnapshotRepo(db)
	alertRepo := postgres.NewAlertRepo(db)

	aggregator := facts.NewAggregator(factRepo.Shipments(), factRepo.Transactions(),
		factRepo.Tickets(), profiles, snapshots, clock)

	var classifier sentiment.Classifier
	if cfg.Classifier.Enabled && cfg.Classifier.BaseURL != "" {
		classifier = sentiment.NewHTTPClassifier(cfg.Classifier)
	}

	locks := func(key string, ttl time.Duration) distlock.DistLock {
		return distlock.NewLock(redisClient, db, key, ttl)
	}

	notifiers := alerting.BuildNotifiers(context.Background(), cfg.Notifications)
	alertEngine := alerting.NewEngine(cfg.Alerts, alertRepo, notifiers, alerting.LockFactory(locks), clock)

	pipeline := orchestrator.NewPipeline(cfg.Monitoring, orchestrator.Deps{
		Aggregator:   aggregator,
		Profiles:     profiles,
		Churn:        churn.NewPredictor(cfg.ChurnModel, clock),
		Segmentation: segmentation.NewEngine(cfg.Scoring.Segmentation, clock),
		Value:        value.NewAnalyzer(cfg.Scoring.Value, clock),
		Sentiment:    sentiment.NewAnalyzer(classifier, cfg.Classifier, clock),
		Satisfaction: satisfaction.NewScorer(cfg.Scoring.Satisfaction, clock),
		Activity:     activity.NewMonitor(cfg.Scoring.Activity, clock),
		Dormancy:     dormancy.NewDetector(cfg.Scoring.Dormancy, cfg.Campaigns, cfg.Alerts.ReactivationThreshold, clock),
		Alerts:       alertEngine,
		Store:        snapshots,
		Locks:        orchestrator.LockFactory(locks),
	})
	return pipeline, snapshots, alertRepo
}
