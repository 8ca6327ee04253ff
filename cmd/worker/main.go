// The worker runs the scoring pipeline on a fixed interval. It shares
// the wiring with cmd/server but carries no HTTP surface; deploy one
// worker per environment and as many API servers as needed.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/customer-intel/internal/activity"
	"github.com/ignite/customer-intel/internal/alerting"
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
		log.Fatalf("[worker] Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("[worker] Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatalf("[worker] Database unreachable: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("[worker] Warning: Redis unreachable, using Postgres advisory locks: %v", err)
			redisClient = nil
		}
	}

	pipeline := buildPipeline(cfg, db, redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("[worker] Shutdown signal received")
		cancel()
	}()

	interval := cfg.Monitoring.Interval()
	log.Printf("[worker] Starting, interval=%s concurrency=%d window=%dd",
		interval, cfg.Monitoring.Concurrency, cfg.Monitoring.WindowDays)

	// Run immediately on start, then on the ticker.
	runOnce(ctx, pipeline)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("[worker] Stopped")
			return
		case <-ticker.C:
			runOnce(ctx, pipeline)
		}
	}
}

func runOnce(ctx context.Context, pipeline *orchestrator.Pipeline) {
	summary, err := pipeline.Run(ctx)
	if err != nil {
		log.Printf("[worker] Run failed: %v", err)
		return
	}
	if summary.Skipped {
		return
	}
	log.Printf("[worker] Run complete: %d/%d customers, %d alerts, %d notifications, %d errors in %s",
		summary.Processed, summary.CustomersTotal, summary.AlertsRaised,
		summary.NotificationsSent, len(summary.Errors), summary.Duration)
}

func buildPipeline(cfg *config.Config, db *sql.DB, redisClient *redis.Client) *orchestrator.Pipeline {
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

	return orchestrator.NewPipeline(cfg.Monitoring, orchestrator.Deps{
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
}
