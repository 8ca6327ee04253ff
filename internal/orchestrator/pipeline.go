// Package orchestrator runs the scoring pipeline: it fans the active
// customer population out to a bounded worker pool, executes every
// analyzer per customer in dependency order, persists the snapshots and
// feeds the results to the alert engine.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/customer-intel/internal/activity"
	"github.com/ignite/customer-intel/internal/alerting"
	"github.com/ignite/customer-intel/internal/churn"
	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/dormancy"
	"github.com/ignite/customer-intel/internal/facts"
	"github.com/ignite/customer-intel/internal/pkg/distlock"
	"github.com/ignite/customer-intel/internal/pkg/logger"
	"github.com/ignite/customer-intel/internal/satisfaction"
	"github.com/ignite/customer-intel/internal/segmentation"
	"github.com/ignite/customer-intel/internal/sentiment"
	"github.com/ignite/customer-intel/internal/value"
)

// SnapshotStore is the persistence surface the pipeline writes to.
type SnapshotStore interface {
	SaveChurn(ctx context.Context, s *domain.ChurnScore) error
	SaveSegmentation(ctx context.Context, s *domain.SegmentationResult) error
	SaveValue(ctx context.Context, v *domain.ValueMetrics) error
	SaveSentiment(ctx context.Context, s *domain.SentimentRecord) error
	SaveSatisfaction(ctx context.Context, s *domain.SatisfactionScore) error
	SaveActivity(ctx context.Context, m *domain.ActivityMetrics) error
	SaveDormancy(ctx context.Context, d *domain.DormancyAssessment) error
}

// LockFactory builds the batch lock that keeps concurrent pipeline runs
// from doubling up on the same population.
type LockFactory func(key string, ttl time.Duration) distlock.DistLock

// CustomerReport bundles everything one pipeline pass computed for a
// single customer.
type CustomerReport struct {
	CustomerID   string                     `json:"customer_id"`
	Window       *domain.ActivityWindow     `json:"-"`
	Churn        *domain.ChurnScore         `json:"churn"`
	Segmentation *domain.SegmentationResult `json:"segmentation"`
	Value        *domain.ValueMetrics       `json:"value"`
	Sentiments   []domain.SentimentRecord   `json:"sentiments,omitempty"`
	Satisfaction *domain.SatisfactionScore  `json:"satisfaction"`
	Activity     *domain.ActivityMetrics    `json:"activity"`
	Dormancy     *domain.DormancyAssessment `json:"dormancy"`
	Alerts       []domain.Alert             `json:"alerts,omitempty"`
}

// RunSummary reports one batch pass.
type RunSummary struct {
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
	CustomersTotal    int           `json:"customers_total"`
	Processed         int64         `json:"processed"`
	AlertsRaised      int64         `json:"alerts_raised"`
	NotificationsSent int64         `json:"notifications_sent"`
	Errors            []string      `json:"errors,omitempty"`
	Skipped           bool          `json:"skipped"`
}

// Pipeline wires the analyzers together.
type Pipeline struct {
	cfg          config.MonitoringConfig
	aggregator   *facts.Aggregator
	profiles     facts.ProfileRepository
	churn        *churn.Predictor
	segmentation *segmentation.Engine
	value        *value.Analyzer
	sentiment    *sentiment.Analyzer
	satisfaction *satisfaction.Scorer
	activity     *activity.Monitor
	dormancy     *dormancy.Detector
	alerts       *alerting.Engine
	store        SnapshotStore
	locks        LockFactory
}

// Deps carries the pipeline's collaborators; every field is required
// except Locks, which disables batch locking when nil.
type Deps struct {
	Aggregator   *facts.Aggregator
	Profiles     facts.ProfileRepository
	Churn        *churn.Predictor
	Segmentation *segmentation.Engine
	Value        *value.Analyzer
	Sentiment    *sentiment.Analyzer
	Satisfaction *satisfaction.Scorer
	Activity     *activity.Monitor
	Dormancy     *dormancy.Detector
	Alerts       *alerting.Engine
	Store        SnapshotStore
	Locks        LockFactory
}

// NewPipeline creates the batch pipeline.
func NewPipeline(cfg config.MonitoringConfig, d Deps) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		aggregator:   d.Aggregator,
		profiles:     d.Profiles,
		churn:        d.Churn,
		segmentation: d.Segmentation,
		value:        d.Value,
		sentiment:    d.Sentiment,
		satisfaction: d.Satisfaction,
		activity:     d.Activity,
		dormancy:     d.Dormancy,
		alerts:       d.Alerts,
		store:        d.Store,
		locks:        d.Locks,
	}
}

const batchLockKey = "intel:batch"

// Run executes one full pass over the active customer population. Only
// one run proceeds at a time across instances; a second caller gets a
// summary with Skipped set.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	start := p.aggregator.Clock().Now()
	summary := &RunSummary{StartedAt: start}

	if p.locks != nil {
		lock := p.locks(batchLockKey, time.Duration(p.cfg.BatchLockTTLMinutes)*time.Minute)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire batch lock: %w", err)
		}
		if !ok {
			logger.Info("batch run skipped, another instance holds the lock")
			summary.Skipped = true
			return summary, nil
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logger.Warn("release batch lock", "error", err.Error())
			}
		}()
	}

	ids, err := p.profiles.ListActiveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active customers: %w", err)
	}
	summary.CustomersTotal = len(ids)
	logger.Info("batch run starting", "customers", len(ids), "concurrency", p.cfg.Concurrency)

	var (
		processed     int64
		alertsRaised  int64
		notifications int64
		mu            sync.Mutex
		runErrors     []string
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	workers := p.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				report, err := p.processOne(ctx, id)
				if err != nil {
					mu.Lock()
					runErrors = append(runErrors, fmt.Sprintf("%s: %v", id, err))
					mu.Unlock()
					logger.Error("customer processing failed", "customer_id", id, "error", err.Error())
					continue
				}
				atomic.AddInt64(&processed, 1)
				atomic.AddInt64(&alertsRaised, int64(len(report.Alerts)))
				atomic.AddInt64(&notifications, int64(report.notificationsSent))
			}
		}()
	}

feed:
	for _, id := range ids {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		runErrors = append(runErrors, fmt.Sprintf("run interrupted: %v", err))
	}

	summary.Processed = processed
	summary.AlertsRaised = alertsRaised
	summary.NotificationsSent = notifications
	summary.Errors = runErrors
	summary.Duration = p.aggregator.Clock().Now().Sub(start)
	logger.Info("batch run finished",
		"processed", processed,
		"alerts", alertsRaised,
		"notifications", notifications,
		"errors", len(runErrors),
		"duration", summary.Duration.String())
	return summary, nil
}

// RecomputeCustomer runs the full pipeline for a single customer on
// demand, bypassing the batch lock.
func (p *Pipeline) RecomputeCustomer(ctx context.Context, customerID string) (*CustomerReport, error) {
	report, err := p.processOne(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &report.CustomerReport, nil
}

type customerResult struct {
	CustomerReport
	notificationsSent int
}

// processOne executes the analyzer chain for one customer. A panic in
// any analyzer is contained to that customer and surfaces as an error.
func (p *Pipeline) processOne(ctx context.Context, customerID string) (result *customerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic processing customer %s: %v", customerID, r)
		}
	}()

	window, err := p.aggregator.Aggregate(ctx, customerID, p.cfg.WindowDays)
	if err != nil {
		return nil, fmt.Errorf("aggregate facts: %w", err)
	}

	churnScore := p.churn.Predict(window)
	if err := p.store.SaveChurn(ctx, churnScore); err != nil {
		return nil, err
	}

	seg := p.segmentation.Compute(window, churnScore)
	if err := p.store.SaveSegmentation(ctx, seg); err != nil {
		return nil, err
	}

	// Value looks further back than the behavioral window so lifetime
	// figures are not dominated by one quarter.
	valueWindow := window
	if p.cfg.ValueWindowDays > p.cfg.WindowDays {
		valueWindow, err = p.aggregator.Aggregate(ctx, customerID, p.cfg.ValueWindowDays)
		if err != nil {
			return nil, fmt.Errorf("aggregate value window: %w", err)
		}
	}
	valueMetrics := p.value.Analyze(valueWindow, churnScore)
	if err := p.store.SaveValue(ctx, valueMetrics); err != nil {
		return nil, err
	}

	var sentiments []domain.SentimentRecord
	for _, ticket := range window.Tickets {
		rec := p.sentiment.Analyze(ctx, ticket)
		if err := p.store.SaveSentiment(ctx, rec); err != nil {
			return nil, err
		}
		sentiments = append(sentiments, *rec)
	}

	sat := p.satisfaction.Score(window, sentiments)
	if err := p.store.SaveSatisfaction(ctx, sat); err != nil {
		return nil, err
	}

	act := p.activity.Compute(window)
	if err := p.store.SaveActivity(ctx, act); err != nil {
		return nil, err
	}

	dorm := p.dormancy.Assess(window, act, churnScore)
	if err := p.store.SaveDormancy(ctx, dorm); err != nil {
		return nil, err
	}

	alerts, sent, err := p.alerts.Process(ctx, alerting.Signals{
		Window:       window,
		Churn:        churnScore,
		Segmentation: seg,
		Activity:     act,
		Dormancy:     dorm,
		Sentiments:   sentiments,
	})
	if err != nil {
		return nil, fmt.Errorf("alert processing: %w", err)
	}

	return &customerResult{
		CustomerReport: CustomerReport{
			CustomerID:   customerID,
			Window:       window,
			Churn:        churnScore,
			Segmentation: seg,
			Value:        valueMetrics,
			Sentiments:   sentiments,
			Satisfaction: sat,
			Activity:     act,
			Dormancy:     dorm,
			Alerts:       alerts,
		},
		notificationsSent: sent,
	}, nil
}
