// Package api exposes the read-side query surface and the on-demand
// pipeline triggers over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/orchestrator"
	"github.com/ignite/customer-intel/internal/pkg/httputil"
	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// SnapshotReader is the read surface the query handlers need.
type SnapshotReader interface {
	Latest(ctx context.Context, customerID string) (*domain.ChurnScore, error)
	LatestSegmentation(ctx context.Context, customerID string) (*domain.SegmentationResult, error)
	LatestValue(ctx context.Context, customerID string) (*domain.ValueMetrics, error)
	LatestSatisfaction(ctx context.Context, customerID string) (*domain.SatisfactionScore, error)
	LatestActivity(ctx context.Context, customerID string) (*domain.ActivityMetrics, error)
	LatestDormancy(ctx context.Context, customerID string) (*domain.DormancyAssessment, error)
	HighRisk(ctx context.Context, minProbability float64, limit int) ([]domain.ChurnScore, error)
	SegmentCounts(ctx context.Context) (map[string]int, error)
	TopByValue(ctx context.Context, limit int) ([]domain.ValueMetrics, error)
	WorkflowEligible(ctx context.Context, limit int) ([]domain.DormancyAssessment, error)
}

// AlertStore is the alert surface the handlers need.
type AlertStore interface {
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	ListOpen(ctx context.Context, customerID string, limit int) ([]domain.Alert, error)
	Update(ctx context.Context, alert *domain.Alert) error
}

// Runner triggers pipeline work on demand.
type Runner interface {
	Run(ctx context.Context) (*orchestrator.RunSummary, error)
	RecomputeCustomer(ctx context.Context, customerID string) (*orchestrator.CustomerReport, error)
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	snapshots SnapshotReader
	alerts    AlertStore
	runner    Runner
}

// NewHandlers creates the handler set.
func NewHandlers(snapshots SnapshotReader, alerts AlertStore, runner Runner) *Handlers {
	return &Handlers{snapshots: snapshots, alerts: alerts, runner: runner}
}

// CustomerDashboard bundles the latest snapshot of every score family
// for one customer.
type CustomerDashboard struct {
	CustomerID   string                     `json:"customer_id"`
	Churn        *domain.ChurnScore         `json:"churn,omitempty"`
	Segmentation *domain.SegmentationResult `json:"segmentation,omitempty"`
	Value        *domain.ValueMetrics       `json:"value,omitempty"`
	Satisfaction *domain.SatisfactionScore  `json:"satisfaction,omitempty"`
	Activity     *domain.ActivityMetrics    `json:"activity,omitempty"`
	Dormancy     *domain.DormancyAssessment `json:"dormancy,omitempty"`
	OpenAlerts   []domain.Alert             `json:"open_alerts,omitempty"`
}

// GetCustomerDashboard returns the latest computed state for a customer.
//
//	GET /api/customers/{customerID}/dashboard
func (h *Handlers) GetCustomerDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		httputil.BadRequest(w, "customer id is required")
		return
	}

	dash := CustomerDashboard{CustomerID: customerID}
	var err error
	if dash.Churn, err = h.snapshots.Latest(ctx, customerID); err != nil {
		h.fail(w, "load churn snapshot", err)
		return
	}
	if dash.Segmentation, err = h.snapshots.LatestSegmentation(ctx, customerID); err != nil {
		h.fail(w, "load segmentation snapshot", err)
		return
	}
	if dash.Value, err = h.snapshots.LatestValue(ctx, customerID); err != nil {
		h.fail(w, "load value snapshot", err)
		return
	}
	if dash.Satisfaction, err = h.snapshots.LatestSatisfaction(ctx, customerID); err != nil {
		h.fail(w, "load satisfaction snapshot", err)
		return
	}
	if dash.Activity, err = h.snapshots.LatestActivity(ctx, customerID); err != nil {
		h.fail(w, "load activity snapshot", err)
		return
	}
	if dash.Dormancy, err = h.snapshots.LatestDormancy(ctx, customerID); err != nil {
		h.fail(w, "load dormancy snapshot", err)
		return
	}
	if dash.OpenAlerts, err = h.alerts.ListOpen(ctx, customerID, 50); err != nil {
		h.fail(w, "load open alerts", err)
		return
	}

	if dash.Churn == nil && dash.Segmentation == nil && dash.Activity == nil {
		httputil.NotFound(w, "customer has no computed scores")
		return
	}
	httputil.OK(w, dash)
}

// GetHighRisk lists the customers with the highest churn probability.
//
//	GET /api/customers/high-risk?min_probability=0.7&limit=50
func (h *Handlers) GetHighRisk(w http.ResponseWriter, r *http.Request) {
	minProb := queryFloat(r, "min_probability", 0.7)
	if minProb < 0 || minProb > 1 {
		httputil.BadRequest(w, "min_probability must be in [0,1]")
		return
	}
	scores, err := h.snapshots.HighRisk(r.Context(), minProb, queryInt(r, "limit", 50))
	if err != nil {
		h.fail(w, "query high risk customers", err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"min_probability": minProb,
		"count":           len(scores),
		"customers":       scores,
	})
}

// GetSegmentDistribution returns customer counts per primary segment.
//
//	GET /api/segments/distribution
func (h *Handlers) GetSegmentDistribution(w http.ResponseWriter, r *http.Request) {
	counts, err := h.snapshots.SegmentCounts(r.Context())
	if err != nil {
		h.fail(w, "query segment distribution", err)
		return
	}
	httputil.OK(w, map[string]interface{}{"segments": counts})
}

// GetTopValue lists the highest lifetime-value customers.
//
//	GET /api/value/top?limit=20
func (h *Handlers) GetTopValue(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.snapshots.TopByValue(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		h.fail(w, "query top value customers", err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"count":     len(metrics),
		"customers": metrics,
	})
}

// GetReactivationQueue lists dormant customers eligible for the
// reactivation workflow.
//
//	GET /api/dormancy/eligible?limit=50
func (h *Handlers) GetReactivationQueue(w http.ResponseWriter, r *http.Request) {
	assessments, err := h.snapshots.WorkflowEligible(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		h.fail(w, "query reactivation queue", err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"count":     len(assessments),
		"customers": assessments,
	})
}

// GetActiveAlerts lists open alerts, optionally for one customer.
//
//	GET /api/alerts/active?customer_id=C-1&limit=100
func (h *Handlers) GetActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.ListOpen(r.Context(), r.URL.Query().Get("customer_id"), queryInt(r, "limit", 100))
	if err != nil {
		h.fail(w, "query active alerts", err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// ResolveAlert moves an alert to resolved.
//
//	POST /api/alerts/{alertID}/resolve
func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	h.transitionAlert(w, r, domain.StatusResolved)
}

// SuppressAlert moves an alert to suppressed.
//
//	POST /api/alerts/{alertID}/suppress
func (h *Handlers) SuppressAlert(w http.ResponseWriter, r *http.Request) {
	h.transitionAlert(w, r, domain.StatusSuppressed)
}

func (h *Handlers) transitionAlert(w http.ResponseWriter, r *http.Request, next domain.AlertStatus) {
	ctx := r.Context()
	alertID := chi.URLParam(r, "alertID")
	alert, err := h.alerts.Get(ctx, alertID)
	if err != nil {
		h.fail(w, "load alert", err)
		return
	}
	if alert == nil {
		httputil.NotFound(w, "alert not found")
		return
	}
	if err := alert.Transition(next, timeNow()); err != nil {
		httputil.Error(w, http.StatusConflict, err.Error())
		return
	}
	if err := h.alerts.Update(ctx, alert); err != nil {
		h.fail(w, "update alert", err)
		return
	}
	httputil.OK(w, alert)
}

// TriggerRun kicks off a full batch pass and waits for it.
//
//	POST /api/monitoring/run
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(r.Context())
	if err != nil {
		h.fail(w, "batch run", err)
		return
	}
	if summary.Skipped {
		httputil.JSON(w, http.StatusConflict, summary)
		return
	}
	httputil.OK(w, summary)
}

// RecomputeCustomer recomputes every score for a single customer.
//
//	POST /api/customers/{customerID}/recompute
func (h *Handlers) RecomputeCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		httputil.BadRequest(w, "customer id is required")
		return
	}
	report, err := h.runner.RecomputeCustomer(r.Context(), customerID)
	if err != nil {
		h.fail(w, "recompute customer", err)
		return
	}
	httputil.OK(w, report)
}

// timeNow is swapped out in tests.
var timeNow = func() time.Time { return time.Now().UTC() }

func (h *Handlers) fail(w http.ResponseWriter, op string, err error) {
	logger.Error("api request failed", "op", op, "error", err.Error())
	httputil.InternalError(w, fmt.Errorf("%s: %w", op, err))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}
