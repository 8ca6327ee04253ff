package domain

import "time"

// ShipmentStatus enumerates terminal and in-flight shipment states we
// receive from the operational system.
type ShipmentStatus string

const (
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelayed   ShipmentStatus = "delayed"
	ShipmentCancelled ShipmentStatus = "cancelled"
)

// ShipmentFact is a read-only projection of one shipment, limited to the
// fields the scoring pipeline consumes.
type ShipmentFact struct {
	ShipmentID string         `json:"shipment_id" db:"shipment_id"`
	CustomerID string         `json:"customer_id" db:"customer_id"`
	ShippedAt  time.Time      `json:"shipped_at" db:"shipped_at"`
	Revenue    float64        `json:"revenue" db:"revenue"`
	Cost       float64        `json:"cost" db:"cost"`
	WeightKg   float64        `json:"weight_kg" db:"weight_kg"`
	Status     ShipmentStatus `json:"status" db:"status"`
	ServiceType string        `json:"service_type" db:"service_type"`
	OnTime     bool           `json:"on_time" db:"on_time"`
}

// TransactionFact is a read-only projection of one financial transaction.
type TransactionFact struct {
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	CustomerID    string    `json:"customer_id" db:"customer_id"`
	OccurredAt    time.Time `json:"occurred_at" db:"occurred_at"`
	Amount        float64   `json:"amount" db:"amount"`
	PaidLate      bool      `json:"paid_late" db:"paid_late"`
	DaysLate      int       `json:"days_late" db:"days_late"`
}

// TicketPriority enumerates support ticket priorities.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// TicketFact is a read-only projection of one support ticket, carrying the
// text the sentiment analyzer scores.
type TicketFact struct {
	TicketID       string         `json:"ticket_id" db:"ticket_id"`
	CustomerID     string         `json:"customer_id" db:"customer_id"`
	OpenedAt       time.Time      `json:"opened_at" db:"opened_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty" db:"resolved_at"`
	Priority       TicketPriority `json:"priority" db:"priority"`
	IsComplaint    bool           `json:"is_complaint" db:"is_complaint"`
	Subject        string         `json:"subject" db:"subject"`
	Description    string         `json:"description" db:"description"`
	ChatTranscript string         `json:"chat_transcript,omitempty" db:"chat_transcript"`
	SentimentScore *float64       `json:"sentiment_score,omitempty" db:"sentiment_score"`
}

// CustomerProfile carries the non-windowed attributes the pipeline needs:
// tenure, active flag and credit standing.
type CustomerProfile struct {
	CustomerID        string    `json:"customer_id" db:"customer_id"`
	Name              string    `json:"name" db:"name"`
	Active            bool      `json:"active" db:"active"`
	OnboardedAt       time.Time `json:"onboarded_at" db:"onboarded_at"`
	CreditLimit       float64   `json:"credit_limit" db:"credit_limit"`
	CreditOutstanding float64   `json:"credit_outstanding" db:"credit_outstanding"`
}

// TenureDays returns the customer's age in whole days at the given instant.
func (p CustomerProfile) TenureDays(now time.Time) int {
	if p.OnboardedAt.IsZero() || p.OnboardedAt.After(now) {
		return 0
	}
	return int(now.Sub(p.OnboardedAt).Hours() / 24)
}

// CreditUtilization returns outstanding/limit clamped to [0,1].
// A zero credit limit reads as zero utilization.
func (p CustomerProfile) CreditUtilization() float64 {
	if p.CreditLimit <= 0 {
		return 0
	}
	u := p.CreditOutstanding / p.CreditLimit
	if u < 0 {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}

// ActivityWindow is a time-windowed view of one customer's facts, built
// fresh per computation by the fact aggregator. It is never persisted.
type ActivityWindow struct {
	CustomerID   string            `json:"customer_id"`
	PeriodDays   int               `json:"period_days"`
	WindowEnd    time.Time         `json:"window_end"`
	Profile      CustomerProfile   `json:"profile"`
	Shipments    []ShipmentFact    `json:"shipments"`
	Transactions []TransactionFact `json:"transactions"`
	Tickets      []TicketFact      `json:"support_tickets"`
	PriorChurn   *ChurnScore       `json:"prior_churn,omitempty"`

	// Completeness is the fraction of expected fact categories present,
	// in [0,1]. Zero means a cold start, which every downstream
	// component must treat as valid input.
	Completeness float64 `json:"completeness"`
}

// IsEmpty reports whether the window contains no operational facts at all.
func (w ActivityWindow) IsEmpty() bool {
	return len(w.Shipments) == 0 && len(w.Transactions) == 0 && len(w.Tickets) == 0
}

// TotalRevenue sums shipment revenue plus transaction amounts in the window.
func (w ActivityWindow) TotalRevenue() float64 {
	var total float64
	for _, s := range w.Shipments {
		total += s.Revenue
	}
	for _, t := range w.Transactions {
		total += t.Amount
	}
	return total
}

// LastActivityAt returns the most recent shipment or transaction time,
// or the zero time when the window is empty.
func (w ActivityWindow) LastActivityAt() time.Time {
	var last time.Time
	for _, s := range w.Shipments {
		if s.ShippedAt.After(last) {
			last = s.ShippedAt
		}
	}
	for _, t := range w.Transactions {
		if t.OccurredAt.After(last) {
			last = t.OccurredAt
		}
	}
	return last
}

// DaysSinceLastActivity returns whole days between the last shipment or
// transaction and now. Empty windows report the full period plus one so
// inactivity-driven scores saturate instead of reading as fresh activity.
func (w ActivityWindow) DaysSinceLastActivity(now time.Time) int {
	last := w.LastActivityAt()
	if last.IsZero() {
		return w.PeriodDays + 1
	}
	d := int(now.Sub(last).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
