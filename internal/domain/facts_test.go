package domain

import (
	"testing"
	"time"
)

var windowEnd = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestActivityWindowIsEmpty(t *testing.T) {
	w := ActivityWindow{CustomerID: "C-1", PeriodDays: 90}
	if !w.IsEmpty() {
		t.Error("window with no facts should be empty")
	}

	w.Tickets = []TicketFact{{TicketID: "T-1"}}
	if w.IsEmpty() {
		t.Error("a ticket alone makes the window non-empty")
	}
}

func TestTotalRevenue(t *testing.T) {
	w := ActivityWindow{
		Shipments:    []ShipmentFact{{Revenue: 1200}, {Revenue: 800}},
		Transactions: []TransactionFact{{Amount: 500}},
	}
	if got := w.TotalRevenue(); got != 2500 {
		t.Errorf("TotalRevenue = %v, want 2500", got)
	}
}

func TestDaysSinceLastActivity(t *testing.T) {
	w := ActivityWindow{
		PeriodDays: 90,
		Shipments: []ShipmentFact{
			{ShippedAt: windowEnd.AddDate(0, 0, -30)},
			{ShippedAt: windowEnd.AddDate(0, 0, -10)},
		},
		Transactions: []TransactionFact{
			{OccurredAt: windowEnd.AddDate(0, 0, -20)},
		},
	}

	if got := w.DaysSinceLastActivity(windowEnd); got != 10 {
		t.Errorf("DaysSinceLastActivity = %d, want 10", got)
	}

	// Empty windows saturate past the period instead of reading fresh.
	empty := ActivityWindow{PeriodDays: 90}
	if got := empty.DaysSinceLastActivity(windowEnd); got != 91 {
		t.Errorf("empty DaysSinceLastActivity = %d, want 91", got)
	}

	// Clock skew never reports negative days.
	future := ActivityWindow{
		PeriodDays: 90,
		Shipments:  []ShipmentFact{{ShippedAt: windowEnd.Add(time.Hour)}},
	}
	if got := future.DaysSinceLastActivity(windowEnd); got != 0 {
		t.Errorf("future DaysSinceLastActivity = %d, want 0", got)
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRound4(t *testing.T) {
	if got := Round4(0.123456); got != 0.1235 {
		t.Errorf("Round4(0.123456) = %v, want 0.1235", got)
	}
	if got := Round4(0.1); got != 0.1 {
		t.Errorf("Round4(0.1) = %v, want 0.1", got)
	}
}
