package segmentation

import "github.com/ignite/customer-intel/internal/domain"

// Bucketing thresholds are ordered rule tables so they can be unit-tested
// independently of the resolution logic.

type scoreBucket struct {
	Min   float64
	Score int
}

// recencyBuckets map days since last activity to an RFM recency score.
// First match wins, ordered freshest first.
var recencyBuckets = []struct {
	MaxDays int
	Score   int
}{
	{30, 5},
	{60, 4},
	{120, 3},
	{180, 2},
}

// frequencyBuckets map shipment+transaction counts to an RFM score.
var frequencyBuckets = []scoreBucket{
	{50, 5},
	{20, 4},
	{10, 3},
	{5, 2},
}

// monetaryBuckets map summed window revenue to an RFM score.
var monetaryBuckets = []scoreBucket{
	{50000, 5},
	{20000, 4},
	{10000, 3},
	{5000, 2},
}

// volumeTiers map monthly shipment rate to a volume tier.
var volumeTiers = []struct {
	MinMonthly float64
	Tier       domain.VolumeTier
}{
	{200, domain.VolumeEnterprise},
	{50, domain.VolumeHigh},
	{10, domain.VolumeMedium},
}

// profitabilityTiers map profit margin to a profitability tier.
var profitabilityTiers = []struct {
	MinMargin float64
	Tier      domain.ProfitabilityTier
}{
	{0.25, domain.ProfitPremium},
	{0.15, domain.ProfitHigh},
	{0.08, domain.ProfitMedium},
}

func recencyScore(daysSince int) int {
	for _, b := range recencyBuckets {
		if daysSince <= b.MaxDays {
			return b.Score
		}
	}
	return 1
}

func frequencyScore(count int) int {
	for _, b := range frequencyBuckets {
		if float64(count) >= b.Min {
			return b.Score
		}
	}
	return 1
}

func monetaryScore(revenue float64) int {
	for _, b := range monetaryBuckets {
		if revenue >= b.Min {
			return b.Score
		}
	}
	return 1
}

func volumeTier(monthlyRate float64) domain.VolumeTier {
	for _, t := range volumeTiers {
		if monthlyRate >= t.MinMonthly {
			return t.Tier
		}
	}
	return domain.VolumeLow
}

func profitabilityTier(margin float64) domain.ProfitabilityTier {
	for _, t := range profitabilityTiers {
		if margin >= t.MinMargin {
			return t.Tier
		}
	}
	return domain.ProfitLow
}
