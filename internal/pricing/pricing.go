// Package pricing computes dynamic ticket prices from three signals: time
// until the event, recent booking demand, and remaining inventory. Compute
// is pure; callers supply the clock and the demand count.
package pricing

import (
	"time"

	"ticket-pricing-service/internal/model"
)

// Tier boundaries for the three signals. Rates and weights come from the
// event's pricing rules; these cutoffs define the model itself.
const (
	timeTierImminent = 24 * time.Hour
	timeTierNear     = 7 * 24 * time.Hour
	timeTierFar      = 30 * 24 * time.Hour

	demandTierHigh = 20
	demandTierMid  = 10
	demandTierLow  = 5

	inventoryTierScarce = 0.10
	inventoryTierTight  = 0.20
	inventoryTierHalf   = 0.50
)

type Input struct {
	BasePrice    float64
	FloorPrice   float64
	CeilingPrice float64
	Capacity     int
	Consumed     int
	Rules        model.PricingRules
	StartsAt     time.Time
	Now          time.Time
	DemandCount  int
}

// Quote is the full price breakdown. The adjustment fields are rate
// multiples before weighting; TotalAdjustment is the weighted sum applied
// to the base price.
type Quote struct {
	BasePrice           float64   `json:"base_price"`
	TimeAdjustment      float64   `json:"time_adjustment"`
	DemandAdjustment    float64   `json:"demand_adjustment"`
	InventoryAdjustment float64   `json:"inventory_adjustment"`
	TotalAdjustment     float64   `json:"total_adjustment"`
	RawPrice            float64   `json:"raw_price"`
	FinalPrice          float64   `json:"final_price"`
	Clamped             bool      `json:"clamped"`
	DemandCount         int       `json:"demand_count"`
	Remaining           int       `json:"remaining"`
	ComputedAt          time.Time `json:"computed_at"`
}

// Compute prices one event. The result is always anchored to the base
// price; it never compounds on a previously computed price.
func Compute(in Input) Quote {
	timeAdj := timeAdjustment(in.StartsAt.Sub(in.Now), in.Rules.Time.Rate)
	demandAdj := demandAdjustment(in.DemandCount, in.Rules.Demand.Rate)
	invAdj := inventoryAdjustment(remainingRatio(in.Capacity, in.Consumed), in.Rules.Inventory.Rate)

	total := timeAdj*in.Rules.Time.Weight +
		demandAdj*in.Rules.Demand.Weight +
		invAdj*in.Rules.Inventory.Weight

	raw := in.BasePrice * (1 + total)

	final := raw
	clamped := false
	if final < in.FloorPrice {
		final = in.FloorPrice
		clamped = true
	}
	if final > in.CeilingPrice {
		final = in.CeilingPrice
		clamped = true
	}

	return Quote{
		BasePrice:           in.BasePrice,
		TimeAdjustment:      timeAdj,
		DemandAdjustment:    demandAdj,
		InventoryAdjustment: invAdj,
		TotalAdjustment:     total,
		RawPrice:            raw,
		FinalPrice:          model.RoundToCent(final),
		Clamped:             clamped,
		DemandCount:         in.DemandCount,
		Remaining:           in.Capacity - in.Consumed,
		ComputedAt:          in.Now,
	}
}

// timeAdjustment scales urgency: events starting within a day (or already
// started) price at five times the rate, within a week at twice, within a
// month at the plain rate.
func timeAdjustment(until time.Duration, rate float64) float64 {
	switch {
	case until <= timeTierImminent:
		return rate * 5
	case until <= timeTierNear:
		return rate * 2
	case until <= timeTierFar:
		return rate
	default:
		return 0
	}
}

func demandAdjustment(count int, rate float64) float64 {
	switch {
	case count > demandTierHigh:
		return rate * 3
	case count > demandTierMid:
		return rate * 2
	case count > demandTierLow:
		return rate
	default:
		return 0
	}
}

func inventoryAdjustment(ratio, rate float64) float64 {
	switch {
	case ratio <= inventoryTierScarce:
		return rate * 3
	case ratio <= inventoryTierTight:
		return rate * 2.5
	case ratio <= inventoryTierHalf:
		return rate
	default:
		return 0
	}
}

func remainingRatio(capacity, consumed int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(capacity-consumed) / float64(capacity)
}
