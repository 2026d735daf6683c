package engine

import (
	"math"

	"github.com/wfmk/wfmk/internal/market"
)

// topOrdersForStats is how many of the best-priced orders feed the
// average and deviation columns.
const topOrdersForStats = 5

// PriceSummary aggregates one item's order prices for the summary
// table. Avg and StdDev cover only the top orders, mirroring what a
// trader actually competes against.
type PriceSummary struct {
	Count  int
	Min    float64
	Max    float64
	Avg    float64
	StdDev float64

	// HasStdDev is false when fewer than two orders exist; the sample
	// deviation is undefined there.
	HasStdDev bool
}

// Summarize computes price statistics over orders, which callers pass
// already sorted best-price-first (ascending for sellers, descending
// for buyers). Min and Max span all orders; Avg and StdDev use the
// first topOrdersForStats entries.
func Summarize(orders []market.Order) PriceSummary {
	s := PriceSummary{Count: len(orders)}
	if s.Count == 0 {
		return s
	}

	prices := make([]float64, len(orders))
	for i, o := range orders {
		prices[i] = o.Platinum
	}

	s.Min = prices[0]
	s.Max = prices[0]
	for _, p := range prices[1:] {
		s.Min = math.Min(s.Min, p)
		s.Max = math.Max(s.Max, p)
	}

	top := prices
	if len(top) > topOrdersForStats {
		top = top[:topOrdersForStats]
	}
	s.Avg = mean(top)
	if len(top) > 1 {
		s.StdDev = sampleStdDev(top, s.Avg)
		s.HasStdDev = true
	}

	return s
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
