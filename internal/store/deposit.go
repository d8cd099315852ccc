package store

import (
	"time"

	"AuctionBot/internal/model"
)

// MinimumDeposit is the smallest deposit any listing pays.
const MinimumDeposit = 100

const depositPeriod = 12 * time.Hour

// Deposit computes the listing deposit: percent of the vendor value of the
// stack for each started 12 hour period, never below MinimumDeposit.
func Deposit(item model.ItemTemplate, count uint32, duration time.Duration, percent uint32) uint64 {
	if item.SellPrice == 0 {
		return MinimumDeposit
	}
	periods := uint64(duration / depositPeriod)
	if periods == 0 {
		periods = 1
	}
	d := item.SellPrice * uint64(count) * uint64(percent) / 100 * periods
	if d < MinimumDeposit {
		return MinimumDeposit
	}
	return d
}

// depositRates holds the per-segment deposit percentage.
type depositRates map[string]uint32

func (r depositRates) percent(segment string) uint32 {
	if p, ok := r[segment]; ok {
		return p
	}
	return 15
}
