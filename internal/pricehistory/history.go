// Package pricehistory accumulates per-unit buyout prices observed in the
// marketplace so listings can be priced at the going rate.
package pricehistory

import (
	"context"

	"AuctionBot/internal/model"
)

// Source records observations and answers market-price lookups.
type Source interface {
	// Observe records the per-unit buyout of every listing with a buyout.
	Observe(ctx context.Context, segment string, listings []model.Listing) error
	// UnitPrice returns the mean observed per-unit price, or 0 when the item
	// has never been seen.
	UnitPrice(ctx context.Context, segment string, itemID uint32) (uint64, error)
}

func unitPrice(l model.Listing) (uint64, bool) {
	if l.Buyout == 0 || l.ItemCount == 0 {
		return 0, false
	}
	return l.UnitBuyout(), true
}

func mean(values []uint64) uint64 {
	if len(values) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range values {
		sum += v
	}
	return sum / uint64(len(values))
}
