// Package pricing synthesizes listing prices, stack sizes and durations.
package pricing

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"AuctionBot/internal/model"
)

var (
	ErrZeroPrice         = errors.New("item has no reference price")
	ErrUnsupportedRarity = errors.New("item rarity not supported")
)

// Policy computes prices from item attributes and tier configuration. It is
// not safe for concurrent use; each engine owns one.
type Policy struct {
	rng       *rand.Rand
	overrides OverrideTable
}

// NewPolicy creates a Policy drawing from rng. A nil table disables overrides.
func NewPolicy(rng *rand.Rand, overrides OverrideTable) *Policy {
	return &Policy{rng: rng, overrides: overrides}
}

// PriceInput is everything Prices needs for one listing.
type PriceInput struct {
	Template    model.ItemTemplate
	StackCount  uint32
	Tier        model.TierConfig
	UseBuyPrice bool
	MarketPrice uint64 // per unit, 0 when unknown
}

// Prices returns the buyout and starting bid for the whole stack.
// The bid is always in [1, buyout].
func (p *Policy) Prices(in PriceInput) (buyout, bid uint64, err error) {
	if !in.Template.Rarity.Supported() {
		return 0, 0, fmt.Errorf("%w: item %d rarity %d", ErrUnsupportedRarity, in.Template.ID, in.Template.Rarity)
	}
	count := uint64(in.StackCount)
	if count == 0 {
		count = 1
	}

	// Bands only cover items a vendor would buy back.
	if band, ok := p.overrides.Lookup(in.Template.ID); ok && in.Template.SellPrice > 0 {
		unit := band.Min
		if band.Max > band.Min {
			unit += p.rng.Uint64N(band.Max - band.Min + 1)
		}
		buyout = unit * count
		bid = buyout * uint64(p.urand(70, 80)) / 100
		return clampPrices(buyout, bid)
	}

	basis := in.MarketPrice
	if basis == 0 {
		if in.UseBuyPrice {
			basis = in.Template.BuyPrice
		} else {
			basis = in.Template.SellPrice
		}
	}
	if basis == 0 {
		return 0, 0, fmt.Errorf("%w: item %d", ErrZeroPrice, in.Template.ID)
	}

	buyout = basis * count * uint64(p.urand(in.Tier.MinPrice, in.Tier.MaxPrice)) / 100
	bid = buyout * uint64(p.urand(in.Tier.MinBidPrice, in.Tier.MaxBidPrice)) / 100
	return clampPrices(buyout, bid)
}

func clampPrices(buyout, bid uint64) (uint64, uint64, error) {
	if buyout == 0 {
		buyout = 1
	}
	if bid == 0 {
		bid = 1
	}
	if bid > buyout {
		bid = buyout
	}
	return buyout, bid, nil
}

// StackSize picks a stack count in [1, min(tierCap, itemMaxStack)]. A tier
// cap of 0 means the item's own limit. In divisible mode the result is a
// multiple of 5, 4 or 3, preferring the largest unit that divides the limit.
func (p *Policy) StackSize(tierCap, itemMaxStack uint32, divisible bool) uint32 {
	limit := itemMaxStack
	if tierCap > 0 && tierCap < limit {
		limit = tierCap
	}
	if limit <= 1 {
		return 1
	}
	if divisible {
		if n, ok := p.divisibleStack(limit); ok {
			return n
		}
	}
	return p.urand(1, limit)
}

var stackUnits = []struct {
	size, maxMul uint32
}{
	{5, 4}, // 5, 10, 15, 20
	{4, 4}, // 4, 8, 12, 16
	{3, 3}, // 3, 6, 9
}

func (p *Policy) divisibleStack(limit uint32) (uint32, bool) {
	for _, u := range stackUnits {
		if limit%u.size == 0 {
			return p.multipleOf(u.size, u.maxMul, limit), true
		}
	}
	// No unit divides the limit; fall back to the largest unit that fits.
	for _, u := range stackUnits {
		if limit >= u.size {
			return p.multipleOf(u.size, u.maxMul, limit), true
		}
	}
	return 0, false
}

func (p *Policy) multipleOf(size, maxMul, limit uint32) uint32 {
	k := min(maxMul, limit/size)
	return p.urand(1, k) * size
}

// Duration returns a listing lifetime drawn from the band for tc.
func (p *Policy) Duration(tc model.TimeClass) time.Duration {
	switch tc {
	case model.TimeClassShort:
		return time.Duration(p.urand(1, 5)) * 10 * time.Minute
	case model.TimeClassMedium:
		return time.Duration(p.urand(1, 23)) * time.Hour
	default:
		return time.Duration(p.urand(1, 3)) * 24 * time.Hour
	}
}

// BidRate returns a fraction in [0.01, 1.00] in whole percent steps.
func (p *Policy) BidRate() float64 {
	return float64(p.urand(1, 100)) / 100
}

// Intn exposes the policy's source for uniform index draws.
func (p *Policy) Intn(n int) int {
	return p.rng.IntN(n)
}

// urand returns a uniform integer in [lo, hi]. An inverted range yields lo.
func (p *Policy) urand(lo, hi uint32) uint32 {
	if hi <= lo {
		return lo
	}
	return lo + p.rng.Uint32N(hi-lo+1)
}
