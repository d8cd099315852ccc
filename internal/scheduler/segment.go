package scheduler

import (
	"time"

	"AuctionBot/internal/buyer"
	"AuctionBot/internal/model"
	"AuctionBot/internal/seller"
)

// Segment is the per-segment bookkeeping of an Agent.
type Segment struct {
	Config     *model.MarketConfig
	LastBidRun time.Time
	LastTick   time.Time
	LastSell   seller.SellReport
	LastBuy    buyer.BuyReport
}

// ShouldBid reports whether the bidding interval has elapsed since the last
// buy cycle and the segment places any bids at all.
func (s *Segment) ShouldBid(now time.Time) bool {
	if s.Config.BidsPerInterval == 0 {
		return false
	}
	interval := time.Duration(s.Config.BiddingInterval) * time.Minute
	return now.Sub(s.LastBidRun) >= interval
}
