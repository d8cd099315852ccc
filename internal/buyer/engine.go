// Package buyer places competing bids and buyouts on other sellers' listings.
package buyer

import (
	"context"
	"log"

	"AuctionBot/internal/model"
	"AuctionBot/internal/pricing"
	"AuctionBot/internal/store"
)

// Action is what the engine did with one candidate.
type Action string

const (
	ActionBid    Action = "BID"
	ActionBuyout Action = "BUYOUT"
	ActionSkip   Action = "SKIP"
	ActionError  Action = "ERROR"
)

// Event records the decision taken for one drawn candidate.
type Event struct {
	ListingID     uint32
	ItemID        uint32
	Action        Action
	CurrentPrice  uint64
	MaxAcceptable uint64
	Amount        uint64
	Buyout        uint64
	Reason        string
}

// BuyReport holds the outcome of one buy cycle.
type BuyReport struct {
	RunID      string
	Segment    string
	Disabled   bool
	Candidates int
	Bids       int
	Buyouts    int
	Skipped    int
	Errors     int
	Events     []Event
}

// Engine runs buy cycles. Not safe for concurrent use.
type Engine struct {
	catalog store.Catalog
	market  store.MarketStore
	policy  *pricing.Policy
	family  map[model.ActorID]bool

	bidRate func() float64
}

func New(catalog store.Catalog, market store.MarketStore, policy *pricing.Policy) *Engine {
	return &Engine{
		catalog: catalog,
		market:  market,
		policy:  policy,
		family:  map[model.ActorID]bool{},
		bidRate: policy.BidRate,
	}
}

// SetFamily replaces the identities of sibling bots whose listings are never
// bid on.
func (e *Engine) SetFamily(ids ...model.ActorID) {
	e.family = make(map[model.ActorID]bool, len(ids))
	for _, id := range ids {
		e.family[id] = true
	}
}

// RunCycle draws up to cfg.BidsPerInterval candidates uniformly without
// replacement and bids on or buys out each one worth it.
func (e *Engine) RunCycle(ctx context.Context, cfg *model.MarketConfig, candidates []model.Listing, self model.Identity) BuyReport {
	rep := BuyReport{Segment: cfg.Segment}
	if !cfg.BuyerEnabled {
		rep.Disabled = true
		return rep
	}

	pool := make([]model.Listing, 0, len(candidates))
	for _, l := range candidates {
		if l.Owner == self.ID || self.Is(l.Bidder) {
			continue
		}
		pool = append(pool, l)
	}
	rep.Candidates = len(pool)
	if cfg.DebugBuyer {
		log.Printf("[INFO] buyer %s: %d candidate listings", cfg.Segment, len(pool))
	}

	for i := uint32(0); i < cfg.BidsPerInterval && len(pool) > 0; i++ {
		if err := ctx.Err(); err != nil {
			log.Printf("[WARN] buyer %s: cycle cancelled: %v", cfg.Segment, err)
			break
		}
		idx := e.policy.Intn(len(pool))
		l := pool[idx]
		pool[idx] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]

		ev := e.consider(ctx, cfg, l, self)
		switch ev.Action {
		case ActionBid:
			rep.Bids++
		case ActionBuyout:
			rep.Buyouts++
		case ActionSkip:
			rep.Skipped++
		case ActionError:
			rep.Errors++
		}
		rep.Events = append(rep.Events, ev)

		if cfg.TraceBuyer {
			log.Printf("[INFO] buyer %s: listing %d item %d %s current=%d max=%d amount=%d buyout=%d %s",
				cfg.Segment, ev.ListingID, ev.ItemID, ev.Action, ev.CurrentPrice, ev.MaxAcceptable, ev.Amount, ev.Buyout, ev.Reason)
		}
	}

	if rep.Bids+rep.Buyouts > 0 || cfg.DebugBuyer {
		log.Printf("[INFO] buyer %s: %d bids, %d buyouts, %d skipped, %d errors",
			cfg.Segment, rep.Bids, rep.Buyouts, rep.Skipped, rep.Errors)
	}
	return rep
}

func (e *Engine) consider(ctx context.Context, cfg *model.MarketConfig, l model.Listing, self model.Identity) Event {
	ev := Event{ListingID: l.ID, ItemID: l.ItemTemplate, CurrentPrice: l.CurrentPrice(), Buyout: l.Buyout}

	if e.family[l.Owner] {
		return skip(ev, "owned by sibling bot")
	}

	tmpl, err := e.catalog.TemplateFor(ctx, l.ItemTemplate)
	if err != nil {
		ev.Action = ActionError
		ev.Reason = err.Error()
		return ev
	}
	if !tmpl.Rarity.Supported() {
		ev.Action = ActionError
		ev.Reason = "unsupported rarity"
		return ev
	}

	ev.MaxAcceptable = MaxAcceptable(tmpl, l, cfg.Tier(tmpl.Rarity), cfg.BuyMethod)
	if ev.MaxAcceptable == 0 {
		return skip(ev, "not worth bidding")
	}

	current := ev.CurrentPrice
	floor := current + l.OutbidIncrement()
	if floor > ev.MaxAcceptable {
		return skip(ev, "outbid floor above value")
	}
	bid := current + uint64(float64(ev.MaxAcceptable-current)*e.bidRate())
	if bid < floor {
		bid = floor
	}
	ev.Amount = bid

	notify := l.Bidder != 0
	if l.Buyout == 0 || bid < l.Buyout {
		err = e.market.UpdateBid(ctx, model.BidRequest{
			ListingID:      l.ID,
			Bidder:         self.ID,
			Amount:         bid,
			PreviousBidder: l.Bidder,
			PreviousBid:    l.Bid,
			NotifyPrevious: notify,
		})
		ev.Action = ActionBid
	} else {
		ev.Amount = l.Buyout
		err = e.market.RecordBuyout(ctx, model.BuyoutRequest{
			Listing:        l,
			Buyer:          self.ID,
			NotifyPrevious: notify,
		})
		ev.Action = ActionBuyout
	}
	if err != nil {
		log.Printf("[ERROR] buyer %s: %s listing %d: %v", cfg.Segment, ev.Action, l.ID, err)
		ev.Action = ActionError
		ev.Reason = err.Error()
	}
	return ev
}

// MaxAcceptable is the most the agent pays for l. It is zero for ammunition
// and whenever the current price already reaches the item's value.
func MaxAcceptable(tmpl model.ItemTemplate, l model.Listing, tier model.TierConfig, sellBasis bool) uint64 {
	if tmpl.Class == model.ItemClassProjectile {
		return 0
	}
	basis := tmpl.BuyPrice
	if sellBasis {
		basis = tmpl.SellPrice
	}
	value := float64(basis) * float64(l.ItemCount) * tier.BuyerPrice
	if float64(l.CurrentPrice()) >= value {
		return 0
	}
	return uint64(value)
}

func skip(ev Event, reason string) Event {
	ev.Action = ActionSkip
	ev.Reason = reason
	return ev
}
