// Package seller fills a market segment with listings up to its quotas.
package seller

import (
	"context"
	"log"

	"AuctionBot/internal/model"
	"AuctionBot/internal/pricehistory"
	"AuctionBot/internal/pricing"
	"AuctionBot/internal/selector"
	"AuctionBot/internal/store"
)

// SkipReason explains why a cycle created nothing without trying.
type SkipReason string

const (
	SkipNone     SkipReason = ""
	SkipDisabled SkipReason = "seller disabled"
	SkipNoMax    SkipReason = "max items is 0"
	SkipAboveMin SkipReason = "listings at or above minimum"
	SkipAboveMax SkipReason = "listings at or above maximum"
)

// SellReport holds the diagnostic counters of one sell cycle.
type SellReport struct {
	RunID   string
	Segment string
	Skipped SkipReason

	Listings  int    // listings counted against min/max at cycle start
	Requested uint32 // units the cycle tried to create
	Created   uint32

	BinEmpty     uint32
	CatalogMiss  uint32
	PriceErrors  uint32
	ItemErrors   uint32
	StoreErrors  uint32
	CreatedByBin [model.BinCount]uint32
}

// Failed is the number of units that were attempted but not listed.
func (r *SellReport) Failed() uint32 {
	return r.BinEmpty + r.CatalogMiss + r.PriceErrors + r.ItemErrors + r.StoreErrors
}

// Engine runs sell cycles for one agent identity. Not safe for concurrent use.
type Engine struct {
	catalog  store.Catalog
	market   store.MarketStore
	history  pricehistory.Source
	bins     *selector.Bins
	selector *selector.Selector
	policy   *pricing.Policy
	retry    selector.RetryPolicy
	self     model.Identity
}

// Deps groups the collaborators of an Engine.
type Deps struct {
	Catalog  store.Catalog
	Market   store.MarketStore
	History  pricehistory.Source // optional
	Bins     *selector.Bins
	Selector *selector.Selector
	Policy   *pricing.Policy
	Retry    selector.RetryPolicy
	Self     model.Identity
}

func New(d Deps) *Engine {
	retry := d.Retry
	if retry.MaxAttempts == 0 {
		retry = selector.DefaultRetryPolicy
	}
	return &Engine{
		catalog:  d.Catalog,
		market:   d.Market,
		history:  d.History,
		bins:     d.Bins,
		selector: d.Selector,
		policy:   d.Policy,
		retry:    retry,
		self:     d.Self,
	}
}

// RunCycle creates listings for cfg's segment based on snapshot, the
// segment's listings read once at cycle start. Per-unit failures are counted
// in the report and never abort the cycle.
func (e *Engine) RunCycle(ctx context.Context, cfg *model.MarketConfig, snapshot []model.Listing) SellReport {
	rep := SellReport{Segment: cfg.Segment}

	if !cfg.SellerEnabled {
		rep.Skipped = SkipDisabled
		return rep
	}
	if cfg.MaxItems == 0 {
		rep.Skipped = SkipNoMax
		return rep
	}

	rep.Listings = e.countListings(cfg, snapshot)
	minItems := cfg.EffectiveMinItems()

	// The minimum is checked first and ends the cycle on its own.
	if uint32(rep.Listings) >= minItems {
		rep.Skipped = SkipAboveMin
		if cfg.DebugSeller {
			log.Printf("[INFO] seller %s: %d listings, minimum %d reached", cfg.Segment, rep.Listings, minItems)
		}
		return rep
	}
	if uint32(rep.Listings) >= cfg.MaxItems {
		rep.Skipped = SkipAboveMax
		return rep
	}
	rep.Requested = min(cfg.MaxItems-uint32(rep.Listings), cfg.ItemsPerCycle)

	if cfg.SellAtMarketPrice {
		e.observe(ctx, cfg.Segment, snapshot)
	}

	quotas := selector.NewQuotas(cfg, e.bins, snapshot, e.self.ID, cfg.ConsiderOnlyBotAuctions)
	owned := make(map[uint32]int)
	for _, l := range snapshot {
		if l.Owner == e.self.ID {
			owned[l.ItemTemplate]++
		}
	}

	for i := uint32(0); i < rep.Requested; i++ {
		if err := ctx.Err(); err != nil {
			log.Printf("[WARN] seller %s: cycle cancelled after %d units: %v", cfg.Segment, i, err)
			break
		}
		out := e.selector.Select(quotas, owned, cfg.DuplicatesCount, e.retry)
		if out.Status != selector.StatusSelected {
			rep.BinEmpty++
			if cfg.DebugSeller {
				log.Printf("[INFO] seller %s: no bin yielded an item after %d attempts", cfg.Segment, out.Attempts)
			}
			continue
		}
		if !e.createOne(ctx, cfg, out, &rep) {
			continue
		}
		quotas.Take(out.Bin)
		owned[out.ItemID]++
		rep.Created++
		rep.CreatedByBin[out.Bin.Index()]++
	}

	if cfg.DebugSeller || rep.Created > 0 {
		log.Printf("[INFO] seller %s: created %d/%d listings (bin empty %d, errors %d)",
			cfg.Segment, rep.Created, rep.Requested, rep.BinEmpty, rep.Failed()-rep.BinEmpty)
	}
	return rep
}

func (e *Engine) createOne(ctx context.Context, cfg *model.MarketConfig, out selector.Outcome, rep *SellReport) bool {
	tmpl, err := e.catalog.TemplateFor(ctx, out.ItemID)
	if err != nil {
		rep.CatalogMiss++
		log.Printf("[WARN] seller %s: item %d: %v", cfg.Segment, out.ItemID, err)
		return false
	}
	if !tmpl.Rarity.Supported() {
		rep.CatalogMiss++
		log.Printf("[WARN] seller %s: item %d has unsupported rarity %d", cfg.Segment, tmpl.ID, tmpl.Rarity)
		return false
	}

	tier := cfg.Tier(tmpl.Rarity)
	stack := e.policy.StackSize(tier.MaxStack, tmpl.MaxStack, cfg.DivisibleStacks)

	var market uint64
	if cfg.SellAtMarketPrice && e.history != nil {
		market, err = e.history.UnitPrice(ctx, cfg.Segment, tmpl.ID)
		if err != nil {
			log.Printf("[WARN] seller %s: market price for %d: %v", cfg.Segment, tmpl.ID, err)
			market = 0
		}
	}

	buyout, bid, err := e.policy.Prices(pricing.PriceInput{
		Template:    tmpl,
		StackCount:  stack,
		Tier:        tier,
		UseBuyPrice: cfg.SellMethod,
		MarketPrice: market,
	})
	if err != nil {
		rep.PriceErrors++
		log.Printf("[WARN] seller %s: %v", cfg.Segment, err)
		return false
	}

	duration := e.policy.Duration(cfg.ElapsingTimeClass)
	deposit, err := e.market.DepositFor(ctx, cfg.Segment, duration, tmpl, stack)
	if err != nil {
		rep.StoreErrors++
		log.Printf("[ERROR] seller %s: deposit for %d: %v", cfg.Segment, tmpl.ID, err)
		return false
	}

	item, err := e.catalog.Instantiate(ctx, tmpl.ID, stack, e.self.ID)
	if err != nil {
		rep.ItemErrors++
		log.Printf("[ERROR] seller %s: instantiate %d: %v", cfg.Segment, tmpl.ID, err)
		return false
	}
	if prop, err := e.catalog.RandomPropertyFor(ctx, tmpl.ID); err != nil {
		log.Printf("[WARN] seller %s: random property for %d: %v", cfg.Segment, tmpl.ID, err)
	} else if prop != 0 {
		item.RandomProperty = prop
	}

	id, err := e.market.CreateListing(ctx, model.CreateListingRequest{
		Segment:  cfg.Segment,
		Owner:    e.self.ID,
		Item:     item,
		StartBid: bid,
		Buyout:   buyout,
		Duration: duration,
		Deposit:  deposit,
	})
	if err != nil {
		rep.StoreErrors++
		log.Printf("[ERROR] seller %s: create listing for %d: %v", cfg.Segment, tmpl.ID, err)
		if err := e.catalog.Destroy(ctx, item.GUID); err != nil {
			log.Printf("[WARN] seller %s: discard item %d: %v", cfg.Segment, item.GUID, err)
		}
		return false
	}

	if cfg.TraceSeller {
		log.Printf("[INFO] seller %s: listing %d item %d %q x%d bid=%d buyout=%d duration=%s deposit=%d bin=%s",
			cfg.Segment, id, tmpl.ID, tmpl.Name, stack, bid, buyout, duration, deposit, out.Bin)
	}
	return true
}

func (e *Engine) countListings(cfg *model.MarketConfig, snapshot []model.Listing) int {
	if !cfg.ConsiderOnlyBotAuctions {
		return len(snapshot)
	}
	n := 0
	for _, l := range snapshot {
		if l.Owner == e.self.ID {
			n++
		}
	}
	return n
}

// observe feeds other sellers' listings into the price history.
func (e *Engine) observe(ctx context.Context, segment string, snapshot []model.Listing) {
	if e.history == nil {
		return
	}
	others := make([]model.Listing, 0, len(snapshot))
	for _, l := range snapshot {
		if l.Owner != e.self.ID {
			others = append(others, l)
		}
	}
	if err := e.history.Observe(ctx, segment, others); err != nil {
		log.Printf("[WARN] seller %s: observe market prices: %v", segment, err)
	}
}
