package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"AuctionBot/internal/buyer"
	"AuctionBot/internal/model"
	"AuctionBot/internal/seller"
	"AuctionBot/internal/store"
)

type countingSeller struct{ calls map[string]int }

func (c *countingSeller) RunCycle(_ context.Context, cfg *model.MarketConfig, _ []model.Listing) seller.SellReport {
	c.calls[cfg.Segment]++
	return seller.SellReport{Segment: cfg.Segment}
}

type countingBuyer struct{ calls map[string]int }

func (c *countingBuyer) RunCycle(_ context.Context, cfg *model.MarketConfig, _ []model.Listing, _ model.Identity) buyer.BuyReport {
	c.calls[cfg.Segment]++
	return buyer.BuyReport{Segment: cfg.Segment}
}

func newTestAgent(t *testing.T, configs ...*model.MarketConfig) (*Agent, *countingSeller, *countingBuyer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(nil)
	s := &countingSeller{calls: map[string]int{}}
	b := &countingBuyer{calls: map[string]int{}}
	a := NewAgent(AgentDeps{Market: mem, Configs: mem, Seller: s, Buyer: b, Self: model.Identity{ID: 7}})
	for _, c := range configs {
		if err := a.AddSegment(c); err != nil {
			t.Fatalf("add segment: %v", err)
		}
	}
	return a, s, b, mem
}

func TestSegment_ShouldBid(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		interval uint32
		bids     uint32
		last     time.Time
		want     bool
	}{
		{"never ran", 5, 1, time.Time{}, true},
		{"elapsed", 5, 1, now.Add(-5 * time.Minute), true},
		{"not elapsed", 5, 1, now.Add(-4*time.Minute - 59*time.Second), false},
		{"no bids", 5, 0, time.Time{}, false},
		{"zero interval", 0, 1, now, true},
	}
	for _, tt := range tests {
		s := &Segment{Config: &model.MarketConfig{BiddingInterval: tt.interval, BidsPerInterval: tt.bids}, LastBidRun: tt.last}
		if got := s.ShouldBid(now); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestTick_IntervalGatesBuyer(t *testing.T) {
	cfg := model.DefaultMarketConfig("horde")
	cfg.BiddingInterval = 10
	a, s, b, _ := newTestAgent(t, cfg)
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	a.Tick(ctx, t0)
	if s.calls["horde"] != 1 || b.calls["horde"] != 1 {
		t.Fatalf("first tick should sell and buy, got sell=%d buy=%d", s.calls["horde"], b.calls["horde"])
	}

	a.Tick(ctx, t0.Add(5*time.Minute))
	if s.calls["horde"] != 2 {
		t.Errorf("seller should run every tick, got %d", s.calls["horde"])
	}
	if b.calls["horde"] != 1 {
		t.Errorf("buyer ran before interval elapsed")
	}
	if last := a.Status()[0].LastBidRun; !last.Equal(t0) {
		t.Errorf("last bid run changed without a buy cycle: %v", last)
	}

	a.Tick(ctx, t0.Add(10*time.Minute))
	if b.calls["horde"] != 2 {
		t.Errorf("buyer should run once interval elapsed, got %d", b.calls["horde"])
	}
	if last := a.Status()[0].LastBidRun; !last.Equal(t0.Add(10 * time.Minute)) {
		t.Errorf("last bid run not updated: %v", last)
	}
}

func TestTick_TwoSideInteraction(t *testing.T) {
	neutral := model.DefaultMarketConfig("neutral")
	neutral.Neutral = true
	a, s, _, _ := newTestAgent(t, model.DefaultMarketConfig("alliance"), neutral)
	a.TwoSideInteraction = true

	a.Tick(context.Background(), time.Now())
	if s.calls["alliance"] != 0 || s.calls["neutral"] != 1 {
		t.Errorf("only neutral should run, got %v", s.calls)
	}
}

type failingStore struct{ *store.Memory }

func (failingStore) ListingsFor(context.Context, string) ([]model.Listing, error) {
	return nil, errors.New("database is locked")
}

func TestTick_StoreUnavailableSkipsSell(t *testing.T) {
	mem := store.NewMemory(nil)
	s := &countingSeller{calls: map[string]int{}}
	b := &countingBuyer{calls: map[string]int{}}
	a := NewAgent(AgentDeps{Market: failingStore{mem}, Seller: s, Buyer: b, Self: model.Identity{ID: 7}})
	if err := a.AddSegment(model.DefaultMarketConfig("horde")); err != nil {
		t.Fatal(err)
	}
	a.Tick(context.Background(), time.Now())
	if s.calls["horde"] != 0 {
		t.Error("sell cycle ran without a snapshot")
	}
	if b.calls["horde"] != 1 {
		t.Error("buy cycle should still run on its own read")
	}
}

func TestUpdate_ValidatesThenPersists(t *testing.T) {
	a, _, _, mem := newTestAgent(t, model.DefaultMarketConfig("horde"), model.DefaultMarketConfig("alliance"))
	ctx := context.Background()

	err := a.Update(ctx, "horde", func(c *model.MarketConfig) error {
		c.Tiers[model.RarityPoor].MinPrice = 9999
		return nil
	})
	if !errors.Is(err, model.ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if a.Status()[0].Config.Tiers[model.RarityPoor].MinPrice == 9999 {
		t.Error("invalid config went live")
	}
	if _, err := mem.LoadSegment(ctx, "horde"); !errors.Is(err, store.ErrNotFound) {
		t.Error("invalid config was persisted")
	}

	if err := a.Update(ctx, "horde", func(c *model.MarketConfig) error { c.MaxItems = 300; return nil }); err != nil {
		t.Fatalf("update: %v", err)
	}
	saved, err := mem.LoadSegment(ctx, "horde")
	if err != nil || saved.MaxItems != 300 {
		t.Errorf("expected persisted MaxItems 300, got %+v (%v)", saved, err)
	}

	if err := a.UpdateAll(ctx, func(c *model.MarketConfig) error { c.BuyerEnabled = true; return nil }); err != nil {
		t.Fatalf("update all: %v", err)
	}
	for _, st := range a.Status() {
		if !st.Config.BuyerEnabled {
			t.Errorf("%s: buyer not enabled", st.Config.Segment)
		}
	}

	if err := a.Update(ctx, "nowhere", func(*model.MarketConfig) error { return nil }); err == nil {
		t.Error("expected error for unknown segment")
	}
}

func TestExpireOwned(t *testing.T) {
	ctx := context.Background()
	a, _, _, mem := newTestAgent(t, model.DefaultMarketConfig("horde"))
	future := time.Now().Add(time.Hour)
	mem.Seed(model.Listing{Segment: "horde", Owner: 7, ExpiresAt: future})
	mem.Seed(model.Listing{Segment: "horde", Owner: 8, ExpiresAt: future})
	n, err := a.ExpireOwned(ctx, "horde")
	if err != nil || n != 1 {
		t.Errorf("expected 1 expired, got %d (%v)", n, err)
	}
	ls, _ := mem.ListingsFor(ctx, "horde")
	if len(ls) != 1 || ls[0].Owner != 8 {
		t.Errorf("expected only the foreign listing to remain, got %+v", ls)
	}
	mail := mem.Mail()
	if len(mail) != 1 || mail[0].Kind != store.MailExpired || mail[0].Receiver != 7 {
		t.Errorf("expected one expiry mail to the agent, got %+v", mail)
	}
}

func TestTick_SettlesExpiredListings(t *testing.T) {
	ctx := context.Background()
	a, _, _, mem := newTestAgent(t, model.DefaultMarketConfig("horde"))
	now := time.Now()
	mem.Seed(model.Listing{Segment: "horde", Owner: 7, ExpiresAt: now.Add(-time.Minute)})
	mem.Seed(model.Listing{Segment: "horde", Owner: 9, Bidder: 7, Bid: 40, ExpiresAt: now.Add(-time.Minute)})
	mem.Seed(model.Listing{Segment: "horde", Owner: 9, ExpiresAt: now.Add(time.Hour)})

	a.Tick(ctx, now)

	ls, _ := mem.ListingsFor(ctx, "horde")
	if len(ls) != 1 {
		t.Fatalf("expected one live listing after tick, got %+v", ls)
	}
	won := 0
	for _, m := range mem.Mail() {
		if m.Kind == store.MailWon && m.Receiver == 7 && m.Amount == 40 {
			won++
		}
	}
	if won != 1 {
		t.Errorf("expected the standing bid to win, got %+v", mem.Mail())
	}
}

type flakyConfigs struct {
	*store.Memory
	failOn string
}

func (f flakyConfigs) SaveSegment(ctx context.Context, cfg *model.MarketConfig) error {
	if cfg.Segment == f.failOn && cfg.BuyerEnabled {
		return errors.New("disk full")
	}
	return f.Memory.SaveSegment(ctx, cfg)
}

func TestUpdateAll_FailedSaveChangesNothing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory(nil)
	a := NewAgent(AgentDeps{
		Market:  mem,
		Configs: flakyConfigs{Memory: mem, failOn: "horde"},
		Seller:  &countingSeller{calls: map[string]int{}},
		Buyer:   &countingBuyer{calls: map[string]int{}},
		Self:    model.Identity{ID: 7},
	})
	for _, name := range []string{"alliance", "horde"} {
		if err := a.AddSegment(model.DefaultMarketConfig(name)); err != nil {
			t.Fatal(err)
		}
	}

	if err := a.UpdateAll(ctx, func(c *model.MarketConfig) error { c.BuyerEnabled = true; return nil }); err == nil {
		t.Fatal("expected save error")
	}
	for _, st := range a.Status() {
		if st.Config.BuyerEnabled {
			t.Errorf("%s: config went live after a failed save", st.Config.Segment)
		}
	}
	saved, err := mem.LoadSegment(ctx, "alliance")
	if err != nil || saved.BuyerEnabled {
		t.Errorf("expected alliance save rolled back, got %+v (%v)", saved, err)
	}
}
