package admin

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"AuctionBot/internal/model"
	"AuctionBot/internal/notifier"
)

type fakeTarget struct {
	configs map[string]*model.MarketConfig
	saved   int
	expired map[string]int
}

func newFakeTarget(segments ...string) *fakeTarget {
	f := &fakeTarget{configs: map[string]*model.MarketConfig{}, expired: map[string]int{}}
	for _, s := range segments {
		f.configs[s] = model.DefaultMarketConfig(s)
	}
	return f
}

func (f *fakeTarget) Segments() []string {
	var out []string
	for s := range f.configs {
		out = append(out, s)
	}
	return out
}

func (f *fakeTarget) Update(_ context.Context, segment string, fn func(*model.MarketConfig) error) error {
	cur, ok := f.configs[segment]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSegment, segment)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	f.saved++
	f.configs[segment] = next
	return nil
}

func (f *fakeTarget) UpdateAll(ctx context.Context, fn func(*model.MarketConfig) error) error {
	for s := range f.configs {
		if err := f.Update(ctx, s, fn); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeTarget) ExpireOwned(_ context.Context, segment string) (int, error) {
	if _, ok := f.configs[segment]; !ok {
		return 0, ErrUnknownSegment
	}
	f.expired[segment]++
	return 3, nil
}

func (f *fakeTarget) Status() []notifier.SegmentStatus {
	var out []notifier.SegmentStatus
	for _, c := range f.configs {
		out = append(out, notifier.SegmentStatus{Config: *c, Active: true})
	}
	return out
}

func TestHandle_Toggles(t *testing.T) {
	f := newFakeTarget("alliance", "horde")
	h := NewHandler(f)

	if reply := h.Handle("/ahbot buyer on"); !strings.Contains(reply, "buyer on") {
		t.Fatalf("unexpected reply %q", reply)
	}
	for s, c := range f.configs {
		if !c.BuyerEnabled {
			t.Errorf("%s: buyer not enabled", s)
		}
	}
	h.Handle("seller 0")
	h.Handle("usemarketprice 1")
	for s, c := range f.configs {
		if c.SellerEnabled || !c.SellAtMarketPrice {
			t.Errorf("%s: toggles not applied: %+v", s, c)
		}
	}
	if reply := h.Handle("buyer maybe"); !strings.Contains(reply, "❌") {
		t.Errorf("expected rejection, got %q", reply)
	}
}

func TestHandle_SegmentSetters(t *testing.T) {
	f := newFakeTarget("horde")
	h := NewHandler(f)

	tests := []struct {
		line  string
		check func(*model.MarketConfig) bool
	}{
		{"maxitems horde 500", func(c *model.MarketConfig) bool { return c.MaxItems == 500 }},
		{"minitems horde 250", func(c *model.MarketConfig) bool { return c.MinItems == 250 }},
		{"bidinterval horde 5", func(c *model.MarketConfig) bool { return c.BiddingInterval == 5 }},
		{"bidsperinterval horde 3", func(c *model.MarketConfig) bool { return c.BidsPerInterval == 3 }},
		{"maxprice horde blue 2000", func(c *model.MarketConfig) bool { return c.Tiers[model.RarityRare].MaxPrice == 2000 }},
		{"maxstack horde white 5", func(c *model.MarketConfig) bool { return c.Tiers[model.RarityNormal].MaxStack == 5 }},
		{"buyerprice horde purple 2.5", func(c *model.MarketConfig) bool { return c.Tiers[model.RarityEpic].BuyerPrice == 2.5 }},
	}
	for _, tt := range tests {
		reply := h.Handle(tt.line)
		if strings.Contains(reply, "❌") {
			t.Errorf("%s: rejected: %s", tt.line, reply)
			continue
		}
		if !tt.check(f.configs["horde"]) {
			t.Errorf("%s: not applied", tt.line)
		}
	}
}

func TestHandle_RejectsInconsistentConfig(t *testing.T) {
	f := newFakeTarget("horde")
	h := NewHandler(f)
	before := *f.configs["horde"]

	reply := h.Handle("percentages horde 0 27 12 10 1 0 0 0 10 30 8 2 0 0 -1")
	if !strings.Contains(reply, "❌") {
		t.Fatalf("expected usage error for 15 values, got %q", reply)
	}
	// Sums to 90.
	reply = h.Handle("percentages horde 0 17 12 10 1 0 0 0 10 30 8 2 0 0")
	if !strings.Contains(reply, "❌") {
		t.Fatalf("expected rejection, got %q", reply)
	}
	// Min above max.
	reply = h.Handle("minprice horde grey 999")
	if !strings.Contains(reply, "❌") {
		t.Fatalf("expected rejection, got %q", reply)
	}
	if *f.configs["horde"] != before || f.saved != 0 {
		t.Error("rejected commands changed the configuration")
	}

	reply = h.Handle("percentages horde 0 37 12 10 1 0 0 0 10 20 8 2 0 0")
	if strings.Contains(reply, "❌") {
		t.Fatalf("valid percentages rejected: %s", reply)
	}
	if f.configs["horde"].Percentages[model.BinKey{Rarity: model.RarityNormal, Category: model.CategoryTradeGood}.Index()] != 37 {
		t.Error("percentages not applied in trade-goods-first order")
	}
}

func TestHandle_ExpireStatusAndHelp(t *testing.T) {
	f := newFakeTarget("neutral")
	h := NewHandler(f)

	if reply := h.Handle("ahexpire neutral"); !strings.Contains(reply, "3 listings expired") {
		t.Errorf("unexpected reply %q", reply)
	}
	if reply := h.Handle("ahexpire nowhere"); !strings.Contains(reply, "❌") {
		t.Errorf("expected error for unknown segment, got %q", reply)
	}
	if reply := h.Handle("status neutral"); !strings.Contains(reply, "<b>neutral</b>") {
		t.Errorf("unexpected status %q", reply)
	}
	if reply := h.Handle("tiers neutral"); !strings.Contains(reply, "purple") {
		t.Errorf("unexpected tiers %q", reply)
	}
	if reply := h.Handle("frobnicate"); !strings.Contains(reply, "available commands") {
		t.Errorf("expected help, got %q", reply)
	}
}
