package store

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"AuctionBot/internal/model"
)

func TestMemory_CreateAndCandidates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(rand.New(rand.NewPCG(1, 2)))
	m.AddTemplates(model.ItemTemplate{ID: 25, SellPrice: 10, Rarity: model.RarityNormal, MaxStack: 1})

	it, err := m.Instantiate(ctx, 25, 1, 7)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	id, err := m.CreateListing(ctx, model.CreateListingRequest{
		Segment: "horde", Owner: 7, Item: it, StartBid: 80, Buyout: 100, Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m.Seed(model.Listing{Segment: "horde", Owner: 9, ItemTemplate: 25, ItemCount: 1, StartBid: 50, Buyout: 60})
	m.Seed(model.Listing{Segment: "horde", Owner: 9, ItemTemplate: 25, ItemCount: 1, StartBid: 50, Bidder: 7, Bid: 55})
	m.Seed(model.Listing{Segment: "alliance", Owner: 9, ItemTemplate: 25, ItemCount: 1, StartBid: 50})

	all, _ := m.ListingsFor(ctx, "horde")
	if len(all) != 3 || all[0].ID != id {
		t.Fatalf("expected 3 horde listings starting with %d, got %+v", id, all)
	}
	cands, _ := m.BidCandidates(ctx, "horde", 7)
	if len(cands) != 1 || cands[0].Owner != 9 || cands[0].Bidder != 0 {
		t.Errorf("expected one foreign unbid listing, got %+v", cands)
	}
}

func TestMemory_BuyoutMail(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	id := m.Seed(model.Listing{Segment: "s", Owner: 3, ItemGUID: 11, ItemTemplate: 25, ItemCount: 1, StartBid: 500, Bid: 600, Bidder: 4, Buyout: 1000})
	l, _ := m.Listing(id)

	if err := m.RecordBuyout(ctx, model.BuyoutRequest{Listing: l, Buyer: 7, NotifyPrevious: true}); err != nil {
		t.Fatalf("buyout: %v", err)
	}
	if _, ok := m.Listing(id); ok {
		t.Error("listing should be removed after buyout")
	}
	mail := m.Mail()
	if len(mail) != 3 {
		t.Fatalf("expected outbid, sold and won mail, got %+v", mail)
	}
	if mail[0].Kind != MailOutbid || mail[0].Receiver != 4 || mail[0].Amount != 600 {
		t.Errorf("unexpected refund mail %+v", mail[0])
	}
	if mail[1].Kind != MailSold || mail[1].Receiver != 3 {
		t.Errorf("unexpected seller mail %+v", mail[1])
	}
	if mail[2].Kind != MailWon || mail[2].Receiver != 7 {
		t.Errorf("unexpected buyer mail %+v", mail[2])
	}

	if err := m.RecordBuyout(ctx, model.BuyoutRequest{Listing: l, Buyer: 7}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for settled listing, got %v", err)
	}
}

func TestMemory_ExpireOwned(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	m.Seed(model.Listing{Segment: "s", Owner: 7})
	m.Seed(model.Listing{Segment: "s", Owner: 7})
	m.Seed(model.Listing{Segment: "s", Owner: 8})
	m.Seed(model.Listing{Segment: "t", Owner: 7})

	at := time.Unix(1000, 0)
	n, err := m.ExpireOwned(ctx, "s", 7, at)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 expired, got %d (%v)", n, err)
	}
	if ls, _ := m.ListingsFor(ctx, "s"); len(ls) != 1 || ls[0].Owner != 8 {
		t.Errorf("expected only the unexpired listing, got %+v", ls)
	}
	if cands, _ := m.BidCandidates(ctx, "s", 9); len(cands) != 1 {
		t.Errorf("expected one candidate, got %+v", cands)
	}

	swept, err := m.SweepExpired(ctx, "s", time.Now())
	if err != nil || swept != 2 {
		t.Fatalf("expected 2 swept, got %d (%v)", swept, err)
	}
	for _, mail := range m.Mail() {
		if mail.Kind != MailExpired || mail.Receiver != 7 {
			t.Errorf("unexpected mail %+v", mail)
		}
	}
	if swept, _ := m.SweepExpired(ctx, "t", time.Unix(999, 0)); swept != 0 {
		t.Errorf("listing without expiry was swept")
	}
}

func TestDeposit(t *testing.T) {
	item := model.ItemTemplate{SellPrice: 1000}
	tests := []struct {
		name     string
		item     model.ItemTemplate
		count    uint32
		duration time.Duration
		percent  uint32
		want     uint64
	}{
		{"floor", model.ItemTemplate{SellPrice: 1}, 1, time.Hour, 15, MinimumDeposit},
		{"no vendor value", model.ItemTemplate{}, 5, time.Hour, 15, MinimumDeposit},
		{"one period", item, 2, 12 * time.Hour, 15, 300},
		{"short rounds up to one", item, 2, 10 * time.Minute, 15, 300},
		{"two days", item, 2, 48 * time.Hour, 15, 1200},
		{"neutral rate", item, 1, 24 * time.Hour, 75, 1500},
	}
	for _, tt := range tests {
		if got := Deposit(tt.item, tt.count, tt.duration, tt.percent); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestMemory_SegmentConfig(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	if _, err := m.LoadSegment(ctx, "horde"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	cfg := model.DefaultMarketConfig("horde")
	cfg.MaxItems = 42
	if err := m.SaveSegment(ctx, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	cfg.MaxItems = 1
	got, err := m.LoadSegment(ctx, "horde")
	if err != nil || got.MaxItems != 42 {
		t.Errorf("expected stored copy with MaxItems 42, got %+v (%v)", got, err)
	}
}
