package pricing

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"AuctionBot/internal/model"
)

func newTestPolicy(seed uint64, overrides OverrideTable) *Policy {
	return NewPolicy(rand.New(rand.NewPCG(seed, seed^0x9e3779b9)), overrides)
}

func TestStackSize_Bounds(t *testing.T) {
	p := newTestPolicy(1, nil)
	tests := []struct {
		tierCap, itemMax uint32
		divisible        bool
	}{
		{0, 20, false},
		{0, 20, true},
		{5, 20, false},
		{7, 200, true},
		{0, 12, true},
		{0, 9, true},
		{0, 7, true},
		{10, 1000, true},
	}
	for _, tt := range tests {
		limit := tt.itemMax
		if tt.tierCap > 0 && tt.tierCap < limit {
			limit = tt.tierCap
		}
		for i := 0; i < 500; i++ {
			n := p.StackSize(tt.tierCap, tt.itemMax, tt.divisible)
			if n < 1 || n > limit {
				t.Fatalf("cap=%d max=%d: stack %d outside [1,%d]", tt.tierCap, tt.itemMax, n, limit)
			}
			if tt.divisible && n%5 != 0 && n%4 != 0 && n%3 != 0 {
				t.Fatalf("cap=%d max=%d: divisible stack %d is not a multiple of 3, 4 or 5", tt.tierCap, tt.itemMax, n)
			}
		}
	}
}

func TestStackSize_SingleCaps(t *testing.T) {
	p := newTestPolicy(2, nil)
	if n := p.StackSize(1, 20, true); n != 1 {
		t.Errorf("tier cap 1: expected 1, got %d", n)
	}
	if n := p.StackSize(0, 1, false); n != 1 {
		t.Errorf("item max 1: expected 1, got %d", n)
	}
	if n := p.StackSize(5, 0, false); n != 1 {
		t.Errorf("item max 0: expected 1, got %d", n)
	}
}

func TestStackSize_PrefersFive(t *testing.T) {
	p := newTestPolicy(3, nil)
	// 20 is divisible by both 5 and 4; only multiples of 5 may appear.
	for i := 0; i < 200; i++ {
		if n := p.StackSize(0, 20, true); n%5 != 0 {
			t.Fatalf("expected multiple of 5, got %d", n)
		}
	}
	// 12 is divisible by 4 and 3; 4 wins.
	for i := 0; i < 200; i++ {
		if n := p.StackSize(0, 12, true); n%4 != 0 {
			t.Fatalf("expected multiple of 4, got %d", n)
		}
	}
}

func TestDuration_Bands(t *testing.T) {
	p := newTestPolicy(4, nil)
	allowed := map[model.TimeClass]map[int64]bool{
		model.TimeClassShort:  {},
		model.TimeClassMedium: {},
		model.TimeClassLong:   {86400: true, 172800: true, 259200: true},
	}
	for k := int64(1); k <= 5; k++ {
		allowed[model.TimeClassShort][600*k] = true
	}
	for k := int64(1); k <= 23; k++ {
		allowed[model.TimeClassMedium][3600*k] = true
	}
	for tc, set := range allowed {
		for i := 0; i < 300; i++ {
			secs := int64(p.Duration(tc) / time.Second)
			if !set[secs] {
				t.Fatalf("time class %d: unexpected duration %ds", tc, secs)
			}
		}
	}
	// Unknown classes fall back to the long band.
	for i := 0; i < 50; i++ {
		if secs := int64(p.Duration(model.TimeClass(9)) / time.Second); !allowed[model.TimeClassLong][secs] {
			t.Fatalf("default class: unexpected duration %ds", secs)
		}
	}
}

func TestPrices_Formula(t *testing.T) {
	p := newTestPolicy(5, nil)
	tier := model.TierConfig{MinPrice: 150, MaxPrice: 250, MinBidPrice: 70, MaxBidPrice: 100}
	tmpl := model.ItemTemplate{ID: 2589, SellPrice: 100, BuyPrice: 400, Rarity: model.RarityNormal}
	for i := 0; i < 500; i++ {
		buyout, bid, err := p.Prices(PriceInput{Template: tmpl, StackCount: 10, Tier: tier})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buyout < 1500 || buyout > 2500 {
			t.Fatalf("buyout %d outside [1500,2500]", buyout)
		}
		if bid > buyout {
			t.Fatalf("bid %d exceeds buyout %d", bid, buyout)
		}
		if bid < buyout*70/100 {
			t.Fatalf("bid %d below 70%% of buyout %d", bid, buyout)
		}
	}
}

func TestPrices_BasisSelection(t *testing.T) {
	tier := model.TierConfig{MinPrice: 100, MaxPrice: 100, MinBidPrice: 100, MaxBidPrice: 100}
	tmpl := model.ItemTemplate{ID: 1, SellPrice: 10, BuyPrice: 40, Rarity: model.RarityRare}
	p := newTestPolicy(6, nil)

	buyout, _, _ := p.Prices(PriceInput{Template: tmpl, StackCount: 1, Tier: tier})
	if buyout != 10 {
		t.Errorf("sell basis: expected 10, got %d", buyout)
	}
	buyout, _, _ = p.Prices(PriceInput{Template: tmpl, StackCount: 1, Tier: tier, UseBuyPrice: true})
	if buyout != 40 {
		t.Errorf("buy basis: expected 40, got %d", buyout)
	}
	buyout, _, _ = p.Prices(PriceInput{Template: tmpl, StackCount: 2, Tier: tier, MarketPrice: 75})
	if buyout != 150 {
		t.Errorf("market basis: expected 150, got %d", buyout)
	}
}

func TestPrices_Rejections(t *testing.T) {
	p := newTestPolicy(7, nil)
	tier := model.TierConfig{MinPrice: 100, MaxPrice: 150}

	_, _, err := p.Prices(PriceInput{Template: model.ItemTemplate{ID: 1, Rarity: model.RarityEpic}, StackCount: 1, Tier: tier})
	if !errors.Is(err, ErrZeroPrice) {
		t.Errorf("expected ErrZeroPrice, got %v", err)
	}
	_, _, err = p.Prices(PriceInput{Template: model.ItemTemplate{ID: 1, SellPrice: 10, Rarity: 8}, StackCount: 1, Tier: tier})
	if !errors.Is(err, ErrUnsupportedRarity) {
		t.Errorf("expected ErrUnsupportedRarity, got %v", err)
	}
}

func TestPrices_Override(t *testing.T) {
	table := OverrideTable{}
	table.Add(Band{Min: 1000, Max: 2000}, 42)
	p := newTestPolicy(8, table)
	tier := model.TierConfig{MinPrice: 1, MaxPrice: 1, MinBidPrice: 1, MaxBidPrice: 1}
	tmpl := model.ItemTemplate{ID: 42, SellPrice: 1, Rarity: model.RarityEpic}
	for i := 0; i < 200; i++ {
		buyout, bid, err := p.Prices(PriceInput{Template: tmpl, StackCount: 3, Tier: tier})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buyout < 3000 || buyout > 6000 {
			t.Fatalf("override buyout %d outside [3000,6000]", buyout)
		}
		if bid < buyout*70/100 || bid > buyout*80/100 {
			t.Fatalf("override bid %d not in 70-80%% of %d", bid, buyout)
		}
	}
}

func TestPrices_OverrideNeedsVendorValue(t *testing.T) {
	table := OverrideTable{}
	table.Add(Band{Min: 1000, Max: 2000}, 42)
	p := newTestPolicy(10, table)
	tier := model.TierConfig{MinPrice: 100, MaxPrice: 100, MinBidPrice: 100, MaxBidPrice: 100}
	tmpl := model.ItemTemplate{ID: 42, BuyPrice: 40, Rarity: model.RarityEpic}

	buyout, _, err := p.Prices(PriceInput{Template: tmpl, StackCount: 1, Tier: tier, UseBuyPrice: true})
	if err != nil || buyout != 40 {
		t.Errorf("expected formula buyout 40, got %d (%v)", buyout, err)
	}
	_, _, err = p.Prices(PriceInput{Template: tmpl, StackCount: 1, Tier: tier})
	if !errors.Is(err, ErrZeroPrice) {
		t.Errorf("expected ErrZeroPrice without a vendor value, got %v", err)
	}
}

func TestDefaultOverrides_FirstGroupWins(t *testing.T) {
	table := DefaultOverrides()
	b, ok := table.Lookup(37835)
	if !ok {
		t.Fatal("expected 37835 in default table")
	}
	if b.Min != 8000000 {
		t.Errorf("expected ilvl band for 37835, got %+v", b)
	}
	if _, ok := table.Lookup(25); ok {
		t.Error("unexpected override for ordinary item")
	}
}

func TestBidRate_Range(t *testing.T) {
	p := newTestPolicy(9, nil)
	for i := 0; i < 1000; i++ {
		r := p.BidRate()
		if r < 0.01 || r > 1.0 {
			t.Fatalf("bid rate %f outside [0.01,1]", r)
		}
	}
}
