package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPercentages = errors.New("invalid bin percentages")
	ErrInvalidTier        = errors.New("invalid tier configuration")
)

// TierConfig holds the per-rarity pricing and stacking bounds.
// Price and bid bounds are percentages; BuyerPrice is a multiplier.
type TierConfig struct {
	MinPrice    uint32  `json:"min_price"`
	MaxPrice    uint32  `json:"max_price"`
	MinBidPrice uint32  `json:"min_bid_price"`
	MaxBidPrice uint32  `json:"max_bid_price"`
	MaxStack    uint32  `json:"max_stack"` // 0 means the item's own limit
	BuyerPrice  float64 `json:"buyer_price"`
}

// Validate checks the bounds are ordered and bids never exceed buyout.
func (t TierConfig) Validate() error {
	if t.MinPrice > t.MaxPrice {
		return fmt.Errorf("%w: min price %d > max price %d", ErrInvalidTier, t.MinPrice, t.MaxPrice)
	}
	if t.MinBidPrice > t.MaxBidPrice {
		return fmt.Errorf("%w: min bid %d > max bid %d", ErrInvalidTier, t.MinBidPrice, t.MaxBidPrice)
	}
	if t.MaxBidPrice > 100 {
		return fmt.Errorf("%w: max bid %d exceeds 100%%", ErrInvalidTier, t.MaxBidPrice)
	}
	if t.BuyerPrice < 0 {
		return fmt.Errorf("%w: negative buyer price", ErrInvalidTier)
	}
	return nil
}

// MarketConfig is the configuration of one market segment. Each agent owns
// its instances exclusively; nothing here is shared between segments.
type MarketConfig struct {
	Segment string `json:"segment"`
	HouseID uint32 `json:"house_id"`
	Neutral bool   `json:"neutral"`

	SellerEnabled           bool      `json:"seller_enabled"`
	BuyerEnabled            bool      `json:"buyer_enabled"`
	SellAtMarketPrice       bool      `json:"sell_at_market_price"`
	SellMethod              bool      `json:"sell_method"` // true: buy price basis
	BuyMethod               bool      `json:"buy_method"`  // true: sell price basis
	ConsiderOnlyBotAuctions bool      `json:"consider_only_bot_auctions"`
	DivisibleStacks         bool      `json:"divisible_stacks"`
	DuplicatesCount         int       `json:"duplicates_count"`
	ElapsingTimeClass       TimeClass `json:"elapsing_time_class"`

	MinItems      uint32 `json:"min_items"`
	MaxItems      uint32 `json:"max_items"`
	ItemsPerCycle uint32 `json:"items_per_cycle"`

	Percentages [BinCount]uint32        `json:"percentages"`
	Tiers       [RarityCount]TierConfig `json:"tiers"`

	BiddingInterval uint32 `json:"bidding_interval"` // minutes
	BidsPerInterval uint32 `json:"bids_per_interval"`
	DepositPercent  uint32 `json:"deposit_percent"`

	TraceSeller bool `json:"trace_seller"`
	TraceBuyer  bool `json:"trace_buyer"`
	DebugSeller bool `json:"debug_seller"`
	DebugBuyer  bool `json:"debug_buyer"`
}

// DefaultMarketConfig returns a segment configured with the stock tuning.
func DefaultMarketConfig(segment string) *MarketConfig {
	c := &MarketConfig{
		Segment:           segment,
		SellerEnabled:     true,
		BuyerEnabled:      false,
		BuyMethod:         true,
		DivisibleStacks:   true,
		ElapsingTimeClass: TimeClassLong,
		MaxItems:          0,
		ItemsPerCycle:     200,
		BiddingInterval:   1,
		BidsPerInterval:   1,
		DepositPercent:    15,
	}
	tradeGoods := [RarityCount]uint32{0, 27, 12, 10, 1, 0, 0}
	equipment := [RarityCount]uint32{0, 10, 30, 8, 2, 0, 0}
	for r := 0; r < RarityCount; r++ {
		c.Percentages[BinKey{Rarity(r), CategoryTradeGood}.Index()] = tradeGoods[r]
		c.Percentages[BinKey{Rarity(r), CategoryEquipment}.Index()] = equipment[r]
	}
	prices := [RarityCount][2]uint32{{100, 150}, {150, 250}, {800, 1400}, {1250, 1750}, {2250, 4550}, {3250, 5550}, {5250, 6550}}
	buyer := [RarityCount]float64{1, 3, 5, 12, 15, 20, 22}
	for r := 0; r < RarityCount; r++ {
		c.Tiers[r] = TierConfig{
			MinPrice:    prices[r][0],
			MaxPrice:    prices[r][1],
			MinBidPrice: 70,
			MaxBidPrice: 100,
			BuyerPrice:  buyer[r],
		}
	}
	return c
}

// Clone returns an independent copy.
func (c *MarketConfig) Clone() *MarketConfig {
	cp := *c
	return &cp
}

// Tier returns the tier configuration for r. Callers must check r.Supported().
func (c *MarketConfig) Tier(r Rarity) TierConfig {
	return c.Tiers[r]
}

// EffectiveMinItems treats an unset or oversized minimum as the maximum.
func (c *MarketConfig) EffectiveMinItems() uint32 {
	if c.MinItems == 0 || c.MinItems > c.MaxItems {
		return c.MaxItems
	}
	return c.MinItems
}

// Quota is the maximum number of concurrent listings for bin.
func (c *MarketConfig) Quota(bin BinKey) uint32 {
	return c.MaxItems * c.Percentages[bin.Index()] / 100
}

// SetPercentages replaces the bin percentages after validating them. On
// error the previous percentages are kept.
func (c *MarketConfig) SetPercentages(p [BinCount]uint32) error {
	if err := ValidatePercentages(p); err != nil {
		return err
	}
	c.Percentages = p
	return nil
}

// ValidatePercentages requires every value to be at most 100 and the total
// to be exactly 100.
func ValidatePercentages(p [BinCount]uint32) error {
	var total uint32
	for i, v := range p {
		if v > 100 {
			return fmt.Errorf("%w: %s is %d", ErrInvalidPercentages, BinFromIndex(i), v)
		}
		total += v
	}
	if total != 100 {
		return fmt.Errorf("%w: total is %d, want 100", ErrInvalidPercentages, total)
	}
	return nil
}

// Validate checks the whole configuration for internal consistency.
func (c *MarketConfig) Validate() error {
	if c.Segment == "" {
		return errors.New("segment name is required")
	}
	if err := ValidatePercentages(c.Percentages); err != nil {
		return fmt.Errorf("segment %s: %w", c.Segment, err)
	}
	for r, t := range c.Tiers {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("segment %s tier %s: %w", c.Segment, Rarity(r), err)
		}
	}
	if c.ElapsingTimeClass > TimeClassShort {
		return fmt.Errorf("segment %s: unknown time class %d", c.Segment, c.ElapsingTimeClass)
	}
	if c.DuplicatesCount < 0 {
		return fmt.Errorf("segment %s: negative duplicates count", c.Segment)
	}
	return nil
}
