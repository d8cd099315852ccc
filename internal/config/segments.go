package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"AuctionBot/internal/model"
)

// segmentYAML is the YAML form of one segment. Fields left out of the file
// keep the stock defaults.
type segmentYAML struct {
	HouseID                 uint32              `yaml:"house_id"`
	Neutral                 bool                `yaml:"neutral"`
	Seller                  bool                `yaml:"seller"`
	Buyer                   bool                `yaml:"buyer"`
	UseMarketPrice          bool                `yaml:"use_market_price"`
	SellMethod              bool                `yaml:"sell_method"`
	BuyMethod               bool                `yaml:"buy_method"`
	ConsiderOnlyBotAuctions bool                `yaml:"consider_only_bot_auctions"`
	DivisibleStacks         bool                `yaml:"divisible_stacks"`
	DuplicatesCount         int                 `yaml:"duplicates_count"`
	ElapsingTimeClass       string              `yaml:"elapsing_time_class"`
	MinItems                uint32              `yaml:"min_items"`
	MaxItems                uint32              `yaml:"max_items"`
	ItemsPerCycle           uint32              `yaml:"items_per_cycle"`
	BiddingInterval         uint32              `yaml:"bidding_interval"`
	BidsPerInterval         uint32              `yaml:"bids_per_interval"`
	DepositPercent          uint32              `yaml:"deposit_percent"`
	Percentages             []uint32            `yaml:"percentages"`
	Tiers                   map[string]tierYAML `yaml:"tiers"`
	TraceSeller             bool                `yaml:"trace_seller"`
	TraceBuyer              bool                `yaml:"trace_buyer"`
	DebugSeller             bool                `yaml:"debug_seller"`
	DebugBuyer              bool                `yaml:"debug_buyer"`
}

type tierYAML struct {
	MinPrice    *uint32  `yaml:"min_price"`
	MaxPrice    *uint32  `yaml:"max_price"`
	MinBidPrice *uint32  `yaml:"min_bid_price"`
	MaxBidPrice *uint32  `yaml:"max_bid_price"`
	MaxStack    *uint32  `yaml:"max_stack"`
	BuyerPrice  *float64 `yaml:"buyer_price"`
}

var timeClasses = map[string]model.TimeClass{
	"long":   model.TimeClassLong,
	"medium": model.TimeClassMedium,
	"short":  model.TimeClassShort,
}

func defaultSegment(name string) *model.MarketConfig {
	c := model.DefaultMarketConfig(name)
	if name == "neutral" {
		c.Neutral = true
		c.DepositPercent = 75
	}
	return c
}

func fromDefaults(c *model.MarketConfig) segmentYAML {
	return segmentYAML{
		HouseID:                 c.HouseID,
		Neutral:                 c.Neutral,
		Seller:                  c.SellerEnabled,
		Buyer:                   c.BuyerEnabled,
		UseMarketPrice:          c.SellAtMarketPrice,
		SellMethod:              c.SellMethod,
		BuyMethod:               c.BuyMethod,
		ConsiderOnlyBotAuctions: c.ConsiderOnlyBotAuctions,
		DivisibleStacks:         c.DivisibleStacks,
		DuplicatesCount:         c.DuplicatesCount,
		MinItems:                c.MinItems,
		MaxItems:                c.MaxItems,
		ItemsPerCycle:           c.ItemsPerCycle,
		BiddingInterval:         c.BiddingInterval,
		BidsPerInterval:         c.BidsPerInterval,
		DepositPercent:          c.DepositPercent,
	}
}

// MarketConfigs builds one validated MarketConfig per segment, sorted by name.
func (c *Config) MarketConfigs() ([]*model.MarketConfig, error) {
	names := make([]string, 0, len(c.Segments))
	for name := range c.Segments {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*model.MarketConfig, 0, len(names))
	for _, name := range names {
		node := c.Segments[name]
		mc, err := buildSegment(name, &node)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", name, err)
		}
		out = append(out, mc)
	}
	return out, nil
}

func buildSegment(name string, node *yaml.Node) (*model.MarketConfig, error) {
	mc := defaultSegment(name)
	sy := fromDefaults(mc)
	if node.Kind != 0 && node.Tag != "!!null" {
		if err := node.Decode(&sy); err != nil {
			return nil, err
		}
	}

	mc.HouseID = sy.HouseID
	mc.Neutral = sy.Neutral
	mc.SellerEnabled = sy.Seller
	mc.BuyerEnabled = sy.Buyer
	mc.SellAtMarketPrice = sy.UseMarketPrice
	mc.SellMethod = sy.SellMethod
	mc.BuyMethod = sy.BuyMethod
	mc.ConsiderOnlyBotAuctions = sy.ConsiderOnlyBotAuctions
	mc.DivisibleStacks = sy.DivisibleStacks
	mc.DuplicatesCount = sy.DuplicatesCount
	mc.MinItems = sy.MinItems
	mc.MaxItems = sy.MaxItems
	mc.ItemsPerCycle = sy.ItemsPerCycle
	mc.BiddingInterval = sy.BiddingInterval
	mc.BidsPerInterval = sy.BidsPerInterval
	mc.DepositPercent = sy.DepositPercent
	mc.TraceSeller = sy.TraceSeller
	mc.TraceBuyer = sy.TraceBuyer
	mc.DebugSeller = sy.DebugSeller
	mc.DebugBuyer = sy.DebugBuyer

	if sy.ElapsingTimeClass != "" {
		tc, ok := timeClasses[sy.ElapsingTimeClass]
		if !ok {
			return nil, fmt.Errorf("unknown elapsing_time_class %q", sy.ElapsingTimeClass)
		}
		mc.ElapsingTimeClass = tc
	}

	switch len(sy.Percentages) {
	case 0:
	case model.BinCount:
		var p [model.BinCount]uint32
		copy(p[:], sy.Percentages)
		if err := mc.SetPercentages(p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("percentages needs %d values, got %d", model.BinCount, len(sy.Percentages))
	}

	for color, ty := range sy.Tiers {
		r, err := model.ParseRarity(color)
		if err != nil {
			return nil, err
		}
		applyTier(&mc.Tiers[r], ty)
	}

	if err := mc.Validate(); err != nil {
		return nil, err
	}
	return mc, nil
}

func applyTier(t *model.TierConfig, y tierYAML) {
	if y.MinPrice != nil {
		t.MinPrice = *y.MinPrice
	}
	if y.MaxPrice != nil {
		t.MaxPrice = *y.MaxPrice
	}
	if y.MinBidPrice != nil {
		t.MinBidPrice = *y.MinBidPrice
	}
	if y.MaxBidPrice != nil {
		t.MaxBidPrice = *y.MaxBidPrice
	}
	if y.MaxStack != nil {
		t.MaxStack = *y.MaxStack
	}
	if y.BuyerPrice != nil {
		t.BuyerPrice = *y.BuyerPrice
	}
}
