package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"AuctionBot/internal/buyer"
	"AuctionBot/internal/model"
	"AuctionBot/internal/seller"
)

// SegmentStatus is a point-in-time view of one managed segment.
type SegmentStatus struct {
	Config     model.MarketConfig
	Active     bool
	LastTick   time.Time
	LastBidRun time.Time
	LastSell   seller.SellReport
	LastBuy    buyer.BuyReport
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatSegmentStatus formats one segment's configuration and last cycles.
func FormatSegmentStatus(s *SegmentStatus) string {
	var b strings.Builder
	c := &s.Config

	b.WriteString(fmt.Sprintf("🏛 <b>%s</b>", html.EscapeString(c.Segment)))
	if !s.Active {
		b.WriteString(" (inactive)")
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("seller: %s | buyer: %s | market price: %s\n",
		onOff(c.SellerEnabled), onOff(c.BuyerEnabled), onOff(c.SellAtMarketPrice)))
	b.WriteString(fmt.Sprintf("items: min %d (effective %d) / max %d, %d per cycle\n",
		c.MinItems, c.EffectiveMinItems(), c.MaxItems, c.ItemsPerCycle))
	b.WriteString(fmt.Sprintf("bidding: every %d min, %d bids\n", c.BiddingInterval, c.BidsPerInterval))

	sell := &s.LastSell
	b.WriteString(fmt.Sprintf("last tick: %s\n", formatTime(s.LastTick)))
	if sell.Skipped != seller.SkipNone {
		b.WriteString(fmt.Sprintf("  sell: skipped (%s), %d listings\n", sell.Skipped, sell.Listings))
	} else {
		b.WriteString(fmt.Sprintf("  sell: %d/%d created, %d bin empty, %d errors\n",
			sell.Created, sell.Requested, sell.BinEmpty, sell.Failed()-sell.BinEmpty))
	}

	b.WriteString(fmt.Sprintf("last bid run: %s\n", formatTime(s.LastBidRun)))
	if !s.LastBidRun.IsZero() {
		buy := &s.LastBuy
		if buy.Disabled {
			b.WriteString("  buy: disabled\n")
		} else {
			b.WriteString(fmt.Sprintf("  buy: %d bids, %d buyouts, %d skipped, %d errors of %d candidates\n",
				buy.Bids, buy.Buyouts, buy.Skipped, buy.Errors, buy.Candidates))
		}
	}
	return b.String()
}

// FormatStatusReport formats every segment into one message.
func FormatStatusReport(statuses []SegmentStatus) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>AuctionBot status</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))
	if len(statuses) == 0 {
		b.WriteString("no segments configured\n")
		return b.String()
	}
	for i := range statuses {
		b.WriteString(FormatSegmentStatus(&statuses[i]))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatTiers lists the per-rarity tier settings of a segment.
func FormatTiers(c *model.MarketConfig) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚙️ <b>%s tiers</b>\n", html.EscapeString(c.Segment)))
	b.WriteString("<pre>")
	b.WriteString("color   tg%  eq%  price     bid      stack buyer\n")
	for r := 0; r < model.RarityCount; r++ {
		rarity := model.Rarity(r)
		t := c.Tier(rarity)
		b.WriteString(fmt.Sprintf("%-7s %3d  %3d  %4d-%-4d %3d-%-3d  %5d %5.1f\n",
			rarity.Color(),
			c.Percentages[model.BinKey{Rarity: rarity, Category: model.CategoryTradeGood}.Index()],
			c.Percentages[model.BinKey{Rarity: rarity, Category: model.CategoryEquipment}.Index()],
			t.MinPrice, t.MaxPrice, t.MinBidPrice, t.MaxBidPrice, t.MaxStack, t.BuyerPrice))
	}
	b.WriteString("</pre>")
	return b.String()
}
