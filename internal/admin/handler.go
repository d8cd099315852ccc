// Package admin implements the operator command surface used to tune
// segments at runtime.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"AuctionBot/internal/model"
	"AuctionBot/internal/notifier"
)

var ErrUnknownSegment = errors.New("unknown segment")

// Target is the agent state the commands act on. Update and UpdateAll apply
// fn to a copy of the configuration, validate it, persist it and only then
// make it live; on any error the previous configuration stays in effect.
type Target interface {
	Segments() []string
	Update(ctx context.Context, segment string, fn func(*model.MarketConfig) error) error
	UpdateAll(ctx context.Context, fn func(*model.MarketConfig) error) error
	ExpireOwned(ctx context.Context, segment string) (int, error)
	Status() []notifier.SegmentStatus
}

// Handler parses and executes operator commands.
type Handler struct {
	target  Target
	timeout time.Duration
}

func NewHandler(target Target) *Handler {
	return &Handler{target: target, timeout: 30 * time.Second}
}

type command struct {
	usage string
	run   func(h *Handler, ctx context.Context, args []string) (string, error)
}

var commands = map[string]command{
	"buyer":           {"buyer on|off", toggleAll("buyer", func(c *model.MarketConfig, v bool) { c.BuyerEnabled = v })},
	"seller":          {"seller on|off", toggleAll("seller", func(c *model.MarketConfig, v bool) { c.SellerEnabled = v })},
	"usemarketprice":  {"usemarketprice on|off", toggleAll("market price", func(c *model.MarketConfig, v bool) { c.SellAtMarketPrice = v })},
	"ahexpire":        {"ahexpire <segment>", (*Handler).expire},
	"minitems":        {"minitems <segment> <n>", segmentUint("min items", func(c *model.MarketConfig, v uint32) { c.MinItems = v })},
	"maxitems":        {"maxitems <segment> <n>", segmentUint("max items", func(c *model.MarketConfig, v uint32) { c.MaxItems = v })},
	"bidinterval":     {"bidinterval <segment> <minutes>", segmentUint("bidding interval", func(c *model.MarketConfig, v uint32) { c.BiddingInterval = v })},
	"bidsperinterval": {"bidsperinterval <segment> <n>", segmentUint("bids per interval", func(c *model.MarketConfig, v uint32) { c.BidsPerInterval = v })},
	"percentages":     {"percentages <segment> <14 values: trade goods grey..yellow, equipment grey..yellow>", (*Handler).percentages},
	"minprice":        {"minprice <segment> <color> <pct>", tierUint("min price", func(t *model.TierConfig, v uint32) { t.MinPrice = v })},
	"maxprice":        {"maxprice <segment> <color> <pct>", tierUint("max price", func(t *model.TierConfig, v uint32) { t.MaxPrice = v })},
	"minbidprice":     {"minbidprice <segment> <color> <pct>", tierUint("min bid price", func(t *model.TierConfig, v uint32) { t.MinBidPrice = v })},
	"maxbidprice":     {"maxbidprice <segment> <color> <pct>", tierUint("max bid price", func(t *model.TierConfig, v uint32) { t.MaxBidPrice = v })},
	"maxstack":        {"maxstack <segment> <color> <n>", tierUint("max stack", func(t *model.TierConfig, v uint32) { t.MaxStack = v })},
	"buyerprice":      {"buyerprice <segment> <color> <multiplier>", (*Handler).buyerPrice},
	"status":          {"status [segment]", (*Handler).status},
	"tiers":           {"tiers <segment>", (*Handler).tiers},
}

// Handle executes one command line and returns the reply text.
func (h *Handler) Handle(line string) string {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) > 0 && (fields[0] == "/ahbot" || fields[0] == "ahbot" || fields[0] == ".ahbot") {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return h.help()
	}
	name := strings.TrimPrefix(fields[0], "/")
	cmd, ok := commands[name]
	if !ok {
		return h.help()
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	reply, err := cmd.run(h, ctx, fields[1:])
	if err != nil {
		log.Printf("[WARN] admin %s: %v", name, err)
		return fmt.Sprintf("❌ %s: %v\nusage: %s", name, err, cmd.usage)
	}
	log.Printf("[INFO] admin %s: %s", name, reply)
	return reply
}

func (h *Handler) help() string {
	var b strings.Builder
	b.WriteString("available commands:\n")
	for _, name := range commandOrder {
		b.WriteString("• " + commands[name].usage + "\n")
	}
	return b.String()
}

var commandOrder = []string{
	"status", "tiers", "buyer", "seller", "usemarketprice", "ahexpire",
	"minitems", "maxitems", "percentages", "minprice", "maxprice",
	"minbidprice", "maxbidprice", "maxstack", "buyerprice",
	"bidinterval", "bidsperinterval",
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on", "1", "true", "enable":
		return true, nil
	case "off", "0", "false", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func toggleAll(label string, set func(*model.MarketConfig, bool)) func(*Handler, context.Context, []string) (string, error) {
	return func(h *Handler, ctx context.Context, args []string) (string, error) {
		if len(args) != 1 {
			return "", errors.New("expected one argument")
		}
		v, err := parseSwitch(args[0])
		if err != nil {
			return "", err
		}
		if err := h.target.UpdateAll(ctx, func(c *model.MarketConfig) error {
			set(c, v)
			return nil
		}); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s for all segments", label, onOff(v)), nil
	}
}

func segmentUint(label string, set func(*model.MarketConfig, uint32)) func(*Handler, context.Context, []string) (string, error) {
	return func(h *Handler, ctx context.Context, args []string) (string, error) {
		if len(args) != 2 {
			return "", errors.New("expected segment and value")
		}
		v, err := parseUint(args[1])
		if err != nil {
			return "", err
		}
		if err := h.target.Update(ctx, args[0], func(c *model.MarketConfig) error {
			set(c, v)
			return nil
		}); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s set to %d", args[0], label, v), nil
	}
}

func tierUint(label string, set func(*model.TierConfig, uint32)) func(*Handler, context.Context, []string) (string, error) {
	return func(h *Handler, ctx context.Context, args []string) (string, error) {
		if len(args) != 3 {
			return "", errors.New("expected segment, color and value")
		}
		rarity, err := model.ParseRarity(args[1])
		if err != nil {
			return "", err
		}
		v, err := parseUint(args[2])
		if err != nil {
			return "", err
		}
		if err := h.target.Update(ctx, args[0], func(c *model.MarketConfig) error {
			set(&c.Tiers[rarity], v)
			return nil
		}); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s set to %d", args[0], rarity, label, v), nil
	}
}

func (h *Handler) buyerPrice(ctx context.Context, args []string) (string, error) {
	if len(args) != 3 {
		return "", errors.New("expected segment, color and multiplier")
	}
	rarity, err := model.ParseRarity(args[1])
	if err != nil {
		return "", err
	}
	v, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return "", fmt.Errorf("bad multiplier %q", args[2])
	}
	if err := h.target.Update(ctx, args[0], func(c *model.MarketConfig) error {
		c.Tiers[rarity].BuyerPrice = v
		return nil
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s buyer price set to %.2f", args[0], rarity, v), nil
}

func (h *Handler) percentages(ctx context.Context, args []string) (string, error) {
	if len(args) != 1+model.BinCount {
		return "", fmt.Errorf("expected segment and %d values", model.BinCount)
	}
	var p [model.BinCount]uint32
	for i, s := range args[1:] {
		v, err := parseUint(s)
		if err != nil {
			return "", err
		}
		p[i] = v
	}
	if err := h.target.Update(ctx, args[0], func(c *model.MarketConfig) error {
		return c.SetPercentages(p)
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s percentages updated", args[0]), nil
}

func (h *Handler) expire(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("expected segment")
	}
	n, err := h.target.ExpireOwned(ctx, args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %d listings expired", args[0], n), nil
}

func (h *Handler) status(_ context.Context, args []string) (string, error) {
	statuses := h.target.Status()
	if len(args) == 0 {
		return notifier.FormatStatusReport(statuses), nil
	}
	for i := range statuses {
		if statuses[i].Config.Segment == args[0] {
			return notifier.FormatSegmentStatus(&statuses[i]), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownSegment, args[0])
}

func (h *Handler) tiers(_ context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("expected segment")
	}
	for _, s := range h.target.Status() {
		if s.Config.Segment == args[0] {
			return notifier.FormatTiers(&s.Config), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownSegment, args[0])
}

func parseUint(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return uint32(v), nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
