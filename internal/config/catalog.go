package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"AuctionBot/internal/model"
	"AuctionBot/internal/pricing"
)

// LoadCatalog reads item templates from a YAML list. A missing file yields
// an empty catalog.
func LoadCatalog(path string) ([]model.ItemTemplate, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var items []model.ItemTemplate
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, it := range items {
		if it.ID == 0 {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
	}
	return items, nil
}

// Overrides returns the stock override table with the configured price
// bands layered on top.
func (c *Config) Overrides() pricing.OverrideTable {
	table := pricing.DefaultOverrides()
	extra := pricing.OverrideTable{}
	for _, b := range c.Agent.PriceBands {
		extra.Add(pricing.Band{Min: b.Min, Max: b.Max}, b.Items...)
	}
	table.Merge(extra)
	return table
}

// DisabledItems returns the configured disabled item ids as a set.
func (c *Config) DisabledItems() map[uint32]bool {
	out := make(map[uint32]bool, len(c.Agent.DisabledItems))
	for _, id := range c.Agent.DisabledItems {
		out[id] = true
	}
	return out
}

// Identity returns the actor the agent trades as.
func (c *Config) Identity() model.Identity {
	return model.Identity{
		ID:      model.ActorID(c.Agent.Identity.ID),
		Account: c.Agent.Identity.Account,
		Name:    c.Agent.Identity.Name,
	}
}

// Family returns the sibling agent ids the buyer must leave alone.
func (c *Config) Family() []model.ActorID {
	out := make([]model.ActorID, 0, len(c.Agent.Family))
	for _, id := range c.Agent.Family {
		out = append(out, model.ActorID(id))
	}
	return out
}
