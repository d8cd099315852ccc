package pricehistory

import (
	"context"
	"sync"

	"AuctionBot/internal/model"
)

// Memory keeps observations in process. Used when Redis is not configured.
type Memory struct {
	mu     sync.Mutex
	prices map[string]map[uint32]map[uint32]uint64 // segment -> item -> listing -> unit price
}

func NewMemory() *Memory {
	return &Memory{prices: map[string]map[uint32]map[uint32]uint64{}}
}

func (m *Memory) Observe(_ context.Context, segment string, listings []model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seg, ok := m.prices[segment]
	if !ok {
		seg = map[uint32]map[uint32]uint64{}
		m.prices[segment] = seg
	}
	for _, l := range listings {
		p, ok := unitPrice(l)
		if !ok {
			continue
		}
		byListing, ok := seg[l.ItemTemplate]
		if !ok {
			byListing = map[uint32]uint64{}
			seg[l.ItemTemplate] = byListing
		}
		byListing[l.ID] = p
	}
	return nil
}

func (m *Memory) UnitPrice(_ context.Context, segment string, itemID uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byListing := m.prices[segment][itemID]
	values := make([]uint64, 0, len(byListing))
	for _, v := range byListing {
		values = append(values, v)
	}
	return mean(values), nil
}
