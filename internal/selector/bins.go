package selector

import (
	"slices"

	"AuctionBot/internal/model"
)

// Bins classifies item ids into the 14 rarity x category bins. It is
// read-only after NewBins returns and may be shared between agents.
type Bins struct {
	items [model.BinCount][]uint32
	index map[uint32]model.BinKey
}

// LoadOptions filters templates while building bins.
type LoadOptions struct {
	Disabled map[uint32]bool
}

// NewBins classifies templates. Disabled items, unsupported rarities and
// items nobody could price are left out.
func NewBins(templates []model.ItemTemplate, opts LoadOptions) *Bins {
	b := &Bins{index: make(map[uint32]model.BinKey, len(templates))}
	for _, t := range templates {
		if opts.Disabled[t.ID] || !t.Rarity.Supported() {
			continue
		}
		if t.SellPrice == 0 && t.BuyPrice == 0 {
			continue
		}
		if _, dup := b.index[t.ID]; dup {
			continue
		}
		key := t.Bin()
		b.items[key.Index()] = append(b.items[key.Index()], t.ID)
		b.index[t.ID] = key
	}
	for i := range b.items {
		slices.Sort(b.items[i])
	}
	return b
}

// Items returns the ordered ids of bin. The slice must not be modified.
func (b *Bins) Items(bin model.BinKey) []uint32 {
	return b.items[bin.Index()]
}

// Len returns the number of ids in bin.
func (b *Bins) Len(bin model.BinKey) int {
	return len(b.items[bin.Index()])
}

// Total returns the number of classified items.
func (b *Bins) Total() int {
	return len(b.index)
}

// BinOf returns the bin an item was classified into.
func (b *Bins) BinOf(itemID uint32) (model.BinKey, bool) {
	k, ok := b.index[itemID]
	return k, ok
}
