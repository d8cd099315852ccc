package selector

import "AuctionBot/internal/model"

// Quotas is the per-bin limit and current count seen by one sell cycle.
type Quotas struct {
	Limit [model.BinCount]uint32
	Count [model.BinCount]uint32
}

// NewQuotas derives limits from cfg and counts the listings in snapshot that
// fall into a bin. When ownOnly is set only listings owned by self count.
func NewQuotas(cfg *model.MarketConfig, bins *Bins, snapshot []model.Listing, self model.ActorID, ownOnly bool) *Quotas {
	q := &Quotas{}
	for i := 0; i < model.BinCount; i++ {
		q.Limit[i] = cfg.Quota(model.BinFromIndex(i))
	}
	for _, l := range snapshot {
		if ownOnly && l.Owner != self {
			continue
		}
		if key, ok := bins.BinOf(l.ItemTemplate); ok {
			q.Count[key.Index()]++
		}
	}
	return q
}

// Open reports whether bin can take another listing.
func (q *Quotas) Open(bin model.BinKey) bool {
	return q.Count[bin.Index()] < q.Limit[bin.Index()]
}

// Remaining is how many more listings bin can take.
func (q *Quotas) Remaining(bin model.BinKey) uint32 {
	i := bin.Index()
	if q.Count[i] >= q.Limit[i] {
		return 0
	}
	return q.Limit[i] - q.Count[i]
}

// Take records one new listing in bin.
func (q *Quotas) Take(bin model.BinKey) {
	q.Count[bin.Index()]++
}
