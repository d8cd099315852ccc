// Package selector picks items to list from rarity/category bins under
// per-bin quotas.
package selector

import (
	"math/rand/v2"

	"AuctionBot/internal/model"
)

// Outcome is the result of a selection.
type Outcome struct {
	Status   Status
	ItemID   uint32
	Bin      model.BinKey
	Attempts int
}

// Selector draws candidates from bins. Not safe for concurrent use.
type Selector struct {
	bins *Bins
	rng  *rand.Rand
}

// New creates a Selector over bins.
func New(bins *Bins, rng *rand.Rand) *Selector {
	return &Selector{bins: bins, rng: rng}
}

// Scan runs one pass over the bins in priority order. The first bin that is
// non-empty and under quota gets a uniform draw; a draw is rejected when the
// agent already lists maxDup stacks of that item, and the scan moves on.
func (s *Selector) Scan(q *Quotas, owned map[uint32]int, maxDup int) Outcome {
	for _, bin := range model.ScanOrder {
		items := s.bins.Items(bin)
		if len(items) == 0 || !q.Open(bin) {
			continue
		}
		id := items[s.rng.IntN(len(items))]
		if maxDup > 0 && owned[id] >= maxDup {
			continue
		}
		return Outcome{Status: StatusSelected, ItemID: id, Bin: bin}
	}
	return Outcome{Status: StatusExhausted}
}

// Select scans under policy until a candidate is found or attempts run out.
func (s *Selector) Select(q *Quotas, owned map[uint32]int, maxDup int, policy RetryPolicy) Outcome {
	return policy.Run(func() Outcome {
		return s.Scan(q, owned, maxDup)
	})
}
