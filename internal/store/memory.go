package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"AuctionBot/internal/model"
)

// Memory is an in-process marketplace and catalog used for dry runs and
// tests. It implements MarketStore, Catalog and ConfigStore.
type Memory struct {
	mu         sync.Mutex
	templates  map[uint32]model.ItemTemplate
	properties map[uint32][]int32
	listings   map[uint32]model.Listing
	items      map[uint64]model.ItemHandle
	configs    map[string]model.MarketConfig
	mail       []Mail
	rates      depositRates
	rng        *rand.Rand
	nextID     uint32
	nextGUID   uint64

	// FailInstantiate makes Instantiate fail for these template ids.
	FailInstantiate map[uint32]bool
}

// NewMemory creates an empty Memory store.
func NewMemory(rng *rand.Rand) *Memory {
	return &Memory{
		templates:       map[uint32]model.ItemTemplate{},
		properties:      map[uint32][]int32{},
		listings:        map[uint32]model.Listing{},
		items:           map[uint64]model.ItemHandle{},
		configs:         map[string]model.MarketConfig{},
		rates:           depositRates{},
		rng:             rng,
		FailInstantiate: map[uint32]bool{},
	}
}

// AddTemplates registers catalog entries.
func (m *Memory) AddTemplates(ts ...model.ItemTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range ts {
		m.templates[t.ID] = t
	}
}

// AddRandomProperties registers the random property pool of an item.
func (m *Memory) AddRandomProperties(id uint32, props ...int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[id] = append(m.properties[id], props...)
}

// SetDepositPercent sets the deposit rate of a segment.
func (m *Memory) SetDepositPercent(segment string, percent uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[segment] = percent
}

// Seed inserts a listing as-is, assigning an id when it has none.
func (m *Memory) Seed(l model.Listing) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == 0 {
		m.nextID++
		l.ID = m.nextID
	} else if l.ID > m.nextID {
		m.nextID = l.ID
	}
	m.listings[l.ID] = l
	return l.ID
}

// Mail returns the notifications delivered so far.
func (m *Memory) Mail() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.mail...)
}

// Listing returns one listing by id.
func (m *Memory) Listing(id uint32) (model.Listing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	return l, ok
}

// Item returns one item instance by guid.
func (m *Memory) Item(guid uint64) (model.ItemHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[guid]
	return it, ok
}

// expired reports whether l has run out by now. Seeded listings without an
// expiry never run out.
func expired(l model.Listing, now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !l.ExpiresAt.After(now)
}

func (m *Memory) ListingsFor(_ context.Context, segment string) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []model.Listing
	for _, l := range m.listings {
		if l.Segment == segment && !expired(l, now) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) BidCandidates(ctx context.Context, segment string, self model.ActorID) ([]model.Listing, error) {
	all, err := m.ListingsFor(ctx, segment)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, l := range all {
		if l.Owner != self && l.Bidder != self {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) CreateListing(_ context.Context, req model.CreateListingRequest) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	l := model.Listing{
		ID:           m.nextID,
		Segment:      req.Segment,
		Owner:        req.Owner,
		ItemGUID:     req.Item.GUID,
		ItemTemplate: req.Item.Template,
		ItemCount:    req.Item.Count,
		StartBid:     req.StartBid,
		Buyout:       req.Buyout,
		ExpiresAt:    time.Now().Add(req.Duration),
		Deposit:      req.Deposit,
	}
	m.listings[l.ID] = l
	m.items[req.Item.GUID] = req.Item
	return l.ID, nil
}

func (m *Memory) RemoveListing(_ context.Context, id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[id]; !ok {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	delete(m.listings, id)
	return nil
}

func (m *Memory) UpdateBid(_ context.Context, req model.BidRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[req.ListingID]
	if !ok {
		return fmt.Errorf("listing %d: %w", req.ListingID, ErrNotFound)
	}
	if req.NotifyPrevious {
		m.mail = append(m.mail, Mail{Kind: MailOutbid, Receiver: req.PreviousBidder, ListingID: l.ID, Template: l.ItemTemplate, Amount: req.PreviousBid})
	}
	l.Bidder = req.Bidder
	l.Bid = req.Amount
	m.listings[l.ID] = l
	return nil
}

func (m *Memory) RecordBuyout(_ context.Context, req model.BuyoutRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[req.Listing.ID]
	if !ok {
		return fmt.Errorf("listing %d: %w", req.Listing.ID, ErrNotFound)
	}
	if req.NotifyPrevious {
		m.mail = append(m.mail, Mail{Kind: MailOutbid, Receiver: l.Bidder, ListingID: l.ID, Template: l.ItemTemplate, Amount: l.Bid})
	}
	m.mail = append(m.mail,
		Mail{Kind: MailSold, Receiver: l.Owner, ListingID: l.ID, Template: l.ItemTemplate, Amount: l.Buyout},
		Mail{Kind: MailWon, Receiver: req.Buyer, ListingID: l.ID, Template: l.ItemTemplate, Amount: l.Buyout},
	)
	if it, ok := m.items[l.ItemGUID]; ok {
		it.Owner = req.Buyer
		m.items[l.ItemGUID] = it
	}
	delete(m.listings, l.ID)
	return nil
}

func (m *Memory) DepositFor(_ context.Context, segment string, duration time.Duration, item model.ItemTemplate, count uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Deposit(item, count, duration, m.rates.percent(segment)), nil
}

func (m *Memory) ExpireOwned(_ context.Context, segment string, owner model.ActorID, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, l := range m.listings {
		if l.Segment == segment && l.Owner == owner {
			l.ExpiresAt = at
			m.listings[id] = l
			n++
		}
	}
	return n, nil
}

func (m *Memory) SweepExpired(_ context.Context, segment string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint32
	for id, l := range m.listings {
		if l.Segment == segment && expired(l, now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		l := m.listings[id]
		m.mail = append(m.mail, expiryMail(l)...)
		if it, ok := m.items[l.ItemGUID]; ok {
			it.Owner = expiryReceiver(l)
			m.items[l.ItemGUID] = it
		}
		delete(m.listings, id)
	}
	return len(ids), nil
}

func (m *Memory) TemplateFor(_ context.Context, id uint32) (model.ItemTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return model.ItemTemplate{}, fmt.Errorf("item template %d: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *Memory) Templates(_ context.Context) ([]model.ItemTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ItemTemplate, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Instantiate(_ context.Context, id uint32, count uint32, owner model.ActorID) (model.ItemHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return model.ItemHandle{}, fmt.Errorf("item template %d: %w", id, ErrNotFound)
	}
	if m.FailInstantiate[id] {
		return model.ItemHandle{}, fmt.Errorf("instantiate item %d: refused", id)
	}
	m.nextGUID++
	it := model.ItemHandle{GUID: m.nextGUID, Template: id, Count: count, Owner: owner}
	m.items[it.GUID] = it
	return it, nil
}

func (m *Memory) Destroy(_ context.Context, guid uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[guid]; !ok {
		return fmt.Errorf("item %d: %w", guid, ErrNotFound)
	}
	delete(m.items, guid)
	return nil
}

func (m *Memory) RandomPropertyFor(_ context.Context, id uint32) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	props := m.properties[id]
	if len(props) == 0 || m.rng == nil {
		return 0, nil
	}
	return props[m.rng.IntN(len(props))], nil
}

func (m *Memory) SaveSegment(_ context.Context, cfg *model.MarketConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.Segment] = *cfg
	return nil
}

func (m *Memory) LoadSegment(_ context.Context, segment string) (*model.MarketConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.configs[segment]
	if !ok {
		return nil, fmt.Errorf("segment %s: %w", segment, ErrNotFound)
	}
	return &c, nil
}
