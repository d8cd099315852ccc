package model

import "time"

// ActorID identifies a character in the marketplace. Zero means nobody.
type ActorID uint32

// Identity is the synthetic actor the agent trades as.
type Identity struct {
	ID      ActorID
	Account uint32
	Name    string
}

// Is reports whether the actor is this identity.
func (i Identity) Is(a ActorID) bool { return a != 0 && i.ID == a }

// Listing is a marketplace entry as seen in a snapshot.
type Listing struct {
	ID           uint32
	Segment      string
	Owner        ActorID
	ItemGUID     uint64
	ItemTemplate uint32
	ItemCount    uint32
	StartBid     uint64
	Bid          uint64
	Buyout       uint64
	Bidder       ActorID
	ExpiresAt    time.Time
	Deposit      uint64
}

// CurrentPrice is the last bid, or the starting bid when nobody has bid yet.
func (l Listing) CurrentPrice() uint64 {
	if l.Bid > 0 {
		return l.Bid
	}
	return l.StartBid
}

// OutbidIncrement is the minimum raise over CurrentPrice: 5%, at least 1.
func (l Listing) OutbidIncrement() uint64 {
	inc := l.CurrentPrice() * 5 / 100
	if inc == 0 {
		return 1
	}
	return inc
}

// UnitBuyout is the buyout price of a single item in the stack.
func (l Listing) UnitBuyout() uint64 {
	if l.ItemCount == 0 {
		return l.Buyout
	}
	return l.Buyout / uint64(l.ItemCount)
}

// TimeClass selects the listing duration band.
type TimeClass uint8

const (
	TimeClassLong TimeClass = iota
	TimeClassMedium
	TimeClassShort
)

// CreateListingRequest carries every computed field of a new listing.
type CreateListingRequest struct {
	Segment  string
	Owner    ActorID
	Item     ItemHandle
	StartBid uint64
	Buyout   uint64
	Duration time.Duration
	Deposit  uint64
}

// BidRequest replaces the bidder and bid of a listing.
type BidRequest struct {
	ListingID      uint32
	Bidder         ActorID
	Amount         uint64
	PreviousBidder ActorID
	PreviousBid    uint64
	NotifyPrevious bool
}

// BuyoutRequest settles a listing at its buyout price.
type BuyoutRequest struct {
	Listing        Listing
	Buyer          ActorID
	NotifyPrevious bool
}
