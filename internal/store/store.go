// Package store defines the marketplace, catalog and configuration
// collaborators the engines consume, with SQLite and in-memory adapters.
package store

import (
	"context"
	"errors"
	"time"

	"AuctionBot/internal/model"
)

var ErrNotFound = errors.New("not found")

// MarketStore is the marketplace. Every mutation is atomic and durable
// before it returns.
type MarketStore interface {
	ListingsFor(ctx context.Context, segment string) ([]model.Listing, error)
	// BidCandidates returns listings not owned by self and not already
	// carrying a bid from self.
	BidCandidates(ctx context.Context, segment string, self model.ActorID) ([]model.Listing, error)
	CreateListing(ctx context.Context, req model.CreateListingRequest) (uint32, error)
	RemoveListing(ctx context.Context, id uint32) error
	UpdateBid(ctx context.Context, req model.BidRequest) error
	RecordBuyout(ctx context.Context, req model.BuyoutRequest) error
	DepositFor(ctx context.Context, segment string, duration time.Duration, item model.ItemTemplate, count uint32) (uint64, error)
	ExpireOwned(ctx context.Context, segment string, owner model.ActorID, at time.Time) (int, error)
	// SweepExpired settles listings of segment whose expiry is at or before
	// now and returns how many it removed.
	SweepExpired(ctx context.Context, segment string, now time.Time) (int, error)
}

// Catalog resolves item templates and creates item instances.
type Catalog interface {
	TemplateFor(ctx context.Context, id uint32) (model.ItemTemplate, error)
	Templates(ctx context.Context) ([]model.ItemTemplate, error)
	Instantiate(ctx context.Context, id uint32, count uint32, owner model.ActorID) (model.ItemHandle, error)
	RandomPropertyFor(ctx context.Context, id uint32) (int32, error)
	// Destroy deletes an instance that was never listed.
	Destroy(ctx context.Context, guid uint64) error
}

// ConfigStore persists runtime-tuned segment configuration.
type ConfigStore interface {
	SaveSegment(ctx context.Context, cfg *model.MarketConfig) error
	LoadSegment(ctx context.Context, segment string) (*model.MarketConfig, error)
}

// MailKind classifies notification mail.
type MailKind string

const (
	MailOutbid  MailKind = "OUTBID"
	MailSold    MailKind = "SOLD"
	MailWon     MailKind = "WON"
	MailExpired MailKind = "EXPIRED"
)

// Mail is a notification delivered by the store as part of a mutation.
type Mail struct {
	Kind      MailKind
	Receiver  model.ActorID
	ListingID uint32
	Template  uint32
	Amount    uint64
}

// expiryMail is the mail sent when l runs out. A standing bid wins the item
// at the bid amount; otherwise the owner gets the item back.
func expiryMail(l model.Listing) []Mail {
	if l.Bidder == 0 {
		return []Mail{{Kind: MailExpired, Receiver: l.Owner, ListingID: l.ID, Template: l.ItemTemplate}}
	}
	return []Mail{
		{Kind: MailSold, Receiver: l.Owner, ListingID: l.ID, Template: l.ItemTemplate, Amount: l.Bid},
		{Kind: MailWon, Receiver: l.Bidder, ListingID: l.ID, Template: l.ItemTemplate, Amount: l.Bid},
	}
}

// expiryReceiver is who holds the item after l expires.
func expiryReceiver(l model.Listing) model.ActorID {
	if l.Bidder != 0 {
		return l.Bidder
	}
	return l.Owner
}
