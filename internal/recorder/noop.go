package recorder

import (
	"AuctionBot/internal/buyer"
	"AuctionBot/internal/seller"
)

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSell(_ *seller.SellReport) error { return nil }
func (n *NoopRecorder) RecordBuy(_ *buyer.BuyReport) error    { return nil }
func (n *NoopRecorder) Close() error                          { return nil }
