// Package recorder persists per-cycle diagnostics for later analysis.
package recorder

import (
	"AuctionBot/internal/buyer"
	"AuctionBot/internal/seller"
)

// Recorder persists cycle reports. Reports must carry a RunID.
type Recorder interface {
	RecordSell(rep *seller.SellReport) error
	RecordBuy(rep *buyer.BuyReport) error
	Close() error
}
