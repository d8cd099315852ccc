package recorder

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"AuctionBot/internal/buyer"
	"AuctionBot/internal/seller"
)

// SQLiteRecorder persists cycle reports to a SQLite database.
type SQLiteRecorder struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sell_cycles (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			timestamp    INTEGER NOT NULL,
			segment      TEXT NOT NULL,
			skipped      TEXT,
			listings     INTEGER,
			requested    INTEGER,
			created      INTEGER,
			bin_empty    INTEGER,
			catalog_miss INTEGER,
			price_errors INTEGER,
			item_errors  INTEGER,
			store_errors INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sell_ts ON sell_cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS buy_cycles (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			timestamp  INTEGER NOT NULL,
			segment    TEXT NOT NULL,
			disabled   INTEGER,
			candidates INTEGER,
			bids       INTEGER,
			buyouts    INTEGER,
			skipped    INTEGER,
			errors     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_buy_ts ON buy_cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS bid_events (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			timestamp      INTEGER NOT NULL,
			segment        TEXT NOT NULL,
			listing_id     INTEGER,
			item_id        INTEGER,
			action         TEXT,
			current_price  INTEGER,
			max_acceptable INTEGER,
			amount         INTEGER,
			buyout         INTEGER,
			reason         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bid_run ON bid_events(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSell(rep *seller.SellReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO sell_cycles
		(run_id, timestamp, segment, skipped, listings, requested, created,
		 bin_empty, catalog_miss, price_errors, item_errors, store_errors)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rep.RunID, time.Now().Unix(), rep.Segment, string(rep.Skipped),
		rep.Listings, rep.Requested, rep.Created,
		rep.BinEmpty, rep.CatalogMiss, rep.PriceErrors, rep.ItemErrors, rep.StoreErrors,
	)
	return err
}

func (r *SQLiteRecorder) RecordBuy(rep *buyer.BuyReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().Unix()
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO buy_cycles
		(run_id, timestamp, segment, disabled, candidates, bids, buyouts, skipped, errors)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rep.RunID, now, rep.Segment, rep.Disabled, rep.Candidates,
		rep.Bids, rep.Buyouts, rep.Skipped, rep.Errors,
	); err != nil {
		return err
	}
	for _, ev := range rep.Events {
		if _, err := tx.Exec(`INSERT INTO bid_events
			(run_id, timestamp, segment, listing_id, item_id, action,
			 current_price, max_acceptable, amount, buyout, reason)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			rep.RunID, now, rep.Segment, ev.ListingID, ev.ItemID, string(ev.Action),
			ev.CurrentPrice, ev.MaxAcceptable, ev.Amount, ev.Buyout, ev.Reason,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
