package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"AuctionBot/internal/model"
)

// SQLite is the marketplace, catalog and config store backed by one SQLite
// database. Each mutation runs in its own transaction.
type SQLite struct {
	db    *sqlx.DB
	rates depositRates
}

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(dbPath string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLite{db: db, rates: depositRates{}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

// DB exposes the underlying handle so the recorder can share it.
func (s *SQLite) DB() *sqlx.DB { return s.db }

// Close closes the database.
func (s *SQLite) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}

// SetDepositPercent sets the deposit rate of a segment.
func (s *SQLite) SetDepositPercent(segment string, percent uint32) {
	s.rates[segment] = percent
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS item_template (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		buy_price  INTEGER NOT NULL DEFAULT 0,
		sell_price INTEGER NOT NULL DEFAULT 0,
		rarity     INTEGER NOT NULL DEFAULT 0,
		class      INTEGER NOT NULL DEFAULT 0,
		max_stack  INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS item_random_property (
		item_id     INTEGER NOT NULL,
		property_id INTEGER NOT NULL,
		PRIMARY KEY (item_id, property_id)
	);

	CREATE TABLE IF NOT EXISTS item_instance (
		guid            INTEGER PRIMARY KEY AUTOINCREMENT,
		template        INTEGER NOT NULL,
		count           INTEGER NOT NULL,
		owner           INTEGER NOT NULL,
		random_property INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS listing (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		segment       TEXT NOT NULL,
		owner         INTEGER NOT NULL,
		item_guid     INTEGER NOT NULL,
		item_template INTEGER NOT NULL,
		item_count    INTEGER NOT NULL,
		start_bid     INTEGER NOT NULL,
		bid           INTEGER NOT NULL DEFAULT 0,
		buyout        INTEGER NOT NULL DEFAULT 0,
		bidder        INTEGER NOT NULL DEFAULT 0,
		expires_at    INTEGER NOT NULL,
		deposit       INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS mail (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		kind          TEXT NOT NULL,
		receiver      INTEGER NOT NULL,
		listing_id    INTEGER NOT NULL,
		item_template INTEGER NOT NULL,
		amount        INTEGER NOT NULL,
		created_at    INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS segment_config (
		segment    TEXT PRIMARY KEY,
		config     TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_listing_segment ON listing(segment);
	CREATE INDEX IF NOT EXISTS idx_listing_owner ON listing(owner);
	CREATE INDEX IF NOT EXISTS idx_mail_receiver ON mail(receiver);
	`
	_, err := s.db.Exec(schema)
	return err
}

type listingRow struct {
	ID           uint32 `db:"id"`
	Segment      string `db:"segment"`
	Owner        uint32 `db:"owner"`
	ItemGUID     uint64 `db:"item_guid"`
	ItemTemplate uint32 `db:"item_template"`
	ItemCount    uint32 `db:"item_count"`
	StartBid     uint64 `db:"start_bid"`
	Bid          uint64 `db:"bid"`
	Buyout       uint64 `db:"buyout"`
	Bidder       uint32 `db:"bidder"`
	ExpiresAt    int64  `db:"expires_at"`
	Deposit      uint64 `db:"deposit"`
}

func (r listingRow) listing() model.Listing {
	return model.Listing{
		ID:           r.ID,
		Segment:      r.Segment,
		Owner:        model.ActorID(r.Owner),
		ItemGUID:     r.ItemGUID,
		ItemTemplate: r.ItemTemplate,
		ItemCount:    r.ItemCount,
		StartBid:     r.StartBid,
		Bid:          r.Bid,
		Buyout:       r.Buyout,
		Bidder:       model.ActorID(r.Bidder),
		ExpiresAt:    time.Unix(r.ExpiresAt, 0),
		Deposit:      r.Deposit,
	}
}

const listingColumns = `id, segment, owner, item_guid, item_template, item_count,
	start_bid, bid, buyout, bidder, expires_at, deposit`

func (s *SQLite) selectListings(ctx context.Context, query string, args ...any) ([]model.Listing, error) {
	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.Listing, len(rows))
	for i, r := range rows {
		out[i] = r.listing()
	}
	return out, nil
}

// ListingsFor returns the live listings of segment. Expired rows stay out
// of the snapshot until SweepExpired settles them.
func (s *SQLite) ListingsFor(ctx context.Context, segment string) ([]model.Listing, error) {
	return s.selectListings(ctx,
		`SELECT `+listingColumns+` FROM listing WHERE segment = ? AND expires_at > ? ORDER BY id`,
		segment, time.Now().Unix())
}

func (s *SQLite) BidCandidates(ctx context.Context, segment string, self model.ActorID) ([]model.Listing, error) {
	return s.selectListings(ctx,
		`SELECT `+listingColumns+` FROM listing
		WHERE segment = ? AND expires_at > ? AND owner <> ? AND bidder <> ? ORDER BY id`,
		segment, time.Now().Unix(), uint32(self), uint32(self))
}

func (s *SQLite) CreateListing(ctx context.Context, req model.CreateListingRequest) (uint32, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// The item moves into the marketplace with the listing.
	if _, err := tx.ExecContext(ctx, `UPDATE item_instance SET count = ?, random_property = ? WHERE guid = ?`,
		req.Item.Count, req.Item.RandomProperty, req.Item.GUID); err != nil {
		return 0, fmt.Errorf("update item: %w", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO listing
		(segment, owner, item_guid, item_template, item_count, start_bid, bid, buyout, bidder, expires_at, deposit)
		VALUES (?,?,?,?,?,?,0,?,0,?,?)`,
		req.Segment, uint32(req.Owner), req.Item.GUID, req.Item.Template, req.Item.Count,
		req.StartBid, req.Buyout, time.Now().Add(req.Duration).Unix(), req.Deposit,
	)
	if err != nil {
		return 0, fmt.Errorf("insert listing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint32(id), nil
}

func (s *SQLite) RemoveListing(ctx context.Context, id uint32) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM listing WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *SQLite) UpdateBid(ctx context.Context, req model.BidRequest) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	l, err := s.getListing(ctx, tx, req.ListingID)
	if err != nil {
		return err
	}
	if req.NotifyPrevious {
		if err := insertMail(ctx, tx, Mail{Kind: MailOutbid, Receiver: req.PreviousBidder, ListingID: l.ID, Template: l.ItemTemplate, Amount: req.PreviousBid}); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE listing SET bidder = ?, bid = ? WHERE id = ?`,
		uint32(req.Bidder), req.Amount, req.ListingID); err != nil {
		return fmt.Errorf("update bid: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) RecordBuyout(ctx context.Context, req model.BuyoutRequest) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	l, err := s.getListing(ctx, tx, req.Listing.ID)
	if err != nil {
		return err
	}
	mails := make([]Mail, 0, 3)
	if req.NotifyPrevious {
		mails = append(mails, Mail{Kind: MailOutbid, Receiver: l.Bidder, ListingID: l.ID, Template: l.ItemTemplate, Amount: l.Bid})
	}
	mails = append(mails,
		Mail{Kind: MailSold, Receiver: l.Owner, ListingID: l.ID, Template: l.ItemTemplate, Amount: l.Buyout},
		Mail{Kind: MailWon, Receiver: req.Buyer, ListingID: l.ID, Template: l.ItemTemplate, Amount: l.Buyout},
	)
	for _, m := range mails {
		if err := insertMail(ctx, tx, m); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE item_instance SET owner = ? WHERE guid = ?`, uint32(req.Buyer), l.ItemGUID); err != nil {
		return fmt.Errorf("release item: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM listing WHERE id = ?`, l.ID); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) DepositFor(_ context.Context, segment string, duration time.Duration, item model.ItemTemplate, count uint32) (uint64, error) {
	return Deposit(item, count, duration, s.rates.percent(segment)), nil
}

func (s *SQLite) ExpireOwned(ctx context.Context, segment string, owner model.ActorID, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE listing SET expires_at = ? WHERE segment = ? AND owner = ?`,
		at.Unix(), segment, uint32(owner))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// SweepExpired settles every listing of segment that expired at or before
// now. A listing with a bid goes to the bidder; otherwise the item is mailed
// back to its owner.
func (s *SQLite) SweepExpired(ctx context.Context, segment string, now time.Time) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var rows []listingRow
	if err := tx.SelectContext(ctx, &rows,
		`SELECT `+listingColumns+` FROM listing WHERE segment = ? AND expires_at <= ? ORDER BY id`,
		segment, now.Unix()); err != nil {
		return 0, fmt.Errorf("select expired: %w", err)
	}
	for _, r := range rows {
		l := r.listing()
		for _, m := range expiryMail(l) {
			if err := insertMail(ctx, tx, m); err != nil {
				return 0, err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE item_instance SET owner = ? WHERE guid = ?`, uint32(expiryReceiver(l)), l.ItemGUID); err != nil {
			return 0, fmt.Errorf("release item: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM listing WHERE id = ?`, l.ID); err != nil {
			return 0, fmt.Errorf("delete listing: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *SQLite) getListing(ctx context.Context, tx *sqlx.Tx, id uint32) (model.Listing, error) {
	var r listingRow
	err := tx.GetContext(ctx, &r, `SELECT `+listingColumns+` FROM listing WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Listing{}, err
	}
	return r.listing(), nil
}

func insertMail(ctx context.Context, tx *sqlx.Tx, m Mail) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO mail
		(kind, receiver, listing_id, item_template, amount, created_at)
		VALUES (?,?,?,?,?,?)`,
		string(m.Kind), uint32(m.Receiver), m.ListingID, m.Template, m.Amount, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert %s mail: %w", m.Kind, err)
	}
	return nil
}

func requireRow(res sql.Result, id uint32) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	return nil
}

// Mail returns the notifications addressed to receiver, oldest first.
func (s *SQLite) Mail(ctx context.Context, receiver model.ActorID) ([]Mail, error) {
	var rows []struct {
		Kind     string `db:"kind"`
		Receiver uint32 `db:"receiver"`
		Listing  uint32 `db:"listing_id"`
		Template uint32 `db:"item_template"`
		Amount   uint64 `db:"amount"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT kind, receiver, listing_id, item_template, amount FROM mail WHERE receiver = ? ORDER BY id`,
		uint32(receiver)); err != nil {
		return nil, err
	}
	out := make([]Mail, len(rows))
	for i, r := range rows {
		out[i] = Mail{Kind: MailKind(r.Kind), Receiver: model.ActorID(r.Receiver), ListingID: r.Listing, Template: r.Template, Amount: r.Amount}
	}
	return out, nil
}

// Catalog

// AddTemplates upserts catalog entries.
func (s *SQLite) AddTemplates(ctx context.Context, ts ...model.ItemTemplate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, t := range ts {
		if _, err := tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO item_template
			(id, name, buy_price, sell_price, rarity, class, max_stack)
			VALUES (:id, :name, :buy_price, :sell_price, :rarity, :class, :max_stack)`, t); err != nil {
			return fmt.Errorf("upsert template %d: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) TemplateFor(ctx context.Context, id uint32) (model.ItemTemplate, error) {
	var t model.ItemTemplate
	err := s.db.GetContext(ctx, &t, `SELECT id, name, buy_price, sell_price, rarity, class, max_stack
		FROM item_template WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ItemTemplate{}, fmt.Errorf("item template %d: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *SQLite) Templates(ctx context.Context) ([]model.ItemTemplate, error) {
	var ts []model.ItemTemplate
	err := s.db.SelectContext(ctx, &ts, `SELECT id, name, buy_price, sell_price, rarity, class, max_stack
		FROM item_template ORDER BY id`)
	return ts, err
}

func (s *SQLite) Instantiate(ctx context.Context, id uint32, count uint32, owner model.ActorID) (model.ItemHandle, error) {
	if _, err := s.TemplateFor(ctx, id); err != nil {
		return model.ItemHandle{}, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO item_instance (template, count, owner) VALUES (?,?,?)`,
		id, count, uint32(owner))
	if err != nil {
		return model.ItemHandle{}, fmt.Errorf("insert item: %w", err)
	}
	guid, err := res.LastInsertId()
	if err != nil {
		return model.ItemHandle{}, err
	}
	return model.ItemHandle{GUID: uint64(guid), Template: id, Count: count, Owner: owner}, nil
}

// Destroy deletes an item instance that never reached the marketplace.
func (s *SQLite) Destroy(ctx context.Context, guid uint64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM item_instance WHERE guid = ?`, guid)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("item %d: %w", guid, ErrNotFound)
	}
	return nil
}

func (s *SQLite) RandomPropertyFor(ctx context.Context, id uint32) (int32, error) {
	var prop int32
	err := s.db.GetContext(ctx, &prop,
		`SELECT property_id FROM item_random_property WHERE item_id = ? ORDER BY RANDOM() LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return prop, err
}

// ConfigStore

func (s *SQLite) SaveSegment(ctx context.Context, cfg *model.MarketConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal segment config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO segment_config (segment, config, updated_at) VALUES (?,?,?)
		ON CONFLICT(segment) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		cfg.Segment, string(data), time.Now().Unix())
	return err
}

func (s *SQLite) LoadSegment(ctx context.Context, segment string) (*model.MarketConfig, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `SELECT config FROM segment_config WHERE segment = ?`, segment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("segment %s: %w", segment, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var cfg model.MarketConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode segment config: %w", err)
	}
	return &cfg, nil
}
