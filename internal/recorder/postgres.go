package recorder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"AuctionBot/internal/buyer"
	"AuctionBot/internal/seller"
)

// PostgresRecorder persists cycle reports to PostgreSQL.
type PostgresRecorder struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresRecorder connects to dsn and creates the tables if needed.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &PostgresRecorder{pool: pool, timeout: 10 * time.Second}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("[INFO] postgres recorder connected")
	return r, nil
}

func (r *PostgresRecorder) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sell_cycles (
			id           BIGSERIAL PRIMARY KEY,
			run_id       UUID NOT NULL,
			recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
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
		`CREATE TABLE IF NOT EXISTS buy_cycles (
			id          BIGSERIAL PRIMARY KEY,
			run_id      UUID NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			segment     TEXT NOT NULL,
			disabled    BOOLEAN,
			candidates  INTEGER,
			bids        INTEGER,
			buyouts     INTEGER,
			skipped     INTEGER,
			errors      INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS bid_events (
			id             BIGSERIAL PRIMARY KEY,
			run_id         UUID NOT NULL,
			recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			segment        TEXT NOT NULL,
			listing_id     BIGINT,
			item_id        BIGINT,
			action         TEXT,
			current_price  BIGINT,
			max_acceptable BIGINT,
			amount         BIGINT,
			buyout         BIGINT,
			reason         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bid_events_run ON bid_events(run_id)`,
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *PostgresRecorder) RecordSell(rep *seller.SellReport) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO sell_cycles (run_id, segment, skipped, listings, requested, created,
			bin_empty, catalog_miss, price_errors, item_errors, store_errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rep.RunID, rep.Segment, string(rep.Skipped),
		rep.Listings, int64(rep.Requested), int64(rep.Created),
		int64(rep.BinEmpty), int64(rep.CatalogMiss), int64(rep.PriceErrors),
		int64(rep.ItemErrors), int64(rep.StoreErrors),
	)
	return err
}

func (r *PostgresRecorder) RecordBuy(rep *buyer.BuyReport) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO buy_cycles (run_id, segment, disabled, candidates, bids, buyouts, skipped, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rep.RunID, rep.Segment, rep.Disabled, rep.Candidates,
		rep.Bids, rep.Buyouts, rep.Skipped, rep.Errors,
	)
	for _, ev := range rep.Events {
		batch.Queue(`
			INSERT INTO bid_events (run_id, segment, listing_id, item_id, action,
				current_price, max_acceptable, amount, buyout, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rep.RunID, rep.Segment, int64(ev.ListingID), int64(ev.ItemID), string(ev.Action),
			int64(ev.CurrentPrice), int64(ev.MaxAcceptable), int64(ev.Amount), int64(ev.Buyout), ev.Reason,
		)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("record buy cycle: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresRecorder) Close() error {
	log.Println("[INFO] closing postgres recorder")
	r.pool.Close()
	return nil
}
