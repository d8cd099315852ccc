package pricehistory

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"AuctionBot/internal/model"
)

var _ Source = (*Redis)(nil)

// DefaultTTL bounds how long an item's observations outlive its last update.
const DefaultTTL = 7 * 24 * time.Hour

// Redis stores observations in one hash per item, keyed
// prices:<segment>:<item>, with a field per listing id.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Ping checks the connection to the Redis server.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func priceKey(segment string, itemID uint32) string {
	return fmt.Sprintf("prices:%s:%d", segment, itemID)
}

func (r *Redis) Observe(ctx context.Context, segment string, listings []model.Listing) error {
	pipe := r.client.Pipeline()
	queued := 0
	for _, l := range listings {
		p, ok := unitPrice(l)
		if !ok {
			continue
		}
		key := priceKey(segment, l.ItemTemplate)
		pipe.HSet(ctx, key, strconv.FormatUint(uint64(l.ID), 10), p)
		pipe.Expire(ctx, key, r.ttl)
		queued++
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("observe prices: %w", err)
	}
	return nil
}

func (r *Redis) UnitPrice(ctx context.Context, segment string, itemID uint32) (uint64, error) {
	res, err := r.client.HVals(ctx, priceKey(segment, itemID)).Result()
	if err != nil {
		return 0, err
	}
	values := make([]uint64, 0, len(res))
	for _, v := range res {
		p, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			log.Printf("[WARN] bad price %q under %s: %v", v, priceKey(segment, itemID), err)
			continue
		}
		values = append(values, p)
	}
	return mean(values), nil
}
