package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func seatKey(busID, seat string) string {
	return "hold:" + busID + ":" + seat
}

// SetSeatLock takes the fast-path lock for one seat. The DB stays
// authoritative; this only short-circuits obvious conflicts before a
// transaction is opened.
func (c *Cache) SetSeatLock(ctx context.Context, busID, seat, reservationID string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, seatKey(busID, seat), reservationID, ttl)
	return res.Val(), res.Err()
}

// SetSeatLocks acquires locks for all seats and returns the ones it
// could not get. On partial acquisition the acquired locks are rolled
// back so a failed attempt leaves nothing behind.
func (c *Cache) SetSeatLocks(ctx context.Context, busID string, seats []string, reservationID string, ttl time.Duration) ([]string, error) {
	got := make([]bool, len(seats))
	g, gctx := errgroup.WithContext(ctx)
	for i, seat := range seats {
		i, seat := i, seat
		g.Go(func() error {
			ok, err := c.SetSeatLock(gctx, busID, seat, reservationID, ttl)
			got[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		c.DropSeatLocks(ctx, busID, seats, reservationID)
		return nil, err
	}

	var conflicting []string
	for i, ok := range got {
		if !ok {
			conflicting = append(conflicting, seats[i])
		}
	}
	if len(conflicting) > 0 {
		c.DropSeatLocks(ctx, busID, seats, reservationID)
	}
	return conflicting, nil
}

// DropSeatLocks releases locks owned by the reservation. Locks held by
// someone else are left alone.
func (c *Cache) DropSeatLocks(ctx context.Context, busID string, seats []string, reservationID string) {
	for _, seat := range seats {
		key := seatKey(busID, seat)
		owner, err := c.client.Get(ctx, key).Result()
		if err != nil || owner != reservationID {
			continue
		}
		c.client.Del(ctx, key)
	}
}
