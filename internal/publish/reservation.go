package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pagemill/pagemill/internal/logger"
)

// ErrAddressReserved is returned when another publish call currently
// holds the reservation for the same address.
var ErrAddressReserved = fmt.Errorf("publish address reserved by another request")

// AddressReservation is a short-lived Redis SetNX lease per
// (domain, path, slug), taken in front of the publish transaction. It is
// advisory: the transaction's in-lock conflict re-check stays
// authoritative, the lease only rejects the losing side of a concurrent
// pair before it touches the database.
type AddressReservation struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewAddressReservation(client *redis.Client, ttl time.Duration, log logger.Logger) *AddressReservation {
	return &AddressReservation{client: client, ttl: ttl, logger: log}
}

func (r *AddressReservation) key(domain, path, slug string) string {
	return fmt.Sprintf("publish:addr:%s%s/%s", domain, path, slug)
}

// Reserve takes the address lease. The returned release function clears
// it once the publish transaction has committed or failed.
func (r *AddressReservation) Reserve(ctx context.Context, domain, path, slug string) (func(), error) {
	key := r.key(domain, path, slug)

	ok, err := r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve publish address: %w", err)
	}
	if !ok {
		return nil, ErrAddressReserved
	}

	release := func() {
		if delErr := r.client.Del(context.Background(), key).Err(); delErr != nil {
			r.logger.Warn("failed to release address reservation",
				logger.String("redis_key", key),
				logger.Error(delErr),
			)
		}
	}

	return release, nil
}
