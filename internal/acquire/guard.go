package acquire

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pagemill/pagemill/internal/logger"
)

// ErrRunInProgress is returned when an acquisition run is already active
// for the same owner and scope.
var ErrRunInProgress = fmt.Errorf("acquisition already in progress")

// RunGuard enforces one concurrent acquisition run per (owner, scope)
// using a Redis SetNX lease. The lease expires on its own, so a crashed
// run never wedges the owner permanently.
type RunGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRunGuard creates a run guard. ttl should comfortably exceed the
// worst-case run duration.
func NewRunGuard(client *redis.Client, ttl time.Duration, log logger.Logger) *RunGuard {
	return &RunGuard{client: client, ttl: ttl, logger: log}
}

func (g *RunGuard) key(ownerID uuid.UUID, scopeID *uuid.UUID) string {
	scope := "global"
	if scopeID != nil {
		scope = scopeID.String()
	}
	return fmt.Sprintf("acquire:run:%s:%s", ownerID, scope)
}

// Acquire takes the run lease. Returns ErrRunInProgress when another run
// holds it. The returned release function clears the lease; call it when
// the run's stream closes.
func (g *RunGuard) Acquire(ctx context.Context, ownerID uuid.UUID, scopeID *uuid.UUID) (func(), error) {
	key := g.key(ownerID, scopeID)

	ok, err := g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lease: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	release := func() {
		// Release happens after the run; its context is gone.
		if delErr := g.client.Del(context.Background(), key).Err(); delErr != nil {
			g.logger.Warn("failed to release run lease",
				logger.String("redis_key", key),
				logger.Error(delErr),
			)
		}
	}

	return release, nil
}
