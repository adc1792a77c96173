package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "presence:user:"

// Store keeps the durable online flag per user in Redis so other
// services (and other instances) can read presence without hitting
// the gateway.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// SetOnline marks the user online. The key has no TTL while online;
// liveness is owned by the gateway which flips it back on disconnect.
func (s *Store) SetOnline(ctx context.Context, userID uuid.UUID) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Set(ctx, keyPrefix+userID.String(), "1", 0).Err()
}

// SetOffline clears the online flag and records the last-seen time.
func (s *Store) SetOffline(ctx context.Context, userID uuid.UUID) error {
	if s.rdb == nil {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keyPrefix+userID.String())
	pipe.Set(ctx, keyPrefix+userID.String()+":last_seen",
		time.Now().UTC().Format(time.RFC3339), 0)
	_, err := pipe.Exec(ctx)
	return err
}

// IsOnline reports whether the user currently has the online flag set.
func (s *Store) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	if s.rdb == nil {
		return false, fmt.Errorf("presence store not configured")
	}
	n, err := s.rdb.Exists(ctx, keyPrefix+userID.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
