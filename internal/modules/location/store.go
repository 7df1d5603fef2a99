// README: Route cache backed by Redis.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const routeKeyPrefix = "location:route:%s|%s"

type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(redis *redis.Client, ttl time.Duration) *Store {
	return &Store{redis: redis, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, origin, destination string) (Route, bool, error) {
	val, err := s.redis.Get(ctx, routeKey(origin, destination)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Route{}, false, nil
	}
	if err != nil {
		return Route{}, false, err
	}
	var r Route
	if err := json.Unmarshal(val, &r); err != nil {
		return Route{}, false, err
	}
	return r, true, nil
}

func (s *Store) Put(ctx context.Context, origin, destination string, r Route) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, routeKey(origin, destination), b, s.ttl).Err()
}

func routeKey(origin, destination string) string {
	return fmt.Sprintf(routeKeyPrefix, origin, destination)
}
