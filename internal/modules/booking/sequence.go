// README: Per-label booking id counter backed by Redis.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sequenceKeyPrefix = "booking:label:%s"
	// A label embeds HHMM, so a counter only needs to outlive its minute.
	sequenceTTL = 10 * time.Minute
)

type RedisSequence struct {
	redis *redis.Client
}

func NewRedisSequence(redis *redis.Client) *RedisSequence {
	return &RedisSequence{redis: redis}
}

// Next returns 1 for the first use of a label, 2 for the second and so on.
func (s *RedisSequence) Next(ctx context.Context, label string) (int64, error) {
	key := fmt.Sprintf(sequenceKeyPrefix, label)
	pipe := s.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, sequenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
