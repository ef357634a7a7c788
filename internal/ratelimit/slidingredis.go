package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow counts payment link creations per key in a Redis sorted set so
// every replica sharing the Redis enforces one budget. Rejected attempts are
// not recorded; a client that keeps retrying while blocked is let back in as
// soon as its oldest accepted creation leaves the window.
type SlidingWindow struct {
	Client redis.UniversalClient
	Prefix string
	Now    func() time.Time
}

// Allow implements Allower. Reset is when the oldest counted creation expires.
func (l SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	setKey := l.Prefix + key
	member := uuid.NewString()
	floor := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)

	var count *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := l.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, setKey, "-inf", "("+floor)
		p.ZAdd(ctx, setKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
		count = p.ZCard(ctx, setKey)
		oldest = p.ZRangeWithScores(ctx, setKey, 0, 0)
		p.PExpire(ctx, setKey, window)
		return nil
	})
	if err != nil {
		return false, 0, now.Add(window), err
	}

	reset := now.Add(window)
	if first := oldest.Val(); len(first) > 0 {
		reset = time.UnixMicro(int64(first[0].Score)).Add(window)
	}
	used := int(count.Val())
	if used > max {
		if err := l.Client.ZRem(ctx, setKey, member).Err(); err != nil {
			return false, 0, reset, err
		}
		return false, 0, reset, nil
	}
	return true, max - used, reset, nil
}
