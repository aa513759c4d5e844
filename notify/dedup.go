package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Deduper reserves a message key for a time window across processes.
type Deduper interface {
	// Claim reports whether key was free and reserves it for ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees a key whose send did not go through.
	Release(ctx context.Context, key string) error
}

// RedisDeduper keeps claims as Redis keys with an expiry.
type RedisDeduper struct {
	client *redis.Client
	prefix string
}

// NewRedisDeduper connects to the Redis server at url (redis://...).
func NewRedisDeduper(url string) (*RedisDeduper, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisDeduper{client: redis.NewClient(opts), prefix: "notify:dedup:"}, nil
}

func (d *RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+key, 1, ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	return d.client.Del(ctx, d.prefix+key).Err()
}

func (d *RedisDeduper) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *RedisDeduper) Close() error {
	return d.client.Close()
}

func dedupKey(companyID, channel, recipient, kind string, jobID *uint) string {
	var job uint
	if jobID != nil {
		job = *jobID
	}
	return fmt.Sprintf("%s:%s:%s:%s:%d", companyID, channel, recipient, kind, job)
}

// claim reports whether an identical message went out within DedupWindow. With a Deduper the
// key is reserved and release frees it again; otherwise seen consults the channel log.
func (n *Notifier) claim(ctx context.Context, channel, recipient, kind string, jobID *uint, seen func(since time.Time) (bool, error)) (bool, func(), error) {
	noop := func() {}
	if n.Dedup != nil {
		key := dedupKey(n.company.Id, channel, recipient, kind, jobID)
		ok, err := n.Dedup.Claim(ctx, key, DedupWindow)
		if err == nil {
			release := func() {
				if err := n.Dedup.Release(context.WithoutCancel(ctx), key); err != nil {
					n.log.Warn().Err(err).Str("key", key).Msg("dedup release failed")
				}
			}
			return !ok, release, nil
		}
		n.log.Warn().Err(err).Msg("dedup store unavailable, using log lookup")
	}
	dup, err := seen(n.now().Add(-DedupWindow))
	return dup, noop, err
}
