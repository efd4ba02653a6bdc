package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// putScript writes the value plus a tag set atomically, mirroring
// ratelimit.RedisStore.Increment's "one Lua script, one round trip" idiom: the
// payload and its tag memberships must never be observed half-written by a
// concurrent reader.
var putScript = redis.NewScript(`
	local key = KEYS[1]
	local value = ARGV[1]
	local ttlMillis = tonumber(ARGV[2])
	if ttlMillis > 0 then
		redis.call('SET', key, value, 'PX', ttlMillis)
	else
		redis.call('SET', key, value)
	end
	for i = 3, #ARGV do
		local tagSetKey = ARGV[i]
		redis.call('SADD', tagSetKey, key)
	end
	return 1
`)

// Redis is a cache.Adapter backed by go-redis/v9, for cross-instance sharing and
// invalidation. Namespace prefixes every key the way ratelimit.RedisStore prefixes
// its counters with "ratelimit:".
type Redis struct {
	client        *redis.Client
	namespace     string
	group         singleflight.Group
	maxBytes      int64
	waiterTimeout time.Duration
}

// SetWaiterTimeout configures how long GetOrStore callers wait on an in-flight
// compute before falling back to computing independently. d <= 0 resets to the
// default (3s).
func (r *Redis) SetWaiterTimeout(d time.Duration) {
	if d <= 0 {
		d = defaultWaiterTimeout
	}
	r.waiterTimeout = d
}

// NewRedis connects to url (same redis://[password@]host:port[/db] form the teacher's
// ratelimit.NewRedisStore accepts) and verifies connectivity with a bounded Ping.
func NewRedis(url, namespace string, maxBytes int64) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	log.Info().Str("addr", opts.Addr).Msg("connected to redis for result cache")
	return &Redis{client: client, namespace: namespace, maxBytes: maxBytes, waiterTimeout: defaultWaiterTimeout}, nil
}

func (r *Redis) prefixed(key string) string {
	if r.namespace == "" {
		return key
	}
	return r.namespace + ":" + key
}

func (r *Redis) tagSetKey(tag string) string {
	return r.prefixed("tag:" + tag)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefixed(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		// A cache backend failure degrades to a miss, per spec.md §7 — it must never
		// fail the underlying query.
		log.Warn().Err(err).Str("key", key).Msg("cache get failed, degrading to miss")
		return nil, false, nil
	}
	return val, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration, opts PutOptions) error {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = r.maxBytes
	}
	if opts.Compress {
		value = compress(value)
	}
	if int64(len(value)) > maxBytes {
		return nil
	}

	args := make([]any, 0, 2+len(opts.Tags))
	args = append(args, string(value), ttl.Milliseconds())
	for _, tag := range opts.Tags {
		args = append(args, r.tagSetKey(tag))
	}

	if err := putScript.Run(ctx, r.client, []string{r.prefixed(key)}, args...).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache put failed, degrading to no-op")
		return nil
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefixed(key)).Err()
}

func (r *Redis) Touch(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return r.client.Persist(ctx, r.prefixed(key)).Err()
	}
	return r.client.Expire(ctx, r.prefixed(key), ttl).Err()
}

func (r *Redis) InvalidateTags(ctx context.Context, tags []string) error {
	seen := map[string]struct{}{}
	for _, tag := range tags {
		keys, err := r.client.SMembers(ctx, r.tagSetKey(tag)).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		r.client.Del(ctx, r.tagSetKey(tag))
	}
	if len(seen) == 0 {
		return nil
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return r.client.Del(ctx, keys...).Err()
}

// GetOrStore mirrors Memory.GetOrStore's waiter-timeout fallback: a caller blocked
// on another caller's in-flight compute in this process past waiterTimeout computes
// the value itself rather than waiting forever, per spec.md §4.8/§5. Coalescing is
// process-local; concurrent misses in different processes each compute.
func (r *Redis) GetOrStore(ctx context.Context, key string, ttl time.Duration, opts PutOptions, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	if value, ok, err := r.Get(ctx, key); err != nil || ok {
		return value, ok, err
	}

	resultCh := r.group.DoChan(key, func() (any, error) {
		if value, ok, _ := r.Get(ctx, key); ok {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if putErr := r.Put(ctx, key, value, ttl, opts); putErr != nil {
			return nil, putErr
		}
		return value, nil
	})

	timer := time.NewTimer(r.waiterTimeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), false, nil
	case <-timer.C:
		value, err := compute(ctx)
		if err != nil {
			return nil, false, err
		}
		if putErr := r.Put(ctx, key, value, ttl, opts); putErr != nil {
			return nil, false, putErr
		}
		return value, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Close releases the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
