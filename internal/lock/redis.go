package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Pushes the expiry out only while the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker coordinates holders across processes with SET NX leases.
type RedisLocker struct {
	Client *redis.Client
}

func NewRedisLocker(opt *redis.Options) *RedisLocker {
	return &RedisLocker{Client: redis.NewClient(opt)}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return func() {}, false, err
	}
	if !ok {
		return func() {}, false, nil
	}
	stop := keepAlive(ttl, func() bool { return l.extend(key, token, ttl) })
	return func() {
		stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.Client, []string{key}, token).Err()
	}, true, nil
}

// extend reports false once the lease belongs to someone else. Transport
// errors keep the renewal loop going.
func (l *RedisLocker) extend(key, token string, ttl time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), ttl/3)
	defer cancel()
	n, err := extendScript.Run(ctx, l.Client, []string{key}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return true
	}
	return n == 1
}

func (l *RedisLocker) Close() error {
	if l == nil || l.Client == nil {
		return nil
	}
	return l.Client.Close()
}

func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.Client.Ping(ctx).Err()
}
