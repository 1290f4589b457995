package lock

import (
	"context"
	"sync"
	"time"
)

// Locker hands out short leases keyed by name. Acquire reports false, with a
// nil error, when another holder owns the key. A held lease is renewed in the
// background until release is called, so ttl only bounds how long a crashed
// holder blocks the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

func RuleKey(ruleID string) string {
	return "autoprice:rule:" + ruleID
}

// keepAlive calls extend every third of ttl until stop is called or extend
// reports the lease is gone.
func keepAlive(ttl time.Duration, extend func() bool) (stop func()) {
	if ttl <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !extend() {
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
