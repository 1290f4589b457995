package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memLease struct {
	token   string
	expires time.Time
}

// MemoryLocker serialises holders within one process.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memLease
	now    func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: map[string]memLease{}, now: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if cur, held := l.leases[key]; held && (cur.expires.IsZero() || now.Before(cur.expires)) {
		return func() {}, false, nil
	}
	lease := memLease{token: token}
	if ttl > 0 {
		lease.expires = now.Add(ttl)
	}
	l.leases[key] = lease
	stop := keepAlive(ttl, func() bool { return l.extend(key, token, ttl) })
	return func() {
		stop()
		l.mu.Lock()
		if cur, ok := l.leases[key]; ok && cur.token == token {
			delete(l.leases, key)
		}
		l.mu.Unlock()
	}, true, nil
}

func (l *MemoryLocker) extend(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.leases[key]
	if !ok || cur.token != token {
		return false
	}
	cur.expires = l.now().Add(ttl)
	l.leases[key] = cur
	return true
}
