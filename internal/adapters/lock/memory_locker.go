package lock

import (
	"context"
	"fmt"
	"logistics-route-service/internal/ports"
	"sync"
	"time"
)

type lease struct {
	token     uint64
	expiresAt time.Time
}

// MemoryLocker is a single-process RouteLocker used when no Redis is configured.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[int]lease
	seq    uint64
	now    func() time.Time
}

var _ ports.RouteLocker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		leases: make(map[int]lease),
		now:    time.Now,
	}
}

func (l *MemoryLocker) TryLock(ctx context.Context, routeID int, ttl time.Duration) (ports.UnlockFunc, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if ttl <= 0 {
		return nil, false, fmt.Errorf("memory locker: ttl must be positive, got %s", ttl)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, held := l.leases[routeID]; held && now.Before(cur.expiresAt) {
		return nil, false, nil
	}

	l.seq++
	token := l.seq
	l.leases[routeID] = lease{token: token, expiresAt: now.Add(ttl)}

	unlock := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, held := l.leases[routeID]; held && cur.token == token {
			delete(l.leases, routeID)
		}
		return nil
	}
	return unlock, true, nil
}
