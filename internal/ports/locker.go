package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lease. Releasing a lease that expired or was taken
// over by someone else is a no-op.
type UnlockFunc func(ctx context.Context) error

// RouteLocker hands out short-lived per-route leases.
type RouteLocker interface {
	// TryLock returns ok=false without error when another holder owns the lease.
	TryLock(ctx context.Context, routeID int, ttl time.Duration) (unlock UnlockFunc, ok bool, err error)
}
