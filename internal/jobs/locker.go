package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"go.uber.org/zap"
)

// ErrLocked is returned when another worker holds the lock
var ErrLocked = errors.New("resource is locked by another worker")

// Locker serialises work on a key across processes
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RedsyncLocker is a Locker backed by a Redis mutex
type RedsyncLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
}

// NewRedsyncLocker creates a new RedsyncLocker. ttl bounds how long a
// crashed worker can keep a key locked.
func NewRedsyncLocker(client *redis.Client, ttl time.Duration) *RedsyncLocker {
	pool := goredis.NewPool(client)
	return &RedsyncLocker{
		rs:  redsync.New(pool),
		ttl: ttl,
	}
}

// Lock tries once to take the mutex for key
func (l *RedsyncLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex("daya:lock:"+key, redsync.WithExpiry(l.ttl), redsync.WithTries(1))
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to lock %s: %w", key, err)
	}

	return func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			zap.L().Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
