package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

const lockKeyPrefix = "setup:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseFunc gives up a held lock.
type ReleaseFunc func(ctx context.Context) error

// CollectionLocker serialises setup writers per collection name using Redis.
type CollectionLocker struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCollectionLocker constructs a locker whose locks expire after ttl.
func NewCollectionLocker(client redis.Cmdable, ttl time.Duration) *CollectionLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CollectionLocker{client: client, ttl: ttl}
}

// Acquire takes the lock for collection or fails with ErrLocked when another writer holds it.
func (l *CollectionLocker) Acquire(ctx context.Context, collection string) (ReleaseFunc, error) {
	key := lockKeyPrefix + collection
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrLocked, fmt.Sprintf("collection %s is being written by another setup run", collection))
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
