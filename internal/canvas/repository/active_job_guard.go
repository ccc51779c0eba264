package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const guardKeyPrefix = "canvas:sync:active:"

// activeJobGuard uses SET NX EX as the atomic check-and-set, so two
// near-simultaneous kickoffs for one (user, scope) cannot both observe
// "no existing job".
type activeJobGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewActiveJobGuard(client *redis.Client, ttl time.Duration) ActiveJobGuard {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &activeJobGuard{
		client: client,
		ttl:    ttl,
	}
}

func guardKey(userID, scope string) string {
	return fmt.Sprintf("%s%s:%s", guardKeyPrefix, userID, scope)
}

func (g *activeJobGuard) Acquire(ctx context.Context, userID, scope, jobID string) (string, bool, error) {
	key := guardKey(userID, scope)

	// Two rounds cover the window where the holder's key expires between
	// the failed SETNX and the GET.
	for attempt := 0; attempt < 2; attempt++ {
		acquired, err := g.client.SetNX(ctx, key, jobID, g.ttl).Result()
		if err != nil {
			return "", false, err
		}
		if acquired {
			return "", true, nil
		}

		existing, err := g.client.Get(ctx, key).Result()
		if err == nil {
			return existing, false, nil
		}
		if err != redis.Nil {
			return "", false, err
		}
	}

	return "", false, fmt.Errorf("could not acquire or observe guard for %s", key)
}

// releaseScript deletes the guard key only while it still holds the
// releasing job's id. After the TTL expires a successor may own the key;
// an unconditional DEL here would evict that successor and let a third
// concurrent job through.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (g *activeJobGuard) Release(ctx context.Context, userID, scope, jobID string) error {
	return releaseScript.Run(ctx, g.client, []string{guardKey(userID, scope)}, jobID).Err()
}
