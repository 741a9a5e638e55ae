package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the redis client with this service's key layout. It carries
// only derived data (per-class present tallies); losing it loses nothing
// authoritative.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

func presentKey(classID string) string {
	return "classattend:present:" + classID
}

// AddPresent records a student in the class's present set. Set semantics keep
// repeated marks from inflating the tally.
func (r *Redis) AddPresent(ctx context.Context, classID, studentID string) error {
	return r.Client.SAdd(ctx, presentKey(classID), studentID).Err()
}

// PresentCount returns how many distinct students are tallied present for
// the class.
func (r *Redis) PresentCount(ctx context.Context, classID string) (int64, error) {
	return r.Client.SCard(ctx, presentKey(classID)).Result()
}
