package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// replayPrefix namespaces recorded responses away from the seat locks
// and rate-limit counters sharing the same instance.
const replayPrefix = "busres:replay:"

// Idempotency records the response of a money-moving request under its
// Idempotency-Key, so a client retry replays the recorded outcome
// instead of re-running the operation.
type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

// SavedResponse is the replayable part of a handled request.
type SavedResponse struct {
	Code int             `json:"code"`
	Body json.RawMessage `json:"body"`
}

// Lookup returns the recorded response for the key, if one exists.
func (i *Idempotency) Lookup(ctx context.Context, key string) (SavedResponse, bool, error) {
	raw, err := i.client.Get(ctx, replayPrefix+key).Bytes()
	if err == redis.Nil {
		return SavedResponse{}, false, nil
	}
	if err != nil {
		return SavedResponse{}, false, err
	}
	var saved SavedResponse
	if err := json.Unmarshal(raw, &saved); err != nil {
		return SavedResponse{}, false, err
	}
	return saved, true, nil
}

// Record stores the response for later replay.
func (i *Idempotency) Record(ctx context.Context, key string, saved SavedResponse, ttl time.Duration) error {
	raw, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return i.client.Set(ctx, replayPrefix+key, raw, ttl).Err()
}
