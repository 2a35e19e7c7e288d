package cache

import (
	"context"
	"encoding/json"
	"fmt"

	redisv9 "github.com/redis/go-redis/v9"

	"llmproxy/internal/model"
)

const statusKey = "rag:index:status"

// StatusCache keeps the last IndexStatus snapshot in Redis so totals,
// last-indexed time and the configured interval survive restarts. Losing the
// snapshot is harmless; the next run rebuilds it.
type StatusCache struct {
	client *redisv9.Client
}

func NewStatusCache(client *redisv9.Client) *StatusCache {
	return &StatusCache{client: client}
}

func (c *StatusCache) Load(ctx context.Context) (*model.IndexStatus, bool, error) {
	raw, err := c.client.Get(ctx, statusKey).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get index status failed: %w", err)
	}

	var status model.IndexStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached index status failed: %w", err)
	}
	return &status, true, nil
}

func (c *StatusCache) Save(ctx context.Context, status model.IndexStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal index status failed: %w", err)
	}
	if err := c.client.Set(ctx, statusKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set index status failed: %w", err)
	}
	return nil
}
