package question

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// BandCache defines cache behavior for per-difficulty question sets
// (implemented by the Redis-backed Cache).
type BandCache interface {
	Get(ctx context.Context, difficulty int) ([]Question, error)
	Set(ctx context.Context, difficulty int, questions []Question) error
	Invalidate(ctx context.Context, difficulty int) error
}

// Cache provides Redis-backed caching of difficulty bands to offload the
// per-request bank scans the selector performs.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ BandCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(difficulty int) string {
	return fmt.Sprintf("questionbank:band:%d", difficulty)
}

func (c *Cache) Get(ctx context.Context, difficulty int) ([]Question, error) {
	data, err := c.client.Get(ctx, c.key(difficulty)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *Cache) Set(ctx context.Context, difficulty int, questions []Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(difficulty), data, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, difficulty int) error {
	return c.client.Del(ctx, c.key(difficulty)).Err()
}
