package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"library-rental/internal/models"

	"github.com/go-redis/redis/v8"
)

const bookCacheTTL = 5 * time.Minute

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CacheBook stores a book record with a short TTL
func (c *Client) CacheBook(ctx context.Context, book *models.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf("book:%d", book.ID), data, bookCacheTTL).Err()
}

// GetCachedBook retrieves a cached book record. Returns (nil, nil) on a miss.
func (c *Client) GetCachedBook(ctx context.Context, id int64) (*models.Book, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("book:%d", id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var book models.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached book: %w", err)
	}
	return &book, nil
}

// EvictBook drops a book from the cache
func (c *Client) EvictBook(ctx context.Context, id int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("book:%d", id)).Err()
}

// AcquireLock acquires a distributed lock, used to keep sweeps single-flight
// across instances
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

// RecordBookRating folds a rating into the per-book aggregate
func (c *Client) RecordBookRating(ctx context.Context, bookID int64, rating int) error {
	key := fmt.Sprintf("ratings:%d", bookID)

	pipe := c.rdb.Pipeline()
	pipe.HIncrBy(ctx, key, "count", 1)
	pipe.HIncrBy(ctx, key, "sum", int64(rating))

	_, err := pipe.Exec(ctx)
	return err
}

// GetBookRatingStats retrieves the rating count and sum for a book
func (c *Client) GetBookRatingStats(ctx context.Context, bookID int64) (count, sum int64, err error) {
	key := fmt.Sprintf("ratings:%d", bookID)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if len(result) == 0 {
		return 0, 0, nil
	}

	fmt.Sscanf(result["count"], "%d", &count)
	fmt.Sscanf(result["sum"], "%d", &sum)
	return count, sum, nil
}
