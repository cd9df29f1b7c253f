package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/community/internal/search"
)

// RedisClient returns the Redis client backing the search index.
func (c *Container) RedisClient() (*redis.Client, error) {
	c.redisClientInit.Do(func() {
		c.redisClient = search.NewClient(
			c.config.RedisAddr,
			c.config.RedisPassword,
			c.config.RedisDB,
		)
	})
	return c.redisClient, nil
}

// SearchIndex returns the search index instance.
func (c *Container) SearchIndex() (search.Index, error) {
	var err error
	c.searchIndexInit.Do(func() {
		c.searchIndex, err = c.initSearchIndex()
		if err != nil {
			c.initErrors["searchIndex"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["searchIndex"]; exists {
		return nil, storedErr
	}
	return c.searchIndex, nil
}

// initSearchIndex creates the Redis-backed search index.
func (c *Container) initSearchIndex() (search.Index, error) {
	client, err := c.RedisClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for search index: %w", err)
	}

	return search.NewRedisIndex(client, c.config.SearchNamespace, c.Logger()), nil
}
