// Package resolver turns channel names into channel IDs.
//
// A Cycle is created per poll cycle and memoizes every lookup it performs, so
// repeated posts to the same channel cost one chat API call. A Cache, when
// configured, carries results across cycles.
package resolver

import (
	"context"
	"sync"

	"lostfound-bot/internal/logging"
)

type Lookup interface {
	ChannelID(ctx context.Context, name string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, id string) error
}

type Cycle struct {
	lookup Lookup
	cache  Cache
	logger *logging.Logger

	mu   sync.Mutex
	memo map[string]string
}

// NewCycle accepts a nil cache and a nil logger.
func NewCycle(lookup Lookup, cache Cache, logger *logging.Logger) *Cycle {
	return &Cycle{lookup: lookup, cache: cache, logger: logger, memo: map[string]string{}}
}

// Resolve consults the memo, then the cache, then the chat API. Cache failures
// are logged and treated as misses.
func (c *Cycle) Resolve(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.memo[name]; ok {
		return id, nil
	}
	if c.cache != nil {
		id, ok, err := c.cache.Get(ctx, name)
		if err != nil {
			c.warn("channel cache read failed", name, err)
		} else if ok {
			c.memo[name] = id
			return id, nil
		}
	}
	id, err := c.lookup.ChannelID(ctx, name)
	if err != nil {
		return "", err
	}
	c.memo[name] = id
	if c.cache != nil {
		if err := c.cache.Set(ctx, name, id); err != nil {
			c.warn("channel cache write failed", name, err)
		}
	}
	return id, nil
}

func (c *Cycle) warn(msg, name string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, logging.Field{Key: "channel", Val: name}, logging.Field{Key: "err", Val: err})
}
