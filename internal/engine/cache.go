package engine

import (
	"encoding/json"
	"time"

	"github.com/coocood/freecache"

	"github.com/claude/movementmemory/internal/progression"
)

// memoryCache holds encoded memory snapshots keyed by "user/exercise". A
// decoded snapshot is always a private copy.
type memoryCache struct {
	cache *freecache.Cache
	ttl   int
}

func newMemoryCache(sizeBytes int, ttl time.Duration) *memoryCache {
	return &memoryCache{
		cache: freecache.NewCache(sizeBytes),
		ttl:   int(ttl.Seconds()),
	}
}

func (c *memoryCache) get(key progression.Key) (*progression.MovementMemory, bool) {
	raw, err := c.cache.Get([]byte(key.String()))
	if err != nil {
		return nil, false
	}
	var mem progression.MovementMemory
	if err := json.Unmarshal(raw, &mem); err != nil {
		c.del(key)
		return nil, false
	}
	return &mem, true
}

func (c *memoryCache) set(mem *progression.MovementMemory) error {
	raw, err := json.Marshal(mem)
	if err != nil {
		return err
	}
	return c.cache.Set([]byte(mem.Key().String()), raw, c.ttl)
}

func (c *memoryCache) del(key progression.Key) {
	c.cache.Del([]byte(key.String()))
}

func (c *memoryCache) len() int64 {
	return c.cache.EntryCount()
}
