package query

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes indexes of an output log. Entries are keyed by the log's
// size and modification time, so an appended log is re-read on the next
// lookup; Clear drops everything.
type Cache struct {
	path  string
	cache *lru.Cache[string, *Index]
}

// NewCache creates a cache over the output log at path holding at most
// size indexes.
func NewCache(path string, size int) (*Cache, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, *Index](size)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &Cache{path: path, cache: c}, nil
}

// Index returns the index for the current contents of the output log.
func (c *Cache) Index() (*Index, error) {
	key, err := c.key()
	if err != nil {
		return nil, err
	}
	if ix, ok := c.cache.Get(key); ok {
		return ix, nil
	}
	ix, err := Open(c.path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, ix)
	return ix, nil
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.cache.Purge()
}

// Len returns the number of cached indexes.
func (c *Cache) Len() int {
	return c.cache.Len()
}

func (c *Cache) key() (string, error) {
	info, err := os.Stat(c.path)
	if os.IsNotExist(err) {
		return c.path + "@missing", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%d:%d", c.path, info.ModTime().UnixNano(), info.Size()), nil
}
