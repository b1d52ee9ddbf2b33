package driver

import (
	lru "github.com/hashicorp/golang-lru"
)

type cacheKey struct {
	path    string
	content [32]byte
}

// ModuleCache keeps recent check results keyed by path + content hash, so
// repeated checks of unchanged files skip lexing and parsing.
type ModuleCache struct {
	arc *lru.ARCCache
}

// NewModuleCache creates a ModuleCache holding up to size entries.
func NewModuleCache(size int) *ModuleCache {
	if size <= 0 {
		size = 256
	}
	arc, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return &ModuleCache{arc: arc}
}

// Get retrieves a result by path and content hash.
func (c *ModuleCache) Get(path string, content [32]byte) (*CheckResult, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.arc.Get(cacheKey{path: path, content: content})
	if !ok {
		return nil, false
	}
	return v.(*CheckResult), true
}

// Put stores a result under its path and the hash of the checked content.
func (c *ModuleCache) Put(path string, content [32]byte, res *CheckResult) {
	if c == nil {
		return
	}
	c.arc.Add(cacheKey{path: path, content: content}, res)
}

// Len reports the number of cached entries.
func (c *ModuleCache) Len() int {
	if c == nil {
		return 0
	}
	return c.arc.Len()
}
