package cache

import (
	"sync"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
)

// The cache holds large immutable objects that are shared by every board of
// a game, such as digest tables. Objects are built once per key, on first
// use, and never evicted.

type cache struct {
	sync.Mutex
	objects map[uint64]any
}

// LoadFunc builds the object for key.
type LoadFunc func(key string) (any, error)

// GlobalObjectCache is the process-wide cache.
var GlobalObjectCache *cache

var createOnce sync.Once

func (c *cache) load(key string, h uint64, loadFunc LoadFunc) (any, error) {
	log.Debug().Str("key", key).Msg("loading-into-cache")

	obj, err := loadFunc(key)
	if err != nil {
		return nil, err
	}
	c.objects[h] = obj
	return obj, nil
}

func (c *cache) get(key string, loadFunc LoadFunc) (any, error) {
	h := xxhash.Sum64String(key)
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[h]; ok {
		return obj, nil
	}
	return c.load(key, h, loadFunc)
}

func (c *cache) size() int {
	c.Lock()
	defer c.Unlock()
	return len(c.objects)
}

// CreateGlobalObjectCache makes sure the global cache exists.
func CreateGlobalObjectCache() {
	createOnce.Do(func() {
		GlobalObjectCache = &cache{objects: make(map[uint64]any)}
	})
}

// Load returns the cached object for key, building it with loadFunc if this
// is the first request.
func Load(key string, loadFunc LoadFunc) (any, error) {
	CreateGlobalObjectCache()
	return GlobalObjectCache.get(key, loadFunc)
}

// Size is the number of cached objects.
func Size() int {
	CreateGlobalObjectCache()
	return GlobalObjectCache.size()
}
