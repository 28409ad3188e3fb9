package app

import (
	"strings"
	"sync"

	EventBus "github.com/asaskevich/EventBus"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// ViewInvalidateTopic carries the []string of view paths a write made stale.
// A path ending in "/" drops every view below it.
const ViewInvalidateTopic = "view:invalidate"

// ViewCache holds rendered read views (trip board, trip detail) keyed by
// request path plus query. Writers never touch it directly: they publish the
// stale paths on the bus and the cache drops every key under them.
type ViewCache struct {
	bus   EventBus.Bus
	cache *lru.Cache

	mu  sync.Mutex
	gen uint64
}

func NewViewCache(size int, bus EventBus.Bus) *ViewCache {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	v := &ViewCache{bus: bus, cache: cache}
	if err := bus.Subscribe(ViewInvalidateTopic, v.drop); err != nil {
		zap.L().Error("view cache subscribe failed", zap.Error(err))
	}
	return v
}

// Invalidate publishes the stale paths
func (v *ViewCache) Invalidate(paths ...string) {
	if len(paths) == 0 {
		return
	}
	v.bus.Publish(ViewInvalidateTopic, paths)
}

func (v *ViewCache) drop(paths []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	for _, key := range v.cache.Keys() {
		k, _ := key.(string)
		for _, p := range paths {
			if k == p || strings.HasPrefix(k, p+"?") || (strings.HasSuffix(p, "/") && strings.HasPrefix(k, p)) {
				v.cache.Remove(key)
				break
			}
		}
	}
}

func (v *ViewCache) Get(key string) ([]byte, bool) {
	val, ok := v.cache.Get(key)
	if !ok {
		return nil, false
	}
	body, ok := val.([]byte)
	return body, ok
}

func (v *ViewCache) Set(key string, body []byte) {
	v.mu.Lock()
	v.cache.Add(key, body)
	v.mu.Unlock()
}

// Generation counts invalidations; read it before building a view
func (v *ViewCache) Generation() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen
}

// SetIfCurrent stores the view only when no invalidation ran since gen was
// read, so a view built from rows that changed meanwhile is never kept
func (v *ViewCache) SetIfCurrent(key string, body []byte, gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen != gen {
		return false
	}
	v.cache.Add(key, body)
	return true
}

func (v *ViewCache) Len() int {
	return v.cache.Len()
}

// Purge empties the cache
func (v *ViewCache) Purge() {
	v.cache.Purge()
}
