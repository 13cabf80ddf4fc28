// internal/shop/cache.go
package shop

import (
	"sync"

	"pixelverk/internal/logger"
	"pixelverk/internal/product"
)

// Page paths, matching the storefront routes
func ShopPath() string { return "/shop" }

func CategoryPath(c product.Category) string { return "/shop/" + string(c) }

func ProductPath(c product.Category, productID string) string {
	return "/shop/" + string(c) + "/" + productID
}

// PageCache holds rendered page data until an admin change marks it stale.
type PageCache struct {
	mu    sync.RWMutex
	pages map[string]interface{}
}

func NewPageCache() *PageCache {
	return &PageCache{pages: make(map[string]interface{})}
}

func (c *PageCache) Get(path string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.pages[path]
	return v, ok
}

func (c *PageCache) Put(path string, v interface{}) {
	c.mu.Lock()
	c.pages[path] = v
	c.mu.Unlock()
}

// Invalidate drops the given pages so the next read reloads from storage.
func (c *PageCache) Invalidate(paths ...string) {
	c.mu.Lock()
	for _, p := range paths {
		delete(c.pages, p)
	}
	c.mu.Unlock()
	logger.LogInfo("Invalidated pages: %v", paths)
}
