package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/garyjia/claimdesk/internal/application/port"
)

// RoleCache implements port.RoleCache in memory
type RoleCache struct {
	cache *gocache.Cache
}

// NewRoleCache creates a role cache whose entries live for ttl
func NewRoleCache(ttl, cleanupInterval time.Duration) *RoleCache {
	return &RoleCache{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// Get returns the cached role for a user
func (c *RoleCache) Get(userID string) (string, bool) {
	if val, found := c.cache.Get(userID); found {
		role, ok := val.(string)
		return role, ok
	}
	return "", false
}

// Set caches a role with the default TTL
func (c *RoleCache) Set(userID, role string) {
	c.cache.SetDefault(userID, role)
}

// Invalidate drops a user's cached role
func (c *RoleCache) Invalidate(userID string) {
	c.cache.Delete(userID)
}

// Len returns the number of cached entries, expired ones included until cleanup
func (c *RoleCache) Len() int {
	return c.cache.ItemCount()
}

var _ port.RoleCache = (*RoleCache)(nil)
