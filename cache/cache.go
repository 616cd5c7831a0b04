package cache

/*

entries never expire on their own, the proxy loop sweeps them with
Invalidate before every lookup so a request only ever sees entries
younger than the configured ttl

*/

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/treemana/godoh/util"
)

// Entry is a cached resolver response with the resolver's transaction ID removed.
type Entry struct {
	At      time.Time
	Payload []byte
}

type Cache struct {
	store *gocache.Cache
	now   func() time.Time
}

func New() *Cache {
	return &Cache{
		store: gocache.New(gocache.NoExpiration, 0),
		now:   time.Now,
	}
}

// KeyFor returns every byte of query except the transaction ID, so queries
// differing only in their ID share an entry.
func KeyFor(query []byte) string {
	if len(query) < util.IDLen {
		return ""
	}
	return string(query[util.IDLen:])
}

func (c *Cache) Get(key string) (Entry, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

func (c *Cache) Insert(key string, payload []byte) {
	c.store.Set(key, Entry{At: c.now(), Payload: payload}, gocache.NoExpiration)
}

// Invalidate removes every entry older than ttl when force is set, a ttl
// of zero or less removes them all. It returns the number of removed entries.
func (c *Cache) Invalidate(ttl time.Duration, force bool) int {
	if !force {
		return 0
	}

	if ttl <= 0 {
		n := c.store.ItemCount()
		c.store.Flush()
		return n
	}

	var (
		now     = c.now()
		removed int
	)
	for key, item := range c.store.Items() {
		if now.Sub(item.Object.(Entry).At) > ttl {
			c.store.Delete(key)
			removed++
		}
	}

	return removed
}

func (c *Cache) Len() int {
	return c.store.ItemCount()
}
