package quote

import (
	"sync"
	"time"

	"ledger-swap/pkg/types"
)

// cache holds quotes keyed by (pay, receive, amount). Entries are evicted
// lazily on read; there is no background sweep.
type cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*types.Quote
}

func newCache(ttl time.Duration, now func() time.Time) *cache {
	return &cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]*types.Quote),
	}
}

func cacheKey(paySymbol, receiveSymbol, amount string) string {
	return paySymbol + "|" + receiveSymbol + "|" + amount
}

func (c *cache) get(key string) (*types.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if q.AgeAt(c.now()) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return q, true
}

func (c *cache) put(key string, q *types.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = q
}
