package connectors

import (
	"sync"
	"time"
)

// PriceCache holds the most recent price seen per symbol, fed by the
// ticker stream. It is the in-process tier of the last-known-price
// fallback used when the live oracle has no quote.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]float64
	seen   map[string]time.Time
	maxAge time.Duration
}

func NewPriceCache(maxAge time.Duration) *PriceCache {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &PriceCache{
		prices: make(map[string]float64),
		seen:   make(map[string]time.Time),
		maxAge: maxAge,
	}
}

// Set records a price. Zero prices are ignored: 0 always means "no quote".
func (c *PriceCache) Set(symbol string, price float64) {
	if price <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = price
	c.seen[symbol] = time.Now()
}

// Get returns the cached price for a symbol, if fresh enough.
func (c *PriceCache) Get(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	price, ok := c.prices[symbol]
	if !ok {
		return 0, false
	}
	if time.Since(c.seen[symbol]) > c.maxAge {
		return 0, false
	}
	return price, true
}

// Snapshot returns fresh cached prices for the requested symbols.
func (c *PriceCache) Snapshot(symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if p, ok := c.Get(s); ok {
			out[s] = p
		}
	}
	return out
}
