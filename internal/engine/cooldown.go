package engine

import (
	"sync"
	"time"
)

// Cooldown suppresses repeat alerts for the same BSSID.
type Cooldown struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewCooldown() *Cooldown {
	return &Cooldown{last: make(map[string]time.Time)}
}

// Allow reports whether bssid may alert at now and, if so, starts a new
// cooldown period for it.
func (c *Cooldown) Allow(bssid string, now time.Time, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts, ok := c.last[bssid]; ok && now.Sub(ts) < cooldown {
		return false
	}
	c.last[bssid] = now
	if len(c.last) > 10000 {
		for k, ts := range c.last {
			if now.Sub(ts) >= cooldown {
				delete(c.last, k)
			}
		}
	}
	return true
}

func (c *Cooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = make(map[string]time.Time)
}
