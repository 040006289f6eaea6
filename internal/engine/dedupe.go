package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"apradar/internal/model"
)

// DedupeCache drops the same scan delivered twice, for example by a file
// tail and a TCP forwarder reading one scanner.
type DedupeCache struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func NewDedupeCache() *DedupeCache {
	return &DedupeCache{items: make(map[string]time.Time)}
}

func (d *DedupeCache) Seen(obs model.Observation, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	key := observationKey(obs)
	d.mu.Lock()
	defer d.mu.Unlock()
	if ts, ok := d.items[key]; ok && now.Sub(ts) <= ttl {
		return true
	}
	d.items[key] = now
	if len(d.items) > 10000 {
		d.compact(now, ttl)
	}
	return false
}

func (d *DedupeCache) compact(now time.Time, ttl time.Duration) {
	for k, ts := range d.items {
		if now.Sub(ts) > ttl {
			delete(d.items, k)
		}
	}
}

func observationKey(obs model.Observation) string {
	parts := []string{
		obs.BSSID,
		strconv.Itoa(obs.SignalDBm),
		strconv.Itoa(obs.FrequencyMHz),
		obs.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

func (d *DedupeCache) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = make(map[string]time.Time)
}
