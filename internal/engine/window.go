package engine

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"apradar/internal/model"
)

// Window keeps the most recent observations per BSSID in memory. It bounds
// both the entries per network and the number of networks tracked.
type Window struct {
	mu       sync.Mutex
	perBSSID int
	rings    *lru.Cache[string, *ring]
}

type ring struct {
	items []model.Observation
	head  int
	size  int
}

func NewWindow(perBSSID, maxNetworks int) *Window {
	if perBSSID <= 0 {
		perBSSID = 20
	}
	if maxNetworks <= 0 {
		maxNetworks = 5000
	}
	rings, err := lru.New[string, *ring](maxNetworks)
	if err != nil {
		panic(err)
	}
	return &Window{perBSSID: perBSSID, rings: rings}
}

func (w *Window) Record(obs model.Observation) {
	if obs.BSSID == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.rings.Get(obs.BSSID)
	if !ok {
		r = &ring{items: make([]model.Observation, 0, w.perBSSID), size: w.perBSSID}
		w.rings.Add(obs.BSSID, r)
	}
	if len(r.items) < r.size {
		r.items = append(r.items, obs)
		return
	}
	r.items[r.head] = obs
	r.head = (r.head + 1) % len(r.items)
}

// History returns up to limit observations for bssid, most recent first.
func (w *Window) History(_ context.Context, bssid string, limit int) ([]model.Observation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.rings.Peek(bssid)
	if !ok {
		return nil, nil
	}
	n := len(r.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Observation, 0, n)
	// The newest entry sits just before head once the ring has wrapped.
	for i := 1; i <= n; i++ {
		idx := (r.head - i + len(r.items)) % len(r.items)
		out = append(out, r.items[idx])
	}
	return out, nil
}

// SetLimit changes the per-BSSID bound for rings created afterwards.
func (w *Window) SetLimit(perBSSID int) {
	if perBSSID <= 0 {
		return
	}
	w.mu.Lock()
	w.perBSSID = perBSSID
	w.mu.Unlock()
}

func (w *Window) Len() int {
	return w.rings.Len()
}

func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rings.Purge()
}
