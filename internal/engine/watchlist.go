package engine

import (
	"apradar/internal/config"
	"apradar/internal/normalize"
)

// Watchlist marks BSSIDs an operator has vetted. Trusted networks never
// alert; blocked networks always do.
type Watchlist struct {
	Enabled bool
	trusted map[string]struct{}
	blocked map[string]struct{}
}

func buildWatchlist(cfg config.WatchlistConfig) *Watchlist {
	wl := &Watchlist{Enabled: cfg.Enabled}
	if !wl.Enabled {
		return wl
	}
	wl.trusted = buildBSSIDSet(cfg.Trusted)
	wl.blocked = buildBSSIDSet(cfg.Blocked)
	return wl
}

func buildBSSIDSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		bssid := normalize.NormalizeBSSID(v)
		if bssid == "" {
			continue
		}
		set[bssid] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func (w *Watchlist) IsTrusted(bssid string) bool {
	if w == nil || !w.Enabled {
		return false
	}
	_, ok := w.trusted[bssid]
	return ok
}

func (w *Watchlist) IsBlocked(bssid string) bool {
	if w == nil || !w.Enabled {
		return false
	}
	_, ok := w.blocked[bssid]
	return ok
}
