package reports

import (
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"apradar/internal/model"
)

// HighRiskScore is the score a network must exceed to count as high risk in
// Stats.
const HighRiskScore = 50

// Store keeps the latest scan record per BSSID. Once limit networks are
// tracked the least recently updated one is evicted.
type Store struct {
	cache *lru.Cache[string, model.ScanRecord]
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	cache, err := lru.New[string, model.ScanRecord](limit)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &Store{cache: cache}
}

func (s *Store) Update(rec model.ScanRecord) {
	if rec.Observation.BSSID == "" {
		return
	}
	s.cache.Add(rec.Observation.BSSID, rec)
}

func (s *Store) Get(bssid string) (model.ScanRecord, bool) {
	return s.cache.Peek(bssid)
}

// List returns up to limit records, highest score first and then by BSSID.
// limit <= 0 returns everything.
func (s *Store) List(limit int) []model.ScanRecord {
	out := s.cache.Values()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Report.Score != out[j].Report.Score {
			return out[i].Report.Score > out[j].Report.Score
		}
		return out[i].Observation.BSSID < out[j].Observation.BSSID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// Stats counts tracked networks. A network scanned at or after since is
// active, and only active networks count towards the risk tallies.
func (s *Store) Stats(since time.Time) model.Stats {
	var stats model.Stats
	for _, rec := range s.cache.Values() {
		stats.TotalNetworks++
		if rec.Observation.Timestamp.Before(since) {
			continue
		}
		stats.ActiveNetworks++
		if rec.Report.Score > HighRiskScore {
			stats.HighRiskNetworks++
		}
		if rec.Observation.Open {
			stats.OpenNetworks++
		}
		if rec.Observation.Hidden {
			stats.HiddenNetworks++
		}
	}
	return stats
}

func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) Clear() {
	s.cache.Purge()
}
