package alerts

import (
	"strconv"
	"testing"
	"time"

	"apradar/internal/model"
)

func alertAt(i int, base time.Time) model.Alert {
	return model.Alert{
		ID:        strconv.Itoa(i),
		Timestamp: base.Add(time.Duration(i) * time.Second),
		BSSID:     "AA:" + strconv.Itoa(i%2),
	}
}

func ids(list []model.Alert) string {
	out := ""
	for _, a := range list {
		out += a.ID
	}
	return out
}

func TestRingKeepsNewest(t *testing.T) {
	s := NewStore(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Add(alertAt(i, base))
	}
	if got := ids(s.List(0)); got != "234" {
		t.Fatalf("list order: %s", got)
	}
	if got := ids(s.List(2)); got != "34" {
		t.Fatalf("limited list: %s", got)
	}
	if s.Len() != 3 {
		t.Fatalf("len: %d", s.Len())
	}
}

func TestSince(t *testing.T) {
	s := NewStore(10)
	base := time.Now()
	for i := 0; i < 4; i++ {
		s.Add(alertAt(i, base))
	}
	if got := ids(s.Since(base.Add(2 * time.Second))); got != "23" {
		t.Fatalf("since: %s", got)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(2)
	s.Add(alertAt(0, time.Now()))
	s.Add(alertAt(1, time.Now()))
	s.Add(alertAt(2, time.Now()))
	s.Clear()
	if len(s.List(0)) != 0 {
		t.Fatalf("expected empty store")
	}
	s.Add(alertAt(3, time.Now()))
	if got := ids(s.List(0)); got != "3" {
		t.Fatalf("after clear: %s", got)
	}
}
